package internal

import (
	"os"
	"path/filepath"
	"testing"
)

func testConfig() *Config {
	cfg := &Config{
		ImageExt: []string{"jpg", ".PNG", ".heic"},
		VideoExt: []string{".mov", ".mp4"},
	}
	cfg.normalize()
	return cfg
}

func TestScanMediaFiles(t *testing.T) {
	tempDir := t.TempDir()
	writeFile(t, filepath.Join(tempDir, "b.JPG"), "x")
	writeFile(t, filepath.Join(tempDir, "a.png"), "x")
	writeFile(t, filepath.Join(tempDir, "sub", "clip.mov"), "x")
	writeFile(t, filepath.Join(tempDir, "odd.%mp4"), "x")
	writeFile(t, filepath.Join(tempDir, "notes.txt"), "x")
	writeFile(t, filepath.Join(tempDir, SessionDirName, "abc", "old.jpg"), "x")

	files, err := ScanMediaFiles([]string{tempDir, tempDir}, testConfig())
	if err != nil {
		t.Fatalf("ScanMediaFiles failed: %v", err)
	}

	want := []string{
		filepath.Join(tempDir, "a.png"),
		filepath.Join(tempDir, "b.JPG"),
		filepath.Join(tempDir, "odd.%mp4"),
		filepath.Join(tempDir, "sub", "clip.mov"),
	}
	if len(files) != len(want) {
		t.Fatalf("Expected %d files, got %d: %v", len(want), len(files), files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("File %d: expected %s, got %s", i, want[i], files[i])
		}
	}
}

func TestScanMediaFiles_Limit(t *testing.T) {
	tempDir := t.TempDir()
	for _, name := range []string{"1.jpg", "2.jpg", "3.jpg"} {
		writeFile(t, filepath.Join(tempDir, name), "x")
	}
	cfg := testConfig()
	cfg.Limit = 2

	files, err := ScanMediaFiles([]string{tempDir}, cfg)
	if err != nil {
		t.Fatalf("ScanMediaFiles failed: %v", err)
	}
	if len(files) != 2 || filepath.Base(files[1]) != "2.jpg" {
		t.Errorf("Expected first two files, got %v", files)
	}
}

func TestScanMediaFiles_IncludesSymlinks(t *testing.T) {
	tempDir := t.TempDir()
	target := writeFile(t, filepath.Join(tempDir, "real.jpg"), "x")
	if err := os.Symlink(target, filepath.Join(tempDir, "link.jpg")); err != nil {
		t.Fatalf("Symlink failed: %v", err)
	}

	files, err := ScanMediaFiles([]string{tempDir}, testConfig())
	if err != nil {
		t.Fatalf("ScanMediaFiles failed: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("Expected link and target, got %v", files)
	}
}

func TestScanMediaFiles_MissingDir(t *testing.T) {
	if _, err := ScanMediaFiles([]string{filepath.Join(t.TempDir(), "gone")}, testConfig()); err == nil {
		t.Error("Expected error for missing directory")
	}
}

func TestIsMediaPath_Sniff(t *testing.T) {
	tempDir := t.TempDir()
	// PNG signature behind an extension nobody configured
	png := filepath.Join(tempDir, "download.bin")
	os.WriteFile(png, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00"), 0644)
	text := writeFile(t, filepath.Join(tempDir, "readme.bin"), "plain text")

	cfg := testConfig()
	if IsMediaPath(png, nil, cfg) {
		t.Error("Expected no sniffing without a dir entry")
	}

	entries, _ := os.ReadDir(tempDir)
	byName := make(map[string]os.DirEntry)
	for _, e := range entries {
		byName[e.Name()] = e
	}
	if IsMediaPath(png, byName["download.bin"], cfg) {
		t.Error("Expected sniffing off by default")
	}

	cfg.SniffContent = true
	if !IsMediaPath(png, byName["download.bin"], cfg) {
		t.Error("Expected PNG content to be detected")
	}
	if IsMediaPath(text, byName["readme.bin"], cfg) {
		t.Error("Expected text content to be rejected")
	}
}
