package internal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(data)
}

func TestCopyFileAtomic(t *testing.T) {
	tempDir := t.TempDir()
	src := writeFile(t, filepath.Join(tempDir, "src.jpg"), "photo bytes")
	mtime := time.Date(2020, 5, 1, 10, 0, 0, 0, time.UTC)
	os.Chtimes(src, mtime, mtime)

	dest := filepath.Join(tempDir, "out", "dest.jpg")
	os.MkdirAll(filepath.Dir(dest), 0755)

	if err := copyFileAtomic(src, dest); err != nil {
		t.Fatalf("copyFileAtomic failed: %v", err)
	}
	if got := readFile(t, dest); got != "photo bytes" {
		t.Errorf("Expected copied content, got %q", got)
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("Expected source untouched, got %v", err)
	}

	info, _ := os.Stat(dest)
	if !info.ModTime().Equal(mtime) {
		t.Errorf("Expected mtime %v preserved, got %v", mtime, info.ModTime())
	}

	entries, _ := os.ReadDir(filepath.Dir(dest))
	if len(entries) != 1 {
		t.Errorf("Expected no temp files left behind, got %d entries", len(entries))
	}
}

func TestCopyFileAtomic_MissingSource(t *testing.T) {
	tempDir := t.TempDir()
	err := copyFileAtomic(filepath.Join(tempDir, "nope.jpg"), filepath.Join(tempDir, "dest.jpg"))
	if err == nil {
		t.Fatal("Expected error for missing source")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected ErrNotExist in chain, got %v", err)
	}
}

func TestRelocate_Modes(t *testing.T) {
	tests := []struct {
		mode          Mode
		sourceRemains bool
		isLink        bool
	}{
		{ModeMove, false, false},
		{ModeCopy, true, false},
		{ModeSymlink, true, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			tempDir := t.TempDir()
			src := writeFile(t, filepath.Join(tempDir, "in", "a.jpg"), "content")
			dest := filepath.Join(tempDir, "lib", "a.jpg")
			os.MkdirAll(filepath.Dir(dest), 0755)

			if err := relocate(tt.mode, src, dest); err != nil {
				t.Fatalf("relocate failed: %v", err)
			}

			_, err := os.Stat(src)
			if tt.sourceRemains && err != nil {
				t.Errorf("Expected source to remain, got %v", err)
			}
			if !tt.sourceRemains && err == nil {
				t.Errorf("Expected source to be gone after move")
			}

			info, err := os.Lstat(dest)
			if err != nil {
				t.Fatalf("Expected destination, got %v", err)
			}
			if gotLink := info.Mode()&os.ModeSymlink != 0; gotLink != tt.isLink {
				t.Errorf("Expected symlink=%v, got %v", tt.isLink, gotLink)
			}
			if tt.isLink {
				target, _ := os.Readlink(dest)
				if !filepath.IsAbs(target) {
					t.Errorf("Expected absolute link target, got %s", target)
				}
			}
			if got := readFile(t, dest); got != "content" {
				t.Errorf("Expected content through destination, got %q", got)
			}
		})
	}
}

func TestRelocate_InvalidMode(t *testing.T) {
	err := relocate(Mode("teleport"), "a", "b")
	if !errors.Is(err, ErrInvalidMode) {
		t.Errorf("Expected ErrInvalidMode, got %v", err)
	}
}

func TestSameFile(t *testing.T) {
	tempDir := t.TempDir()
	a := writeFile(t, filepath.Join(tempDir, "a.jpg"), "x")
	b := writeFile(t, filepath.Join(tempDir, "b.jpg"), "x")
	hard := filepath.Join(tempDir, "hard.jpg")
	if err := os.Link(a, hard); err != nil {
		t.Fatalf("Link failed: %v", err)
	}

	if !sameFile(a, filepath.Join(tempDir, ".", "a.jpg")) {
		t.Error("Expected equal paths to be the same file")
	}
	if !sameFile(a, hard) {
		t.Error("Expected hardlink to be the same file")
	}
	if sameFile(a, b) {
		t.Error("Expected distinct files with equal content to differ")
	}
	if sameFile(a, filepath.Join(tempDir, "missing.jpg")) {
		t.Error("Expected missing file to differ")
	}
}
