package internal

import (
	"testing"
	"time"
)

func TestGenerateFilename(t *testing.T) {
	ts := time.Date(2025, 9, 24, 8, 20, 49, 0, time.UTC)

	tests := []struct {
		name    string
		millis  int
		ext     string
		claimed []string
		want    string
	}{
		{"canonical", 0, "jpg", nil, "2025/09-Sep/20250924_082049.000.jpg"},
		{"millis", 7, "mov", nil, "2025/09-Sep/20250924_082049.007.mov"},
		{"first suffix", 0, "jpg", []string{"2025/09-Sep/20250924_082049.000.jpg"}, "2025/09-Sep/20250924_082049.000-2.jpg"},
		{"third", 0, "jpg", []string{
			"2025/09-Sep/20250924_082049.000.jpg",
			"2025/09-Sep/20250924_082049.000-2.jpg",
		}, "2025/09-Sep/20250924_082049.000-3.jpg"},
		{"gap reused", 0, "jpg", []string{
			"2025/09-Sep/20250924_082049.000.jpg",
			"2025/09-Sep/20250924_082049.000-3.jpg",
		}, "2025/09-Sep/20250924_082049.000-2.jpg"},
		{"other ext not a collision", 0, "png", []string{"2025/09-Sep/20250924_082049.000.jpg"}, "2025/09-Sep/20250924_082049.000.png"},
		{"no extension", 0, "", nil, "2025/09-Sep/20250924_082049.000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateFilename(ts, tt.millis, tt.ext, tt.claimed)
			if got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestGenerateFilename_DeterministicAndPure(t *testing.T) {
	ts := time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)
	claimed := []string{"2024/02-Feb/20240229_235959.999.heic"}

	a := GenerateFilename(ts, 999, "heic", claimed)
	b := GenerateFilename(ts, 999, "heic", claimed)
	if a != b {
		t.Errorf("Expected identical output, got %s and %s", a, b)
	}
	if len(claimed) != 1 {
		t.Errorf("Expected claimed to be left alone, got %v", claimed)
	}
	for _, c := range claimed {
		if c == a {
			t.Errorf("Generated name %s collides with claimed set", a)
		}
	}
}

func TestGenerateFilename_NeverCollides(t *testing.T) {
	ts := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	var claimed []string
	seen := make(map[string]bool)
	for i := 0; i < 25; i++ {
		name := GenerateFilename(ts, 0, "jpg", claimed)
		if seen[name] {
			t.Fatalf("Duplicate name %s after %d claims", name, i)
		}
		seen[name] = true
		claimed = append(claimed, name)
	}
}

func TestBucket(t *testing.T) {
	tests := []struct {
		t    time.Time
		want string
	}{
		{time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), "2025/01-Jan"},
		{time.Date(1999, 12, 31, 23, 0, 0, 0, time.UTC), "1999/12-Dec"},
		{time.Date(2010, 6, 15, 0, 0, 0, 0, time.UTC), "2010/06-Jun"},
	}
	for _, tt := range tests {
		if got := Bucket(tt.t); got != tt.want {
			t.Errorf("Expected %s, got %s", tt.want, got)
		}
	}
}

func TestNormalizeExtension(t *testing.T) {
	tests := map[string]string{
		"IMG_0001.JPG":      "jpg",
		"clip.MoV":          "mov",
		"weird.%jpg":        "jpg",
		"weird.%JPEG":       "jpg",
		"video.%mov":        "mov",
		"video.%mp4":        "mp4",
		"archive.tar.gz":    "gz",
		"no_extension":      "",
		"/a/b.c/photo.HEIC": "heic",
	}
	for in, want := range tests {
		if got := NormalizeExtension(in); got != want {
			t.Errorf("NormalizeExtension(%q): expected %q, got %q", in, want, got)
		}
	}
}
