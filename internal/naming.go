package internal

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

var monthAbbrev = [12]string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// Bucket returns the "{year}/{month}-{Mon}" directory a timestamp belongs to.
func Bucket(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%04d/%02d-%s", t.Year(), int(t.Month()), monthAbbrev[t.Month()-1])
}

// GenerateFilename builds the canonical relative path for a capture time.
// When the canonical name is already in claimed, "-2", "-3", ... is appended
// after the millisecond field until the name is free. claimed is not modified.
func GenerateFilename(t time.Time, millis int, ext string, claimed []string) string {
	t = t.UTC()
	stem := fmt.Sprintf("%s/%04d%02d%02d_%02d%02d%02d.%03d",
		Bucket(t),
		t.Year(), int(t.Month()), t.Day(),
		t.Hour(), t.Minute(), t.Second(),
		millis)

	name := withExt(stem, ext)
	for n := 2; slices.Contains(claimed, name); n++ {
		name = withExt(fmt.Sprintf("%s-%d", stem, n), ext)
	}
	return name
}

func withExt(stem, ext string) string {
	if ext == "" {
		return stem
	}
	return stem + "." + ext
}

// NormalizeExtension lowercases the extension of path and repairs the
// "%jpg" style suffixes some phone exports produce.
func NormalizeExtension(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "%jpg", "%jpeg":
		return "jpg"
	case "%mov":
		return "mov"
	case "%mp4":
		return "mp4"
	}
	return ext
}
