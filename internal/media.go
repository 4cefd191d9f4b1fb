package internal

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ScanMediaFiles walks dirs for media files by configured extension (and by
// content when SniffContent is on). Symlinks to media are included so they
// show up in the report. The result is sorted, de-duplicated and capped by cfg.Limit.
func ScanMediaFiles(dirs []string, cfg *Config) ([]string, error) {
	var files []string
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if d.Name() == SessionDirName {
					return filepath.SkipDir
				}
				return nil
			}
			if IsMediaPath(path, d, cfg) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("error scanning %s: %w", dir, err)
		}
	}

	slices.Sort(files)
	files = slices.Compact(files)
	if cfg.Limit > 0 && len(files) > cfg.Limit {
		files = files[:cfg.Limit]
	}
	return files, nil
}

// IsMediaPath decides whether a walked entry is a media file.
func IsMediaPath(path string, d fs.DirEntry, cfg *Config) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if cfg.IsMediaExt(ext) || cfg.IsMediaExt("."+NormalizeExtension(path)) {
		return true
	}
	if !cfg.SniffContent || d == nil || !d.Type().IsRegular() {
		return false
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return false
	}
	for m := mt; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "image/") || strings.HasPrefix(m.String(), "video/") {
			return true
		}
	}
	return false
}
