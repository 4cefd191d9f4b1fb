package internal

import (
	"errors"
	"fmt"
	"strings"

	exifv3 "github.com/dsoprea/go-exif/v3"
)

// GoExifV3Source reads EXIF with github.com/dsoprea/go-exif/v3. It tolerates
// files the goexif decoder rejects, at the cost of reading the whole file.
type GoExifV3Source struct{}

func NewGoExifV3Source() *GoExifV3Source {
	return &GoExifV3Source{}
}

func (s *GoExifV3Source) Name() string { return BackendGoExifV3 }

func (s *GoExifV3Source) Extract(path string) (bag map[string]string, err error) {
	// go-exif reports some malformed IFDs by panicking.
	defer func() {
		if r := recover(); r != nil {
			bag, err = nil, fmt.Errorf("exif parser panic: %v", r)
		}
	}()

	raw, err := exifv3.SearchFileAndExtractExif(path)
	if err != nil {
		if errors.Is(err, exifv3.ErrNoExif) {
			return nil, fmt.Errorf("no exif data: %w", ErrUnsupported)
		}
		return nil, fmt.Errorf("failed to locate exif: %w", err)
	}

	entries, _, err := exifv3.GetFlatExifData(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read exif: %w", err)
	}

	bag = make(map[string]string, len(entries))
	for _, e := range entries {
		if e.TagName == "" {
			continue
		}
		name := normalizeTagName(e.TagName)
		// IFD0 comes first; keep it over thumbnail IFD duplicates.
		if _, seen := bag[name]; seen {
			continue
		}
		bag[name] = strings.TrimSpace(strings.TrimRight(e.Formatted, "\x00"))
	}
	return bag, nil
}
