package internal

import (
	"fmt"
	"os"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
	"github.com/rwcarlsen/goexif/tiff"
)

func init() {
	exif.RegisterParsers(mknote.All...)
}

// GoExifSource reads EXIF with github.com/rwcarlsen/goexif.
type GoExifSource struct{}

func NewGoExifSource() *GoExifSource {
	return &GoExifSource{}
}

func (s *GoExifSource) Name() string { return BackendGoExif }

func (s *GoExifSource) Extract(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exif: %w", err)
	}

	w := &bagWalker{bag: make(map[string]string)}
	if err := x.Walk(w); err != nil {
		return nil, fmt.Errorf("failed to walk exif: %w", err)
	}
	return w.bag, nil
}

type bagWalker struct {
	bag map[string]string
}

func (w *bagWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	var val string
	if tag.Format() == tiff.StringVal {
		s, err := tag.StringVal()
		if err != nil {
			return nil
		}
		val = s
	} else {
		val = tag.String()
	}
	val = strings.TrimSpace(strings.TrimRight(val, "\x00"))
	w.bag[normalizeTagName(string(name))] = val
	return nil
}
