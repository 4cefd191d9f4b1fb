package internal

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/barasher/go-exiftool"
	"go.uber.org/zap"
)

// ExifToolSource shells out to a stay-open exiftool process. It is the most
// compatible backend and the slowest, so it sits last in the default chain.
type ExifToolSource struct {
	binary string
	logger *zap.Logger

	once    sync.Once
	mu      sync.Mutex
	et      *exiftool.Exiftool
	initErr error
}

func NewExifToolSource(binary string, logger *zap.Logger) *ExifToolSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExifToolSource{binary: binary, logger: logger}
}

func (s *ExifToolSource) Name() string { return BackendExifTool }

func (s *ExifToolSource) start() error {
	s.once.Do(func() {
		var opts []func(*exiftool.Exiftool) error
		if s.binary != "" {
			opts = append(opts, exiftool.SetExiftoolBinaryPath(s.binary))
		}
		s.et, s.initErr = exiftool.NewExiftool(opts...)
		if s.initErr != nil {
			s.logger.Warn("exiftool unavailable", zap.Error(s.initErr))
		}
	})
	return s.initErr
}

func (s *ExifToolSource) Extract(path string) (map[string]string, error) {
	if err := s.start(); err != nil {
		return nil, fmt.Errorf("failed to start exiftool: %w", err)
	}

	s.mu.Lock()
	if s.et == nil {
		s.mu.Unlock()
		return nil, errors.New("exiftool already closed")
	}
	fms := s.et.ExtractMetadata(path)
	s.mu.Unlock()

	if len(fms) != 1 {
		return nil, fmt.Errorf("exiftool returned %d results", len(fms))
	}
	fm := fms[0]
	if fm.Err != nil {
		return nil, fmt.Errorf("exiftool: %w", fm.Err)
	}

	bag := make(map[string]string, len(fm.Fields))
	for k, v := range fm.Fields {
		bag[k] = exifToolValue(v)
	}
	return bag, nil
}

// exifToolValue renders a decoded JSON value as exiftool would print it.
func exifToolValue(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []interface{}:
		parts := make([]string, 0, len(x))
		for _, p := range x {
			parts = append(parts, exifToolValue(p))
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprint(v)
}

func (s *ExifToolSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.et == nil {
		return nil
	}
	err := s.et.Close()
	s.et = nil
	return err
}
