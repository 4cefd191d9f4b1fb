package internal

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// ErrUnsupported is returned by a backend that cannot read a given file type.
var ErrUnsupported = errors.New("unsupported format")

// ErrBackendsExhausted is returned when every backend failed to read a file.
var ErrBackendsExhausted = errors.New("all metadata backends failed")

// MetadataSource extracts a flat tag -> value bag from a media file.
type MetadataSource interface {
	Name() string
	Extract(path string) (map[string]string, error)
}

const (
	BackendGoExif   = "goexif"
	BackendGoExifV3 = "goexifv3"
	BackendMP4      = "mp4"
	BackendExifTool = "exiftool"
)

// DefaultBackends is the fastest-first order used when none is configured.
var DefaultBackends = []string{BackendGoExif, BackendGoExifV3, BackendMP4, BackendExifTool}

// NewMetadataSource builds a registered backend by name.
func NewMetadataSource(name string, cfg *Config, logger *zap.Logger) (MetadataSource, error) {
	switch name {
	case BackendGoExif:
		return NewGoExifSource(), nil
	case BackendGoExifV3:
		return NewGoExifV3Source(), nil
	case BackendMP4:
		return NewMP4Source(), nil
	case BackendExifTool:
		path := ""
		if cfg != nil {
			path = cfg.ExifToolPath
		}
		return NewExifToolSource(path, logger), nil
	}
	return nil, fmt.Errorf("unknown metadata backend %q", name)
}

// SourceChain tries backends in order; the first one whose bag resolves wins.
type SourceChain struct {
	sources  []MetadataSource
	resolver Resolver
	logger   *zap.Logger
}

// ChainResult is what a successful chain run produced.
type ChainResult struct {
	Backend   string
	Bag       map[string]string
	Timestamp CaptureTimestamp
	Kind      MediaKind
}

func NewSourceChain(sources []MetadataSource, resolver Resolver, logger *zap.Logger) *SourceChain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SourceChain{sources: sources, resolver: resolver, logger: logger}
}

// Names lists the backends in priority order.
func (c *SourceChain) Names() []string {
	names := make([]string, 0, len(c.sources))
	for _, s := range c.sources {
		names = append(names, s.Name())
	}
	return names
}

// Resolve extracts and resolves path. A bag that carries no usable timestamp
// counts as a failed attempt and the next backend is tried. The returned
// error wraps ErrNoTimestampFound when at least one backend produced a bag.
func (c *SourceChain) Resolve(path string) (ChainResult, error) {
	var errs []error
	sawBag := false
	for _, src := range c.sources {
		bag, err := src.Extract(path)
		if err != nil {
			c.logger.Debug("backend failed", zap.String("backend", src.Name()), zap.String("path", path), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		sawBag = true
		ts, err := c.resolver.Resolve(bag)
		if err != nil {
			c.logger.Debug("no timestamp in bag", zap.String("backend", src.Name()), zap.String("path", path), zap.Int("fields", len(bag)))
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		return ChainResult{Backend: src.Name(), Bag: bag, Timestamp: ts, Kind: ClassifyBag(bag)}, nil
	}
	if len(c.sources) == 0 {
		errs = append(errs, errors.New("no metadata backends configured"))
	}
	if sawBag {
		return ChainResult{}, fmt.Errorf("%w (%v)", ErrNoTimestampFound, flattenErrors(errs))
	}
	return ChainResult{}, fmt.Errorf("%w: %w", ErrBackendsExhausted, errors.Join(errs...))
}

// Close releases backends that hold external resources.
func (c *SourceChain) Close() error {
	var errs []error
	for _, s := range c.sources {
		if cl, ok := s.(io.Closer); ok {
			if err := cl.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func flattenErrors(errs []error) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "; ")
}

// normalizeTagName maps backend-specific names onto the names the resolver uses.
func normalizeTagName(name string) string {
	switch name {
	case "DateTime":
		return "ModifyDate"
	}
	return name
}
