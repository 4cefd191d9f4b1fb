package internal

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrNoTimestampFound is returned when no candidate field yields a capture time.
var ErrNoTimestampFound = errors.New("no valid timestamp found in metadata")

// DefaultFilesystemCutoffYear is the last year a filesystem-derived date is
// believed to be a capture date.
const DefaultFilesystemCutoffYear = 2024

// MediaKind tells which priority list resolved a bag.
type MediaKind string

const (
	MediaPhoto MediaKind = "photo"
	MediaVideo MediaKind = "video"
)

// CaptureTimestamp is a UTC instant with a separate millisecond fraction.
type CaptureTimestamp struct {
	Time   time.Time
	Millis int
	Field  string // metadata field that produced it
}

var videoMarkerFields = []string{
	"MediaCreateDate",
	"MediaModifyDate",
	"TrackCreateDate",
	"TrackModifyDate",
}

var preCombinedFields = []string{
	"SubSecCreateDate",
	"SubSecDateTimeOriginal",
	"SubSecModifyDate",
}

var subSecondPairs = [][2]string{
	{"DateTimeOriginal", "SubSecTimeOriginal"},
	{"ModifyDate", "SubSecTime"},
	{"DateTimeDigitized", "SubSecTimeDigitized"},
}

var photoBaseFields = []string{
	"DateTimeOriginal",
	"ModifyDate",
	"DateTimeDigitized",
	"FileModifyDate",
}

const lastResortField = "CreateDate"

var videoFields = []string{
	"DateTimeOriginal",
	"CreationDate",
	"MediaCreateDate",
	"TrackCreateDate",
	"CreateDate",
	"MakerNotesCreateDate",
	"MediaModifyDate",
	"TrackModifyDate",
	"ModifyDate",
	"MakerNotesModifyDate",
	"NikonDateTime",
	"FileModifyDate",
}

// Resolver picks the best capture timestamp out of a metadata bag.
type Resolver struct {
	// FilesystemCutoffYear rejects File* fields dated after this year.
	FilesystemCutoffYear int
}

// NewResolver returns a resolver using the given cutoff, or the default when cutoff <= 0.
func NewResolver(cutoff int) Resolver {
	if cutoff <= 0 {
		cutoff = DefaultFilesystemCutoffYear
	}
	return Resolver{FilesystemCutoffYear: cutoff}
}

// Resolve resolves a bag with the default cutoff.
func Resolve(bag map[string]string) (CaptureTimestamp, error) {
	return NewResolver(0).Resolve(bag)
}

// ClassifyBag reports whether the bag came from a video container.
func ClassifyBag(bag map[string]string) MediaKind {
	for _, k := range videoMarkerFields {
		if _, ok := bag[k]; ok {
			return MediaVideo
		}
	}
	return MediaPhoto
}

// Resolve returns the highest-priority parseable timestamp in bag.
func (r Resolver) Resolve(bag map[string]string) (CaptureTimestamp, error) {
	if ClassifyBag(bag) == MediaVideo {
		return r.resolveVideo(bag)
	}
	return r.resolvePhoto(bag)
}

func (r Resolver) resolvePhoto(bag map[string]string) (CaptureTimestamp, error) {
	for _, field := range preCombinedFields {
		if ts, ok := r.tryField(bag, field); ok {
			return ts, nil
		}
	}

	for _, pair := range subSecondPairs {
		base, okBase := bag[pair[0]]
		frac, okFrac := bag[pair[1]]
		if !okBase || !okFrac {
			continue
		}
		combined := strings.TrimSpace(base) + "." + padMillis(trimQuotes(strings.TrimSpace(frac)))
		t, ms, err := ParseTimestamp(combined)
		if err != nil {
			continue
		}
		return CaptureTimestamp{Time: t, Millis: ms, Field: pair[0] + "+" + pair[1]}, nil
	}

	for _, field := range photoBaseFields {
		if ts, ok := r.tryField(bag, field); ok {
			return ts, nil
		}
	}

	if raw, ok := bag[lastResortField]; ok && !isZeroTimestamp(raw) {
		if ts, ok := r.tryField(bag, lastResortField); ok {
			return ts, nil
		}
	}

	return CaptureTimestamp{}, fmt.Errorf("photo metadata: %w", ErrNoTimestampFound)
}

func (r Resolver) resolveVideo(bag map[string]string) (CaptureTimestamp, error) {
	for _, field := range videoFields {
		raw, ok := bag[field]
		if !ok || isZeroTimestamp(raw) {
			continue
		}
		if ts, ok := r.tryField(bag, field); ok {
			return ts, nil
		}
	}
	return CaptureTimestamp{}, fmt.Errorf("video metadata: %w", ErrNoTimestampFound)
}

// tryField parses one field, applying the filesystem recency exclusion.
func (r Resolver) tryField(bag map[string]string, field string) (CaptureTimestamp, bool) {
	raw, ok := bag[field]
	if !ok {
		return CaptureTimestamp{}, false
	}
	t, ms, err := ParseTimestamp(raw)
	if err != nil {
		return CaptureTimestamp{}, false
	}
	if isFilesystemField(field) && t.Year() > r.FilesystemCutoffYear {
		return CaptureTimestamp{}, false
	}
	return CaptureTimestamp{Time: t, Millis: ms, Field: field}, true
}

func isFilesystemField(name string) bool {
	return strings.HasPrefix(name, "File")
}

// isZeroTimestamp matches placeholders like "0000:00:00 00:00:00".
func isZeroTimestamp(raw string) bool {
	stripped := strings.Map(func(r rune) rune {
		switch r {
		case ':', '-', '.', ' ', 'T', '0', '"':
			return -1
		}
		return r
	}, raw)
	return stripped == ""
}

// ParseTimestamp parses an EXIF or ISO style date-time. The wall clock is
// taken as UTC; any trailing offset is dropped.
func ParseTimestamp(raw string) (time.Time, int, error) {
	s := trimQuotes(strings.TrimSpace(raw))
	if len(s) < 19 {
		return time.Time{}, 0, fmt.Errorf("timestamp too short: %q", raw)
	}
	if s[10] == 'T' {
		s = s[:10] + " " + s[11:]
	}

	main, frac := s, ""
	if idx := strings.LastIndex(s, "."); idx > 10 {
		main, frac = s[:idx], s[idx+1:]
		if sign := strings.IndexAny(frac, "+-"); sign >= 0 {
			frac = frac[:sign]
		}
		frac = strings.TrimSuffix(frac, "Z")
	}
	main = stripZone(main)

	layout := "2006:01:02 15:04:05"
	if main[4] == '-' {
		layout = "2006-01-02 15:04:05"
	}
	t, err := time.ParseInLocation(layout, main, time.UTC)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("parse %q: %w", raw, err)
	}

	ms, err := parseMillis(frac)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("parse subseconds of %q: %w", raw, err)
	}
	return t, ms, nil
}

func stripZone(s string) string {
	if strings.HasSuffix(s, "Z") {
		return s[:len(s)-1]
	}
	if len(s) > 19 {
		tail := s[len(s)-6:]
		if tail[0] == '+' || tail[0] == '-' {
			return s[:len(s)-6]
		}
	}
	return s
}

func parseMillis(frac string) (int, error) {
	frac = trimQuotes(strings.TrimSpace(frac))
	if frac == "" {
		return 0, nil
	}
	if len(frac) > 3 {
		frac = frac[:3]
	}
	frac = padMillis(frac)
	for _, c := range frac {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid subsecond digits %q", frac)
		}
	}
	return strconv.Atoi(frac)
}

// padMillis right-pads a fraction with zeros to three digits.
func padMillis(frac string) string {
	for len(frac) < 3 {
		frac += "0"
	}
	return frac
}

func trimQuotes(s string) string {
	return strings.Trim(s, "\"'")
}
