package internal

import (
	"fmt"
	"time"

	"gopkg.in/djherbis/times.v1"
)

// FieldFileMtime marks timestamps that came from the filesystem rather than metadata.
const FieldFileMtime = "FileModifyDate(mtime)"

// fileModTimestamp is the last-resort capture time: the file's modification
// time, second precision, milliseconds zero.
func fileModTimestamp(path string) (CaptureTimestamp, error) {
	ts, err := times.Stat(path)
	if err != nil {
		return CaptureTimestamp{}, fmt.Errorf("failed to stat for mtime: %w", err)
	}
	return CaptureTimestamp{
		Time:   ts.ModTime().UTC().Truncate(time.Second),
		Millis: 0,
		Field:  FieldFileMtime,
	}, nil
}
