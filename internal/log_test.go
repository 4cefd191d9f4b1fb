package internal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLevelForVerbosity(t *testing.T) {
	tests := map[int]zapcore.Level{
		0: zapcore.WarnLevel,
		1: zapcore.InfoLevel,
		2: zapcore.DebugLevel,
		5: zapcore.DebugLevel,
	}
	for v, want := range tests {
		if got := levelForVerbosity(v); got != want {
			t.Errorf("Verbosity %d: expected %s, got %s", v, want, got)
		}
	}
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sortify.log")
	logger, cleanup, err := NewLogger(LogOptions{File: path})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	logger.Debug("analyzed", zap.String("path", "a.jpg"))
	cleanup()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log: %v", err)
	}
	line := strings.TrimSpace(string(data))
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("Expected a JSON line, got %q: %v", line, err)
	}
	if entry["msg"] != "analyzed" || entry["path"] != "a.jpg" {
		t.Errorf("Unexpected entry %v", entry)
	}
}

func TestNewLogger_BadFile(t *testing.T) {
	if _, _, err := NewLogger(LogOptions{File: filepath.Join(t.TempDir(), "missing", "x.log")}); err == nil {
		t.Error("Expected error for an unwritable log path")
	}
}
