package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionDirName holds per-run session directories under the output root.
const SessionDirName = ".imports"

// ImportSession records one run as a JSONL manifest, optionally with a
// directory of hardlinks to the files it placed.
type ImportSession struct {
	ID           string // 2025-01-15-103045
	RunID        string // uuid
	OutputDir    string
	SessionDir   string
	ManifestFile *os.File
	Inputs       []string
	Mode         Mode

	browse        bool
	usedFilenames map[string]int
	stats         ImportStats
	logger        *zap.Logger
}

// ImportStats tracks statistics for an import session
type ImportStats struct {
	TotalScanned     int
	Renamed          int
	SkippedDuplicate int
	SkippedNoop      int
	SkippedSymlink   int
	Errors           int
}

// ManifestEvent represents a single event in the manifest log
type ManifestEvent struct {
	Event    string `json:"event"`
	Ts       string `json:"ts"`
	Src      string `json:"src,omitempty"`
	Dest     string `json:"dest,omitempty"`
	Backend  string `json:"backend,omitempty"`
	Browse   string `json:"browse,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Existing string `json:"existing,omitempty"`
	Error    string `json:"error,omitempty"`

	ErrorCategory   string `json:"error_category,omitempty"`
	ErrorSeverity   string `json:"error_severity,omitempty"`
	ErrorSuggestion string `json:"error_suggestion,omitempty"`

	// session start/end
	RunID            string   `json:"run_id,omitempty"`
	Mode             string   `json:"mode,omitempty"`
	Inputs           []string `json:"inputs,omitempty"`
	TotalFiles       int      `json:"total_files,omitempty"`
	TotalScanned     int      `json:"total_scanned,omitempty"`
	Renamed          int      `json:"renamed,omitempty"`
	SkippedDuplicate int      `json:"skipped_duplicate,omitempty"`
	SkippedNoop      int      `json:"skipped_noop,omitempty"`
	SkippedSymlink   int      `json:"skipped_symlink,omitempty"`
	ErrorCount       int      `json:"errors,omitempty"`
}

// NewImportSession creates <outputDir>/.imports/<timestamp>/manifest.jsonl.
func NewImportSession(outputDir string, inputs []string, mode Mode, browse bool, logger *zap.Logger) (*ImportSession, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sessionID := time.Now().Format("2006-01-02-150405")
	sessionDir := filepath.Join(outputDir, SessionDirName, sessionID)

	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	manifestPath := filepath.Join(sessionDir, "manifest.jsonl")
	manifestFile, err := os.OpenFile(manifestPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create manifest file: %w", err)
	}

	return &ImportSession{
		ID:            sessionID,
		RunID:         uuid.NewString(),
		OutputDir:     outputDir,
		SessionDir:    sessionDir,
		ManifestFile:  manifestFile,
		Inputs:        inputs,
		Mode:          mode,
		browse:        browse,
		usedFilenames: make(map[string]int),
		logger:        logger,
	}, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// LogSessionStart writes the session start event to manifest
func (s *ImportSession) LogSessionStart(totalFiles int) error {
	return s.writeEvent(ManifestEvent{
		Event:      "session_start",
		Ts:         now(),
		RunID:      s.RunID,
		Mode:       string(s.Mode),
		Inputs:     s.Inputs,
		TotalFiles: totalFiles,
	})
}

// LogRenamed logs a placed file
func (s *ImportSession) LogRenamed(src, dest, backend string, size int64, browsePath string) error {
	s.stats.Renamed++
	return s.writeEvent(ManifestEvent{
		Event:   "renamed",
		Ts:      now(),
		Src:     src,
		Dest:    dest,
		Backend: backend,
		Browse:  browsePath,
		Size:    size,
	})
}

// LogSkippedDuplicate logs a source whose content already sits at existing
func (s *ImportSession) LogSkippedDuplicate(src, existing string) error {
	s.stats.SkippedDuplicate++
	return s.writeEvent(ManifestEvent{
		Event:    "skipped_duplicate",
		Ts:       now(),
		Src:      src,
		Existing: existing,
	})
}

func (s *ImportSession) LogSkippedNoop(src string) error {
	s.stats.SkippedNoop++
	return s.writeEvent(ManifestEvent{Event: "skipped_noop", Ts: now(), Src: src})
}

func (s *ImportSession) LogSkippedSymlink(src string) error {
	s.stats.SkippedSymlink++
	return s.writeEvent(ManifestEvent{Event: "skipped_symlink", Ts: now(), Src: src})
}

// LogDetailedError logs a categorized error with full details
func (s *ImportSession) LogDetailedError(src string, procErr *ProcessError) error {
	s.stats.Errors++

	event := ManifestEvent{
		Event:           "error",
		Ts:              now(),
		Src:             src,
		Error:           procErr.OriginalErr.Error(),
		ErrorCategory:   string(procErr.Category),
		ErrorSeverity:   string(procErr.Severity),
		ErrorSuggestion: procErr.Suggestion,
	}
	if dest, ok := procErr.Context["dest"]; ok {
		event.Dest = dest
	}
	if backend, ok := procErr.Context["backend"]; ok {
		event.Backend = backend
	}
	return s.writeEvent(event)
}

// LogSessionEnd writes the session end event to manifest
func (s *ImportSession) LogSessionEnd() error {
	return s.writeEvent(ManifestEvent{
		Event:            "session_end",
		Ts:               now(),
		RunID:            s.RunID,
		TotalScanned:     s.stats.TotalScanned,
		Renamed:          s.stats.Renamed,
		SkippedDuplicate: s.stats.SkippedDuplicate,
		SkippedNoop:      s.stats.SkippedNoop,
		SkippedSymlink:   s.stats.SkippedSymlink,
		ErrorCount:       s.stats.Errors,
	})
}

// Record writes one event per result, in order, creating browse links for
// placed files when enabled. A failed link is logged and does not stop the run.
func (s *ImportSession) Record(results []FileOperationResult) error {
	s.stats.TotalScanned += len(results)
	for _, r := range results {
		var err error
		switch r.Status {
		case StatusRenamed:
			browse := ""
			if s.browse {
				name, linkErr := s.CreateHardlink(r.Destination)
				if linkErr != nil {
					s.logger.Warn("browse link failed", zap.String("dest", r.Destination), zap.Error(linkErr))
				} else {
					browse = name
				}
			}
			err = s.LogRenamed(r.Source, r.Destination, r.Backend, r.Size, browse)
		case StatusSkippedDuplicate:
			err = s.LogSkippedDuplicate(r.Source, r.Destination)
		case StatusSkippedNoop:
			err = s.LogSkippedNoop(r.Source)
		case StatusSkippedSymlink:
			err = s.LogSkippedSymlink(r.Source)
		case StatusFailed, StatusFailedIO:
			cause := r.Err
			if cause == nil {
				cause = fmt.Errorf("%s", r.Diagnostic)
			}
			procErr := CategorizeError(r.Source, cause)
			if r.Category != "" {
				procErr.Category = r.Category
			}
			if r.Destination != "" {
				procErr.Context["dest"] = r.Destination
			}
			err = s.LogDetailedError(r.Source, procErr)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// CreateHardlink creates a hardlink in the session directory for browsing.
// Returns the basename used (with collision suffix if needed).
func (s *ImportSession) CreateHardlink(libraryFilePath string) (string, error) {
	basename := filepath.Base(libraryFilePath)

	count, exists := s.usedFilenames[basename]
	finalBasename := basename
	if exists {
		ext := filepath.Ext(basename)
		nameNoExt := strings.TrimSuffix(basename, ext)
		finalBasename = fmt.Sprintf("%s_%d%s", nameNoExt, count+1, ext)
	}
	s.usedFilenames[basename] = count + 1

	browsePath := filepath.Join(s.SessionDir, finalBasename)
	if err := os.Link(libraryFilePath, browsePath); err != nil {
		return "", fmt.Errorf("hardlink failed: %w", err)
	}
	return finalBasename, nil
}

// GetStats returns the current session statistics
func (s *ImportSession) GetStats() ImportStats {
	return s.stats
}

// Close closes the manifest file and session
func (s *ImportSession) Close() error {
	if s.ManifestFile != nil {
		return s.ManifestFile.Close()
	}
	return nil
}

func (s *ImportSession) writeEvent(event ManifestEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := s.ManifestFile.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write to manifest: %w", err)
	}
	return s.ManifestFile.Sync()
}
