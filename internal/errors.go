package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// Stage sentinels. The pipeline wraps per-file errors with one of these so
// CategorizeError can tell where a failure happened.
var (
	ErrSourceUnreadable = errors.New("source unreadable")
	ErrHashFailure      = errors.New("hash failure")
	ErrFilesystem       = errors.New("filesystem failure")
)

// ErrorCategory represents the type of error encountered
type ErrorCategory string

const (
	ErrorCategorySourceUnreadable ErrorCategory = "source_unreadable"  // symlink, missing or unreadable input
	ErrorCategoryNoTimestamp      ErrorCategory = "no_timestamp"       // every backend failed or had no date
	ErrorCategoryHash             ErrorCategory = "hash_failure"       // hashing failed, treated as not a duplicate
	ErrorCategoryFilesystem       ErrorCategory = "filesystem_failure" // mkdir, rename, copy, link
	ErrorCategoryConfig           ErrorCategory = "config"
	ErrorCategoryUnknown          ErrorCategory = "unknown_error"
)

// ErrorSeverity indicates how critical the error is
type ErrorSeverity string

const (
	ErrorSeverityCritical ErrorSeverity = "critical" // System-level issues (disk full, permissions)
	ErrorSeverityError    ErrorSeverity = "error"    // File-level issues (corruption, unreadable)
	ErrorSeverityWarning  ErrorSeverity = "warning"  // Recoverable issues
)

// ProcessError represents a categorized error during file processing
type ProcessError struct {
	FilePath    string
	Category    ErrorCategory
	Severity    ErrorSeverity
	OriginalErr error
	Context     map[string]string // dest, backend, ...
	Suggestion  string
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("[%s/%s] %s: %v", e.Severity, e.Category, e.FilePath, e.OriginalErr)
}

func (e *ProcessError) Unwrap() error {
	return e.OriginalErr
}

// CategorizeError maps err to a category using the sentinel chain first and
// the message text for severity and suggestions.
func CategorizeError(filePath string, err error) *ProcessError {
	if err == nil {
		return nil
	}

	procErr := &ProcessError{
		FilePath:    filePath,
		OriginalErr: err,
		Context:     make(map[string]string),
		Category:    ErrorCategoryUnknown,
		Severity:    ErrorSeverityError,
		Suggestion:  "Unexpected error - check logs for details",
	}

	switch {
	case errors.Is(err, ErrSymlink):
		procErr.Category = ErrorCategorySourceUnreadable
		procErr.Severity = ErrorSeverityWarning
		procErr.Suggestion = "Symbolic links are not followed - pass the link target instead"
		return procErr
	case errors.Is(err, ErrInvalidMode), errors.Is(err, ErrNoInputs):
		procErr.Category = ErrorCategoryConfig
		procErr.Severity = ErrorSeverityCritical
		procErr.Suggestion = "Fix the command line or config file and retry"
		return procErr
	case errors.Is(err, ErrNoTimestampFound), errors.Is(err, ErrBackendsExhausted):
		procErr.Category = ErrorCategoryNoTimestamp
		procErr.Suggestion = "No capture date in metadata - retry with --allow-mtime-fallback or add the exiftool backend"
		return procErr
	case errors.Is(err, ErrSourceNotRemoved):
		procErr.Category = ErrorCategoryFilesystem
		procErr.Severity = ErrorSeverityWarning
		procErr.Suggestion = "File was placed but the original is still in the inbox - remove it manually"
		return procErr
	case errors.Is(err, ErrHashFailure):
		procErr.Category = ErrorCategoryHash
		procErr.Severity = ErrorSeverityWarning
		procErr.Suggestion = "Could not compare contents - the file was given a suffixed name instead"
		return procErr
	case errors.Is(err, ErrSourceUnreadable):
		procErr.Category = ErrorCategorySourceUnreadable
	case errors.Is(err, ErrFilesystem):
		procErr.Category = ErrorCategoryFilesystem
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		procErr.Category = ErrorCategorySourceUnreadable
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "no space left"):
		procErr.Severity = ErrorSeverityCritical
		procErr.Suggestion = "Free up disk space on the destination drive and retry"

	case strings.Contains(errStr, "permission denied"):
		procErr.Severity = ErrorSeverityCritical
		procErr.Suggestion = "Check file permissions on both source and destination directories"

	case strings.Contains(errStr, "read-only file system"):
		procErr.Severity = ErrorSeverityCritical
		procErr.Suggestion = "Destination filesystem is read-only - check mount options"

	case strings.Contains(errStr, "too many open files"):
		procErr.Severity = ErrorSeverityCritical
		procErr.Suggestion = "System file descriptor limit reached - lower --workers or raise ulimit"

	case strings.Contains(errStr, "input/output error"):
		procErr.Suggestion = "I/O error - check disk health with SMART tools"

	case strings.Contains(errStr, "no such file"):
		procErr.Suggestion = "File disappeared during the run - check if an external drive disconnected"

	case strings.Contains(errStr, "file exists"):
		procErr.Suggestion = "Destination appeared during the run - rerun to pick a free name"
	}

	return procErr
}

// ErrorStats tracks error statistics for a run
type ErrorStats struct {
	Total       int
	Critical    int
	Errors      int
	Warnings    int
	ByCategory  map[ErrorCategory]int
	LastErrors  []*ProcessError // most recent, for quick diagnosis
	Consecutive int
}

const maxRecentErrors = 5

func NewErrorStats() *ErrorStats {
	return &ErrorStats{
		ByCategory: make(map[ErrorCategory]int),
		LastErrors: make([]*ProcessError, 0, maxRecentErrors),
	}
}

func (s *ErrorStats) Add(err *ProcessError) {
	s.Total++
	s.Consecutive++
	s.ByCategory[err.Category]++

	switch err.Severity {
	case ErrorSeverityCritical:
		s.Critical++
	case ErrorSeverityError:
		s.Errors++
	case ErrorSeverityWarning:
		s.Warnings++
	}

	if len(s.LastErrors) >= maxRecentErrors {
		s.LastErrors = s.LastErrors[1:]
	}
	s.LastErrors = append(s.LastErrors, err)
}

func (s *ErrorStats) ResetConsecutive() {
	s.Consecutive = 0
}

// Systemic reports whether the failures look like an environment problem
// rather than bad files. Batches are never aborted; the CLI only warns.
func (s *ErrorStats) Systemic() (bool, string) {
	if s.Critical > 0 {
		return true, "Critical system error detected - check disk space and permissions"
	}
	if s.Consecutive >= 10 {
		return true, "10 consecutive errors detected - likely systemic issue (disk full, permissions, etc.)"
	}
	return false, ""
}

// GenerateReport creates a human-readable error report
func (s *ErrorStats) GenerateReport() string {
	var report strings.Builder

	report.WriteString(fmt.Sprintf("\n❌ Run encountered %d errors:\n\n", s.Total))

	if s.Critical > 0 {
		report.WriteString(fmt.Sprintf("  🔴 Critical: %d (system-level issues)\n", s.Critical))
	}
	if s.Errors > 0 {
		report.WriteString(fmt.Sprintf("  🟠 Errors:   %d (file-level issues)\n", s.Errors))
	}
	if s.Warnings > 0 {
		report.WriteString(fmt.Sprintf("  🟡 Warnings: %d (recoverable issues)\n", s.Warnings))
	}

	report.WriteString("\nError categories:\n")
	cats := make([]string, 0, len(s.ByCategory))
	for cat := range s.ByCategory {
		cats = append(cats, string(cat))
	}
	sort.Strings(cats)
	for _, cat := range cats {
		report.WriteString(fmt.Sprintf("  • %s: %d\n", cat, s.ByCategory[ErrorCategory(cat)]))
	}

	report.WriteString("\nRecent errors:\n")
	for i, err := range s.LastErrors {
		report.WriteString(fmt.Sprintf("\n%d. %s\n", i+1, err.FilePath))
		report.WriteString(fmt.Sprintf("   Category: %s | Severity: %s\n", err.Category, err.Severity))
		report.WriteString(fmt.Sprintf("   Error: %v\n", err.OriginalErr))
		if err.Suggestion != "" {
			report.WriteString(fmt.Sprintf("   💡 Suggestion: %s\n", err.Suggestion))
		}
	}

	report.WriteString("\n")
	report.WriteString(s.generateSuggestions())

	return report.String()
}

func (s *ErrorStats) generateSuggestions() string {
	var suggestions strings.Builder
	suggestions.WriteString("Suggested next steps:\n")

	if s.ByCategory[ErrorCategoryFilesystem] > 0 {
		suggestions.WriteString("  • Check disk space and permissions on the output directory\n")
	}
	if s.ByCategory[ErrorCategorySourceUnreadable] > 0 {
		suggestions.WriteString("  • Verify source media (SD card, external drive) is properly connected\n")
	}
	if s.ByCategory[ErrorCategoryNoTimestamp] > s.Total/2 {
		suggestions.WriteString("  • Many files without a capture date - consider --backends with exiftool or --allow-mtime-fallback\n")
	}
	if s.Consecutive >= 5 {
		suggestions.WriteString("  • Multiple consecutive errors suggest a systemic issue - check system resources\n")
	}
	suggestions.WriteString("  • Check the session manifest for the detailed error log\n")

	return suggestions.String()
}
