package internal

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
)

func TestCategorizeError_Sentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category ErrorCategory
		severity ErrorSeverity
	}{
		{"symlink", ErrSymlink, ErrorCategorySourceUnreadable, ErrorSeverityWarning},
		{"no timestamp", fmt.Errorf("goexif: %w", ErrNoTimestampFound), ErrorCategoryNoTimestamp, ErrorSeverityError},
		{"missing source", fmt.Errorf("%w: %w", ErrSourceUnreadable, os.ErrNotExist), ErrorCategorySourceUnreadable, ErrorSeverityError},
		{"hash", fmt.Errorf("%w: read failed", ErrHashFailure), ErrorCategoryHash, ErrorSeverityWarning},
		{"remove after copy", fmt.Errorf("%w: %w", ErrFilesystem, ErrSourceNotRemoved), ErrorCategoryFilesystem, ErrorSeverityWarning},
		{"bad mode", fmt.Errorf("%w: \"teleport\"", ErrInvalidMode), ErrorCategoryConfig, ErrorSeverityCritical},
		{"unknown", errors.New("something odd"), ErrorCategoryUnknown, ErrorSeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			procErr := CategorizeError("/test/file.jpg", tt.err)
			if procErr.Category != tt.category {
				t.Errorf("Expected category %s, got %s", tt.category, procErr.Category)
			}
			if procErr.Severity != tt.severity {
				t.Errorf("Expected severity %s, got %s", tt.severity, procErr.Severity)
			}
			if !errors.Is(procErr, tt.err) {
				t.Errorf("Expected ProcessError to unwrap to the original error")
			}
		})
	}
}

func TestCategorizeError_DiskSpace(t *testing.T) {
	err := fmt.Errorf("%w: write failed: no space left on device", ErrFilesystem)
	procErr := CategorizeError("/test/file.jpg", err)

	if procErr.Category != ErrorCategoryFilesystem {
		t.Errorf("Expected filesystem category, got %s", procErr.Category)
	}
	if procErr.Severity != ErrorSeverityCritical {
		t.Errorf("Expected critical severity, got %s", procErr.Severity)
	}
	if !strings.Contains(procErr.Suggestion, "disk space") {
		t.Errorf("Expected disk space suggestion, got: %s", procErr.Suggestion)
	}
}

func TestCategorizeError_Permission(t *testing.T) {
	err := fmt.Errorf("%w: open /library/file.jpg: permission denied", ErrFilesystem)
	procErr := CategorizeError("/test/file.jpg", err)

	if procErr.Category != ErrorCategoryFilesystem {
		t.Errorf("Expected filesystem category, got %s", procErr.Category)
	}
	if procErr.Severity != ErrorSeverityCritical {
		t.Errorf("Expected critical severity, got %s", procErr.Severity)
	}
}

func TestCategorizeError_Nil(t *testing.T) {
	if CategorizeError("/x", nil) != nil {
		t.Error("Expected nil for nil error")
	}
}

func TestErrorStats_Systemic_Critical(t *testing.T) {
	stats := NewErrorStats()
	stats.Add(&ProcessError{Category: ErrorCategoryFilesystem, Severity: ErrorSeverityCritical})

	systemic, reason := stats.Systemic()
	if !systemic {
		t.Error("Expected systemic on critical error")
	}
	if !strings.Contains(reason, "Critical") {
		t.Errorf("Expected critical reason, got: %s", reason)
	}
}

func TestErrorStats_Systemic_ConsecutiveErrors(t *testing.T) {
	stats := NewErrorStats()
	for i := 0; i < 9; i++ {
		stats.Add(&ProcessError{Category: ErrorCategoryNoTimestamp, Severity: ErrorSeverityError})
	}
	if systemic, _ := stats.Systemic(); systemic {
		t.Error("Should not be systemic with 9 consecutive errors")
	}

	stats.Add(&ProcessError{Category: ErrorCategoryNoTimestamp, Severity: ErrorSeverityError})
	if systemic, _ := stats.Systemic(); !systemic {
		t.Error("Expected systemic with 10 consecutive errors")
	}

	stats.ResetConsecutive()
	if stats.Consecutive != 0 {
		t.Errorf("Expected consecutive reset to 0, got %d", stats.Consecutive)
	}
}

func TestErrorStats_GenerateReport(t *testing.T) {
	stats := NewErrorStats()
	stats.Add(CategorizeError("/a.jpg", fmt.Errorf("goexif: %w", ErrNoTimestampFound)))
	stats.Add(CategorizeError("/b.jpg", fmt.Errorf("%w: permission denied", ErrFilesystem)))

	report := stats.GenerateReport()
	for _, want := range []string{"2 errors", "no_timestamp: 1", "filesystem_failure: 1", "/a.jpg", "Suggested next steps"} {
		if !strings.Contains(report, want) {
			t.Errorf("Expected report to contain %q, got:\n%s", want, report)
		}
	}
}

func TestErrorStats_KeepsLastFive(t *testing.T) {
	stats := NewErrorStats()
	for i := 0; i < 7; i++ {
		stats.Add(&ProcessError{FilePath: fmt.Sprintf("/f%d", i), Category: ErrorCategoryUnknown, Severity: ErrorSeverityError})
	}
	if len(stats.LastErrors) != 5 {
		t.Fatalf("Expected 5 recent errors, got %d", len(stats.LastErrors))
	}
	if stats.LastErrors[0].FilePath != "/f2" {
		t.Errorf("Expected oldest kept error /f2, got %s", stats.LastErrors[0].FilePath)
	}
	if stats.ByCategory[ErrorCategoryUnknown] != 7 {
		t.Errorf("Expected 7 unknown errors, got %d", stats.ByCategory[ErrorCategoryUnknown])
	}
}
