package internal

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

// Summary counts results by status.
type Summary struct {
	Processed        int
	Renamed          int
	Planned          int
	SkippedDuplicate int
	SkippedNoop      int
	SkippedSymlink   int
	Failed           int
	BytesPlaced      int64
}

func (s Summary) Skipped() int {
	return s.SkippedDuplicate + s.SkippedNoop + s.SkippedSymlink
}

func Summarize(results []FileOperationResult) Summary {
	var s Summary
	for _, r := range results {
		s.Processed++
		switch r.Status {
		case StatusRenamed:
			s.Renamed++
			s.BytesPlaced += r.Size
		case StatusPlanned:
			s.Planned++
		case StatusSkippedDuplicate:
			s.SkippedDuplicate++
		case StatusSkippedNoop:
			s.SkippedNoop++
		case StatusSkippedSymlink:
			s.SkippedSymlink++
		case StatusFailed, StatusFailedIO:
			s.Failed++
		}
	}
	return s
}

// ErrorStatsFor categorizes every failed result.
func ErrorStatsFor(results []FileOperationResult) *ErrorStats {
	stats := NewErrorStats()
	for _, r := range results {
		if !r.Status.Failed() {
			stats.ResetConsecutive()
			continue
		}
		cause := r.Err
		if cause == nil {
			cause = fmt.Errorf("%s", r.Diagnostic)
		}
		pe := CategorizeError(r.Source, cause)
		if r.Category != "" {
			pe.Category = r.Category
		}
		stats.Add(pe)
	}
	return stats
}

// RenderSummary prints counts, every failure, and the categorized report.
func RenderSummary(w io.Writer, results []FileOperationResult, dryRun bool) Summary {
	s := Summarize(results)
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	if dryRun {
		for _, r := range results {
			if r.Status == StatusPlanned {
				fmt.Fprintf(w, "[dry-run] %s → %s\n", r.Source, r.Destination)
			}
		}
	}

	fmt.Fprintf(w, "\nProcessed: %s\n", humanize.Comma(int64(s.Processed)))
	if dryRun {
		fmt.Fprintf(w, "Planned:   %s\n", green(s.Planned))
	} else {
		fmt.Fprintf(w, "Renamed:   %s (%s)\n", green(s.Renamed), humanize.IBytes(uint64(s.BytesPlaced)))
	}
	fmt.Fprintf(w, "Skipped:   %s (%d duplicate, %d already in place, %d symlink)\n",
		yellow(s.Skipped()), s.SkippedDuplicate, s.SkippedNoop, s.SkippedSymlink)
	fmt.Fprintf(w, "Failed:    %s\n", red(s.Failed))

	if s.Failed == 0 {
		return s
	}

	fmt.Fprintf(w, "\nFailures:\n")
	for _, r := range results {
		if r.Status.Failed() {
			fmt.Fprintf(w, "  %s: %s\n", r.Source, r.Diagnostic)
		}
	}

	stats := ErrorStatsFor(results)
	fmt.Fprint(w, stats.GenerateReport())
	if systemic, why := stats.Systemic(); systemic {
		fmt.Fprintf(w, "\n%s\n", red(why))
	}
	return s
}
