package internal

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

// AnalyticsResults summarizes a Phase 1 pass without touching the output tree.
type AnalyticsResults struct {
	Inputs     []string `json:"inputs" yaml:"inputs"`
	OutputDir  string   `json:"output_dir" yaml:"output_dir"`
	TotalFiles int      `json:"total_files" yaml:"total_files"`
	Dated      int      `json:"dated" yaml:"dated"`
	Failed     int      `json:"failed" yaml:"failed"`
	TotalSize  int64    `json:"total_size_bytes" yaml:"total_size_bytes"`

	ByBucket    map[string]int    `json:"by_bucket" yaml:"by_bucket"`
	ByBackend   map[string]int    `json:"by_backend" yaml:"by_backend"`
	ByKind      map[MediaKind]int `json:"by_kind" yaml:"by_kind"`
	ByExtension map[string]int    `json:"by_extension" yaml:"by_extension"`
	DateRange   *DateRange        `json:"date_range,omitempty" yaml:"date_range,omitempty"`

	// Collisions counts inputs sharing a provisional name with an earlier input.
	Collisions int `json:"collisions" yaml:"collisions"`
	// ExistingTargets counts provisional names already present on disk.
	ExistingTargets int `json:"existing_targets" yaml:"existing_targets"`

	Failures     []AnalyticsFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
	ScanDuration time.Duration      `json:"scan_duration" yaml:"scan_duration"`
}

type DateRange struct {
	Earliest time.Time `json:"earliest" yaml:"earliest"`
	Latest   time.Time `json:"latest" yaml:"latest"`
}

type AnalyticsFailure struct {
	Path     string        `json:"path" yaml:"path"`
	Category ErrorCategory `json:"category" yaml:"category"`
	Error    string        `json:"error" yaml:"error"`
}

// AnalyzeOutcomes aggregates Phase 1 outcomes. outputDir is only used to
// count provisional targets that already exist.
func AnalyzeOutcomes(inputs []string, outputDir string, outcomes []AnalysisOutcome) *AnalyticsResults {
	r := &AnalyticsResults{
		Inputs:      inputs,
		OutputDir:   outputDir,
		TotalFiles:  len(outcomes),
		ByBucket:    make(map[string]int),
		ByBackend:   make(map[string]int),
		ByKind:      make(map[MediaKind]int),
		ByExtension: make(map[string]int),
	}

	proposed := make(map[string]bool)
	for _, o := range outcomes {
		r.TotalSize += o.Size
		if o.Ext != "" {
			r.ByExtension[o.Ext]++
		}
		if !o.OK {
			r.Failed++
			msg := ""
			if o.Err != nil {
				msg = o.Err.Error()
			}
			r.Failures = append(r.Failures, AnalyticsFailure{
				Path:     o.Source,
				Category: CategorizeError(o.Source, o.Err).Category,
				Error:    msg,
			})
			continue
		}

		r.Dated++
		r.ByBucket[o.Bucket()]++
		r.ByBackend[o.Backend]++
		r.ByKind[o.Kind]++

		t := o.Timestamp.Time
		if r.DateRange == nil {
			r.DateRange = &DateRange{Earliest: t, Latest: t}
		} else if t.Before(r.DateRange.Earliest) {
			r.DateRange.Earliest = t
		} else if t.After(r.DateRange.Latest) {
			r.DateRange.Latest = t
		}

		if proposed[o.Proposed] {
			r.Collisions++
		}
		proposed[o.Proposed] = true
		if outputDir != "" && exists(filepath.Join(outputDir, o.Proposed)) {
			r.ExistingTargets++
		}
	}
	return r
}

// DisplayAnalytics writes results as "table", "json" or "yaml".
func DisplayAnalytics(w io.Writer, results *AnalyticsResults, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(results)
	case "", "table":
		displayTable(w, results)
		return nil
	}
	return fmt.Errorf("unknown format %q (want table, json or yaml)", format)
}

func displayTable(w io.Writer, r *AnalyticsResults) {
	bold := color.New(color.Bold).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintf(w, "=== %s ===\n\n", bold("sortify analyze"))
	fmt.Fprintf(w, "📊 Overview:\n")
	fmt.Fprintf(w, "  - %s files (%s)\n", humanize.Comma(int64(r.TotalFiles)), humanize.IBytes(uint64(r.TotalSize)))
	fmt.Fprintf(w, "  - %d dated, %d without a usable timestamp\n", r.Dated, r.Failed)
	if r.DateRange != nil {
		fmt.Fprintf(w, "  - Date range: %s to %s\n",
			r.DateRange.Earliest.Format("2006-01-02"), r.DateRange.Latest.Format("2006-01-02"))
	}
	fmt.Fprintf(w, "  - Analysis took %v\n", r.ScanDuration.Round(time.Millisecond))

	if len(r.ByBucket) > 0 {
		fmt.Fprintf(w, "\n📁 Buckets:\n")
		for _, k := range sortedKeys(r.ByBucket) {
			fmt.Fprintf(w, "  %s: %d\n", k, r.ByBucket[k])
		}
	}
	if len(r.ByBackend) > 0 {
		fmt.Fprintf(w, "\n🔎 Resolved by:\n")
		for _, k := range sortedKeys(r.ByBackend) {
			fmt.Fprintf(w, "  %s: %d\n", k, r.ByBackend[k])
		}
	}
	if len(r.ByKind) > 0 {
		fmt.Fprintf(w, "\n🎞️  Kinds: %d photo, %d video\n", r.ByKind[MediaPhoto], r.ByKind[MediaVideo])
	}
	if len(r.ByExtension) > 0 {
		fmt.Fprintf(w, "\n🏷️  Extensions:\n")
		for _, k := range sortedKeys(r.ByExtension) {
			fmt.Fprintf(w, "  .%s: %d\n", k, r.ByExtension[k])
		}
	}

	if r.Collisions > 0 || r.ExistingTargets > 0 {
		fmt.Fprintf(w, "\n⚠️  Name pressure: %d same-instant collisions, %d targets already on disk\n",
			r.Collisions, r.ExistingTargets)
	}

	if len(r.Failures) > 0 {
		fmt.Fprintf(w, "\n%s\n", red(fmt.Sprintf("❌ %d failures:", len(r.Failures))))
		for i, f := range r.Failures {
			if i == 10 {
				fmt.Fprintf(w, "  - ...and %d more\n", len(r.Failures)-10)
				break
			}
			fmt.Fprintf(w, "  - %s [%s]: %s\n", f.Path, f.Category, f.Error)
		}
	}
}

func sortedKeys[K ~string](m map[K]int) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// DisplayProgress prints a live progress line until done is closed.
func DisplayProgress(w io.Writer, progress *Progress, start time.Time, done <-chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			fmt.Fprint(w, "\r\033[K")
			return
		case <-ticker.C:
			total := progress.Total.Load()
			analyzed := progress.Analyzed.Load()
			placed := progress.Placed.Load()
			elapsed := time.Since(start)

			var rate string
			if elapsed > 0 && analyzed > 0 {
				rate = fmt.Sprintf("%.1f files/s", float64(analyzed)/elapsed.Seconds())
			}
			fmt.Fprintf(w, "\r⏳ analyzed %d/%d | placed %d/%d | hashed %d | %s",
				analyzed, total, placed, total, progress.Hashed.Load(), rate)
		}
	}
}
