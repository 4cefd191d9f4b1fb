package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Status is the final state of one input file.
type Status string

const (
	StatusRenamed          Status = "renamed"
	StatusSkippedDuplicate Status = "skipped-duplicate"
	StatusSkippedNoop      Status = "skipped-noop"
	StatusSkippedSymlink   Status = "skipped-symlink"
	StatusFailed           Status = "failed"    // analysis failed, nothing touched
	StatusFailedIO         Status = "failed-io" // placement failed after a name was chosen
	StatusPlanned          Status = "planned"
)

// Failed reports whether s is one of the failure states.
func (s Status) Failed() bool {
	return s == StatusFailed || s == StatusFailedIO
}

// AnalysisOutcome is the Phase 1 verdict for one input.
type AnalysisOutcome struct {
	Source    string
	OK        bool
	Timestamp *CaptureTimestamp
	Proposed  string // relative to the output dir, empty claimed set
	Ext       string
	Err       error
	Backend   string
	Kind      MediaKind
	Symlink   bool
	Size      int64

	abs string
}

// Bucket is the "{year}/{month}" directory of an OK outcome.
func (o AnalysisOutcome) Bucket() string {
	if o.Timestamp == nil {
		return ""
	}
	return Bucket(o.Timestamp.Time)
}

// FileOperationResult is reported once per input, in input order.
type FileOperationResult struct {
	Source      string        `json:"source"`
	Success     bool          `json:"success"`
	Relocated   bool          `json:"relocated"`
	Destination string        `json:"destination,omitempty"`
	Diagnostic  string        `json:"diagnostic,omitempty"`
	Status      Status        `json:"status"`
	Category    ErrorCategory `json:"category,omitempty"`
	Backend     string        `json:"backend,omitempty"`
	Size        int64         `json:"size,omitempty"`

	Err error `json:"-"`
}

// Options configures a Pipeline.
type Options struct {
	OutputDir          string
	Mode               Mode
	Workers            int // 0 means DefaultWorkers()
	DryRun             bool
	AllowMtimeFallback bool
	Logger             *zap.Logger
}

// Progress counters, safe to read while a run is in flight.
type Progress struct {
	Total    atomic.Int64
	Analyzed atomic.Int64
	Hashed   atomic.Int64
	Placed   atomic.Int64
}

// Pipeline runs the two-phase ingest: parallel analysis, a selective hash
// gate, then per-bucket sequential placement.
type Pipeline struct {
	outputDir     string
	mode          Mode
	workers       int
	dryRun        bool
	mtimeFallback bool

	chain  *SourceChain
	hasher *ContentHasher
	logger *zap.Logger

	Progress Progress
}

// New validates opts and returns a ready pipeline.
func New(chain *SourceChain, hasher *ContentHasher, opts Options) (*Pipeline, error) {
	if chain == nil {
		return nil, errors.New("pipeline needs a metadata source chain")
	}
	if hasher == nil {
		return nil, errors.New("pipeline needs a content hasher")
	}
	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return nil, err
	}
	if opts.Workers < 0 {
		return nil, fmt.Errorf("workers must be >= 0, got %d", opts.Workers)
	}
	if opts.OutputDir == "" {
		return nil, errors.New("output directory must not be empty")
	}
	out, err := filepath.Abs(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}

	workers := opts.Workers
	if workers == 0 {
		workers = DefaultWorkers()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pipeline{
		outputDir:     out,
		mode:          mode,
		workers:       workers,
		dryRun:        opts.DryRun,
		mtimeFallback: opts.AllowMtimeFallback,
		chain:         chain,
		hasher:        hasher,
		logger:        logger,
	}, nil
}

// NewFromConfig builds the backend chain and hasher described by cfg.
func NewFromConfig(cfg *Config, dryRun bool, logger *zap.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sources := make([]MetadataSource, 0, len(cfg.Backends))
	for _, name := range cfg.Backends {
		src, err := NewMetadataSource(name, cfg, logger)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	hasher, err := NewContentHasher(cfg.HashAlgorithm, cfg.HashChunkSize)
	if err != nil {
		return nil, err
	}
	chain := NewSourceChain(sources, NewResolver(cfg.FilesystemCutoff), logger)
	return New(chain, hasher, Options{
		OutputDir:          cfg.OutputDir,
		Mode:               Mode(cfg.Mode),
		Workers:            cfg.Workers,
		DryRun:             dryRun,
		AllowMtimeFallback: cfg.AllowMtimeFallback,
		Logger:             logger,
	})
}

func (p *Pipeline) Workers() int      { return p.workers }
func (p *Pipeline) OutputDir() string { return p.outputDir }
func (p *Pipeline) Mode() Mode        { return p.mode }

// Close releases metadata backends (the exiftool process).
func (p *Pipeline) Close() error {
	return p.chain.Close()
}

// Run processes paths and returns one result per input in input order.
// Only an empty input list is an error; per-file failures are in the results.
func (p *Pipeline) Run(paths []string) ([]FileOperationResult, error) {
	if len(paths) == 0 {
		return nil, ErrNoInputs
	}
	p.Progress.Total.Store(int64(len(paths)))
	p.Progress.Analyzed.Store(0)
	p.Progress.Hashed.Store(0)
	p.Progress.Placed.Store(0)

	outcomes := p.Analyze(paths)
	index := p.hashGate(outcomes)
	return p.place(outcomes, index), nil
}

// Analyze runs Phase 1 over paths. Outcomes are in input order.
func (p *Pipeline) Analyze(paths []string) []AnalysisOutcome {
	outcomes := make([]AnalysisOutcome, len(paths))
	wp := pool.New().WithMaxGoroutines(p.workers)
	for i, path := range paths {
		wp.Go(func() {
			outcomes[i] = p.analyze(path)
			p.Progress.Analyzed.Add(1)
		})
	}
	wp.Wait()
	return outcomes
}

func (p *Pipeline) analyze(path string) AnalysisOutcome {
	o := AnalysisOutcome{Source: path, Ext: NormalizeExtension(path)}

	abs, err := filepath.Abs(path)
	if err != nil {
		o.Err = fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
		return o
	}
	o.abs = abs

	info, err := os.Lstat(abs)
	if err != nil {
		o.Err = fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
		return o
	}
	if info.Mode()&os.ModeSymlink != 0 {
		o.Symlink = true
		o.Err = ErrSymlink
		p.logger.Info("skipping symlink", zap.String("path", path))
		return o
	}
	if !info.Mode().IsRegular() {
		o.Err = fmt.Errorf("%w: not a regular file", ErrSourceUnreadable)
		return o
	}
	o.Size = info.Size()

	f, err := os.Open(abs)
	if err != nil {
		o.Err = fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
		return o
	}
	f.Close()

	res, err := p.chain.Resolve(abs)
	if err != nil {
		if !p.mtimeFallback {
			o.Err = err
			return o
		}
		ts, mErr := fileModTimestamp(abs)
		if mErr != nil {
			o.Err = errors.Join(err, mErr)
			return o
		}
		p.logger.Info("using file modification time", zap.String("path", path), zap.Error(err))
		res = ChainResult{Backend: "mtime", Timestamp: ts, Kind: MediaPhoto}
	}

	ts := res.Timestamp
	o.OK = true
	o.Timestamp = &ts
	o.Backend = res.Backend
	o.Kind = res.Kind
	o.Proposed = GenerateFilename(ts.Time, ts.Millis, o.Ext, nil)
	p.logger.Debug("analyzed",
		zap.String("path", path),
		zap.String("backend", res.Backend),
		zap.String("field", ts.Field),
		zap.String("proposed", o.Proposed))
	return o
}

// hashGate hashes only the sources whose provisional target already exists,
// along with those targets.
func (p *Pipeline) hashGate(outcomes []AnalysisOutcome) *HashIndex {
	index := NewHashIndex()
	seen := make(map[string]bool)

	var g errgroup.Group
	g.SetLimit(p.workers)
	queue := func(path string) {
		if seen[path] {
			return
		}
		seen[path] = true
		g.Go(func() error {
			digest, err := p.hasher.Hash(path)
			if err != nil {
				p.logger.Warn("hash failed", zap.String("path", path), zap.Error(err))
				return nil
			}
			index.Set(path, digest)
			p.Progress.Hashed.Add(1)
			return nil
		})
	}

	for _, o := range outcomes {
		if !o.OK {
			continue
		}
		target := filepath.Join(p.outputDir, o.Proposed)
		if !exists(target) || sameFile(o.abs, target) {
			continue
		}
		queue(o.abs)
		queue(target)
	}
	_ = g.Wait()
	return index
}

// place runs Phase 2: one task per bucket, sequential inside it.
func (p *Pipeline) place(outcomes []AnalysisOutcome, index *HashIndex) []FileOperationResult {
	results := make([]FileOperationResult, len(outcomes))

	var order []string
	buckets := make(map[string][]int)
	for i, o := range outcomes {
		if !o.OK {
			results[i] = failedAnalysis(o)
			p.Progress.Placed.Add(1)
			continue
		}
		b := o.Bucket()
		if _, ok := buckets[b]; !ok {
			order = append(order, b)
		}
		buckets[b] = append(buckets[b], i)
	}

	wp := pool.New().WithMaxGoroutines(p.workers)
	for _, b := range order {
		idxs := buckets[b]
		wp.Go(func() {
			var claimed []string
			for _, i := range idxs {
				results[i] = p.placeOne(outcomes[i], &claimed, index)
				p.Progress.Placed.Add(1)
			}
			p.logger.Debug("bucket done", zap.String("bucket", b), zap.Int("files", len(idxs)))
		})
	}
	wp.Wait()
	return results
}

func failedAnalysis(o AnalysisOutcome) FileOperationResult {
	r := FileOperationResult{Source: o.Source, Status: StatusFailed, Err: o.Err, Size: o.Size}
	if o.Err != nil {
		r.Diagnostic = o.Err.Error()
		r.Category = CategorizeError(o.Source, o.Err).Category
	}
	if o.Symlink {
		r.Status = StatusSkippedSymlink
	}
	return r
}

func (p *Pipeline) placeOne(o AnalysisOutcome, claimed *[]string, index *HashIndex) FileOperationResult {
	res := FileOperationResult{Source: o.Source, Backend: o.Backend, Size: o.Size}
	ts := o.Timestamp

	var notes []string
	taken := slices.Clone(*claimed)
	var rel, dest string
	for {
		rel = GenerateFilename(ts.Time, ts.Millis, o.Ext, taken)
		dest = filepath.Join(p.outputDir, rel)

		if sameFile(o.abs, dest) {
			*claimed = append(*claimed, rel)
			res.Success = true
			res.Status = StatusSkippedNoop
			res.Destination = dest
			return res
		}
		if !exists(dest) {
			break
		}

		dup, err := p.sameContent(o.abs, dest, index)
		if err != nil {
			notes = append(notes, err.Error())
			res.Category = ErrorCategoryHash
		}
		if dup {
			p.logger.Info("duplicate", zap.String("path", o.Source), zap.String("dest", dest))
			res.Success = true
			res.Status = StatusSkippedDuplicate
			res.Destination = dest
			return res
		}
		taken = append(taken, rel)
	}
	if len(notes) > 0 {
		res.Diagnostic = strings.Join(notes, "; ")
	}

	res.Destination = dest
	if p.dryRun {
		*claimed = append(*claimed, rel)
		res.Success = true
		res.Status = StatusPlanned
		return res
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return p.failPlacement(res, fmt.Errorf("%w: create %s: %w", ErrFilesystem, filepath.Dir(dest), err))
	}
	if err := relocate(p.mode, o.abs, dest); err != nil {
		if errors.Is(err, ErrSourceNotRemoved) {
			*claimed = append(*claimed, rel)
			res.Relocated = true
		}
		return p.failPlacement(res, fmt.Errorf("%w: %w", ErrFilesystem, err))
	}

	*claimed = append(*claimed, rel)
	res.Success = true
	res.Relocated = true
	res.Status = StatusRenamed
	p.logger.Info("placed", zap.String("path", o.Source), zap.String("dest", dest), zap.String("mode", string(p.mode)))
	return res
}

func (p *Pipeline) failPlacement(res FileOperationResult, err error) FileOperationResult {
	p.logger.Warn("placement failed", zap.String("path", res.Source), zap.String("dest", res.Destination), zap.Error(err))
	res.Success = false
	res.Status = StatusFailedIO
	res.Err = err
	res.Diagnostic = err.Error()
	res.Category = CategorizeError(res.Source, err).Category
	return res
}

// sameContent compares digests, hashing lazily anything the gate skipped.
func (p *Pipeline) sameContent(src, dest string, index *HashIndex) (bool, error) {
	a, err := p.digest(src, index)
	if err != nil {
		return false, err
	}
	b, err := p.digest(dest, index)
	if err != nil {
		return false, err
	}
	return a == b, nil
}

func (p *Pipeline) digest(path string, index *HashIndex) (string, error) {
	if d, ok := index.Get(path); ok {
		return d, nil
	}
	d, err := p.hasher.Hash(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrHashFailure, err)
	}
	index.Set(path, d)
	return d, nil
}
