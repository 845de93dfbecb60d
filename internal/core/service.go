package core

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/gendb/internal/export"
	"github.com/JonMunkholm/gendb/internal/logging"
	"github.com/JonMunkholm/gendb/internal/metrics"
	"github.com/JonMunkholm/gendb/internal/pid"
	"github.com/JonMunkholm/gendb/internal/refdata"
	"github.com/JonMunkholm/gendb/internal/synth"
)

var (
	// ErrSampleTooLarge is returned when a run asks for more rows than the
	// service allows.
	ErrSampleTooLarge = errors.New("sample size exceeds limit")

	// ErrNoMatchingName is returned when no first name exists for a
	// (year, gender) query.
	ErrNoMatchingName = errors.New("no matching name")

	// ErrRunNotFound is returned for unknown or evicted run ids.
	ErrRunNotFound = errors.New("run not found")

	// ErrInvalidRequest marks malformed transport input such as bad query
	// parameters or request bodies.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrDestinationOutsideOutput is returned for file destinations that
	// escape the configured output directory.
	ErrDestinationOutsideOutput = errors.New("destination outside output directory")
)

// MaxPreviewRows caps Preview.
const MaxPreviewRows = 50

// maxRunHistory is how many finished runs GetRun can look up.
const maxRunHistory = 100

// Service orchestrates generation runs: it owns the loaded reference data,
// one long-lived Synthesizer (so PIDs stay unique across runs) and the
// export Dispatcher.
type Service struct {
	store      *refdata.Store
	synth      *synth.Synthesizer
	dispatcher *export.Dispatcher
	limiter    *RunLimiter
	metrics    *metrics.Metrics

	defaults      synth.Config
	maxSampleSize int
	timeout       time.Duration
	outputDir     string

	mu       sync.RWMutex
	runs     map[string]*Run
	runOrder []string
}

// Run is the record of one generation run.
type Run struct {
	ID            string          `json:"id"`
	Config        synth.Config    `json:"config"`
	Rows          int             `json:"rows"`
	PIDCollisions int64           `json:"pid_collisions"`
	Started       time.Time       `json:"started"`
	Duration      time.Duration   `json:"duration"`
	Results       []ResultSummary `json:"results"`
	Warnings      []string        `json:"warnings,omitempty"`
	Error         *UserMessage    `json:"error,omitempty"`
}

// ResultSummary is an export.Result with its error mapped for display.
type ResultSummary struct {
	export.Result
	Error *UserMessage `json:"error,omitempty"`
}

// Failed reports whether any export target failed.
func (r *Run) Failed() bool {
	for _, res := range r.Results {
		if res.Err != nil {
			return true
		}
	}
	return false
}

// Option configures a Service.
type Option func(*Service)

// WithDefaults sets the generation settings used by callers that do not
// supply their own.
func WithDefaults(cfg synth.Config) Option {
	return func(s *Service) { s.defaults = cfg }
}

// WithMetrics records runs and exports.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLimiter replaces the default run limiter.
func WithLimiter(l *RunLimiter) Option {
	return func(s *Service) { s.limiter = l }
}

// WithMaxSampleSize rejects runs above n rows. Zero means no limit.
func WithMaxSampleSize(n int) Option {
	return func(s *Service) { s.maxSampleSize = n }
}

// WithRunTimeout bounds each run including export.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithOutputDir confines file destinations to dir. Destinations must then
// be relative paths; s3:// and postgres:// destinations are unaffected.
func WithOutputDir(dir string) Option {
	return func(s *Service) { s.outputDir = dir }
}

// NewService creates a Service over a loaded store. The Synthesizer is
// built from store with synthOpts.
func NewService(store *refdata.Store, dispatcher *export.Dispatcher, synthOpts []synth.Option, opts ...Option) *Service {
	s := &Service{
		store:      store,
		synth:      synth.New(store, synthOpts...),
		dispatcher: dispatcher,
		defaults:   synth.DefaultConfig(),
		runs:       make(map[string]*Run),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter == nil {
		s.limiter = NewRunLimiter(DefaultMaxConcurrentRuns, DefaultMaxWaitTime)
	}
	return s
}

// Defaults returns the default generation settings.
func (s *Service) Defaults() synth.Config { return s.defaults }

// Limiter returns the run limiter.
func (s *Service) Limiter() *RunLimiter { return s.limiter }

// Generate synthesizes a table without exporting it.
func (s *Service) Generate(ctx context.Context, cfg synth.Config) (*synth.Table, error) {
	if err := s.checkSize(cfg); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var table *synth.Table
	err := s.limiter.Do(ctx, func() error {
		var err error
		table, _, err = s.generate(ctx, cfg)
		return err
	})
	return table, err
}

// Run synthesizes a table and writes it to every target in spec, a
// format-name to destination mapping. Export failures are reported per
// target on the returned Run and do not make Run return an error.
func (s *Service) Run(ctx context.Context, cfg synth.Config, spec map[string]string) (*Run, error) {
	if err := s.checkSize(cfg); err != nil {
		return nil, err
	}
	spec, err := s.confine(spec)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	run := &Run{ID: uuid.NewString(), Config: cfg, Started: time.Now()}
	ctx = logging.WithRunID(ctx, run.ID)
	logger := logging.FromContext(ctx)
	logger.Info("run started", "sample_size", cfg.SampleSize, "targets", len(spec))

	err = s.limiter.Do(ctx, func() error {
		table, collisions, err := s.generate(ctx, cfg)
		if err != nil {
			return err
		}
		run.Rows = table.Len()
		run.PIDCollisions = collisions

		report := s.dispatcher.ExportSpec(ctx, table, spec)
		for _, res := range report.Results {
			sum := ResultSummary{Result: res}
			if res.Err != nil {
				msg := MapError(res.Err)
				sum.Error = &msg
			}
			run.Results = append(run.Results, sum)
		}
		for _, w := range report.Warnings {
			run.Warnings = append(run.Warnings, w.Error())
		}
		return nil
	})

	run.Duration = time.Since(run.Started)
	if err != nil {
		msg := MapError(err)
		run.Error = &msg
		logger.Error("run failed", "error", err, "code", msg.Code, "duration", run.Duration)
	} else {
		logger.Info("run finished",
			"rows", run.Rows,
			"pid_collisions", run.PIDCollisions,
			"targets_failed", countFailed(run.Results),
			"duration", run.Duration,
		)
	}
	s.remember(run)
	return run, err
}

func (s *Service) generate(ctx context.Context, cfg synth.Config) (*synth.Table, int64, error) {
	pids := s.synth.PIDs()
	before := pids.Collisions()
	start := time.Now()

	table, err := s.synth.Generate(ctx, cfg)
	s.metrics.ObserveRun(cfg.SampleSize, time.Since(start), err)
	if err != nil {
		return nil, 0, err
	}
	s.metrics.ObservePIDs(table.Len(), pids.Collisions())

	logging.FromContext(ctx).Debug("table generated", "rows", table.Len(), "duration", time.Since(start))
	return table, pids.Collisions() - before, nil
}

// Preview returns a table of up to n rows drawn from a throwaway
// Synthesizer, so previews never consume identifiers from the shared
// registry.
func (s *Service) Preview(ctx context.Context, cfg synth.Config, n int) (*synth.Table, error) {
	if n <= 0 || n > MaxPreviewRows {
		n = MaxPreviewRows
	}
	cfg.SampleSize = n
	return synth.New(s.store).Generate(ctx, cfg)
}

// IssuePID issues one identifier from the shared registry.
func (s *Service) IssuePID(birth time.Time, g refdata.Gender) (string, error) {
	id, err := s.synth.IssuePID(birth, g)
	if err == nil {
		s.metrics.ObservePIDs(1, s.synth.PIDs().Collisions())
	}
	return id, err
}

// ValidatePID checks and decodes an identifier.
func (s *Service) ValidatePID(id string) (pid.Decoded, error) {
	return pid.Decode(id)
}

// SampleName draws one first name for year and gender.
func (s *Service) SampleName(year int, g refdata.Gender, weighted bool) (string, error) {
	if !g.Valid() {
		return "", fmt.Errorf("%w: %q", pid.ErrInvalidGender, g)
	}
	name, ok := s.synth.SampleName(year, g, weighted)
	if !ok {
		return "", fmt.Errorf("%w: %s born %d", ErrNoMatchingName, g, year)
	}
	return name, nil
}

// ReferenceSummary describes the loaded reference data.
type ReferenceSummary struct {
	Localities int `json:"localities"`
	NameRows   int `json:"name_rows"`
	Surnames   int `json:"surnames"`
	MinYear    int `json:"min_name_year"`
	MaxYear    int `json:"max_name_year"`
	IssuedPIDs int `json:"issued_pids"`
}

// Reference returns counts for the loaded reference data.
func (s *Service) Reference() ReferenceSummary {
	minYear, maxYear := s.store.YearRange()
	return ReferenceSummary{
		Localities: len(s.store.Localities()),
		NameRows:   len(s.store.Names()),
		Surnames:   len(s.store.Surnames()),
		MinYear:    minYear,
		MaxYear:    maxYear,
		IssuedPIDs: s.synth.PIDs().Registry().Len(),
	}
}

// GetRun returns a recent run by id.
func (s *Service) GetRun(id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, nil
}

// Runs returns recent runs, newest first.
func (s *Service) Runs() []*Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Run, 0, len(s.runOrder))
	for i := len(s.runOrder) - 1; i >= 0; i-- {
		out = append(out, s.runs[s.runOrder[i]])
	}
	return out
}

// WaitForRuns blocks until in-flight runs finish or ctx expires.
func (s *Service) WaitForRuns(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

func (s *Service) remember(run *Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	s.runOrder = append(s.runOrder, run.ID)
	if len(s.runOrder) > maxRunHistory {
		delete(s.runs, s.runOrder[0])
		s.runOrder = s.runOrder[1:]
	}
}

func (s *Service) checkSize(cfg synth.Config) error {
	if s.maxSampleSize > 0 && cfg.SampleSize > s.maxSampleSize {
		return fmt.Errorf("%w: %d rows requested, limit is %d", ErrSampleTooLarge, cfg.SampleSize, s.maxSampleSize)
	}
	return nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// confine rewrites file destinations to live under the output directory.
func (s *Service) confine(spec map[string]string) (map[string]string, error) {
	if s.outputDir == "" {
		return spec, nil
	}
	out := make(map[string]string, len(spec))
	for name, dest := range spec {
		dest = strings.TrimSpace(dest)
		lower := strings.ToLower(dest)
		switch {
		case dest == "",
			strings.HasPrefix(lower, "s3://"),
			strings.HasPrefix(lower, "postgres://"),
			strings.HasPrefix(lower, "postgresql://"):
			out[name] = dest
		case filepath.IsLocal(dest):
			out[name] = filepath.Join(s.outputDir, dest)
		default:
			return nil, fmt.Errorf("%w: %s", ErrDestinationOutsideOutput, dest)
		}
	}
	return out, nil
}

func countFailed(results []ResultSummary) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
