package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/gendb/internal/synth"
)

// DefaultConcurrency is the number of destinations written at once.
const DefaultConcurrency = 4

// encodeFunc streams a table in one format.
type encodeFunc func(ctx context.Context, w io.Writer, t *synth.Table) error

var encoders = map[Format]encodeFunc{
	CSV:     writeCSV,
	JSON:    writeJSONLines,
	XML:     writeXML,
	XLSX:    writeXLSX,
	HTML:    writeHTML,
	Parquet: writeParquet,
	Feather: writeFeather,
	Stata:   writeStata,
	Gob:     writeGob,
}

// Observer receives one call per finished destination.
type Observer interface {
	ObserveExport(format string, d time.Duration, bytes int64, err error)
}

// Dispatcher routes targets to writers.
type Dispatcher struct {
	concurrency int
	objects     ObjectPutter
	sql         *SQLSink
	observer    Observer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithConcurrency bounds how many destinations are written at once.
func WithConcurrency(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithObjectStore enables s3:// destinations.
func WithObjectStore(p ObjectPutter) Option {
	return func(d *Dispatcher) { d.objects = p }
}

// WithSQLTable sets the table name used by SQL destinations.
func WithSQLTable(name string) Option {
	return func(d *Dispatcher) { d.sql = NewSQLSink(name) }
}

// WithObserver reports per-destination outcomes, e.g. to metrics.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observer = o }
}

// NewDispatcher returns a Dispatcher with the given options.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{concurrency: DefaultConcurrency}
	for _, opt := range opts {
		opt(d)
	}
	if d.sql == nil {
		d.sql = NewSQLSink(DefaultSQLTable)
	}
	return d
}

// Result is the outcome for one target. Err is a *WriteError or nil.
type Result struct {
	Format      Format        `json:"format"`
	Destination string        `json:"destination"`
	Rows        int           `json:"rows"`
	Bytes       int64         `json:"bytes"`
	Duration    time.Duration `json:"duration"`
	Err         error         `json:"-"`
}

// OK reports whether the target was written.
func (r Result) OK() bool { return r.Err == nil }

// Report aggregates every target of one Export call.
type Report struct {
	Results  []Result  `json:"results"`
	Warnings []Warning `json:"-"`
}

// Failed returns the results that carry an error.
func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Err joins every per-destination error, or returns nil when all
// destinations were written. Warnings are not included.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}

// Export writes table to every target. It never stops early on a failed
// destination; cancellation of ctx fails the remaining ones.
func (d *Dispatcher) Export(ctx context.Context, table *synth.Table, targets []Target) Report {
	results := make([]Result, len(targets))

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, target := range targets {
		g.Go(func() error {
			results[i] = d.write(ctx, table, target)
			return nil
		})
	}
	_ = g.Wait()

	return Report{Results: results}
}

// ExportSpec parses a format-name mapping and exports to the valid targets.
// Skipped names are reported as warnings on the returned Report.
func (d *Dispatcher) ExportSpec(ctx context.Context, table *synth.Table, spec map[string]string) Report {
	targets, warnings := ParseTargets(spec)
	for _, w := range warnings {
		slog.Warn("export target skipped", "format", w.Name, "destination", redact(w.Destination), "error", w.Err)
	}
	report := d.Export(ctx, table, targets)
	report.Warnings = warnings
	return report
}

func (d *Dispatcher) write(ctx context.Context, table *synth.Table, target Target) Result {
	start := time.Now()
	res := Result{Format: target.Format, Destination: redact(target.Destination)}
	logger := slog.With("format", target.Format, "destination", res.Destination)

	var err error
	switch {
	case ctx.Err() != nil:
		err = ctx.Err()
	case target.Format == SQL:
		err = d.sql.Write(ctx, target.Destination, table)
	default:
		res.Bytes, err = d.writeStream(ctx, table, target)
	}

	res.Duration = time.Since(start)
	if d.observer != nil {
		d.observer.ObserveExport(string(target.Format), res.Duration, res.Bytes, err)
	}
	if err != nil {
		res.Err = &WriteError{Format: target.Format, Destination: res.Destination, Err: err}
		logger.Error("export failed", "error", err, "duration", res.Duration)
		return res
	}
	res.Rows = table.Len()
	logger.Info("export written", "rows", res.Rows, "bytes", res.Bytes, "duration", res.Duration)
	return res
}

// Encode writes table in format f to w. It is used for HTTP downloads.
func Encode(ctx context.Context, w io.Writer, f Format, table *synth.Table) error {
	enc, ok := encoders[f]
	if !ok {
		return fmt.Errorf("%w: %s cannot be streamed", ErrUnknownFormat, f)
	}
	return enc(ctx, w, table)
}

// redact hides passwords in connection strings.
func redact(dest string) string {
	u, err := url.Parse(dest)
	if err != nil || u.User == nil {
		return dest
	}
	return u.Redacted()
}
