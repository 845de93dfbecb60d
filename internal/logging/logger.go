// Package logging configures log/slog for gendb and carries request and
// run identifiers from a context into log records.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Setup installs the default logger. Records go to w and, when file is
// set, are appended to file as well. The returned func closes the file.
func Setup(w io.Writer, level, format, file string) (func() error, error) {
	noop := func() error { return nil }
	if file == "" {
		slog.SetDefault(slog.New(NewHandler(w, level, format)))
		return noop, nil
	}

	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return noop, fmt.Errorf("open log file: %w", err)
	}
	slog.SetDefault(slog.New(NewHandler(io.MultiWriter(w, f), level, format)))
	return f.Close, nil
}

// NewHandler returns a JSON handler for format "json" and a text handler
// otherwise.
func NewHandler(w io.Writer, level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// parseLevel accepts slog level names in any case plus "warning".
// Anything unrecognised is info.
func parseLevel(s string) slog.Level {
	if strings.EqualFold(s, "warning") {
		s = "warn"
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

type runIDKey struct{}

// WithRunID stores a generation run id in ctx.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunID returns the id stored by WithRunID, or "".
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// FromContext returns the default logger tagged with the chi request_id
// and run_id found in ctx.
func FromContext(ctx context.Context) *slog.Logger {
	var attrs []any
	if id := middleware.GetReqID(ctx); id != "" {
		attrs = append(attrs, "request_id", id)
	}
	if id := RunID(ctx); id != "" {
		attrs = append(attrs, "run_id", id)
	}
	if len(attrs) == 0 {
		return slog.Default()
	}
	return slog.Default().With(attrs...)
}
