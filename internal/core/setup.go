package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/gendb/internal/config"
	"github.com/JonMunkholm/gendb/internal/export"
	"github.com/JonMunkholm/gendb/internal/metrics"
	"github.com/JonMunkholm/gendb/internal/pid"
	"github.com/JonMunkholm/gendb/internal/refdata"
	"github.com/JonMunkholm/gendb/internal/synth"
)

// GenerationDefaults converts the generation section of cfg into
// synthesizer settings.
func GenerationDefaults(cfg config.GenerationConfig) synth.Config {
	return synth.Config{
		SampleSize:       cfg.SampleSize,
		LocalityWeighted: cfg.LocalityWeighted,
		NameWeighted:     cfg.NameWeighted,
		FemaleChance:     cfg.FemaleChance,
		SecondNameChance: cfg.SecondNameChance,
		BirthYearFrom:    cfg.BirthYearFrom,
		BirthYearTo:      cfg.BirthYearTo,
	}
}

// SynthOptions converts the generation section of cfg into synthesizer
// options. A zero seed leaves the random source unseeded.
func SynthOptions(cfg config.GenerationConfig) []synth.Option {
	opts := []synth.Option{synth.WithPIDOptions(pid.WithMaxAttempts(cfg.PIDMaxAttempts))}
	if cfg.Seed != 0 {
		opts = append(opts, synth.WithSeed(uint64(cfg.Seed)))
	}
	return opts
}

// NewDispatcher builds the export dispatcher, connecting S3 when a region
// or endpoint is configured.
func NewDispatcher(ctx context.Context, cfg config.ExportConfig, m *metrics.Metrics) (*export.Dispatcher, error) {
	opts := []export.Option{
		export.WithConcurrency(cfg.Concurrency),
		export.WithSQLTable(cfg.SQLTable),
	}
	if m != nil {
		opts = append(opts, export.WithObserver(m))
	}
	if cfg.S3Region != "" || cfg.S3Endpoint != "" {
		store, err := export.NewS3Store(ctx, export.S3Config{
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("s3: %w", err)
		}
		opts = append(opts, export.WithObjectStore(store))
		slog.Info("object storage enabled", "region", cfg.S3Region, "endpoint", cfg.S3Endpoint)
	}
	return export.NewDispatcher(opts...), nil
}

// NewServiceFromConfig loads reference data and wires a Service from cfg.
// Extra options are applied after the ones derived from cfg.
func NewServiceFromConfig(ctx context.Context, cfg *config.Config, m *metrics.Metrics, opts ...Option) (*Service, error) {
	store, err := refdata.Load(ctx, refdata.Sources{
		LocalityPath:   cfg.Data.LocalityPath,
		PostalCodePath: cfg.Data.PostalCodePath,
		NamePath:       cfg.Data.NamePath,
		SurnamePath:    cfg.Data.SurnamePath,
	})
	if err != nil {
		return nil, err
	}

	dispatcher, err := NewDispatcher(ctx, cfg.Export, m)
	if err != nil {
		return nil, err
	}

	base := []Option{
		WithDefaults(GenerationDefaults(cfg.Generation)),
		WithMetrics(m),
		WithLimiter(NewRunLimiter(cfg.Generation.MaxConcurrent, cfg.Generation.MaxWaitTime)),
		WithMaxSampleSize(cfg.Generation.MaxSampleSize),
		WithRunTimeout(cfg.Generation.Timeout),
	}
	return NewService(store, dispatcher, SynthOptions(cfg.Generation), append(base, opts...)...), nil
}
