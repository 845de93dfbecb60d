// Package core orchestrates generation runs for gendb.
//
// It sits between the transport layers (the HTTP server and the CLI) and
// the domain packages, and can be used by either without modification.
//
// # Service
//
// [Service] owns the loaded reference data, one long-lived synthesizer and
// the export dispatcher. Keeping a single synthesizer means every PID
// issued by the process, across runs and single-PID requests, comes from
// the same registry and is therefore unique.
//
//	svc, err := core.NewServiceFromConfig(ctx, cfg, metrics.New(nil))
//	run, err := svc.Run(ctx, svc.Defaults(), map[string]string{
//	    "csv":     "people.csv",
//	    "parquet": "s3://bucket/people.parquet",
//	})
//
// A run fails as a whole only when generation fails. Export failures are
// reported per target on [Run.Results]; unknown formats and empty
// destinations become [Run.Warnings].
//
// # Concurrency
//
// Runs are bounded by a [RunLimiter]. Callers wait up to the configured
// time for a slot and then receive [ErrTooManyRuns].
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - DATA001-DATA004: reference data loading
//   - GEN001-GEN006: generation settings and samplers
//   - PID001-PID006: identifier issuance and validation
//   - EXP001-EXP007: export formats and destinations
//   - RUN001-RUN005: throttling, cancellation and timeouts
//   - REQ001: malformed request input
package core
