package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/gendb/internal/export"
	"github.com/JonMunkholm/gendb/internal/pid"
	"github.com/JonMunkholm/gendb/internal/refdata"
	"github.com/JonMunkholm/gendb/internal/sampling"
	"github.com/JonMunkholm/gendb/internal/synth"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "nil error returns empty", err: nil, wantCode: ""},
		{
			name:     "wrapped load error",
			err:      &refdata.DataLoadError{Path: "x.json", Err: refdata.ErrUnsupportedExtension},
			wantCode: "DATA001",
		},
		{
			name:     "missing column",
			err:      &refdata.DataLoadError{Path: "names.csv", Err: fmt.Errorf("%w: count", refdata.ErrMissingColumn)},
			wantCode: "DATA002",
		},
		{name: "invalid config", err: fmt.Errorf("%w: SampleSize must be greater than 0", synth.ErrInvalidConfig), wantCode: "GEN001"},
		{name: "sample too large", err: ErrSampleTooLarge, wantCode: "GEN002"},
		{name: "zero population", err: fmt.Errorf("sample locations: %w", sampling.ErrZeroPopulation), wantCode: "GEN004"},
		{name: "unsupported era", err: fmt.Errorf("row 3: %w", pid.ErrUnsupportedEra), wantCode: "PID001"},
		{name: "pid gender differs from data gender", err: pid.ErrInvalidGender, wantCode: "PID002"},
		{name: "data gender", err: refdata.ErrInvalidGender, wantCode: "DATA004"},
		{name: "space exhausted", err: fmt.Errorf("row 9: %w", pid.ErrSpaceExhausted), wantCode: "PID003"},
		{name: "checksum", err: pid.ErrChecksum, wantCode: "PID005"},
		{
			name:     "write error unwraps to sentinel",
			err:      &export.WriteError{Format: export.CSV, Destination: "s3://b/k", Err: export.ErrNoObjectStore},
			wantCode: "EXP003",
		},
		{name: "database down", err: errors.New("connect: dial tcp 127.0.0.1:5432: connection refused"), wantCode: "EXP007"},
		{name: "too many runs", err: ErrTooManyRuns, wantCode: "RUN001"},
		{name: "cancelled", err: fmt.Errorf("generation cancelled at row 1000: %w", context.Canceled), wantCode: "RUN003"},
		{name: "deadline", err: context.DeadlineExceeded, wantCode: "RUN004"},
		{name: "case insensitive pattern", err: errors.New("RATE LIMIT exceeded"), wantCode: "RUN005"},
		{name: "bad request", err: fmt.Errorf("%w: year must be an integer", ErrInvalidRequest), wantCode: "REQ001"},
		{name: "unknown error returns default", err: errors.New("some random internal error"), wantCode: "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if tt.wantCode != "" && got.Message == "" {
				t.Error("MapError() message is empty")
			}
		})
	}
}

func TestErrorPatterns_UniqueCodes(t *testing.T) {
	seen := map[string]bool{}
	for _, ep := range errorPatterns {
		if ep.target == nil && ep.pattern == "" {
			t.Errorf("pattern %s matches nothing", ep.msg.Code)
		}
		if seen[ep.msg.Code] {
			t.Errorf("duplicate code %s", ep.msg.Code)
		}
		seen[ep.msg.Code] = true
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(fmt.Errorf("row 1: %w", pid.ErrSpaceExhausted))

	expected := "No unused PID is left for a birth date (Code: PID003). Widen the birth year range or lower the sample size"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error is not user facing", err: nil, want: false},
		{name: "known error is user facing", err: pid.ErrMalformed, want: true},
		{name: "unknown error is not user facing", err: errors.New("random internal error xyz"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := fmt.Errorf("decode: %w", pid.ErrChecksum)
		userErr := NewUserError(techErr)

		if userErr.Error() != "PID checksum does not match" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}
		if !errors.Is(userErr, pid.ErrChecksum) {
			t.Error("Unwrap() should return original error")
		}
	})
}
