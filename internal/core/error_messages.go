package core

// error_messages.go maps technical errors to coded user messages.
//
// Codes are grouped by category:
//
//	DATA001-DATA099  reference data loading
//	GEN001-GEN099    generation runs and samplers
//	PID001-PID099    identifier issuance and validation
//	EXP001-EXP099    export targets and destinations
//	RUN001-RUN099    run scheduling, cancellation and throttling
//	REQ001           malformed request input
//	ERR000           fallback, check the logs for the technical error
//
// Sentinel errors are matched with errors.Is, so wrapped errors map to the
// same code. Errors without a sentinel (driver and network failures) are
// matched by case-insensitive substring. The first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/gendb/internal/export"
	"github.com/JonMunkholm/gendb/internal/pid"
	"github.com/JonMunkholm/gendb/internal/refdata"
	"github.com/JonMunkholm/gendb/internal/sampling"
	"github.com/JonMunkholm/gendb/internal/synth"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

// errorPattern matches by sentinel when target is set, otherwise by
// substring.
type errorPattern struct {
	target  error
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Reference data (DATA001-DATA004)
	{
		target: refdata.ErrUnsupportedExtension,
		msg: UserMessage{
			Message: "Reference file type is not supported",
			Action:  "Use a .csv, .tsv or .txt file",
			Code:    "DATA001",
		},
	},
	{
		target: refdata.ErrMissingColumn,
		msg: UserMessage{
			Message: "Reference file is missing a required column",
			Action:  "Check the header row against the documented columns",
			Code:    "DATA002",
		},
	},
	{
		target: refdata.ErrEmptySource,
		msg: UserMessage{
			Message: "Reference file has no data rows",
			Action:  "Provide a file with at least one row",
			Code:    "DATA003",
		},
	},
	{
		target: refdata.ErrInvalidGender,
		msg: UserMessage{
			Message: "Reference file contains an unknown gender value",
			Action:  "Use M/F, MALE/FEMALE or MEZCZYZNA/KOBIETA",
			Code:    "DATA004",
		},
	},

	// Generation (GEN001-GEN006)
	{
		target: synth.ErrInvalidConfig,
		msg: UserMessage{
			Message: "Generation settings are invalid",
			Action:  "Check sample size, percentages and the birth year range",
			Code:    "GEN001",
		},
	},
	{
		target: ErrSampleTooLarge,
		msg: UserMessage{
			Message: "Requested sample size exceeds the server limit",
			Action:  "Request fewer rows or run the CLI instead",
			Code:    "GEN002",
		},
	},
	{
		target: synth.ErrNoSurnames,
		msg: UserMessage{
			Message: "No surnames are loaded",
			Action:  "Provide a non-empty surname file",
			Code:    "GEN003",
		},
	},
	{
		target: sampling.ErrZeroPopulation,
		msg: UserMessage{
			Message: "Total population is zero, weighted city sampling is impossible",
			Action:  "Disable locality weighting or fix the population column",
			Code:    "GEN004",
		},
	},
	{
		target: sampling.ErrNoLocalities,
		msg: UserMessage{
			Message: "No cities are loaded",
			Action:  "Provide a non-empty locality file",
			Code:    "GEN005",
		},
	},
	{
		target: ErrNoMatchingName,
		msg: UserMessage{
			Message: "No first name matches the requested year and gender",
			Action:  "Try another year or disable frequency weighting",
			Code:    "GEN006",
		},
	},

	// PID (PID001-PID006)
	{
		target: pid.ErrUnsupportedEra,
		msg: UserMessage{
			Message: "Birth year cannot be encoded in a PID",
			Action:  "Use a birth year from 1800 onwards",
			Code:    "PID001",
		},
	},
	{
		target: pid.ErrInvalidGender,
		msg: UserMessage{
			Message: "Gender must be M or F",
			Action:  "Pass gender as M or F",
			Code:    "PID002",
		},
	},
	{
		target: pid.ErrSpaceExhausted,
		msg: UserMessage{
			Message: "No unused PID is left for a birth date",
			Action:  "Widen the birth year range or lower the sample size",
			Code:    "PID003",
		},
	},
	{
		target: pid.ErrMalformed,
		msg: UserMessage{
			Message: "PID must be exactly 11 digits",
			Action:  "Check the identifier for typos",
			Code:    "PID004",
		},
	},
	{
		target: pid.ErrChecksum,
		msg: UserMessage{
			Message: "PID checksum does not match",
			Action:  "Check the identifier for typos",
			Code:    "PID005",
		},
	},
	{
		target: pid.ErrInvalidDate,
		msg: UserMessage{
			Message: "PID encodes a date that does not exist",
			Action:  "Check the first six digits",
			Code:    "PID006",
		},
	},

	// Export (EXP001-EXP006)
	{
		target: export.ErrUnknownFormat,
		msg: UserMessage{
			Message: "Export format is not supported",
			Action:  "Use csv, json, xml, xlsx, html, parquet, feather, dta, sql or gob",
			Code:    "EXP001",
		},
	},
	{
		target: export.ErrEmptyDestination,
		msg: UserMessage{
			Message: "Export target has no destination",
			Action:  "Give every format a path or connection string",
			Code:    "EXP002",
		},
	},
	{
		target: export.ErrNoObjectStore,
		msg: UserMessage{
			Message: "Object storage is not configured",
			Action:  "Set EXPORT_S3_REGION or write to a local path",
			Code:    "EXP003",
		},
	},
	{
		target: export.ErrUnsupportedDatabase,
		msg: UserMessage{
			Message: "Database connection string is not supported",
			Action:  "Use postgres://, sqlite:// or a .db path",
			Code:    "EXP004",
		},
	},
	{
		target: export.ErrTooManyRows,
		msg: UserMessage{
			Message: "The table is too large for the chosen format",
			Action:  "Use csv, parquet or a database for large samples",
			Code:    "EXP005",
		},
	},
	{
		target: ErrDestinationOutsideOutput,
		msg: UserMessage{
			Message: "Export destination is outside the output directory",
			Action:  "Use a relative path inside the output directory",
			Code:    "EXP006",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to the export database",
			Action:  "Please try again in a few moments",
			Code:    "EXP007",
		},
	},

	// Runs (RUN001-RUN005)
	{
		target: ErrTooManyRuns,
		msg: UserMessage{
			Message: "System is busy with other generation runs",
			Action:  "Please wait a moment and try again",
			Code:    "RUN001",
		},
	},
	{
		target: ErrRunNotFound,
		msg: UserMessage{
			Message: "Run not found",
			Action:  "Only recent runs are kept, start a new run",
			Code:    "RUN002",
		},
	},
	{
		target: context.Canceled,
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "RUN003",
		},
	},
	{
		target: context.DeadlineExceeded,
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Request fewer rows or fewer export targets",
			Code:    "RUN004",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RUN005",
		},
	},

	// Requests (REQ001)
	{
		target: ErrInvalidRequest,
		msg: UserMessage{
			Message: "Request parameters are invalid",
			Action:  "Check the parameter names and value formats",
			Code:    "REQ001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or check the server logs",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If nothing matches, the ERR000 fallback is returned.
//
// Example:
//
//	msg := MapError(fmt.Errorf("row 12: %w", pid.ErrSpaceExhausted))
//	// msg.Code == "PID003"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if ep.target != nil {
			if errors.Is(err, ep.target) {
				return ep.msg
			}
			continue
		}
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
