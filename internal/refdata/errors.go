package refdata

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedExtension is returned before any read when a caller-supplied
	// source does not carry a delimited-text extension.
	ErrUnsupportedExtension = errors.New("unsupported file extension, expected .csv, .tsv or .txt")

	// ErrMissingColumn is returned when a required header is absent.
	ErrMissingColumn = errors.New("missing required column")

	// ErrEmptySource is returned when a source has no data rows.
	ErrEmptySource = errors.New("empty file")

	// ErrInvalidGender is returned for gender values outside {M, F}.
	ErrInvalidGender = errors.New("invalid gender")
)

// DataLoadError reports a reference dataset that could not be loaded.
// Path is the caller-supplied path, or "embedded:<name>" for bundled data.
type DataLoadError struct {
	Path string
	Err  error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *DataLoadError) Unwrap() error { return e.Err }

// ValidationError describes a single bad cell.
type ValidationError struct {
	Line    int    // 1-indexed line in the source file
	Field   string // column name
	Value   string // offending value
	Message string
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("line %d: %s: %s (%q)", e.Line, e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}
