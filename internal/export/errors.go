package export

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownFormat marks a format name outside the supported set.
	ErrUnknownFormat = errors.New("unknown export format")

	// ErrEmptyDestination marks a target without a destination.
	ErrEmptyDestination = errors.New("empty destination")

	// ErrNoObjectStore is returned for s3:// destinations when no object
	// store is configured.
	ErrNoObjectStore = errors.New("object storage not configured")

	// ErrUnsupportedDatabase is returned for SQL destinations with an
	// unrecognized scheme.
	ErrUnsupportedDatabase = errors.New("unsupported database connection string")

	// ErrTooManyRows is returned when a format cannot hold the table.
	ErrTooManyRows = errors.New("too many rows for format")
)

// WriteError reports a destination that could not be written.
type WriteError struct {
	Format      Format
	Destination string
	Err         error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("export %s to %s: %v", e.Format, e.Destination, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
