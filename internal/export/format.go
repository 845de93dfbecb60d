// Package export writes a synthesized table to files, object storage and
// databases.
//
// Format names are resolved once into the closed Format set. Unknown names
// are skipped with a Warning. Each target is written independently: one
// failing destination never stops the others, and the caller gets a Report
// with one Result per target.
package export

import (
	"fmt"
	"sort"
	"strings"
)

// Format is one supported output format.
type Format string

const (
	CSV     Format = "csv"
	JSON    Format = "json"
	XML     Format = "xml"
	XLSX    Format = "xlsx"
	HTML    Format = "html"
	Parquet Format = "parquet"
	Feather Format = "feather"
	Stata   Format = "dta"
	SQL     Format = "sql"
	Gob     Format = "gob"
)

var formatNames = map[string]Format{
	"csv":     CSV,
	"json":    JSON,
	"jsonl":   JSON,
	"ndjson":  JSON,
	"xml":     XML,
	"xlsx":    XLSX,
	"excel":   XLSX,
	"html":    HTML,
	"parquet": Parquet,
	"feather": Feather,
	"arrow":   Feather,
	"dta":     Stata,
	"stata":   Stata,
	"sql":     SQL,
	"gob":     Gob,
	"pickle":  Gob,
}

var formatInfo = map[Format]struct {
	contentType string
	extension   string
}{
	CSV:     {"text/csv; charset=utf-8", ".csv"},
	JSON:    {"application/x-ndjson", ".jsonl"},
	XML:     {"application/xml", ".xml"},
	XLSX:    {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", ".xlsx"},
	HTML:    {"text/html; charset=utf-8", ".html"},
	Parquet: {"application/vnd.apache.parquet", ".parquet"},
	Feather: {"application/vnd.apache.arrow.file", ".feather"},
	Stata:   {"application/x-stata-dta", ".dta"},
	SQL:     {"", ""},
	Gob:     {"application/octet-stream", ".gob"},
}

// ParseFormat resolves a case-insensitive format name or alias.
func ParseFormat(name string) (Format, error) {
	f, ok := formatNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
	return f, nil
}

// Formats returns every supported format in a stable order.
func Formats() []Format {
	out := make([]Format, 0, len(formatInfo))
	for f := range formatInfo {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ContentType returns the MIME type used for uploads and HTTP downloads.
func (f Format) ContentType() string { return formatInfo[f].contentType }

// Extension returns the conventional file extension, including the dot.
func (f Format) Extension() string { return formatInfo[f].extension }

// Streamable reports whether the format can be written to an io.Writer.
// Only SQL targets a database instead.
func (f Format) Streamable() bool { return f != SQL }

// Target is one resolved (format, destination) pair.
type Target struct {
	Format      Format `json:"format"`
	Destination string `json:"destination"`
}

// Warning reports a target that was skipped during parsing.
type Warning struct {
	Name        string `json:"name"`
	Destination string `json:"destination"`
	Err         error  `json:"-"`
}

func (w Warning) Error() string {
	return fmt.Sprintf("skipping %q -> %q: %v", w.Name, w.Destination, w.Err)
}

func (w Warning) Unwrap() error { return w.Err }

// ParseTargets resolves a format-name to destination mapping. Unknown
// formats and empty destinations become warnings; the rest are returned
// sorted by format then destination.
func ParseTargets(spec map[string]string) ([]Target, []Warning) {
	names := make([]string, 0, len(spec))
	for name := range spec {
		names = append(names, name)
	}
	sort.Strings(names)

	var targets []Target
	var warnings []Warning
	for _, name := range names {
		dest := strings.TrimSpace(spec[name])
		f, err := ParseFormat(name)
		if err != nil {
			warnings = append(warnings, Warning{Name: name, Destination: dest, Err: err})
			continue
		}
		if dest == "" {
			warnings = append(warnings, Warning{Name: name, Err: ErrEmptyDestination})
			continue
		}
		targets = append(targets, Target{Format: f, Destination: dest})
	}
	sort.SliceStable(targets, func(i, j int) bool {
		if targets[i].Format != targets[j].Format {
			return targets[i].Format < targets[j].Format
		}
		return targets[i].Destination < targets[j].Destination
	})
	return targets, warnings
}
