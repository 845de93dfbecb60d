// Package refdata loads the reference datasets the generator samples from:
// localities with population and postal codes, a first-name frequency table
// and a flat surname list.
//
// Every dataset can be overridden by a caller-supplied delimited-text file;
// otherwise the bundled default under data/ is used. A loaded Store is
// read-only and may be shared by any number of goroutines.
package refdata

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
)

//go:embed data
var embedded embed.FS

const (
	defaultLocalities  = "data/cities.csv"
	defaultPostalCodes = "data/postal_codes.csv"
	defaultNames       = "data/first_names.csv"
	defaultSurnames    = "data/surnames.txt"
)

// Locality is a named place with its population and postal codes.
type Locality struct {
	Name        string   `json:"name"`
	Population  int64    `json:"population"`
	PostalCodes []string `json:"postal_codes"`
}

// NameRecord is one row of the first-name frequency table: Count people of
// Gender were given Name in Year.
type NameRecord struct {
	Name   string `json:"name"`
	Gender Gender `json:"gender"`
	Year   int    `json:"year"`
	Count  int64  `json:"count"`
}

// Sources selects override files. Empty fields use the bundled defaults.
type Sources struct {
	LocalityPath   string
	PostalCodePath string
	NamePath       string
	SurnamePath    string
}

// Store holds the loaded reference data.
type Store struct {
	localities []Locality
	names      []NameRecord
	surnames   []string
	minYear    int
	maxYear    int
}

// NewStore builds a Store from in-memory data. Used by tests and by callers
// that assemble datasets programmatically.
func NewStore(localities []Locality, names []NameRecord, surnames []string) *Store {
	s := &Store{localities: localities, names: names, surnames: surnames}
	s.computeYearRange()
	return s
}

// Localities returns the loaded localities. Callers must not modify the slice.
func (s *Store) Localities() []Locality { return s.localities }

// Names returns the first-name frequency rows.
func (s *Store) Names() []NameRecord { return s.names }

// Surnames returns the surname list.
func (s *Store) Surnames() []string { return s.surnames }

// YearRange returns the smallest and largest year in the name table.
// Both are zero when the table is empty.
func (s *Store) YearRange() (int, int) { return s.minYear, s.maxYear }

func (s *Store) computeYearRange() {
	if len(s.names) == 0 {
		return
	}
	s.minYear, s.maxYear = math.MaxInt, math.MinInt
	for _, n := range s.names {
		s.minYear = min(s.minYear, n.Year)
		s.maxYear = max(s.maxYear, n.Year)
	}
}

// Load reads all reference datasets. Any failure is returned as a
// *DataLoadError naming the offending path.
func Load(ctx context.Context, src Sources) (*Store, error) {
	logger := slog.Default().With("component", "refdata")

	localities, err := loadLocalities(ctx, src.LocalityPath, src.PostalCodePath)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load cancelled: %w", err)
	}
	names, err := loadDataset(src.NamePath, defaultNames, true, parseNames)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load cancelled: %w", err)
	}
	surnames, err := loadDataset(src.SurnamePath, defaultSurnames, false, parseSurnames)
	if err != nil {
		return nil, err
	}

	store := NewStore(localities, names, surnames)
	logger.Info("reference data loaded",
		"localities", len(localities),
		"name_rows", len(names),
		"surnames", len(surnames),
		"min_year", store.minYear,
		"max_year", store.maxYear,
	)
	return store, nil
}

// loadDataset opens path (or the embedded default when path is empty),
// parses it and wraps any failure in a DataLoadError.
func loadDataset[T any](path, fallback string, hasHeader bool, parse func(*table) ([]T, error)) ([]T, error) {
	r, label, err := open(path, fallback)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	t, size, err := readTable(r, label, hasHeader)
	if err != nil {
		return nil, &DataLoadError{Path: label, Err: err}
	}
	out, err := parse(t)
	if err != nil {
		return nil, &DataLoadError{Path: label, Err: err}
	}
	slog.Debug("dataset parsed", "source", label, "bytes", size, "rows", len(out))
	return out, nil
}

// open returns a reader for a caller path or the embedded fallback.
// Caller paths are checked for a delimited-text extension before opening.
func open(path, fallback string) (io.ReadCloser, string, error) {
	if path == "" {
		f, err := embedded.Open(fallback)
		if err != nil {
			return nil, "embedded:" + fallback, &DataLoadError{Path: "embedded:" + fallback, Err: err}
		}
		return f, "embedded:" + fallback, nil
	}
	if err := checkExtension(path); err != nil {
		return nil, path, &DataLoadError{Path: path, Err: err}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, path, &DataLoadError{Path: path, Err: err}
	}
	return f, path, nil
}

var (
	localityColumns = []column{
		{Name: "city name", Aliases: []string{"city", "miasto", "name"}},
		{Name: "population", Aliases: []string{"ludnosc", "population proper"}},
	}
	postalColumns = []column{
		{Name: "administrative division", Aliases: []string{"miejscowosc", "city"}},
		{Name: "postal code", Aliases: []string{"kod pocztowy", "postcode", "zip"}},
	}
	nameColumns = []column{
		{Name: "name", Aliases: []string{"imie", "imie pierwsze", "first name"}},
		{Name: "gender", Aliases: []string{"plec", "sex"}},
		{Name: "year", Aliases: []string{"rok"}},
		{Name: "count", Aliases: []string{"liczba", "liczba wystapien", "number"}},
	}
)

type postalRow struct {
	division string
	code     string
}

// loadLocalities loads localities and annotates each with the postal codes
// whose normalized administrative division equals the normalized city name.
func loadLocalities(ctx context.Context, localityPath, postalPath string) ([]Locality, error) {
	localities, err := loadDataset(localityPath, defaultLocalities, true, parseLocalities)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load cancelled: %w", err)
	}
	postal, err := loadDataset(postalPath, defaultPostalCodes, true, parsePostalCodes)
	if err != nil {
		return nil, err
	}
	joinPostalCodes(localities, postal)
	return localities, nil
}

func joinPostalCodes(localities []Locality, postal []postalRow) {
	byDivision := make(map[string][]string)
	for _, p := range postal {
		byDivision[p.division] = append(byDivision[p.division], p.code)
	}
	for i := range localities {
		codes := byDivision[localities[i].Name]
		localities[i].PostalCodes = append([]string{}, codes...)
	}
}

func parseLocalities(t *table) ([]Locality, error) {
	pos, err := newHeaderIndex(t.header).resolve(localityColumns)
	if err != nil {
		return nil, err
	}
	out := make([]Locality, 0, len(t.rows))
	for i, row := range t.rows {
		name := Normalize(cell(row, pos[0]))
		if name == "" {
			return nil, ValidationError{Line: t.line(i), Field: localityColumns[0].Name, Message: "required field is empty"}
		}
		pop, err := parseCount(cell(row, pos[1]), true)
		if err != nil {
			return nil, ValidationError{Line: t.line(i), Field: localityColumns[1].Name, Value: cell(row, pos[1]), Message: err.Error()}
		}
		out = append(out, Locality{Name: name, Population: pop})
	}
	return out, nil
}

func parsePostalCodes(t *table) ([]postalRow, error) {
	pos, err := newHeaderIndex(t.header).resolve(postalColumns)
	if err != nil {
		return nil, err
	}
	out := make([]postalRow, 0, len(t.rows))
	for _, row := range t.rows {
		division := Normalize(cell(row, pos[0]))
		code := cell(row, pos[1])
		if division == "" || code == "" {
			continue
		}
		out = append(out, postalRow{division: division, code: code})
	}
	return out, nil
}

func parseNames(t *table) ([]NameRecord, error) {
	pos, err := newHeaderIndex(t.header).resolve(nameColumns)
	if err != nil {
		return nil, err
	}
	out := make([]NameRecord, 0, len(t.rows))
	for i, row := range t.rows {
		line := t.line(i)
		name := cell(row, pos[0])
		if name == "" {
			return nil, ValidationError{Line: line, Field: "name", Message: "required field is empty"}
		}
		gender, err := ParseGender(cell(row, pos[1]))
		if err != nil {
			return nil, ValidationError{Line: line, Field: "gender", Value: cell(row, pos[1]), Message: err.Error()}
		}
		year, err := strconv.Atoi(cell(row, pos[2]))
		if err != nil {
			return nil, ValidationError{Line: line, Field: "year", Value: cell(row, pos[2]), Message: "invalid number"}
		}
		count, err := parseCount(cell(row, pos[3]), false)
		if err != nil {
			return nil, ValidationError{Line: line, Field: "count", Value: cell(row, pos[3]), Message: err.Error()}
		}
		out = append(out, NameRecord{Name: titleCase(name), Gender: gender, Year: year, Count: count})
	}
	return out, nil
}

var surnameHeaders = map[string]bool{"surname": true, "surnames": true, "last name": true, "last names": true, "nazwisko": true}

func parseSurnames(t *table) ([]string, error) {
	out := make([]string, 0, len(t.rows))
	for i, row := range t.rows {
		v := cell(row, 0)
		if i == 0 && surnameHeaders[Normalize(strings.ReplaceAll(v, "_", " "))] {
			continue
		}
		if v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil, ErrEmptySource
	}
	return out, nil
}

// parseCount parses a non-negative integer. Spaces used as thousands
// separators are dropped and integral floats such as "1200.0" accepted.
// allowEmpty maps an empty cell to zero.
func parseCount(s string, allowEmpty bool) (int64, error) {
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' || r == '_' {
			return -1
		}
		return r
	}, s)
	if s == "" {
		if allowEmpty {
			return 0, nil
		}
		return 0, errors.New("required field is empty")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
			return 0, errors.New("invalid number")
		}
		n = int64(f)
	}
	if n < 0 {
		return 0, errors.New("must be non-negative")
	}
	return n, nil
}

// titleCase turns "ANNA" into "Anna"; name exports are often upper-case.
func titleCase(s string) string {
	lower := []rune(strings.ToLower(s))
	upperNext := true
	for i, r := range lower {
		if upperNext {
			lower[i] = []rune(strings.ToUpper(string(r)))[0]
		}
		upperNext = r == '-' || r == ' '
	}
	return string(lower)
}
