package refdata

// reader.go turns a raw delimited-text stream into header-indexed rows.
//
// Input goes through an x/text decoder that drops a leading BOM (UTF-8 or
// UTF-16, the latter transcoded) and replaces invalid UTF-8 with U+FFFD,
// so spreadsheets exported on Windows load without a separate cleanup pass.

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// delimitedExtensions lists the extensions accepted for caller-supplied files.
var delimitedExtensions = map[string]bool{
	".csv": true,
	".tsv": true,
	".txt": true,
}

// checkExtension fails fast, before any read, for non delimited-text files.
func checkExtension(path string) error {
	if !delimitedExtensions[strings.ToLower(filepath.Ext(path))] {
		return ErrUnsupportedExtension
	}
	return nil
}

// column describes one expected header and the spellings accepted for it.
type column struct {
	Name    string
	Aliases []string
}

// HeaderIndex maps normalized header names to their position in a row.
type HeaderIndex map[string]int

// newHeaderIndex builds an index from a header row.
func newHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := Normalize(strings.ReplaceAll(h, "_", " "))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// resolve returns the position of each expected column, in order.
func (h HeaderIndex) resolve(cols []column) ([]int, error) {
	pos := make([]int, len(cols))
	for i, c := range cols {
		found := false
		for _, name := range append([]string{c.Name}, c.Aliases...) {
			if p, ok := h[Normalize(name)]; ok {
				pos[i] = p
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w %q", ErrMissingColumn, c.Name)
		}
	}
	return pos, nil
}

// table is a parsed delimited file.
type table struct {
	header []string
	rows   [][]string
	lines  []int // 1-indexed source line of each row
}

func (t *table) line(i int) int { return t.lines[i] }

// cell returns the trimmed value at pos, or "" for short rows.
func cell(row []string, pos int) string {
	if pos >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[pos])
}

// countingReader tracks bytes consumed for load diagnostics.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// readTable parses r as delimited text. When hasHeader is false every line
// is data. The delimiter is tab for .tsv sources, otherwise sniffed from the
// first line.
func readTable(r io.Reader, source string, hasHeader bool) (*table, int64, error) {
	counter := &countingReader{r: r}
	decoded := transform.NewReader(counter, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	br := bufio.NewReader(decoded)

	delim := ','
	if strings.EqualFold(filepath.Ext(source), ".tsv") {
		delim = '\t'
	} else {
		delim = sniffDelimiter(br)
	}

	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	t := &table{}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, counter.n, fmt.Errorf("invalid csv: %w", err)
		}
		if isBlank(rec) {
			continue
		}
		line, _ := cr.FieldPos(0)
		if hasHeader && t.header == nil {
			t.header = rec
			continue
		}
		t.rows = append(t.rows, rec)
		t.lines = append(t.lines, line)
	}
	if len(t.rows) == 0 {
		return nil, counter.n, ErrEmptySource
	}
	return t, counter.n, nil
}

// sniffDelimiter peeks at the first line and picks ';' or '\t' when they
// outnumber commas. Semicolons are common in European spreadsheet exports.
func sniffDelimiter(br *bufio.Reader) rune {
	peek, _ := br.Peek(4096)
	if i := bytes.IndexByte(peek, '\n'); i >= 0 {
		peek = peek[:i]
	}
	best, bestCount := ',', bytes.Count(peek, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(peek, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
