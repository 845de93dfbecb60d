package export

// Stata .dta release 114 (Stata 10-12), little-endian. The release predates
// Unicode support, so text is folded to ASCII and encoded as Windows-1252.

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/JonMunkholm/gendb/internal/refdata"
	"github.com/JonMunkholm/gendb/internal/synth"
)

const (
	stataRelease    = 114
	stataLOHI       = 2
	stataLong       = 253
	stataDouble     = 255
	stataMaxStr     = 244
	stataNameLen    = 33
	stataFormatLen  = 49
	stataLabelLen   = 81
	stataStampLen   = 18
	stataStampStyle = "02 Jan 2006 15:04"
	stataDataLabel  = "gendb synthetic records"
)

var stataEpoch = time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC)

var stataLabels = map[string]string{
	"birth_date":  "Birth date",
	"gender":      "Gender (M/F)",
	"surname":     "Surname",
	"first_name":  "First name",
	"second_name": "Second name",
	"pid":         "Personal identifier",
	"city":        "City",
	"population":  "City population",
	"postal_code": "Postal code",
}

type stataVar struct {
	name   string
	typ    byte
	width  int
	format string
}

func writeStata(ctx context.Context, w io.Writer, t *synth.Table) error {
	return writeStataAt(ctx, w, t, time.Now())
}

// writeStataAt is writeStata with a fixed time stamp.
func writeStataAt(ctx context.Context, w io.Writer, t *synth.Table, now time.Time) error {
	if t.Len() > math.MaxInt32 {
		return fmt.Errorf("%w: dta holds %d rows, table has %d", ErrTooManyRows, math.MaxInt32, t.Len())
	}

	enc := encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder())
	text := func(s string) []byte {
		out, err := enc.Bytes([]byte(refdata.Fold(s)))
		if err != nil {
			return []byte(s)
		}
		return out
	}

	vars, err := stataVars(ctx, t, text)
	if err != nil {
		return err
	}

	// bufio errors are sticky; Flush reports the first one.
	bw := bufio.NewWriter(w)
	le := binary.LittleEndian

	bw.Write([]byte{stataRelease, stataLOHI, 1, 0})
	binary.Write(bw, le, int16(len(vars)))
	binary.Write(bw, le, int32(t.Len()))
	bw.Write(fixed(stataDataLabel, stataLabelLen))
	bw.Write(fixed(now.Format(stataStampStyle), stataStampLen))

	for _, v := range vars {
		bw.WriteByte(v.typ)
	}
	for _, v := range vars {
		bw.Write(fixed(v.name, stataNameLen))
	}
	bw.Write(make([]byte, 2*(len(vars)+1))) // srtlist
	for _, v := range vars {
		bw.Write(fixed(v.format, stataFormatLen))
	}
	bw.Write(make([]byte, stataNameLen*len(vars))) // lbllist
	for _, v := range vars {
		bw.Write(fixed(stataLabels[v.name], stataLabelLen))
	}
	bw.Write(make([]byte, 5)) // expansion fields terminator

	for i := range t.Len() {
		if err := checkCtx(ctx, i); err != nil {
			return err
		}
		values := t.Values(i)
		for c, v := range vars {
			switch v.typ {
			case stataLong:
				days := (values[c].(time.Time).Unix() - stataEpoch.Unix()) / 86400
				binary.Write(bw, le, int32(days))
			case stataDouble:
				binary.Write(bw, le, float64(values[c].(int64)))
			default:
				s, _ := values[c].(string)
				bw.Write(fixed(string(text(s)), v.width))
			}
		}
	}
	return bw.Flush()
}

// stataVars derives the variable descriptors. String widths are the
// longest encoded value of each column, at least 1.
func stataVars(ctx context.Context, t *synth.Table, text func(string) []byte) ([]stataVar, error) {
	cols := synth.Columns()
	vars := make([]stataVar, len(cols))
	for c, col := range cols {
		vars[c].name = col.Name
		switch col.Kind {
		case synth.KindDate:
			vars[c].typ, vars[c].format = stataLong, "%td"
		case synth.KindInt:
			vars[c].typ, vars[c].format = stataDouble, "%12.0g"
		default:
			vars[c].width = 1
		}
	}

	for i := range t.Len() {
		if err := checkCtx(ctx, i); err != nil {
			return nil, err
		}
		for c, v := range t.Values(i) {
			s, ok := v.(string)
			if !ok || cols[c].Kind != synth.KindString {
				continue
			}
			vars[c].width = max(vars[c].width, len(text(s)))
		}
	}

	for c := range vars {
		if cols[c].Kind != synth.KindString {
			continue
		}
		if vars[c].width > stataMaxStr {
			return nil, fmt.Errorf("column %s: value of %d bytes exceeds dta limit of %d", vars[c].name, vars[c].width, stataMaxStr)
		}
		vars[c].typ = byte(vars[c].width)
		vars[c].format = fmt.Sprintf("%%%ds", vars[c].width)
	}
	return vars, nil
}

// fixed returns s as an n-byte zero-padded field, truncated to fit.
func fixed(s string, n int) []byte {
	b := make([]byte, n)
	copy(b, s)
	return b
}
