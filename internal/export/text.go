package export

// Row-oriented text formats: delimited text, JSON lines and an XML table.

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/JonMunkholm/gendb/internal/synth"
)

// checkEvery is how many rows an encoder writes between ctx checks.
const checkEvery = 1000

func checkCtx(ctx context.Context, row int) error {
	if row%checkEvery != 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cancelled at row %d: %w", row, err)
	}
	return nil
}

// writeCSV writes a header row followed by one line per record. Null cells
// are empty.
func writeCSV(ctx context.Context, w io.Writer, t *synth.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(synth.ColumnNames()); err != nil {
		return err
	}
	for i := range t.Len() {
		if err := checkCtx(ctx, i); err != nil {
			return err
		}
		if err := cw.Write(t.Strings(i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeJSONLines writes one JSON object per line. Null cells are null.
func writeJSONLines(ctx context.Context, w io.Writer, t *synth.Table) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i := range t.Len() {
		if err := checkCtx(ctx, i); err != nil {
			return err
		}
		if err := enc.Encode(t.Record(i)); err != nil {
			return err
		}
	}
	return nil
}

// writeXML writes <records><record>...</record></records>. Null cells are
// omitted.
func writeXML(ctx context.Context, w io.Writer, t *synth.Table) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")

	root := xml.StartElement{Name: xml.Name{Local: "records"}}
	if err := enc.EncodeToken(root); err != nil {
		return err
	}
	record := xml.StartElement{Name: xml.Name{Local: "record"}}
	for i := range t.Len() {
		if err := checkCtx(ctx, i); err != nil {
			return err
		}
		if err := enc.EncodeElement(t.Record(i), record); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return err
	}
	return enc.Flush()
}
