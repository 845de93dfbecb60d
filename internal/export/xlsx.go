package export

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/gendb/internal/synth"
)

const (
	xlsxSheet   = "Sheet1"
	xlsxMaxRows = 1_048_576 // including the header row
)

// writeXLSX writes a single-sheet workbook through excelize's stream
// writer. Dates are written as ISO text so spreadsheets do not reformat
// them by locale.
func writeXLSX(ctx context.Context, w io.Writer, t *synth.Table) error {
	if t.Len()+1 > xlsxMaxRows {
		return fmt.Errorf("%w: xlsx holds %d rows, table has %d", ErrTooManyRows, xlsxMaxRows-1, t.Len())
	}

	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(xlsxSheet)
	if err != nil {
		return fmt.Errorf("stream writer: %w", err)
	}

	names := synth.ColumnNames()
	header := make([]any, len(names))
	for i, n := range names {
		header[i] = n
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i := range t.Len() {
		if err := checkCtx(ctx, i); err != nil {
			return err
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := t.Values(i)
		values[0] = t.Persons[i].BirthDate.Format(synth.DateLayout)
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	return f.Write(w)
}
