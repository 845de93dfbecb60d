package export

// Columnar formats built on Apache Arrow: Parquet and Feather (Arrow IPC
// file format, version 2).

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/JonMunkholm/gendb/internal/synth"
)

// arrowBatchRows is the number of rows per record batch / row group.
const arrowBatchRows = 64 * 1024

// arrowSchema maps the table columns to Arrow types.
func arrowSchema() *arrow.Schema {
	cols := synth.Columns()
	fields := make([]arrow.Field, len(cols))
	for i, c := range cols {
		var typ arrow.DataType
		switch c.Kind {
		case synth.KindDate:
			typ = arrow.FixedWidthTypes.Date32
		case synth.KindInt:
			typ = arrow.PrimitiveTypes.Int64
		default:
			typ = arrow.BinaryTypes.String
		}
		fields[i] = arrow.Field{Name: c.Name, Type: typ, Nullable: c.Nullable}
	}
	return arrow.NewSchema(fields, nil)
}

// recordBatches calls emit with consecutive record batches of the table.
func recordBatches(ctx context.Context, t *synth.Table, schema *arrow.Schema, emit func(arrow.Record) error) error {
	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()

	for start := 0; start < t.Len(); start += arrowBatchRows {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled at row %d: %w", start, err)
		}
		end := min(start+arrowBatchRows, t.Len())
		for i := start; i < end; i++ {
			for col, v := range t.Values(i) {
				appendValue(b.Field(col), v)
			}
		}
		rec := b.NewRecord()
		err := emit(rec)
		rec.Release()
		if err != nil {
			return err
		}
	}
	return nil
}

func appendValue(fb array.Builder, v any) {
	if v == nil {
		fb.AppendNull()
		return
	}
	switch b := fb.(type) {
	case *array.Date32Builder:
		b.Append(arrow.Date32FromTime(v.(time.Time)))
	case *array.Int64Builder:
		b.Append(v.(int64))
	case *array.StringBuilder:
		b.Append(v.(string))
	}
}

func writeParquet(ctx context.Context, w io.Writer, t *synth.Table) error {
	schema := arrowSchema()
	props := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Snappy),
		parquet.WithMaxRowGroupLength(arrowBatchRows),
	)
	fw, err := pqarrow.NewFileWriter(schema, w, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return fmt.Errorf("parquet writer: %w", err)
	}
	if err := recordBatches(ctx, t, schema, fw.Write); err != nil {
		fw.Close()
		return err
	}
	return fw.Close()
}

func writeFeather(ctx context.Context, w io.Writer, t *synth.Table) error {
	schema := arrowSchema()
	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return fmt.Errorf("feather writer: %w", err)
	}
	if err := recordBatches(ctx, t, schema, fw.Write); err != nil {
		fw.Close()
		return err
	}
	return fw.Close()
}
