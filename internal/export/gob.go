package export

import (
	"context"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/JonMunkholm/gendb/internal/synth"
)

// Snapshot is the value stored by the gob format: the column names and
// every record, decodable with encoding/gob into the same type.
type Snapshot struct {
	Columns []string
	Records []synth.Record
}

func writeGob(ctx context.Context, w io.Writer, t *synth.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snap := Snapshot{Columns: synth.ColumnNames(), Records: t.Records()}
	if err := gob.NewEncoder(w).Encode(snap); err != nil {
		return fmt.Errorf("encode gob: %w", err)
	}
	return nil
}

// ReadSnapshot decodes a gob snapshot.
func ReadSnapshot(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	if err := gob.NewDecoder(r).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode gob: %w", err)
	}
	return snap, nil
}
