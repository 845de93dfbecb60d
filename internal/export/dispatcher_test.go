package export

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	err     error
}

func (f *fakeObjects) PutObject(_ context.Context, bucket, key, contentType string, body io.Reader) error {
	if f.err != nil {
		return f.err
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string][]byte{}
		f.types = map[string]string{}
	}
	f.objects[bucket+"/"+key] = b
	f.types[bucket+"/"+key] = contentType
	return nil
}

type observation struct {
	format string
	bytes  int64
	failed bool
}

type fakeObserver struct {
	mu  sync.Mutex
	got []observation
}

func (o *fakeObserver) ObserveExport(format string, _ time.Duration, bytes int64, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.got = append(o.got, observation{format: format, bytes: bytes, failed: err != nil})
}

func TestExport_Files(t *testing.T) {
	dir := t.TempDir()
	targets := []Target{
		{Format: CSV, Destination: filepath.Join(dir, "out.csv")},
		{Format: JSON, Destination: filepath.Join(dir, "nested", "deeper", "out.jsonl")},
		{Format: Gob, Destination: filepath.Join(dir, "out.gob")},
	}

	report := NewDispatcher().Export(context.Background(), testTable(), targets)
	if err := report.Err(); err != nil {
		t.Fatalf("Export error: %v", err)
	}
	if len(report.Results) != len(targets) {
		t.Fatalf("got %d results, want %d", len(report.Results), len(targets))
	}

	for i, res := range report.Results {
		if res.Format != targets[i].Format {
			t.Errorf("result %d format = %s, want %s", i, res.Format, targets[i].Format)
		}
		if res.Rows != 2 {
			t.Errorf("result %d rows = %d, want 2", i, res.Rows)
		}
		info, err := os.Stat(targets[i].Destination)
		if err != nil {
			t.Errorf("result %d: %v", i, err)
			continue
		}
		if info.Size() != res.Bytes {
			t.Errorf("result %d bytes = %d, file has %d", i, res.Bytes, info.Size())
		}
		if got := info.Mode().Perm(); got != 0o644 {
			t.Errorf("result %d mode = %v, want -rw-r--r--", i, got)
		}
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, ".*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("temporary files left behind: %v", leftovers)
	}
}

func TestExport_FailedDestinationIsIsolated(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	targets := []Target{
		{Format: CSV, Destination: filepath.Join(blocker, "out.csv")},
		{Format: XML, Destination: filepath.Join(dir, "out.xml")},
		{Format: HTML, Destination: filepath.Join(dir, "out.html")},
	}
	obs := &fakeObserver{}
	report := NewDispatcher(WithObserver(obs)).Export(context.Background(), testTable(), targets)

	failed := report.Failed()
	if len(failed) != 1 {
		t.Fatalf("got %d failed results, want 1", len(failed))
	}
	var we *WriteError
	if !errors.As(report.Err(), &we) {
		t.Fatalf("Report.Err() = %v, want *WriteError", report.Err())
	}
	if we.Format != CSV {
		t.Errorf("failed format = %s, want csv", we.Format)
	}

	for _, name := range []string{"out.xml", "out.html"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}

	if len(obs.got) != 3 {
		t.Fatalf("observer got %d calls, want 3", len(obs.got))
	}
	var failures int
	for _, o := range obs.got {
		if o.failed {
			failures++
		}
	}
	if failures != 1 {
		t.Errorf("observer saw %d failures, want 1", failures)
	}
}

func TestExport_ObjectStore(t *testing.T) {
	objects := &fakeObjects{}
	d := NewDispatcher(WithObjectStore(objects))

	report := d.Export(context.Background(), testTable(), []Target{
		{Format: CSV, Destination: "s3://bucket/exports/people.csv"},
	})
	if err := report.Err(); err != nil {
		t.Fatalf("Export error: %v", err)
	}

	body, ok := objects.objects["bucket/exports/people.csv"]
	if !ok {
		t.Fatalf("object not stored, have %v", objects.objects)
	}
	if int64(len(body)) != report.Results[0].Bytes {
		t.Errorf("bytes = %d, object has %d", report.Results[0].Bytes, len(body))
	}
	if got := objects.types["bucket/exports/people.csv"]; got != CSV.ContentType() {
		t.Errorf("content type = %q, want %q", got, CSV.ContentType())
	}
	if !bytes.HasPrefix(body, []byte("birth_date,gender")) {
		t.Errorf("unexpected object body: %q", body[:min(40, len(body))])
	}
}

func TestExport_ObjectStoreErrors(t *testing.T) {
	tests := []struct {
		name    string
		objects ObjectPutter
		dest    string
		wantErr error
	}{
		{name: "no store", dest: "s3://bucket/key.csv", wantErr: ErrNoObjectStore},
		{name: "upload fails", objects: &fakeObjects{err: io.ErrClosedPipe}, dest: "s3://bucket/key.csv", wantErr: io.ErrClosedPipe},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []Option
			if tt.objects != nil {
				opts = append(opts, WithObjectStore(tt.objects))
			}
			report := NewDispatcher(opts...).Export(context.Background(), testTable(), []Target{{Format: CSV, Destination: tt.dest}})
			if !errors.Is(report.Err(), tt.wantErr) {
				t.Errorf("error = %v, want %v", report.Err(), tt.wantErr)
			}
		})
	}
}

func TestExport_MissingKey(t *testing.T) {
	report := NewDispatcher(WithObjectStore(&fakeObjects{})).Export(context.Background(), testTable(), []Target{
		{Format: CSV, Destination: "s3://bucket"},
	})
	if report.Err() == nil {
		t.Error("expected error for object url without key")
	}
}

func TestExport_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := t.TempDir()
	report := NewDispatcher().Export(ctx, testTable(), []Target{
		{Format: CSV, Destination: filepath.Join(dir, "a.csv")},
		{Format: JSON, Destination: filepath.Join(dir, "b.jsonl")},
	})
	for _, res := range report.Results {
		if !errors.Is(res.Err, context.Canceled) {
			t.Errorf("%s: error = %v, want context.Canceled", res.Format, res.Err)
		}
	}
}

func TestExportSpec_Warnings(t *testing.T) {
	dir := t.TempDir()
	report := NewDispatcher().ExportSpec(context.Background(), testTable(), map[string]string{
		"csv":  filepath.Join(dir, "out.csv"),
		"yaml": filepath.Join(dir, "out.yaml"),
		"json": "",
	})

	if err := report.Err(); err != nil {
		t.Fatalf("Export error: %v", err)
	}
	if len(report.Results) != 1 {
		t.Errorf("got %d results, want 1", len(report.Results))
	}
	if len(report.Warnings) != 2 {
		t.Errorf("got %d warnings, want 2", len(report.Warnings))
	}
	if _, err := os.Stat(filepath.Join(dir, "out.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Error("skipped format should not create a file")
	}
}

func TestExport_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.db")
	d := NewDispatcher(WithSQLTable("people_test"))

	for range 2 {
		report := d.Export(context.Background(), testTable(), []Target{{Format: SQL, Destination: path}})
		if err := report.Err(); err != nil {
			t.Fatalf("Export error: %v", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var total, nullCodes int
	if err := db.QueryRow(`SELECT COUNT(*) FROM people_test`).Scan(&total); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM people_test WHERE postal_code IS NULL`).Scan(&nullCodes); err != nil {
		t.Fatalf("count nulls: %v", err)
	}
	if total != 4 {
		t.Errorf("rows = %d, want 4 (two appends of 2)", total)
	}
	if nullCodes != 2 {
		t.Errorf("null postal codes = %d, want 2", nullCodes)
	}

	var birth, surname string
	var population int64
	err = db.QueryRow(`SELECT birth_date, surname, population FROM people_test WHERE pid = ? LIMIT 1`, "44051401458").
		Scan(&birth, &surname, &population)
	if err != nil {
		t.Fatalf("select row: %v", err)
	}
	if diff := cmp.Diff([]any{"1944-05-14", "Wiśniewski", int64(670000)}, []any{birth, surname, population}); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLSink_Errors(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		dsn     string
		wantErr error
	}{
		{name: "mysql", table: "people", dsn: "mysql://user:pw@host/db", wantErr: ErrUnsupportedDatabase},
		{name: "plain path", table: "people", dsn: "out.csv", wantErr: ErrUnsupportedDatabase},
		{name: "bad table", table: "people; DROP TABLE x", dsn: "out.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewSQLSink(tt.table).Write(context.Background(), tt.dsn, testTable())
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseDSN(t *testing.T) {
	tests := []struct {
		dsn      string
		wantD    dialect
		wantConn string
	}{
		{"postgres://u:p@localhost/db", dialectPostgres, "postgres://u:p@localhost/db"},
		{"postgresql://localhost/db", dialectPostgres, "postgresql://localhost/db"},
		{"sqlite:///tmp/x.db", dialectSQLite, "/tmp/x.db"},
		{"sqlite:x.db", dialectSQLite, "x.db"},
		{"file:x.db?cache=shared", dialectSQLite, "file:x.db?cache=shared"},
		{"data/out.sqlite", dialectSQLite, "data/out.sqlite"},
	}

	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			d, conn, err := parseDSN(tt.dsn)
			if err != nil {
				t.Fatalf("parseDSN error: %v", err)
			}
			if d != tt.wantD || conn != tt.wantConn {
				t.Errorf("parseDSN(%q) = %v, %q; want %v, %q", tt.dsn, d, conn, tt.wantD, tt.wantConn)
			}
		})
	}
}

func TestCreateTableSQL(t *testing.T) {
	got := createTableSQL("people", dialectPostgres)
	want := `CREATE TABLE IF NOT EXISTS "people" ("birth_date" DATE NOT NULL, "gender" TEXT NOT NULL, ` +
		`"surname" TEXT NOT NULL, "first_name" TEXT, "second_name" TEXT, "pid" TEXT NOT NULL, ` +
		`"city" TEXT NOT NULL, "population" BIGINT NOT NULL, "postal_code" TEXT)`
	if got != want {
		t.Errorf("createTableSQL =\n%s\nwant\n%s", got, want)
	}
}

func TestRedact(t *testing.T) {
	tests := map[string]string{
		"postgres://user:secret@db/gendb": "postgres://user:xxxxx@db/gendb",
		"out/people.csv":                  "out/people.csv",
		"s3://bucket/key.csv":             "s3://bucket/key.csv",
	}
	for in, want := range tests {
		if got := redact(in); got != want {
			t.Errorf("redact(%q) = %q, want %q", in, got, want)
		}
	}
}
