package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JonMunkholm/gendb/internal/pid"
	"github.com/JonMunkholm/gendb/internal/synth"
)

func run(t *testing.T, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	var out, errOut bytes.Buffer
	args = append(args, "--env-file", "", "--log-level", "error")
	code = Execute(t.Context(), args, &out, &errOut)
	return out.String(), errOut.String(), code
}

func TestGenerate_Stdout(t *testing.T) {
	out, errOut, code := run(t, "generate", "-n", "5", "--seed", "11")
	if code != 0 {
		t.Fatalf("exit code %d: %s", code, errOut)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 6 {
		t.Fatalf("got %d lines, want header + 5:\n%s", len(lines), out)
	}
	if lines[0] != strings.Join(synth.ColumnNames(), ",") {
		t.Errorf("header = %q", lines[0])
	}
	for _, line := range lines[1:] {
		fields := strings.Split(line, ",")
		if err := pid.Validate(fields[5]); err != nil {
			t.Errorf("row %q has invalid PID: %v", line, err)
		}
	}
}

func TestGenerate_SeedIsReproducible(t *testing.T) {
	first, _, _ := run(t, "generate", "-n", "20", "--seed", "42")
	second, _, _ := run(t, "generate", "-n", "20", "--seed", "42")
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("same seed produced different tables (-first +second):\n%s", diff)
	}
}

func TestGenerate_Targets(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "nested", "people.csv")
	out, errOut, code := run(t, "generate", "-n", "8",
		"--out", "csv="+csvPath,
		"--out", "yaml="+filepath.Join(dir, "people.yaml"),
	)
	if code != 0 {
		t.Fatalf("exit code %d: %s", code, errOut)
	}
	if !strings.Contains(out, "8 rows") {
		t.Errorf("summary missing row count:\n%s", out)
	}
	if !strings.Contains(errOut, "warning:") {
		t.Errorf("stderr should warn about yaml:\n%s", errOut)
	}

	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if got := strings.Count(string(data), "\n"); got != 9 {
		t.Errorf("csv has %d lines, want 9", got)
	}
}

func TestGenerate_FailedTargetExitsNonZero(t *testing.T) {
	dir := t.TempDir()
	out, errOut, code := run(t, "generate", "-n", "3",
		"--out", "csv=s3://bucket/people.csv",
		"--out", "json="+filepath.Join(dir, "people.jsonl"),
	)
	if code != 1 {
		t.Fatalf("exit code %d, want 1", code)
	}
	if !strings.Contains(out, "failed (EXP003)") {
		t.Errorf("summary should show the failed target:\n%s", out)
	}
	if !strings.Contains(errOut, errTargetsFailed.Error()) {
		t.Errorf("stderr = %q", errOut)
	}
	if _, err := os.Stat(filepath.Join(dir, "people.jsonl")); err != nil {
		t.Errorf("other targets should still be written: %v", err)
	}
}

func TestGenerate_Profile(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "profile.csv")
	profile := filepath.Join(dir, "profile.yaml")
	body := "sample_size: 4\nfemale_chance: 100\nsecond_name_chance: 0\ntargets:\n  csv: " + csvPath + "\n"
	if err := os.WriteFile(profile, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, errOut, code := run(t, "generate", "--profile", profile); code != 0 {
		t.Fatalf("exit code %d: %s", code, errOut)
	}

	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5", len(lines))
	}
	for _, line := range lines[1:] {
		if fields := strings.Split(line, ","); fields[1] != "F" {
			t.Errorf("female_chance 100 produced %q", line)
		}
	}
}

func TestGenerate_BadInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"malformed out", []string{"generate", "--out", "csv"}, "REQ001"},
		{"invalid chance", []string{"generate", "--female-chance", "120"}, "GEN001"},
		{"inverted years", []string{"generate", "--from", "2000", "--to", "1990"}, "GEN001"},
		{"missing profile", []string{"generate", "--profile", "does-not-exist.yaml"}, "open profile"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errOut, code := run(t, tt.args...)
			if code != 1 {
				t.Errorf("exit code %d, want 1", code)
			}
			if !strings.Contains(errOut, tt.want) {
				t.Errorf("stderr = %q, want it to mention %s", errOut, tt.want)
			}
		})
	}
}

func TestDecodeProfile(t *testing.T) {
	base := synth.DefaultConfig()

	p, err := DecodeProfile(strings.NewReader("birth_year_from: 1970\ntargets:\n  gob: t.gob\n"), base)
	if err != nil {
		t.Fatalf("DecodeProfile() error = %v", err)
	}
	want := base
	want.BirthYearFrom = 1970
	if diff := cmp.Diff(want, p.Config); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]string{"gob": "t.gob"}, p.Targets); diff != "" {
		t.Errorf("targets mismatch (-want +got):\n%s", diff)
	}

	if _, err := DecodeProfile(strings.NewReader("sample_sise: 5\n"), base); err == nil {
		t.Error("DecodeProfile() should reject unknown keys")
	}

	p, err = DecodeProfile(strings.NewReader(""), base)
	if err != nil || p.Config != base {
		t.Errorf("empty profile = %+v, %v; want base", p.Config, err)
	}
}

func TestPIDCommands(t *testing.T) {
	out, errOut, code := run(t, "pid", "issue", "--birth", "1987-04-23", "--gender", "F", "--count", "3")
	if code != 0 {
		t.Fatalf("issue exit code %d: %s", code, errOut)
	}
	ids := strings.Fields(out)
	if len(ids) != 3 {
		t.Fatalf("issued %d ids, want 3", len(ids))
	}

	out, _, code = run(t, append([]string{"pid", "validate"}, ids...)...)
	if code != 0 {
		t.Fatalf("validate exit code %d:\n%s", code, out)
	}
	if got := strings.Count(out, "\tvalid\t1987-04-23\tF"); got != 3 {
		t.Errorf("validated %d ids, want 3:\n%s", got, out)
	}

	out, _, code = run(t, "pid", "validate", ids[0], "12345678901")
	if code != 1 {
		t.Errorf("exit code %d, want 1 for an invalid id", code)
	}
	if !strings.Contains(out, "12345678901\tinvalid") {
		t.Errorf("output should flag the invalid id:\n%s", out)
	}

	if _, errOut, code := run(t, "pid", "issue", "--birth", "1700-01-01", "--gender", "M"); code != 1 || !strings.Contains(errOut, "PID001") {
		t.Errorf("pre-1800 birth: code %d, stderr %q", code, errOut)
	}
}

func TestNameCommand(t *testing.T) {
	out, errOut, code := run(t, "name", "--year", "1990", "--gender", "K")
	if code != 0 {
		t.Fatalf("exit code %d: %s", code, errOut)
	}
	if strings.TrimSpace(out) == "" {
		t.Error("expected a name")
	}

	if _, errOut, code := run(t, "name", "--gender", "X"); code != 1 || !strings.Contains(errOut, "PID002") {
		t.Errorf("bad gender: code %d, stderr %q", code, errOut)
	}
}

func TestFormatsCommand(t *testing.T) {
	out, _, code := run(t, "formats")
	if code != 0 {
		t.Fatalf("exit code %d", code)
	}
	for _, want := range []string{"csv", "parquet", "dta", "sql"} {
		if !strings.Contains(out, want) {
			t.Errorf("formats output missing %s:\n%s", want, out)
		}
	}
}

func TestGenerate_DataSourceFlags(t *testing.T) {
	dir := t.TempDir()
	surnames := filepath.Join(dir, "surnames.txt")
	if err := os.WriteFile(surnames, []byte("Zielinski\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cities := filepath.Join(dir, "cities.csv")
	if err := os.WriteFile(cities, []byte("City Name,Population\nSopot,100\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, errOut, code := run(t, "generate", "-n", "4", "--surnames", surnames, "--cities", cities)
	if code != 0 {
		t.Fatalf("exit code %d: %s", code, errOut)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for _, line := range lines[1:] {
		fields := strings.Split(line, ",")
		if fields[2] != "Zielinski" || fields[6] != "sopot" {
			t.Errorf("row %q ignores the source flags", line)
		}
	}

	if _, errOut, code := run(t, "generate", "--names", filepath.Join(dir, "names.json")); code != 1 || !strings.Contains(errOut, "DATA") {
		t.Errorf("unsupported names file: code %d, stderr %q", code, errOut)
	}
}
