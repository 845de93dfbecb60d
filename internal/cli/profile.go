package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/gendb/internal/synth"
)

// Profile is a reusable generation recipe stored as YAML:
//
//	sample_size: 10000
//	female_chance: 52
//	birth_year_from: 1960
//	targets:
//	  csv: out/people.csv
//	  parquet: s3://bucket/people.parquet
//
// Omitted settings keep the values the profile is applied over.
type Profile struct {
	synth.Config `yaml:",inline"`
	Targets      map[string]string `yaml:"targets"`
}

// LoadProfile reads a profile file over base.
func LoadProfile(path string, base synth.Config) (Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return Profile{}, fmt.Errorf("open profile: %w", err)
	}
	defer f.Close()
	return DecodeProfile(f, base)
}

// DecodeProfile decodes a profile over base. Unknown keys are rejected.
func DecodeProfile(r io.Reader, base synth.Config) (Profile, error) {
	p := Profile{Config: base}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}
