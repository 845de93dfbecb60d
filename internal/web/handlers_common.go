// Package web provides HTTP handlers for gendb.
// This file contains shared request parsing helpers used across handlers.
package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/gendb/internal/core"
	"github.com/JonMunkholm/gendb/internal/pid"
	"github.com/JonMunkholm/gendb/internal/refdata"
	"github.com/JonMunkholm/gendb/internal/synth"
)

// MaxBodySize bounds JSON request bodies.
const MaxBodySize = 1 << 20

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// decodeJSON reads a bounded JSON body into v. An empty body leaves v as is.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", core.ErrInvalidRequest, err)
	}
	return nil
}

// configFromQuery overlays generation settings from query parameters on
// base. Missing parameters keep the base value.
func configFromQuery(q url.Values, base synth.Config) (synth.Config, error) {
	cfg := base
	ints := map[string]*int{
		"sample_size":     &cfg.SampleSize,
		"birth_year_from": &cfg.BirthYearFrom,
		"birth_year_to":   &cfg.BirthYearTo,
	}
	for name, dst := range ints {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return cfg, fmt.Errorf("%w: %s must be an integer, got %q", core.ErrInvalidRequest, name, v)
			}
			*dst = n
		}
	}
	floats := map[string]*float64{
		"female_chance":      &cfg.FemaleChance,
		"second_name_chance": &cfg.SecondNameChance,
	}
	for name, dst := range floats {
		if v := q.Get(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return cfg, fmt.Errorf("%w: %s must be a number, got %q", core.ErrInvalidRequest, name, v)
			}
			*dst = f
		}
	}
	bools := map[string]*bool{
		"locality_weighted": &cfg.LocalityWeighted,
		"name_weighted":     &cfg.NameWeighted,
	}
	for name, dst := range bools {
		if v := q.Get(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return cfg, fmt.Errorf("%w: %s must be true or false, got %q", core.ErrInvalidRequest, name, v)
			}
			*dst = b
		}
	}
	return cfg, nil
}

// parseGender reads a required gender parameter. Failures report the
// identifier error so they map to the request, not to reference data.
func parseGender(v string) (refdata.Gender, error) {
	g, err := refdata.ParseGender(v)
	if err != nil {
		return "", fmt.Errorf("%w: %q", pid.ErrInvalidGender, v)
	}
	return g, nil
}

// parseBirthDate accepts YYYY-MM-DD.
func parseBirthDate(v string) (time.Time, error) {
	t, err := time.Parse(synth.DateLayout, strings.TrimSpace(v))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: birth must be YYYY-MM-DD, got %q", core.ErrInvalidRequest, v)
	}
	return t, nil
}
