// Package synth assembles the composite person/location table.
//
// A Synthesizer owns a random source and a PID generator. The generator's
// registry persists for the Synthesizer's lifetime, so repeated Generate
// calls never reuse an identifier.
package synth

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/JonMunkholm/gendb/internal/pid"
	"github.com/JonMunkholm/gendb/internal/refdata"
	"github.com/JonMunkholm/gendb/internal/sampling"
)

// ContextCheckInterval is how many rows are generated between ctx checks.
const ContextCheckInterval = 1000

var (
	// ErrInvalidConfig wraps configuration validation failures.
	ErrInvalidConfig = errors.New("invalid generation config")

	// ErrNoSurnames is returned when the surname list is empty.
	ErrNoSurnames = errors.New("surname list is empty")
)

// Synthesizer generates composite tables from a reference data store.
type Synthesizer struct {
	store     *refdata.Store
	names     *sampling.Names
	locations *sampling.Locations
	pids      *pid.Generator

	pidOpts []pid.Option

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithSeed makes runs reproducible for a fresh Synthesizer.
func WithSeed(seed uint64) Option {
	return func(s *Synthesizer) {
		s.rng = rand.New(rand.NewPCG(seed, seed^0xda3e39cb94b95bdb))
	}
}

// WithRand sets the random source used for every draw.
func WithRand(rng *rand.Rand) Option {
	return func(s *Synthesizer) { s.rng = rng }
}

// WithPIDOptions passes options to the owned PID generator.
func WithPIDOptions(opts ...pid.Option) Option {
	return func(s *Synthesizer) { s.pidOpts = append(s.pidOpts, opts...) }
}

// New returns a Synthesizer over store.
func New(store *refdata.Store, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		store:     store,
		names:     sampling.NewNames(store.Names()),
		locations: sampling.NewLocations(store.Localities()),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	// The PID tail draws from the same stream so a seed fixes the whole table.
	pidOpts := append([]pid.Option{pid.WithRand(s.rng)}, s.pidOpts...)
	s.pids = pid.NewGenerator(pidOpts...)
	return s
}

// PIDs returns the owned PID generator.
func (s *Synthesizer) PIDs() *pid.Generator { return s.pids }

// Names returns the name sampler built from the store.
func (s *Synthesizer) Names() *sampling.Names { return s.names }

// SampleName draws a single first name using the Synthesizer's random source.
func (s *Synthesizer) SampleName(year int, g refdata.Gender, weighted bool) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.names.Sample(s.rng, year, g, weighted)
}

// IssuePID issues one identifier from the owned registry.
func (s *Synthesizer) IssuePID(birth time.Time, g refdata.Gender) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pids.Issue(birth, g)
}

// Generate produces cfg.SampleSize rows. Any per-row failure aborts the
// whole batch and no partial table is returned. Calls are serialized.
func (s *Synthesizer) Generate(ctx context.Context, cfg Config) (*Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(s.store.Surnames()) == 0 {
		return nil, ErrNoSurnames
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	persons := make([]Person, cfg.SampleSize)
	births := newBirthRange(cfg.BirthYearFrom, cfg.BirthYearTo)
	for i := range persons {
		if i%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("generation cancelled at row %d: %w", i, err)
			}
		}
		p, err := s.person(cfg, births)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		persons[i] = p
	}

	locations, err := s.locations.Sample(s.rng, cfg.SampleSize, cfg.LocalityWeighted)
	if err != nil {
		return nil, fmt.Errorf("sample locations: %w", err)
	}

	return &Table{Persons: persons, Locations: locations}, nil
}

func (s *Synthesizer) person(cfg Config, births birthRange) (Person, error) {
	birth := births.draw(s.rng)

	gender := refdata.Male
	if s.rng.Float64()*100 < cfg.FemaleChance {
		gender = refdata.Female
	}

	surnames := s.store.Surnames()
	p := Person{
		BirthDate: birth,
		Gender:    gender,
		Surname:   surnames[s.rng.IntN(len(surnames))],
	}

	if name, ok := s.names.Sample(s.rng, birth.Year(), gender, cfg.NameWeighted); ok {
		p.FirstName = &name
	}
	if s.rng.Float64()*100 < cfg.SecondNameChance {
		if name, ok := s.names.Sample(s.rng, birth.Year(), gender, cfg.NameWeighted); ok {
			p.SecondName = &name
		}
	}

	id, err := s.pids.Issue(birth, gender)
	if err != nil {
		return Person{}, err
	}
	p.PID = id
	return p, nil
}

// birthRange is the inclusive day span [Jan 1 from, Dec 31 to].
type birthRange struct {
	start time.Time
	days  int
}

func newBirthRange(from, to int) birthRange {
	start := time.Date(from, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(to, time.December, 31, 0, 0, 0, 0, time.UTC)
	return birthRange{start: start, days: int((end.Unix()-start.Unix())/86400) + 1}
}

func (b birthRange) draw(rng *rand.Rand) time.Time {
	return b.start.AddDate(0, 0, rng.IntN(b.days))
}
