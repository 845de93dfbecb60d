// Package pid issues 11-digit checksummed national identity numbers.
//
// Layout of an identifier:
//
//	YY MM DD RRR G C
//
// YY is the birth year modulo 100. MM is the month plus a century offset
// (1800s +80, 1900s +0, 2000s +20, 2100s +40, 2200s +60). DD is the day.
// RRR are random digits, G is odd for men and even for women, and C is the
// checksum over the first ten digits with weights 1 3 7 9 1 3 7 9 1 3.
//
// A Generator owns a Registry and never issues the same identifier twice.
// On collision only the random tail (RRR G C) is re-rolled.
package pid

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JonMunkholm/gendb/internal/refdata"
)

// Length is the number of digits in an identifier.
const Length = 11

// DefaultMaxAttempts bounds the re-roll loop for a single identifier.
const DefaultMaxAttempts = 10_000

var (
	// ErrUnsupportedEra is returned for birth years before 1800.
	ErrUnsupportedEra = errors.New("birth year predates supported century encoding")

	// ErrInvalidGender is returned for genders other than male or female.
	ErrInvalidGender = errors.New("invalid gender")

	// ErrSpaceExhausted is returned when no unused identifier was found
	// within the attempt limit.
	ErrSpaceExhausted = errors.New("pid space exhausted")
)

var weights = [10]int{1, 3, 7, 9, 1, 3, 7, 9, 1, 3}

// Generator issues unique identifiers. It is safe for concurrent use.
type Generator struct {
	registry    *Registry
	maxAttempts int
	collisions  atomic.Int64

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Generator.
type Option func(*Generator)

// WithRegistry shares an existing registry, for example across generators
// that must not overlap.
func WithRegistry(r *Registry) Option {
	return func(g *Generator) { g.registry = r }
}

// WithRand sets the random source. The Generator serializes access to it.
func WithRand(rng *rand.Rand) Option {
	return func(g *Generator) { g.rng = rng }
}

// WithMaxAttempts bounds the number of candidates tried per identifier.
// Values below 1 keep the default.
func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// NewGenerator returns a Generator with an empty registry.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{maxAttempts: DefaultMaxAttempts}
	for _, opt := range opts {
		opt(g)
	}
	if g.registry == nil {
		g.registry = NewRegistry()
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return g
}

// Registry returns the registry backing g.
func (g *Generator) Registry() *Registry { return g.registry }

// Collisions returns how many candidates were rejected as duplicates.
func (g *Generator) Collisions() int64 { return g.collisions.Load() }

// Issue returns a new identifier for a person born on birth with gender
// gender. Only the year, month and day of birth are used.
func (g *Generator) Issue(birth time.Time, gender refdata.Gender) (string, error) {
	prefix, err := Prefix(birth)
	if err != nil {
		return "", err
	}
	if !gender.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidGender, string(gender))
	}

	var digits [Length]byte
	copy(digits[:6], prefix)

	for range g.maxAttempts {
		g.roll(&digits, gender)
		candidate := string(digits[:])
		if g.registry.Insert(candidate) {
			return candidate, nil
		}
		g.collisions.Add(1)
	}
	return "", fmt.Errorf("%w: %d attempts for prefix %s", ErrSpaceExhausted, g.maxAttempts, prefix)
}

// roll fills digits 7 to 11 with a fresh random tail and its checksum.
func (g *Generator) roll(digits *[Length]byte, gender refdata.Gender) {
	g.mu.Lock()
	for i := 6; i < 9; i++ {
		digits[i] = '0' + byte(g.rng.IntN(10))
	}
	parity := 2 * g.rng.IntN(5)
	g.mu.Unlock()

	if gender == refdata.Male {
		parity++
	}
	digits[9] = '0' + byte(parity)
	digits[10] = '0' + byte(Checksum(string(digits[:10])))
}

// Prefix returns the six date-derived digits for birth.
func Prefix(birth time.Time) (string, error) {
	year := birth.Year()
	if year < 1800 {
		return "", fmt.Errorf("%w: %d", ErrUnsupportedEra, year)
	}
	century := year/100 - 18
	month := (80+20*century)%100 + int(birth.Month())
	return fmt.Sprintf("%02d%02d%02d", year%100, month, birth.Day()), nil
}

// Checksum computes the check digit for the first ten digits of s.
// s must hold at least ten ASCII digits.
func Checksum(s string) int {
	sum := 0
	for i, w := range weights {
		sum += int(s[i]-'0') * w
	}
	if sum%10 == 0 {
		return 0
	}
	return 10 - sum%10
}
