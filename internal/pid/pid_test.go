package pid

import (
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/gendb/internal/refdata"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0x5eed))
}

func checkWellFormed(t *testing.T, s string) {
	t.Helper()
	if len(s) != Length {
		t.Fatalf("pid %q has length %d, want %d", s, len(s), Length)
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			t.Fatalf("pid %q has non-digit at %d", s, i)
		}
	}
	if got, want := int(s[10]-'0'), Checksum(s); got != want {
		t.Fatalf("pid %q checksum digit = %d, want %d", s, got, want)
	}
}

func TestPrefix(t *testing.T) {
	tests := []struct {
		birth time.Time
		want  string
	}{
		{date(1800, time.January, 1), "008101"},
		{date(1899, time.December, 31), "999231"},
		{date(1900, time.January, 5), "000105"},
		{date(1987, time.June, 9), "870609"},
		{date(2000, time.February, 29), "002229"},
		{date(2019, time.December, 31), "193231"},
		{date(2150, time.March, 3), "504303"},
		{date(2250, time.April, 14), "506414"},
		{date(2301, time.May, 1), "018501"},
	}

	for _, tt := range tests {
		got, err := Prefix(tt.birth)
		if err != nil {
			t.Errorf("Prefix(%s) error = %v", tt.birth.Format(time.DateOnly), err)
			continue
		}
		if got != tt.want {
			t.Errorf("Prefix(%s) = %q, want %q", tt.birth.Format(time.DateOnly), got, tt.want)
		}
	}
}

func TestChecksum(t *testing.T) {
	tests := []struct {
		digits string
		want   int
	}{
		// 4*1 + 4*3 + 0*7 + 5*9 + 1*1 + 4*3 + 0*7 + 9*9 + 8*1 + 5*3 = 178
		{"4405140985", 2},
		{"0000000000", 0},
		// 1*1 + 0 ... = 1
		{"1000000000", 9},
		// 9*3 = 27
		{"0900000000", 3},
	}
	for _, tt := range tests {
		if got := Checksum(tt.digits); got != tt.want {
			t.Errorf("Checksum(%q) = %d, want %d", tt.digits, got, tt.want)
		}
	}
}

func TestIssue_UniqueWellFormed(t *testing.T) {
	g := NewGenerator(WithRand(seeded(1)))

	// Narrow date range so collisions happen and get re-rolled.
	const n = 10_000
	seen := make(map[string]bool, n)
	for i := range n {
		birth := date(1990, time.March, 1+i%3)
		gender := refdata.Male
		if i%2 == 0 {
			gender = refdata.Female
		}
		s, err := g.Issue(birth, gender)
		if err != nil {
			t.Fatalf("Issue() #%d error = %v", i, err)
		}
		checkWellFormed(t, s)
		if seen[s] {
			t.Fatalf("duplicate pid %q at #%d", s, i)
		}
		seen[s] = true
	}

	if g.Registry().Len() != n {
		t.Errorf("Registry().Len() = %d, want %d", g.Registry().Len(), n)
	}
	if g.Collisions() == 0 {
		t.Error("expected some collisions in a 6-slot date space")
	}
}

func TestIssue_ParityMatchesGender(t *testing.T) {
	g := NewGenerator(WithRand(seeded(2)))
	for i := range 500 {
		for _, gender := range []refdata.Gender{refdata.Male, refdata.Female} {
			s, err := g.Issue(date(1970+i%50, time.July, 15), gender)
			if err != nil {
				t.Fatalf("Issue() error = %v", err)
			}
			odd := (s[9]-'0')%2 == 1
			if odd != (gender == refdata.Male) {
				t.Fatalf("pid %q digit 10 odd=%v for gender %s", s, odd, gender)
			}
		}
	}
}

func TestIssue_FixedPrefixPerDate(t *testing.T) {
	g := NewGenerator(WithRand(seeded(3)))
	birth := date(2004, time.November, 23)

	for range 200 {
		s, err := g.Issue(birth, refdata.Female)
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		if s[:6] != "043123" {
			t.Fatalf("pid %q prefix = %q, want %q", s, s[:6], "043123")
		}
	}
}

func TestIssue_RandomPairs(t *testing.T) {
	rng := seeded(4)
	g := NewGenerator(WithRand(seeded(5)))

	start := date(1900, time.January, 1)
	days := int(date(2099, time.December, 31).Sub(start).Hours()/24) + 1

	seen := make(map[string]bool)
	for range 1000 {
		birth := start.AddDate(0, 0, rng.IntN(days))
		gender := refdata.Male
		if rng.IntN(2) == 0 {
			gender = refdata.Female
		}

		s, err := g.Issue(birth, gender)
		if err != nil {
			t.Fatalf("Issue(%s) error = %v", birth.Format(time.DateOnly), err)
		}
		checkWellFormed(t, s)
		if err := Validate(s); err != nil {
			t.Fatalf("Validate(%q) = %v", s, err)
		}
		if seen[s] {
			t.Fatalf("duplicate pid %q", s)
		}
		seen[s] = true

		dec, err := Decode(s)
		if err != nil {
			t.Fatalf("Decode(%q) error = %v", s, err)
		}
		if !dec.BirthDate.Equal(birth) || dec.Gender != gender {
			t.Fatalf("Decode(%q) = %+v, want %s %s", s, dec, birth.Format(time.DateOnly), gender)
		}
	}
	if len(seen) != 1000 {
		t.Errorf("issued %d distinct pids, want 1000", len(seen))
	}
}

func TestIssue_Errors(t *testing.T) {
	g := NewGenerator()

	if _, err := g.Issue(date(1799, time.December, 31), refdata.Male); !errors.Is(err, ErrUnsupportedEra) {
		t.Errorf("Issue(1799) error = %v, want ErrUnsupportedEra", err)
	}
	if _, err := g.Issue(date(1990, time.January, 1), refdata.Gender("X")); !errors.Is(err, ErrInvalidGender) {
		t.Errorf("Issue(gender X) error = %v, want ErrInvalidGender", err)
	}
	if _, err := g.Issue(date(1990, time.January, 1), ""); !errors.Is(err, ErrInvalidGender) {
		t.Errorf("Issue(empty gender) error = %v, want ErrInvalidGender", err)
	}
	if g.Registry().Len() != 0 {
		t.Errorf("failed issuances grew the registry to %d", g.Registry().Len())
	}
}

func TestIssue_SpaceExhausted(t *testing.T) {
	t.Run("replayed source", func(t *testing.T) {
		reg := NewRegistry()
		first := NewGenerator(WithRegistry(reg), WithRand(seeded(9)))
		replay := NewGenerator(WithRegistry(reg), WithRand(seeded(9)), WithMaxAttempts(1))

		birth := date(1985, time.May, 5)
		if _, err := first.Issue(birth, refdata.Male); err != nil {
			t.Fatalf("first Issue() error = %v", err)
		}
		if _, err := replay.Issue(birth, refdata.Male); !errors.Is(err, ErrSpaceExhausted) {
			t.Errorf("replayed Issue() error = %v, want ErrSpaceExhausted", err)
		}
		if replay.Collisions() != 1 {
			t.Errorf("Collisions() = %d, want 1", replay.Collisions())
		}
	})

	t.Run("full date space", func(t *testing.T) {
		// 1000 random triples x 5 parity digits per (date, gender).
		const space = 5000
		g := NewGenerator(WithRand(seeded(10)), WithMaxAttempts(200_000))
		birth := date(1999, time.September, 9)

		for i := range space {
			if _, err := g.Issue(birth, refdata.Female); err != nil {
				t.Fatalf("Issue() #%d error = %v", i, err)
			}
		}
		if _, err := g.Issue(birth, refdata.Female); !errors.Is(err, ErrSpaceExhausted) {
			t.Errorf("Issue() on full space error = %v, want ErrSpaceExhausted", err)
		}
		// The other gender still has room.
		if _, err := g.Issue(birth, refdata.Male); err != nil {
			t.Errorf("Issue(male) error = %v", err)
		}
	})
}

func TestIssue_Concurrent(t *testing.T) {
	g := NewGenerator(WithRand(seeded(12)))
	birth := date(2001, time.January, 1)

	const workers, per = 8, 250
	results := make(chan string, workers*per)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range per {
				s, err := g.Issue(birth, refdata.Male)
				if err != nil {
					t.Error(err)
					return
				}
				results <- s
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for s := range results {
		if seen[s] {
			t.Fatalf("duplicate pid %q under concurrency", s)
		}
		seen[s] = true
	}
	if len(seen) != workers*per {
		t.Errorf("got %d pids, want %d", len(seen), workers*per)
	}
}

func TestRegistry_Insert(t *testing.T) {
	r := NewRegistry()
	if !r.Insert("12345678901") {
		t.Fatal("first Insert() = false")
	}
	if r.Insert("12345678901") {
		t.Error("second Insert() = true, want false")
	}
	if !r.Contains("12345678901") {
		t.Error("Contains() = false after Insert")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}
