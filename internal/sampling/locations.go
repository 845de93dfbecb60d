package sampling

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/JonMunkholm/gendb/internal/refdata"
)

var (
	// ErrZeroPopulation is returned by weighted sampling when every locality
	// has zero population, which leaves the distribution undefined.
	ErrZeroPopulation = errors.New("total population is zero")

	// ErrNoLocalities is returned when the locality set is empty.
	ErrNoLocalities = errors.New("no localities to sample from")
)

// Location is one sampled locality row. PostalCode is nil when the locality
// has no postal codes.
type Location struct {
	City       string
	Population int64
	PostalCode *string
}

// Locations samples localities with replacement.
type Locations struct {
	localities []refdata.Locality
}

// NewLocations wraps a locality slice. The slice is not copied and must not
// be modified afterwards.
func NewLocations(localities []refdata.Locality) *Locations {
	return &Locations{localities: localities}
}

// Sample draws n localities with replacement, proportional to population
// when weighted and uniformly otherwise, then picks one postal code
// uniformly from each drawn locality.
func (l *Locations) Sample(rng *rand.Rand, n int, weighted bool) ([]Location, error) {
	if n < 0 {
		return nil, fmt.Errorf("sample size %d is negative", n)
	}
	if len(l.localities) == 0 {
		return nil, ErrNoLocalities
	}

	pick := func() int { return rng.IntN(len(l.localities)) }
	if weighted {
		weights := make([]int64, len(l.localities))
		for i, loc := range l.localities {
			weights[i] = loc.Population
		}
		dist := newCategorical(weights)
		if dist.total == 0 {
			return nil, ErrZeroPopulation
		}
		pick = func() int { return dist.draw(rng) }
	}

	out := make([]Location, n)
	for i := range out {
		loc := &l.localities[pick()]
		out[i] = Location{City: loc.Name, Population: loc.Population}
		if len(loc.PostalCodes) > 0 {
			code := loc.PostalCodes[rng.IntN(len(loc.PostalCodes))]
			out[i].PostalCode = &code
		}
	}
	return out, nil
}
