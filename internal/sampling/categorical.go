// Package sampling draws field values from reference data: first names keyed
// by (birth year, gender) and localities keyed by population.
//
// Samplers are read-only after construction and safe for concurrent use as
// long as each goroutine passes its own *rand.Rand.
package sampling

import (
	"math/rand/v2"
	"sort"
)

// categorical is a prefix-sum table for drawing an index with probability
// proportional to its weight.
type categorical struct {
	cum   []int64
	total int64
}

func newCategorical(weights []int64) categorical {
	c := categorical{cum: make([]int64, len(weights))}
	for i, w := range weights {
		if w > 0 {
			c.total += w
		}
		c.cum[i] = c.total
	}
	return c
}

// draw returns an index in [0, len(weights)), or -1 when every weight is zero.
func (c categorical) draw(rng *rand.Rand) int {
	if c.total <= 0 {
		return -1
	}
	x := rng.Int64N(c.total)
	return sort.Search(len(c.cum), func(i int) bool { return c.cum[i] > x })
}
