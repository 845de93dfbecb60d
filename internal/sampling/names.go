package sampling

import (
	"math/rand/v2"

	"github.com/JonMunkholm/gendb/internal/refdata"
)

type yearGender struct {
	year   int
	gender refdata.Gender
}

// nameBucket holds the rows for one (year, gender) pair and their weights.
type nameBucket struct {
	names []string
	dist  categorical
}

// Names samples first names from a frequency table.
type Names struct {
	minYear, maxYear int
	buckets          map[yearGender]*nameBucket
	byGender         map[refdata.Gender][]string
}

// NewNames indexes records by (year, gender) for weighted draws and by
// gender alone for unweighted draws. Duplicate (name, gender, year) rows
// are kept as separate rows, so their counts add up.
func NewNames(records []refdata.NameRecord) *Names {
	n := &Names{
		buckets:  make(map[yearGender]*nameBucket),
		byGender: make(map[refdata.Gender][]string),
	}
	if len(records) == 0 {
		return n
	}

	n.minYear, n.maxYear = records[0].Year, records[0].Year
	weights := make(map[yearGender][]int64)
	for _, r := range records {
		n.minYear = min(n.minYear, r.Year)
		n.maxYear = max(n.maxYear, r.Year)

		key := yearGender{year: r.Year, gender: r.Gender}
		b, ok := n.buckets[key]
		if !ok {
			b = &nameBucket{}
			n.buckets[key] = b
		}
		b.names = append(b.names, r.Name)
		weights[key] = append(weights[key], r.Count)

		n.byGender[r.Gender] = append(n.byGender[r.Gender], r.Name)
	}
	for key, b := range n.buckets {
		b.dist = newCategorical(weights[key])
	}
	return n
}

// YearRange returns the smallest and largest year in the table.
func (n *Names) YearRange() (int, int) { return n.minYear, n.maxYear }

// Clamp snaps year into the observed range; years outside it use the
// nearest recorded distribution.
func (n *Names) Clamp(year int) int {
	return min(max(year, n.minYear), n.maxYear)
}

// Sample draws one first name for a person of gender g born in year.
//
// Weighted draws pick among rows of the clamped year and g, proportional
// to count. Unweighted draws pick uniformly among all rows of g regardless
// of year. The second result is false when no row matches.
func (n *Names) Sample(rng *rand.Rand, year int, g refdata.Gender, weighted bool) (string, bool) {
	if !weighted {
		rows := n.byGender[g]
		if len(rows) == 0 {
			return "", false
		}
		return rows[rng.IntN(len(rows))], true
	}

	b, ok := n.buckets[yearGender{year: n.Clamp(year), gender: g}]
	if !ok {
		return "", false
	}
	i := b.dist.draw(rng)
	if i < 0 {
		return "", false
	}
	return b.names[i], true
}
