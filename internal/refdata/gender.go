package refdata

import "fmt"

// Gender is the closed set of genders the generator understands.
type Gender string

const (
	Male   Gender = "M"
	Female Gender = "F"
)

// Valid reports whether g is Male or Female.
func (g Gender) Valid() bool {
	return g == Male || g == Female
}

func (g Gender) String() string {
	switch g {
	case Male:
		return "male"
	case Female:
		return "female"
	default:
		return string(g)
	}
}

// ParseGender accepts the spellings found in name-frequency exports
// (M/F, MALE/FEMALE, and the Polish MĘŻCZYZNA/KOBIETA with K for kobieta).
func ParseGender(s string) (Gender, error) {
	switch Normalize(s) {
	case "m", "male", "man", "mezczyzna", "mezczyzni":
		return Male, nil
	case "f", "k", "female", "woman", "kobieta", "kobiety":
		return Female, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidGender, s)
}
