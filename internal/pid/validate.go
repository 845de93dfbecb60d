package pid

import (
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/gendb/internal/refdata"
)

var (
	// ErrMalformed is returned for strings that are not 11 ASCII digits.
	ErrMalformed = errors.New("pid must be 11 digits")

	// ErrChecksum is returned when the last digit does not match.
	ErrChecksum = errors.New("pid checksum mismatch")

	// ErrInvalidDate is returned when the encoded date does not exist.
	ErrInvalidDate = errors.New("pid encodes an invalid date")
)

// Validate checks length, digits and checksum.
func Validate(s string) error {
	if len(s) != Length {
		return fmt.Errorf("%w: got %d characters", ErrMalformed, len(s))
	}
	for i := 0; i < Length; i++ {
		if s[i] < '0' || s[i] > '9' {
			return fmt.Errorf("%w: non-digit at position %d", ErrMalformed, i+1)
		}
	}
	if want := Checksum(s); int(s[10]-'0') != want {
		return fmt.Errorf("%w: got %c, want %d", ErrChecksum, s[10], want)
	}
	return nil
}

// Decoded is the information recoverable from an identifier.
type Decoded struct {
	BirthDate time.Time      `json:"birth_date"`
	Gender    refdata.Gender `json:"gender"`
}

// centuries maps the month offset bucket (month / 20) to the century start.
// Offset 80 is read as the 1800s; 2300s dates share that bucket and decode
// to the 1800s.
var centuries = [5]int{1900, 2000, 2100, 2200, 1800}

// Decode validates s and recovers the birth date and gender.
func Decode(s string) (Decoded, error) {
	if err := Validate(s); err != nil {
		return Decoded{}, err
	}

	num := func(i int) int { return int(s[i]-'0')*10 + int(s[i+1]-'0') }
	yy, mm, dd := num(0), num(2), num(4)

	year := centuries[mm/20] + yy
	month := mm % 20
	if month < 1 || month > 12 {
		return Decoded{}, fmt.Errorf("%w: month %02d", ErrInvalidDate, mm)
	}
	birth := time.Date(year, time.Month(month), dd, 0, 0, 0, 0, time.UTC)
	if birth.Day() != dd || birth.Month() != time.Month(month) {
		return Decoded{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, month, dd)
	}

	gender := refdata.Female
	if (s[9]-'0')%2 == 1 {
		gender = refdata.Male
	}
	return Decoded{BirthDate: birth, Gender: gender}, nil
}
