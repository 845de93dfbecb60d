package refdata

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Letters that have no canonical decomposition, so NFD alone would keep them.
var foldReplacer = strings.NewReplacer(
	"ł", "l", "Ł", "L",
	"ø", "o", "Ø", "O",
	"đ", "d", "Đ", "D",
	"ß", "ss",
	"æ", "ae", "Æ", "AE",
	"œ", "oe", "Œ", "OE",
	"ı", "i",
)

// Normalize strips diacritical marks, lowercases and collapses whitespace.
// Used on both sides of the locality/postal-code join and for header matching,
// so "Łódź", "LODZ" and " lodz " compare equal.
func Normalize(s string) string {
	s = cases.Lower(language.Und).String(Fold(s))
	return strings.Join(strings.Fields(s), " ")
}

// Fold strips diacritical marks and keeps case: "Łódź" becomes "Lodz".
func Fold(s string) string {
	s = foldReplacer.Replace(s)

	// Transformers carry state, build a fresh chain per call.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	return s
}
