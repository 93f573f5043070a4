// Package similarity scores how alike two field values are.
package similarity

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize trims, composes (NFC) and case-folds a value for comparison.
// A Caser is stateful, so one is built per call to stay goroutine-safe.
func Normalize(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}

// Ratio returns a 0-100 similarity score using Levenshtein-ratio semantics:
// 100 * (1 - distance / max(len(a), len(b))), over runes, on trimmed and
// case-folded input. Two empty values score 100; empty against non-empty
// scores 0.
func Ratio(a, b string) float64 {
	a, b = Normalize(a), Normalize(b)
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	switch {
	case la == 0 && lb == 0:
		return 100
	case la == 0 || lb == 0:
		return 0
	case a == b:
		return 100
	}
	d := levenshtein.ComputeDistance(a, b)
	return 100 * (1 - float64(d)/float64(max(la, lb)))
}
