// Package fuzzy provides deterministic normalized string similarity used
// for master data resolution. Scores are pure functions of their inputs so
// repeated validation of the same candidate always produces the same result.
package fuzzy

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Normalize lowercases s, collapses runs of whitespace to single spaces,
// and strips punctuation. Two strings that normalize equally are treated
// as a case-insensitive match by resolution.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	space := false
	for _, r := range strings.TrimSpace(s) {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			// Punctuation acts as a separator: "Wdgt-5" and "wdgt 5" align.
			space = true
		default:
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(unicode.ToLower(r))
		}
	}

	return b.String()
}

// Similarity returns a score in [0, 1] comparing the normalized forms of a
// and b: 1 for identical strings, 0 for entirely dissimilar. The score is
// 1 - d/maxlen where d is the Levenshtein distance.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1
	}
	if na == "" || nb == "" {
		return 0
	}

	longest := max(len([]rune(na)), len([]rune(nb)))
	d := levenshtein.ComputeDistance(na, nb)
	if d >= longest {
		return 0
	}

	return 1 - float64(d)/float64(longest)
}
