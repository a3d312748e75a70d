package memory

import (
	"strings"
	"unicode"
)

// tokenSet normalizes text into its set of lowercase word tokens. Splitting
// on every rune that is neither letter nor digit strips the punctuation and
// whitespace noise OCR tends to introduce around otherwise identical text.
func tokenSet(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	set := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		set[field] = struct{}{}
	}
	return set
}

// jaccardSimilarity computes the intersection-over-union of two token sets.
// A set with no tokens carries no signal and matches nothing.
func jaccardSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for token := range a {
		if _, ok := b[token]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
