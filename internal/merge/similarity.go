package merge

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Similarity returns the case-insensitive character-level similarity ratio of
// two names in [0, 1], computed as 2*M/T where M is the number of characters in
// matching blocks (Ratcliff/Obershelp) and T the combined length.
//
//	Similarity("gpt-4", "gpt 4")       == 0.8
//	Similarity("gpt-4", "gpt-4-turbo") == 0.625
func Similarity(a, b string) float64 {
	return difflib.NewMatcher(chars(strings.ToLower(a)), chars(strings.ToLower(b))).Ratio()
}

func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
