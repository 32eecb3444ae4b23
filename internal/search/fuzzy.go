package search

import (
	"math"
	"slices"
	"strings"
	"unicode"

	"github.com/kamusis/medclass/internal/segment"
)

// fullProcess folds width and case, replaces everything but letters, digits
// and '_' with spaces and trims the result.
func fullProcess(s string) string {
	s = segment.Normalize(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return r
		}
		return ' '
	}, s)
	return strings.TrimSpace(s)
}

// TokenSetRatio scores two strings 0..100 by comparing their whitespace token
// sets, ignoring order and duplicates. The shared tokens are compared against
// each side's shared-plus-remaining tokens and the best ratio wins.
func TokenSetRatio(a, b string) int {
	p1, p2 := fullProcess(a), fullProcess(b)
	if p1 == "" || p2 == "" {
		return 0
	}
	t1, t2 := tokenSet(p1), tokenSet(p2)

	var inter, diff12, diff21 []string
	for t := range t1 {
		if _, ok := t2[t]; ok {
			inter = append(inter, t)
		} else {
			diff12 = append(diff12, t)
		}
	}
	for t := range t2 {
		if _, ok := t1[t]; !ok {
			diff21 = append(diff21, t)
		}
	}
	slices.Sort(inter)
	slices.Sort(diff12)
	slices.Sort(diff21)

	sect := strings.Join(inter, " ")
	combined12 := strings.TrimSpace(sect + " " + strings.Join(diff12, " "))
	combined21 := strings.TrimSpace(sect + " " + strings.Join(diff21, " "))

	return max(
		ratio(sect, combined12),
		ratio(sect, combined21),
		ratio(combined12, combined21),
	)
}

func tokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, f := range strings.Fields(s) {
		out[f] = struct{}{}
	}
	return out
}

// ratio is the indel similarity 2*LCS/(len(a)+len(b)) over runes, as a
// rounded percentage. Either side empty scores 0.
func ratio(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	lcs := lcsLen(ra, rb)
	return int(math.RoundToEven(100 * 2 * float64(lcs) / float64(len(ra)+len(rb))))
}

func lcsLen(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

type fuzzyMatch struct {
	Value string
	Score int
}

// extractBest scores query against every choice and returns the limit best
// non-zero matches, best first, ties in choice order.
func extractBest(query string, choices []string, limit int) []fuzzyMatch {
	scores := make([]float64, len(choices))
	for i, c := range choices {
		scores[i] = float64(TokenSetRatio(query, c))
	}
	idx := topK(scores, limit)
	out := make([]fuzzyMatch, len(idx))
	for i, j := range idx {
		out[i] = fuzzyMatch{Value: choices[j], Score: int(scores[j])}
	}
	return out
}
