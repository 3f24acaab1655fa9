// Package match resolves source drug names against canonical database names
// using a tiered cascade with a bounded fuzzy fallback.
package match

import (
	"strings"

	"github.com/drugmerge/drugmerge/internal/normalize"
)

// Substring containment between normalized forms scores just below a full
// match; word overlap contributes at most wordOverlapWeight of a full match
// so a shared ingredient word never outranks character-level identity.
const (
	containmentScore  = 0.9
	wordOverlapWeight = 0.8
)

// Scorer computes name similarity in [0,1]
type Scorer struct {
	norm *normalize.Normalizer
}

// NewScorer creates a scorer over the given normalizer
func NewScorer(n *normalize.Normalizer) *Scorer {
	return &Scorer{norm: n}
}

// Score compares two raw names. Rules, in order: either side normalizing to
// empty scores 0; equal normalized forms score 1; substring containment
// scores 0.9; otherwise the best of the character-level edit ratio and the
// damped word-overlap ratio wins. Symmetric in its arguments.
func (s *Scorer) Score(a, b string) float64 {
	na := s.norm.Normalize(a)
	nb := s.norm.Normalize(b)

	if na == "" || nb == "" {
		return 0.0
	}
	if na == nb {
		return 1.0
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return containmentScore
	}

	seq := editRatio(na, nb)
	words := wordOverlap(na, nb) * wordOverlapWeight
	if words > seq {
		return words
	}
	return seq
}

// editRatio is an edit-distance-based similarity ratio in [0,1]:
// 1 - levenshtein(a,b) / max(len(a), len(b)), over runes
func editRatio(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(ra, rb))/float64(longest)
}

// levenshtein computes edit distance with a two-row DP
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost

			min := del
			if ins < min {
				min = ins
			}
			if sub < min {
				min = sub
			}
			curr[j] = min
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// wordOverlap is the Jaccard ratio over whitespace-split tokens
func wordOverlap(a, b string) float64 {
	wordsA := strings.Fields(a)
	wordsB := strings.Fields(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0.0
	}

	setA := make(map[string]struct{}, len(wordsA))
	for _, w := range wordsA {
		setA[w] = struct{}{}
	}
	setB := make(map[string]struct{}, len(wordsB))
	for _, w := range wordsB {
		setB[w] = struct{}{}
	}

	shared := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			shared++
		}
	}
	union := len(setA) + len(setB) - shared
	return float64(shared) / float64(union)
}
