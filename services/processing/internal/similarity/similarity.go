// Package similarity holds the scoring primitives of the recommendation
// engine. Everything here is pure and never blocks.
package similarity

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/nathangreen1632/CareerGistPRO/services/processing/internal/keywords"
)

const (
	MaxTitleScore   = 30.0
	RegionMatch     = 10.0
	MaxKeywordScore = 60.0
)

// Levenshtein returns the edit distance between a and b, counted in runes.
// It keeps a single row of the DP table sized to the shorter input.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) < len(rb) {
		ra, rb = rb, ra
	}
	if len(rb) == 0 {
		return len(ra)
	}

	row := make([]int, len(rb)+1)
	for j := range row {
		row[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		diag := row[0]
		row[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			next := min(row[j]+1, row[j-1]+1, diag+cost)
			diag = row[j]
			row[j] = next
		}
	}
	return row[len(rb)]
}

// TitleSimilarity is 1 - distance/longest over the lowercased titles, in
// [0,1]. Two empty titles score 0.
func TitleSimilarity(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 0
	}
	return 1 - float64(Levenshtein(a, b))/float64(longest)
}

// BestTitleSimilarity is the highest TitleSimilarity of title against the
// corpus, 0 for an empty corpus.
func BestTitleSimilarity(title string, corpus []string) float64 {
	best := 0.0
	for _, candidate := range corpus {
		best = math.Max(best, TitleSimilarity(candidate, title))
	}
	return best
}

// KeywordScore is the share of union covered by job, scaled to 60.
func KeywordScore(job, union keywords.Set) float64 {
	if len(union) == 0 {
		return 0
	}
	overlap := 0
	for word := range job {
		if union.Has(word) {
			overlap++
		}
	}
	return math.Min(float64(overlap)/float64(len(union))*MaxKeywordScore, MaxKeywordScore)
}

// Region is the part of a location before the first comma, lowercased.
func Region(location string) string {
	region, _, _ := strings.Cut(location, ",")
	return strings.ToLower(strings.TrimSpace(region))
}

// RegionScore is 10 when the region of location is one of regions.
func RegionScore(location string, regions map[string]struct{}) float64 {
	region := Region(location)
	if region == "" {
		return 0
	}
	if _, ok := regions[region]; ok {
		return RegionMatch
	}
	return 0
}
