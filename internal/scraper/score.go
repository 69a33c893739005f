package scraper

import (
	"strings"

	levenshtein "github.com/ka-weihe/fast-levenshtein"
)

const (
	// MinAcceptScore is the lowest score a scraped candidate needs to win
	MinAcceptScore = 0.35
	// shortSlugPenalty applies when a candidate has too few tokens for the query
	shortSlugPenalty = 0.15
)

// Candidate is a scraped slug and its score against the query
type Candidate struct {
	Slug  string
	Score float64
}

func queryTokens(query string) []string {
	return strings.Fields(strings.ToLower(NormalizeTitle(query)))
}

func slugTokens(slug string) []string {
	return strings.FieldsFunc(strings.ToLower(slug), func(r rune) bool { return r == '-' })
}

// ScoreCandidate returns the fraction of query tokens present in the
// candidate's hyphen-separated tokens, minus a penalty when the candidate is
// shorter than half the query (rounded down, at least 2 tokens). The result
// does not depend on query token order.
func ScoreCandidate(candidateSlug, query string) float64 {
	q := queryTokens(query)
	c := slugTokens(candidateSlug)
	if len(q) == 0 || len(c) == 0 {
		return 0
	}

	present := make(map[string]struct{}, len(c))
	for _, tk := range c {
		present[tk] = struct{}{}
	}

	hit := 0
	for _, tk := range q {
		if _, ok := present[tk]; ok {
			hit++
		}
	}

	score := float64(hit) / float64(len(q))
	if len(c) < max(2, len(q)/2) {
		score -= shortSlugPenalty
	}
	return max(0, score)
}

// pickBest scores every candidate and returns the highest. Equal scores go
// to the slug closest to the slugified query, then to the lexically smaller
// slug, so the winner does not depend on scrape order.
func pickBest(slugs []string, query string) (Candidate, bool) {
	if len(slugs) == 0 {
		return Candidate{}, false
	}

	target := Slugify(query)
	var best Candidate
	bestDist := 0

	for i, s := range slugs {
		c := Candidate{Slug: s, Score: ScoreCandidate(s, query)}
		d := levenshtein.Distance(strings.ToLower(s), target)

		switch {
		case i == 0,
			c.Score > best.Score,
			c.Score == best.Score && d < bestDist,
			c.Score == best.Score && d == bestDist && s < best.Slug:
			best, bestDist = c, d
		}
	}
	return best, true
}
