// Package scraper resolves provider-specific slugs by scraping the search
// pages of a provider origin and scoring the anchors it finds.
package scraper

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	separatorRe   = regexp.MustCompile(`[-_]+`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	nonAlnumRe    = regexp.MustCompile(`[^a-z0-9]+`)
	edgeHyphensRe = regexp.MustCompile(`^-+|-+$`)
)

// NormalizeTitle turns hyphens and underscores into spaces and collapses whitespace
func NormalizeTitle(s string) string {
	s = separatorRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// stripDiacritics decomposes s and drops the combining marks
func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Slugify is the deterministic client-side slug used when scraping finds
// nothing: lowercase, no diacritics, runs of non-alphanumerics become one
// hyphen, no leading or trailing hyphens. Slugify(Slugify(x)) == Slugify(x).
func Slugify(s string) string {
	s = strings.ToLower(stripDiacritics(s))
	s = nonAlnumRe.ReplaceAllString(s, "-")
	return edgeHyphensRe.ReplaceAllString(s, "")
}
