package scraper

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Path shapes recognised on provider search pages. They are the only
// site-specific knowledge in this package; update them when a provider
// changes its URL layout.
var (
	// SeriesPathPattern matches /anime/<slug>, /animes/<slug>, /serie/<slug> and /series/<slug>
	SeriesPathPattern = regexp.MustCompile(`(?i)^/(?:anime|animes|serie|series)/([^/]+)/?$`)
	// EpisodePathPattern matches /episodio/<slug>-episodio-<n> and captures the base slug
	EpisodePathPattern = regexp.MustCompile(`(?i)^/episodio/(.+?)-episodio-\d+/?$`)

	repeatedSlashRe = regexp.MustCompile(`/+`)
)

// ExtractCandidateSlugs returns the distinct slugs linked from html, in
// document order. Only anchors on base's host are considered; episode links
// are used only when allowEpisode is set.
func ExtractCandidateSlugs(html string, base *url.URL, allowEpisode bool) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var slugs []string

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		slug, ok := slugFromHref(strings.TrimSpace(href), base, allowEpisode)
		if !ok {
			return
		}
		if _, dup := seen[slug]; dup {
			return
		}
		seen[slug] = struct{}{}
		slugs = append(slugs, slug)
	})

	return slugs
}

func slugFromHref(href string, base *url.URL, allowEpisode bool) (string, bool) {
	if href == "" {
		return "", false
	}
	u, err := base.Parse(href)
	if err != nil {
		return "", false
	}
	if !strings.EqualFold(u.Hostname(), base.Hostname()) {
		return "", false
	}

	p := repeatedSlashRe.ReplaceAllString(u.Path, "/")

	if m := SeriesPathPattern.FindStringSubmatch(p); m != nil && m[1] != "" {
		return m[1], true
	}
	if allowEpisode {
		if m := EpisodePathPattern.FindStringSubmatch(p); m != nil && m[1] != "" {
			return m[1], true
		}
	}
	return "", false
}
