// Package models contains the data structures shared by providers, the
// resolution endpoint and the playback client
package models

import (
	"strings"
)

// DefaultSeason is used when a request does not name a season
const DefaultSeason = 1

// ProviderDescriptor holds the static description of one provider
type ProviderDescriptor struct {
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	BaseURL string `json:"baseUrl"`
	HasAds  bool   `json:"hasAds"`
	IsEmbed bool   `json:"isEmbed"`
	Docs    string `json:"docs"`
}

// EpisodeQuery is a single resolution request
type EpisodeQuery struct {
	AnimeSlug string
	Episode   string
	Season    int
	TitleHint string
	Start     int
}

// Title returns the title used for scrape queries: the hint when present,
// otherwise the anime slug with its separators turned into spaces.
func (q EpisodeQuery) Title() string {
	if hint := strings.TrimSpace(q.TitleHint); hint != "" {
		return hint
	}
	return strings.NewReplacer("-", " ", "_", " ").Replace(q.AnimeSlug)
}

// SeasonOrDefault returns the season, or DefaultSeason when unset
func (q EpisodeQuery) SeasonOrDefault() int {
	if q.Season < 1 {
		return DefaultSeason
	}
	return q.Season
}

// Result is what a provider returns for one search.
// Episode is nil exactly when Error is true.
type Result struct {
	Error            bool              `json:"error"`
	Provider         string            `json:"provider"`
	SearchedEndpoint string            `json:"searched_endpoint"`
	Episode          *string           `json:"episode"`
	Message          string            `json:"message,omitempty"`
	IsEmbed          bool              `json:"isEmbed"`
	IsHLS            bool              `json:"isHls"`
	Headers          map[string]string `json:"headers"`
	RequiresProxy    bool              `json:"requiresProxy"`
}

// OK reports whether the result carries a usable episode descriptor
func (r Result) OK() bool {
	return !r.Error && r.Episode != nil && *r.Episode != ""
}

// EpisodeURL returns the episode descriptor or an empty string
func (r Result) EpisodeURL() string {
	if r.Episode == nil {
		return ""
	}
	return *r.Episode
}

// Referer returns the Referer header override, matching the key case-insensitively
func (r Result) Referer() string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, "referer") {
			return v
		}
	}
	return ""
}

// Resolution is the response of the resolution endpoint: the winning
// result plus its position in the provider list
type Resolution struct {
	Result
	Index     int  `json:"index"`
	Total     int  `json:"total"`
	NextIndex *int `json:"nextIndex"`
}

// NewResolution wraps a result found at index. NextIndex is nil when index
// is the last position or the resolution failed.
func NewResolution(res Result, index, total int) Resolution {
	r := Resolution{Result: res, Index: index, Total: total}
	if index >= 0 && index+1 < total && res.OK() {
		next := index + 1
		r.NextIndex = &next
	}
	return r
}

// HasMore reports whether providers remain after this resolution's index
func (r Resolution) HasMore() bool {
	return r.Index >= 0 && r.Index+1 < r.Total
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}
