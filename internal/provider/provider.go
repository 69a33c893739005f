// Package provider implements the upstream episode sources and the ordered
// fallback loop that walks them.
package provider

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/alvarorichard/goanime-resolver/internal/models"
	"github.com/alvarorichard/goanime-resolver/internal/scraper"
)

// Kind tells the provider variants apart
type Kind int

const (
	// KindDirect providers return media links from a JSON document
	KindDirect Kind = iota
	// KindAggregator providers walk a search, info and watch API
	KindAggregator
	// KindPage providers return a page to open, built from a scraped slug
	KindPage
)

func (k Kind) String() string {
	switch k {
	case KindDirect:
		return "direct"
	case KindAggregator:
		return "aggregator"
	case KindPage:
		return "page"
	default:
		return "unknown"
	}
}

// Provider is one upstream source able to locate an episode.
// SearchEpisode never returns an error value: failures come back as a
// Result with Error set and a message.
type Provider interface {
	Descriptor() models.ProviderDescriptor
	Kind() Kind
	SearchEndpoint(animeSlug, episode string, season int) string
	SearchEpisode(ctx context.Context, q models.EpisodeQuery) models.Result
}

// Fetcher performs the bounded GET requests providers need.
// *util.Fetcher implements it.
type Fetcher interface {
	FetchText(ctx context.Context, url string, timeout time.Duration) (string, error)
	FetchJSON(ctx context.Context, url string, timeout time.Duration, v interface{}) error
}

// SlugSource resolves a provider-specific slug. *scraper.SlugResolver implements it.
type SlugSource interface {
	Resolve(ctx context.Context, origin, titleOrSlug string, opts scraper.ResolveOptions) string
}

var (
	// ErrNoResults means a title search came back empty for every query variant
	ErrNoResults = errors.New("no search results")
	// ErrEpisodeNotFound means the info listing has no matching episode
	ErrEpisodeNotFound = errors.New("episode not found")
	// ErrNoSources means the watch listing has no sources
	ErrNoSources = errors.New("no sources in response")
	// ErrNoVideoLinks means neither the data list nor the token produced a link
	ErrNoVideoLinks = errors.New("no video links in response")
	// ErrEmptySlug means no slug could be derived from the title
	ErrEmptySlug = errors.New("could not derive a slug from the title")
)

// hlsPattern matches URLs whose path ends in the HLS playlist extension
var hlsPattern = regexp.MustCompile(`(?i)\.m3u8($|\?)`)

// IsHLS reports whether u looks like an HLS playlist
func IsHLS(u string) bool {
	return hlsPattern.MatchString(u)
}

// escapeComponent escapes s the way a browser escapes a URI component:
// spaces become %20, not +.
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func success(d models.ProviderDescriptor, endpoint, episode string) models.Result {
	return models.Result{
		Provider:         d.Name,
		SearchedEndpoint: endpoint,
		Episode:          models.StringPtr(episode),
		IsEmbed:          d.IsEmbed,
		IsHLS:            IsHLS(episode),
	}
}

func failure(d models.ProviderDescriptor, endpoint string, err error) models.Result {
	msg := "unknown failure"
	if err != nil {
		msg = err.Error()
	}
	return models.Result{
		Error:            true,
		Provider:         d.Name,
		SearchedEndpoint: endpoint,
		Message:          msg,
	}
}
