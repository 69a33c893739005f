package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/alvarorichard/goanime-resolver/internal/models"
	"github.com/alvarorichard/goanime-resolver/internal/scraper"
	"github.com/alvarorichard/goanime-resolver/internal/util"
)

const (
	// ConsumetBase is the default Consumet gogoanime API root
	ConsumetBase = "https://api.consumet.org/anime/gogoanime"
	// DefaultProviderTimeout bounds each Consumet call
	DefaultProviderTimeout = 15 * time.Second
)

var (
	movieWordRe = regexp.MustCompile(`(?i)\bmovie\b`)
	seasonRe    = regexp.MustCompile(`(?i)\bseason\s*\d+\b`)
)

type consumetSearchResponse struct {
	Results []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"results"`
}

type consumetEpisode struct {
	ID     string   `json:"id"`
	Number *float64 `json:"number"`
	Title  string   `json:"title"`
}

type consumetInfoResponse struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Episodes []consumetEpisode `json:"episodes"`
}

// ConsumetSource is one entry of a watch listing. Quality may be a number
// or a string such as "720p" or "default".
type ConsumetSource struct {
	URL     string          `json:"url"`
	Quality json.RawMessage `json:"quality"`
	IsM3U8  bool            `json:"isM3U8"`
}

type consumetWatchResponse struct {
	Headers map[string]string `json:"headers"`
	Sources []ConsumetSource  `json:"sources"`
}

// Consumet walks the Consumet gogoanime search, info and watch endpoints
type Consumet struct {
	base    string
	fetcher Fetcher
	Timeout time.Duration
}

// NewConsumet creates the provider. An empty base uses ConsumetBase.
func NewConsumet(base string, fetcher Fetcher) *Consumet {
	if base == "" {
		base = ConsumetBase
	}
	return &Consumet{
		base:    strings.TrimRight(base, "/"),
		fetcher: fetcher,
		Timeout: DefaultProviderTimeout,
	}
}

func (p *Consumet) Descriptor() models.ProviderDescriptor {
	return models.ProviderDescriptor{
		Name:    "Consumet - Gogoanime",
		Slug:    "consumet-gogoanime",
		BaseURL: p.base,
		Docs:    p.base + " (search, info and watch?server=gogocdn)",
	}
}

func (p *Consumet) Kind() Kind { return KindAggregator }

func (p *Consumet) SearchEndpoint(animeSlug, episode string, season int) string {
	return fmt.Sprintf("%s (search/info/watch flow) slug=%s ep=%s s=%d", p.base, animeSlug, episode, season)
}

func (p *Consumet) SearchEpisode(ctx context.Context, q models.EpisodeQuery) models.Result {
	d := p.Descriptor()
	endpoint := p.SearchEndpoint(q.AnimeSlug, q.Episode, q.SeasonOrDefault())

	watch, src, err := p.resolve(ctx, q)
	if err != nil {
		util.Debug("consumet failed", "slug", q.AnimeSlug, "episode", q.Episode, "error", err)
		return failure(d, endpoint, err)
	}

	res := success(d, endpoint, src.URL)
	res.IsHLS = res.IsHLS || src.IsM3U8
	if len(watch.Headers) > 0 {
		res.Headers = watch.Headers
		res.RequiresProxy = true
	}
	return res
}

func (p *Consumet) resolve(ctx context.Context, q models.EpisodeQuery) (consumetWatchResponse, ConsumetSource, error) {
	var watch consumetWatchResponse

	animeID, err := p.search(ctx, q.Title())
	if err != nil {
		return watch, ConsumetSource{}, err
	}

	var info consumetInfoResponse
	infoURL := p.base + "/info/" + url.PathEscape(animeID)
	if err := p.fetcher.FetchJSON(ctx, infoURL, p.Timeout, &info); err != nil {
		return watch, ConsumetSource{}, errors.Wrap(err, "consumet info request failed")
	}

	ep, err := findEpisode(info.Episodes, q.Episode)
	if err != nil {
		return watch, ConsumetSource{}, err
	}

	watchURL := p.base + "/watch/" + url.PathEscape(ep.ID) + "?server=gogocdn"
	if err := p.fetcher.FetchJSON(ctx, watchURL, p.Timeout, &watch); err != nil {
		return watch, ConsumetSource{}, errors.Wrap(err, "consumet watch request failed")
	}

	src, ok := bestSource(watch.Sources)
	if !ok {
		return watch, ConsumetSource{}, ErrNoSources
	}
	return watch, src, nil
}

// search tries each query variant and returns the first result id
func (p *Consumet) search(ctx context.Context, title string) (string, error) {
	for _, variant := range queryVariants(title) {
		var resp consumetSearchResponse
		searchURL := p.base + "/" + url.PathEscape(variant) + "?page=1"
		if err := p.fetcher.FetchJSON(ctx, searchURL, p.Timeout, &resp); err != nil {
			return "", errors.Wrap(err, "consumet search request failed")
		}
		if len(resp.Results) > 0 && resp.Results[0].ID != "" {
			util.Debug("consumet search matched", "query", variant, "id", resp.Results[0].ID)
			return resp.Results[0].ID, nil
		}
	}
	return "", ErrNoResults
}

// queryVariants returns the normalized title, the title without "movie" and
// the title without "season N", deduplicated and without empties
func queryVariants(title string) []string {
	base := scraper.NormalizeTitle(title)
	return lo.Compact(lo.Uniq([]string{
		base,
		scraper.NormalizeTitle(movieWordRe.ReplaceAllString(base, "")),
		scraper.NormalizeTitle(seasonRe.ReplaceAllString(base, "")),
	}))
}

// findEpisode matches by episode number first, then by position n-1
func findEpisode(episodes []consumetEpisode, episode string) (consumetEpisode, error) {
	if len(episodes) == 0 {
		return consumetEpisode{}, errors.Wrap(ErrEpisodeNotFound, "empty episode list")
	}
	n, ok := util.LeadingInt(episode)
	if !ok {
		return consumetEpisode{}, ErrEpisodeNotFound
	}

	if ep, found := lo.Find(episodes, func(e consumetEpisode) bool {
		return e.Number != nil && *e.Number == float64(n)
	}); found && ep.ID != "" {
		return ep, nil
	}
	if n >= 1 && n <= len(episodes) && episodes[n-1].ID != "" {
		return episodes[n-1], nil
	}
	return consumetEpisode{}, ErrEpisodeNotFound
}

// bestSource sorts by numeric quality, highest first, and returns the first
// HLS entry, or the highest quality entry when none is HLS
func bestSource(sources []ConsumetSource) (ConsumetSource, bool) {
	usable := lo.Filter(sources, func(s ConsumetSource, _ int) bool { return s.URL != "" })
	if len(usable) == 0 {
		return ConsumetSource{}, false
	}
	sort.SliceStable(usable, func(i, j int) bool {
		return parseQuality(usable[i].Quality) > parseQuality(usable[j].Quality)
	})
	if hls, ok := lo.Find(usable, func(s ConsumetSource) bool { return s.IsM3U8 }); ok {
		return hls, true
	}
	return usable[0], true
}

// parseQuality reads a number or the leading integer of a string; anything else is 0
func parseQuality(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(f)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		n, _ := util.LeadingInt(s)
		return n
	}
	return 0
}

