package provider

import (
	"context"
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/alvarorichard/goanime-resolver/internal/models"
	"github.com/alvarorichard/goanime-resolver/internal/util"
)

const (
	// AnimeFireOrigin is the default AnimeFire origin
	AnimeFireOrigin = "https://animefire.plus"
	// DefaultTokenTimeout bounds the AnimeFire JSON and token page fetches
	DefaultTokenTimeout = 12 * time.Second
)

// googleVideoPattern finds the first googlevideo link on a token page.
// Protocol-relative matches are upgraded to https.
var googleVideoPattern = regexp.MustCompile(`(?i)(?:https?:)?//[a-z0-9\-_.]*googlevideo\.com/[^"'<> \t\r\n]+`)

// qualityRank orders AnimeFire labels; anything else ranks 0
var qualityRank = map[string]int{
	"1080p": 1080,
	"720p":  720,
	"480p":  480,
	"360p":  360,
	"240p":  240,
}

// VideoData is one entry of the AnimeFire data list
type VideoData struct {
	Src   string `json:"src"`
	Label string `json:"label"`
}

// VideoResponse is the AnimeFire video document. Every field is optional.
type VideoResponse struct {
	Data     []VideoData `json:"data"`
	Token    string      `json:"token"`
	Response *struct {
		Status json.RawMessage `json:"status"`
		Text   string          `json:"text"`
	} `json:"response"`
}

// AnimeFireAPI reads the AnimeFire video JSON and returns a direct media link
type AnimeFireAPI struct {
	origin  string
	fetcher Fetcher
	Timeout time.Duration
}

// NewAnimeFireAPI creates the provider. An empty origin uses AnimeFireOrigin.
func NewAnimeFireAPI(origin string, fetcher Fetcher) *AnimeFireAPI {
	if origin == "" {
		origin = AnimeFireOrigin
	}
	return &AnimeFireAPI{
		origin:  strings.TrimRight(origin, "/"),
		fetcher: fetcher,
		Timeout: DefaultTokenTimeout,
	}
}

func (p *AnimeFireAPI) Descriptor() models.ProviderDescriptor {
	return models.ProviderDescriptor{
		Name:    "AnimeFire (API)",
		Slug:    "anime-fire-api",
		BaseURL: p.origin + "/video/",
		Docs:    p.origin + "/video/{slug}/{episode} (JSON; the token is used when data is empty)",
	}
}

func (p *AnimeFireAPI) Kind() Kind { return KindDirect }

func (p *AnimeFireAPI) SearchEndpoint(animeSlug, episode string, _ int) string {
	return p.origin + "/video/" + animeSlug + "/" + episode
}

func (p *AnimeFireAPI) SearchEpisode(ctx context.Context, q models.EpisodeQuery) models.Result {
	d := p.Descriptor()
	endpoint := p.SearchEndpoint(q.AnimeSlug, q.Episode, q.SeasonOrDefault())

	link, err := p.resolve(ctx, endpoint)
	if err != nil {
		util.Debug("animefire api failed", "endpoint", endpoint, "error", err)
		return failure(d, endpoint, err)
	}
	return success(d, endpoint, link)
}

func (p *AnimeFireAPI) resolve(ctx context.Context, endpoint string) (string, error) {
	var doc VideoResponse
	if err := p.fetcher.FetchJSON(ctx, endpoint, p.Timeout, &doc); err != nil {
		return "", errors.Wrap(err, "animefire video request failed")
	}

	if src := selectHighestQualityVideo(doc.Data); src != "" {
		return src, nil
	}

	if token := strings.TrimSpace(doc.Token); token != "" {
		if looksLikeMedia(token) {
			return upgradeScheme(token), nil
		}
		html, err := p.fetcher.FetchText(ctx, token, p.Timeout)
		if err != nil {
			return "", errors.Wrap(err, "animefire token request failed")
		}
		if link := findGoogleVideoLink(html); link != "" {
			return link, nil
		}
	}

	if doc.Response != nil && strings.TrimSpace(doc.Response.Text) != "" {
		return "", errors.New(doc.Response.Text)
	}
	return "", ErrNoVideoLinks
}

// selectHighestQualityVideo returns the src of the best-ranked entry.
// Entries without a src are ignored; equal ranks keep list order.
func selectHighestQualityVideo(videos []VideoData) string {
	best, bestRank := "", -1
	for _, v := range videos {
		if v.Src == "" {
			continue
		}
		if rank := qualityRank[strings.ToLower(strings.TrimSpace(v.Label))]; rank > bestRank {
			best, bestRank = v.Src, rank
		}
	}
	return best
}

// looksLikeMedia reports whether a token already points at playable media
func looksLikeMedia(link string) bool {
	if IsHLS(link) {
		return true
	}
	u, err := url.Parse(upgradeScheme(link))
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return strings.HasSuffix(strings.ToLower(u.Path), ".mp4") ||
		host == "googlevideo.com" || strings.HasSuffix(host, ".googlevideo.com")
}

func findGoogleVideoLink(html string) string {
	return upgradeScheme(googleVideoPattern.FindString(html))
}

func upgradeScheme(link string) string {
	if strings.HasPrefix(link, "//") {
		return "https:" + link
	}
	return link
}
