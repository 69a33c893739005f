package provider

import (
	"context"
	"strings"

	"github.com/alvarorichard/goanime-resolver/internal/models"
	"github.com/alvarorichard/goanime-resolver/internal/scraper"
	"github.com/alvarorichard/goanime-resolver/internal/util"
)

const (
	// AnimesOnlineCCOrigin is the default Animes Online CC origin
	AnimesOnlineCCOrigin = "https://animesonlinecc.to"
	// SuperflixOrigin is the default Superflix origin
	SuperflixOrigin = "https://superflix.tv"

	slugPlaceholder = "{provider-slug}"
)

// PageProvider builds a page URL from a slug scraped off the provider's own
// search pages. The result is a page to open, never direct media.
type PageProvider struct {
	desc    models.ProviderDescriptor
	slugs   SlugSource
	pageURL func(base, slug, episode string) string
}

func newPageProvider(desc models.ProviderDescriptor, slugs SlugSource, pageURL func(base, slug, episode string) string) *PageProvider {
	desc.BaseURL = strings.TrimRight(desc.BaseURL, "/")
	desc.HasAds = true
	desc.IsEmbed = true
	return &PageProvider{desc: desc, slugs: slugs, pageURL: pageURL}
}

// NewAnimesOnlineCCPage links to /episodio/{slug}-episodio-{n}/
func NewAnimesOnlineCCPage(origin string, slugs SlugSource) *PageProvider {
	if origin == "" {
		origin = AnimesOnlineCCOrigin
	}
	return newPageProvider(models.ProviderDescriptor{
		Name:    "Animes Online CC (Página)",
		Slug:    "animes-online-cc-page",
		BaseURL: origin,
		Docs:    "search: /?s= ; episode: /episodio/{slug}-episodio-{n}/",
	}, slugs, func(base, slug, episode string) string {
		return base + "/episodio/" + slug + "-episodio-" + episode + "/"
	})
}

// NewAnimeFirePage links to /video/{slug}/{n}
func NewAnimeFirePage(origin string, slugs SlugSource) *PageProvider {
	if origin == "" {
		origin = AnimeFireOrigin
	}
	return newPageProvider(models.ProviderDescriptor{
		Name:    "Anime Fire (Página)",
		Slug:    "anime-fire-page",
		BaseURL: origin,
		Docs:    "search: /?s= ; episode: /video/{slug}/{n}",
	}, slugs, func(base, slug, episode string) string {
		return base + "/video/" + slug + "/" + episode
	})
}

// NewSuperflixPage links to the series page /serie/{slug}/; the episode is
// picked on the page itself
func NewSuperflixPage(origin string, slugs SlugSource) *PageProvider {
	if origin == "" {
		origin = SuperflixOrigin
	}
	return newPageProvider(models.ProviderDescriptor{
		Name:    "Superflix (Página)",
		Slug:    "superflix-page",
		BaseURL: origin,
		Docs:    "search: /?s= ; series: /serie/{slug}/",
	}, slugs, func(base, slug, _ string) string {
		return base + "/serie/" + slug + "/"
	})
}

func (p *PageProvider) Descriptor() models.ProviderDescriptor { return p.desc }

func (p *PageProvider) Kind() Kind { return KindPage }

// SearchEndpoint describes the page template; the slug is only known after scraping
func (p *PageProvider) SearchEndpoint(_, episode string, _ int) string {
	return p.pageURL(p.desc.BaseURL, slugPlaceholder, episode)
}

func (p *PageProvider) SearchEpisode(ctx context.Context, q models.EpisodeQuery) models.Result {
	title := scraper.NormalizeTitle(q.Title())
	endpoint := p.desc.BaseURL + "/?s=" + escapeComponent(title)

	slug := p.slugs.Resolve(ctx, p.desc.BaseURL, title, scraper.ResolveOptions{AllowEpisodeSlugExtract: true})
	if slug == "" {
		util.Debug("page provider: empty slug", "provider", p.desc.Slug, "title", title)
		return failure(p.desc, endpoint, ErrEmptySlug)
	}

	// A page URL is never a playlist, whatever the episode value looks like.
	res := success(p.desc, endpoint, p.pageURL(p.desc.BaseURL, slug, q.Episode))
	res.IsHLS = false
	return res
}
