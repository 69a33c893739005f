package scraper

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/alvarorichard/goanime-resolver/internal/slugcache"
	"github.com/alvarorichard/goanime-resolver/internal/util"
)

const (
	// DefaultSlugTTL is how long a resolved slug is reused
	DefaultSlugTTL = 30 * time.Minute
	// DefaultSearchTimeout bounds each search-page fetch
	DefaultSearchTimeout = 12 * time.Second
)

// TextFetcher fetches a page body. *util.Fetcher implements it.
type TextFetcher interface {
	FetchText(ctx context.Context, url string, timeout time.Duration) (string, error)
}

// searchPath builds one search URL path for a query
type searchPath func(query string) string

// searchPaths are tried concurrently on every origin: the WordPress-style
// root query and three path-based conventions
var searchPaths = []searchPath{
	func(q string) string { return "/?s=" + url.QueryEscape(q) },
	func(q string) string { return "/search/" + url.PathEscape(q) },
	func(q string) string { return "/buscar/" + url.PathEscape(q) },
	func(q string) string { return "/pesquisar/" + url.PathEscape(q) },
}

// ResolveOptions tunes a single resolution
type ResolveOptions struct {
	// AllowEpisodeSlugExtract lets /episodio/<slug>-episodio-N links contribute candidates
	AllowEpisodeSlugExtract bool
}

// SlugResolver finds the slug a provider uses for a title
type SlugResolver struct {
	TTL     time.Duration
	Timeout time.Duration

	fetcher TextFetcher
	cache   slugcache.Cache
	now     func() time.Time
}

// NewSlugResolver creates a resolver. A nil cache gets an in-memory one.
func NewSlugResolver(fetcher TextFetcher, cache slugcache.Cache) *SlugResolver {
	if cache == nil {
		cache = slugcache.NewMemory()
	}
	return &SlugResolver{
		TTL:     DefaultSlugTTL,
		Timeout: DefaultSearchTimeout,
		fetcher: fetcher,
		cache:   cache,
		now:     time.Now,
	}
}

// Resolve returns the provider slug for titleOrSlug on origin. It never
// fails: when scraping yields no candidate scoring at least MinAcceptScore
// the slugified title is returned instead. Both outcomes are cached.
func (r *SlugResolver) Resolve(ctx context.Context, origin, titleOrSlug string, opts ResolveOptions) string {
	query := NormalizeTitle(titleOrSlug)
	fallback := Slugify(query)

	base, err := url.Parse(origin)
	if err != nil || base.Host == "" {
		util.Debug("slug resolver: invalid origin", "origin", origin, "error", err)
		return fallback
	}
	originRoot := fmt.Sprintf("%s://%s", base.Scheme, base.Host)
	key := slugcache.NewKey(originRoot, query)

	if e, ok := r.cache.Get(key).Get(); ok && e.Fresh(r.now(), r.TTL) {
		util.Debug("slug resolver: cache hit", "origin", originRoot, "query", query, "slug", e.Value)
		return e.Value
	}

	if query == "" {
		return fallback
	}

	pages := r.searchPages(ctx, originRoot, query)

	if ctx.Err() != nil {
		// Abandoned call: hand back the guess without caching it.
		return fallback
	}

	var slugs []string
	for _, body := range pages {
		slugs = append(slugs, ExtractCandidateSlugs(body, base, opts.AllowEpisodeSlugExtract)...)
	}

	value := fallback
	if best, ok := pickBest(slugs, query); ok && best.Score >= MinAcceptScore {
		value = best.Slug
		util.Debug("slug resolver: matched", "origin", originRoot, "query", query, "slug", best.Slug, "score", best.Score, "candidates", len(slugs))
	} else {
		util.Debug("slug resolver: no confident match, using fallback", "origin", originRoot, "query", query, "fallback", fallback, "candidates", len(slugs))
	}

	r.cache.Set(key, value, r.now())
	return value
}

// searchPages fetches every search path concurrently and returns the bodies
// that were retrieved, in search-path order. Failed paths are left out.
func (r *SlugResolver) searchPages(ctx context.Context, originRoot, query string) []string {
	bodies := make([]string, len(searchPaths))
	ok := make([]bool, len(searchPaths))

	tasks := make([]func(), 0, len(searchPaths))
	for i, build := range searchPaths {
		target := originRoot + build(query)
		tasks = append(tasks, func() {
			body, err := r.fetcher.FetchText(ctx, target, r.Timeout)
			if err != nil {
				util.Debug("slug resolver: search path failed", "url", target, "error", err)
				return
			}
			bodies[i], ok[i] = body, true
		})
	}
	util.ParallelExecute(len(tasks), tasks...)

	pages := make([]string, 0, len(bodies))
	for i, body := range bodies {
		if ok[i] {
			pages = append(pages, body)
		}
	}
	return pages
}
