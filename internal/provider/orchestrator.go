package provider

import (
	"context"
	"time"

	"github.com/alvarorichard/goanime-resolver/internal/models"
	"github.com/alvarorichard/goanime-resolver/internal/scraper"
	"github.com/alvarorichard/goanime-resolver/internal/util"
)

const (
	// AllProviders is the provider name reported when every provider failed
	AllProviders = "all"
	// ExhaustedMessage is the message of the exhausted result
	ExhaustedMessage = "no provider found the episode"
)

// Options configures the default provider list
type Options struct {
	Fetcher         Fetcher
	Slugs           SlugSource
	ProviderTimeout time.Duration
	TokenTimeout    time.Duration

	AnimeFireOrigin   string
	ConsumetBase      string
	AnimesOnlineCCURL string
	SuperflixOrigin   string
}

// DefaultProviders returns the providers in fallback order: direct links
// first, page scrapes last.
func DefaultProviders(opts Options) []Provider {
	if opts.Fetcher == nil {
		opts.Fetcher = util.NewFetcher("")
	}
	if opts.Slugs == nil {
		opts.Slugs = scraper.NewSlugResolver(opts.Fetcher, nil)
	}

	animeFire := NewAnimeFireAPI(opts.AnimeFireOrigin, opts.Fetcher)
	if opts.TokenTimeout > 0 {
		animeFire.Timeout = opts.TokenTimeout
	}
	consumet := NewConsumet(opts.ConsumetBase, opts.Fetcher)
	if opts.ProviderTimeout > 0 {
		consumet.Timeout = opts.ProviderTimeout
	}

	return []Provider{
		animeFire,
		consumet,
		NewAnimesOnlineCCPage(opts.AnimesOnlineCCURL, opts.Slugs),
		NewAnimeFirePage(opts.AnimeFireOrigin, opts.Slugs),
		NewSuperflixPage(opts.SuperflixOrigin, opts.Slugs),
	}
}

// Orchestrator walks an ordered provider list and returns the first usable result
type Orchestrator struct {
	providers []Provider
	perf      *util.PerfTracker
}

// NewOrchestrator creates an orchestrator over providers. perf may be nil.
func NewOrchestrator(providers []Provider, perf *util.PerfTracker) *Orchestrator {
	return &Orchestrator{providers: providers, perf: perf}
}

// Total returns the number of providers
func (o *Orchestrator) Total() int {
	return len(o.providers)
}

// Descriptors lists the providers in fallback order
func (o *Orchestrator) Descriptors() []models.ProviderDescriptor {
	out := make([]models.ProviderDescriptor, len(o.providers))
	for i, p := range o.providers {
		out[i] = p.Descriptor()
	}
	return out
}

// Resolve tries providers one at a time from q.Start and returns the first
// result with an episode together with its index. When none succeeds, or
// q.Start is past the end, it returns the exhausted result and index -1.
func (o *Orchestrator) Resolve(ctx context.Context, q models.EpisodeQuery) (models.Result, int) {
	for i := max(q.Start, 0); i < len(o.providers); i++ {
		if err := ctx.Err(); err != nil {
			util.Debug("resolution cancelled", "slug", q.AnimeSlug, "index", i, "error", err)
			break
		}

		p := o.providers[i]
		d := p.Descriptor()
		util.Debug("trying provider", "index", i, "provider", d.Name, "kind", p.Kind())

		started := time.Now()
		res := p.SearchEpisode(ctx, q)
		o.perf.Record("provider."+d.Slug, time.Since(started))

		if res.OK() {
			o.perf.IncrementCounter("provider." + d.Slug + ".hit")
			util.Debug("provider found episode", "index", i, "provider", d.Name, "episode", res.EpisodeURL())
			return res, i
		}
		o.perf.IncrementCounter("provider." + d.Slug + ".miss")
		util.Debug("provider failed", "index", i, "provider", d.Name, "message", res.Message)
	}

	o.perf.IncrementCounter("resolution.exhausted")
	return Exhausted(), -1
}

// Exhausted is the result returned when no provider found the episode
func Exhausted() models.Result {
	return models.Result{
		Error:    true,
		Provider: AllProviders,
		Message:  ExhaustedMessage,
	}
}
