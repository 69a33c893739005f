// Package resolver provides a public API for finding a playable source for
// an anime episode. It can be used as a library in other Go projects.
package resolver

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/alvarorichard/goanime-resolver/internal/config"
	"github.com/alvarorichard/goanime-resolver/internal/models"
	"github.com/alvarorichard/goanime-resolver/internal/playback"
	"github.com/alvarorichard/goanime-resolver/internal/provider"
	"github.com/alvarorichard/goanime-resolver/internal/scraper"
	"github.com/alvarorichard/goanime-resolver/internal/slugcache"
	"github.com/alvarorichard/goanime-resolver/internal/util"
)

type (
	// Query is one resolution request
	Query = models.EpisodeQuery
	// Result is a provider result
	Result = models.Result
	// Resolution is a result annotated with its provider index
	Resolution = models.Resolution
	// ProviderInfo describes one provider
	ProviderInfo = models.ProviderDescriptor
)

// ErrExhausted is returned when no provider from the requested start found the episode
var ErrExhausted = playback.ErrExhausted

// Options configures a Client. Zero values fall back to the defaults.
type Options struct {
	UserAgent       string
	ProviderTimeout time.Duration
	TokenTimeout    time.Duration
	SlugTimeout     time.Duration
	SlugTTL         time.Duration
	// CachePath stores resolved slugs in SQLite; empty keeps them in memory
	CachePath string

	AnimeFireBase    string
	ConsumetBase     string
	AnimesOnlineBase string
	SuperflixBase    string

	// Providers replaces the default provider list
	Providers []provider.Provider
}

// OptionsFromConfig maps the application config onto client options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		UserAgent:        cfg.HTTP.UserAgent,
		ProviderTimeout:  cfg.HTTP.ProviderTimeout,
		TokenTimeout:     cfg.HTTP.TokenTimeout,
		SlugTimeout:      cfg.Slug.Timeout,
		SlugTTL:          cfg.Slug.TTL,
		CachePath:        cfg.Slug.CachePath,
		AnimeFireBase:    cfg.Providers.AnimeFireBase,
		ConsumetBase:     cfg.Providers.ConsumetBase,
		AnimesOnlineBase: cfg.Providers.AnimesOnlineBase,
		SuperflixBase:    cfg.Providers.SuperflixBase,
	}
}

// Client resolves episodes in-process
type Client struct {
	orchestrator *provider.Orchestrator
	perf         *util.PerfTracker
	sqlite       *slugcache.SQLite
}

// New creates a client with the default provider order
func New(opts Options) (*Client, error) {
	c := &Client{perf: util.NewPerfTracker()}

	providers := opts.Providers
	if providers == nil {
		var cache slugcache.Cache = slugcache.NewMemory()
		if opts.CachePath != "" {
			db, err := slugcache.OpenSQLite(opts.CachePath)
			if err != nil {
				return nil, errors.Wrap(err, "failed to open slug cache")
			}
			c.sqlite = db
			cache = db
		}

		fetcher := util.NewFetcher(opts.UserAgent)
		slugs := scraper.NewSlugResolver(fetcher, cache)
		if opts.SlugTimeout > 0 {
			slugs.Timeout = opts.SlugTimeout
		}
		if opts.SlugTTL > 0 {
			slugs.TTL = opts.SlugTTL
		}

		providers = provider.DefaultProviders(provider.Options{
			Fetcher:           fetcher,
			Slugs:             slugs,
			ProviderTimeout:   opts.ProviderTimeout,
			TokenTimeout:      opts.TokenTimeout,
			AnimeFireOrigin:   opts.AnimeFireBase,
			ConsumetBase:      opts.ConsumetBase,
			AnimesOnlineCCURL: opts.AnimesOnlineBase,
			SuperflixOrigin:   opts.SuperflixBase,
		})
	}

	c.orchestrator = provider.NewOrchestrator(providers, c.perf)
	return c, nil
}

// Resolve runs one resolution from q.Start. A resolution with index -1 is
// returned together with ErrExhausted.
func (c *Client) Resolve(ctx context.Context, q Query) (Resolution, error) {
	res, index := c.orchestrator.Resolve(ctx, q)
	r := models.NewResolution(res, index, c.orchestrator.Total())
	if index < 0 {
		if err := ctx.Err(); err != nil {
			return r, err
		}
		return r, ErrExhausted
	}
	return r, nil
}

// Fetch lets the client drive a playback machine without a server
func (c *Client) Fetch(ctx context.Context, q Query) (Resolution, error) {
	return c.Resolve(ctx, q)
}

// Providers lists the providers in fallback order
func (c *Client) Providers() []ProviderInfo {
	return c.orchestrator.Descriptors()
}

// Orchestrator exposes the provider walk for the HTTP endpoint
func (c *Client) Orchestrator() *provider.Orchestrator {
	return c.orchestrator
}

// Perf returns the client's timing and counter tracker
func (c *Client) Perf() *util.PerfTracker {
	return c.perf
}

// Close releases the persistent slug cache, if any
func (c *Client) Close() error {
	if c.sqlite == nil {
		return nil
	}
	return c.sqlite.Close()
}
