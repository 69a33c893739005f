package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvarorichard/goanime-resolver/internal/models"
	"github.com/alvarorichard/goanime-resolver/internal/scraper"
)

// fakeSlugs returns a fixed slug and records the last call
type fakeSlugs struct {
	slug   string
	origin string
	title  string
	opts   scraper.ResolveOptions
	calls  int
}

func (f *fakeSlugs) Resolve(_ context.Context, origin, title string, opts scraper.ResolveOptions) string {
	f.calls++
	f.origin, f.title, f.opts = origin, title, opts
	return f.slug
}

func TestPageProvidersBuildURLs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		build    func(string, SlugSource) *PageProvider
		origin   string
		episode  string
		wantURL  string
		wantName string
	}{
		{"animes online cc", NewAnimesOnlineCCPage, "https://aocc.test/", "7", "https://aocc.test/episodio/shingeki-no-kyojin-episodio-7/", "Animes Online CC (Página)"},
		{"anime fire page", NewAnimeFirePage, "https://af.test", "7", "https://af.test/video/shingeki-no-kyojin/7", "Anime Fire (Página)"},
		{"superflix", NewSuperflixPage, "https://sf.test", "7", "https://sf.test/serie/shingeki-no-kyojin/", "Superflix (Página)"},
		{"anime fire page with playlist-like episode", NewAnimeFirePage, "https://af.test", "3.m3u8", "https://af.test/video/shingeki-no-kyojin/3.m3u8", "Anime Fire (Página)"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			slugs := &fakeSlugs{slug: "shingeki-no-kyojin"}
			p := tc.build(tc.origin, slugs)

			res := p.SearchEpisode(context.Background(), models.EpisodeQuery{
				AnimeSlug: "attack-on-titan",
				TitleHint: "Attack on Titan",
				Episode:   tc.episode,
			})

			assertEpisodeInvariant(t, res)
			require.False(t, res.Error)
			assert.Equal(t, tc.wantURL, res.EpisodeURL())
			assert.Equal(t, tc.wantName, res.Provider)
			assert.True(t, res.IsEmbed)
			assert.False(t, res.IsHLS)
			assert.False(t, res.RequiresProxy)
			assert.Nil(t, res.Headers)
			assert.Equal(t, p.Descriptor().BaseURL+"/?s=Attack%20on%20Titan", res.SearchedEndpoint)

			assert.Equal(t, 1, slugs.calls)
			assert.Equal(t, p.Descriptor().BaseURL, slugs.origin)
			assert.Equal(t, "Attack on Titan", slugs.title)
			assert.True(t, slugs.opts.AllowEpisodeSlugExtract)

			d := p.Descriptor()
			assert.True(t, d.HasAds)
			assert.True(t, d.IsEmbed)
			assert.Equal(t, KindPage, p.Kind())
		})
	}
}

func TestPageProviderTitleFromSlug(t *testing.T) {
	t.Parallel()

	slugs := &fakeSlugs{slug: "boku-no-hero"}
	p := NewAnimeFirePage("", slugs)

	res := p.SearchEpisode(context.Background(), models.EpisodeQuery{AnimeSlug: "boku_no--hero", Episode: "OVA-1"})
	require.False(t, res.Error)
	assert.Equal(t, "boku no hero", slugs.title)
	assert.Equal(t, AnimeFireOrigin+"/video/boku-no-hero/OVA-1", res.EpisodeURL())
}

func TestPageProviderEmptySlugFails(t *testing.T) {
	t.Parallel()

	p := NewSuperflixPage("", &fakeSlugs{})
	res := p.SearchEpisode(context.Background(), models.EpisodeQuery{AnimeSlug: "!!!", Episode: "1"})

	assertEpisodeInvariant(t, res)
	assert.True(t, res.Error)
	assert.Equal(t, ErrEmptySlug.Error(), res.Message)
}

func TestPageProviderSearchEndpoint(t *testing.T) {
	t.Parallel()

	p := NewAnimesOnlineCCPage("", &fakeSlugs{})
	assert.Equal(t, AnimesOnlineCCOrigin+"/episodio/{provider-slug}-episodio-3/", p.SearchEndpoint("naruto", "3", 1))
}
