package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvarorichard/goanime-resolver/internal/models"
	"github.com/alvarorichard/goanime-resolver/internal/util"
)

func newAnimeFireServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *AnimeFireAPI) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server, NewAnimeFireAPI(server.URL, &util.Fetcher{Client: server.Client()})
}

func assertEpisodeInvariant(t *testing.T, res models.Result) {
	t.Helper()
	assert.Equal(t, res.Error, res.Episode == nil, "episode must be nil exactly when error is set")
	if res.Error {
		assert.NotEmpty(t, res.Message)
	} else {
		assert.Empty(t, res.Message)
	}
}

func TestAnimeFirePicksHighestQuality(t *testing.T) {
	var gotPath string
	_, p := newAnimeFireServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"data":[{"src":"http://x/720p.mp4","label":"720p"},{"src":"http://x/1080p.mp4","label":"1080p"}]}`)
	})

	res := p.SearchEpisode(context.Background(), models.EpisodeQuery{AnimeSlug: "naruto", Episode: "5"})

	assertEpisodeInvariant(t, res)
	require.False(t, res.Error)
	assert.Equal(t, "/video/naruto/5", gotPath)
	assert.Equal(t, "http://x/1080p.mp4", res.EpisodeURL())
	assert.False(t, res.IsHLS)
	assert.False(t, res.IsEmbed)
	assert.False(t, res.RequiresProxy)
	assert.Nil(t, res.Headers)
	assert.Equal(t, "AnimeFire (API)", res.Provider)
	assert.Equal(t, p.SearchEndpoint("naruto", "5", 1), res.SearchedEndpoint)
}

func TestAnimeFireSkipsEntriesWithoutSrc(t *testing.T) {
	_, p := newAnimeFireServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"data":[{"label":"1080p"},{"src":"http://x/a.m3u8?sig=1","label":"weird"},{"src":"http://x/360.mp4","label":"360p"}]}`)
	})

	res := p.SearchEpisode(context.Background(), models.EpisodeQuery{AnimeSlug: "a", Episode: "1"})
	require.False(t, res.Error)
	assert.Equal(t, "http://x/360.mp4", res.EpisodeURL())

	_, p = newAnimeFireServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"data":[{"label":"1080p"},{"src":"http://x/a.m3u8?sig=1","label":"weird"}]}`)
	})
	res = p.SearchEpisode(context.Background(), models.EpisodeQuery{AnimeSlug: "a", Episode: "1"})
	require.False(t, res.Error)
	assert.True(t, res.IsHLS)
}

func TestAnimeFireTokenIsMediaAlready(t *testing.T) {
	_, p := newAnimeFireServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"data":[],"token":"//r1.googlevideo.com/videoplayback?id=1"}`)
	})

	res := p.SearchEpisode(context.Background(), models.EpisodeQuery{AnimeSlug: "a", Episode: "1"})
	assertEpisodeInvariant(t, res)
	require.False(t, res.Error)
	assert.Equal(t, "https://r1.googlevideo.com/videoplayback?id=1", res.EpisodeURL())
}

func TestAnimeFireTokenPageIsScraped(t *testing.T) {
	var server *httptest.Server
	server, p := newAnimeFireServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/video/a/1":
			_, _ = fmt.Fprintf(w, `{"data":null,"token":"%s/blogger/token"}`, server.URL)
		case "/blogger/token":
			w.Header().Set("Content-Type", "text/html")
			_, _ = fmt.Fprint(w, `<script>var s = {"play_url":"//rr3---sn.googlevideo.com/videoplayback?expire=1&itag=22"};</script>`)
		default:
			http.NotFound(w, r)
		}
	})

	res := p.SearchEpisode(context.Background(), models.EpisodeQuery{AnimeSlug: "a", Episode: "1"})
	assertEpisodeInvariant(t, res)
	require.False(t, res.Error, res.Message)
	assert.Equal(t, "https://rr3---sn.googlevideo.com/videoplayback?expire=1&itag=22", res.EpisodeURL())
	assert.False(t, res.IsHLS)
}

func TestAnimeFireUsesUpstreamMessage(t *testing.T) {
	_, p := newAnimeFireServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"data":[],"response":{"status":"500","text":"Episódio indisponível"}}`)
	})

	res := p.SearchEpisode(context.Background(), models.EpisodeQuery{AnimeSlug: "a", Episode: "1"})
	assertEpisodeInvariant(t, res)
	assert.True(t, res.Error)
	assert.Equal(t, "Episódio indisponível", res.Message)
}

func TestAnimeFireNoLinks(t *testing.T) {
	_, p := newAnimeFireServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{}`)
	})

	res := p.SearchEpisode(context.Background(), models.EpisodeQuery{AnimeSlug: "a", Episode: "1"})
	assertEpisodeInvariant(t, res)
	assert.Equal(t, ErrNoVideoLinks.Error(), res.Message)
}

func TestAnimeFireUpstreamFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status", func(w http.ResponseWriter, r *http.Request) { http.Error(w, "down", http.StatusBadGateway) }},
		{"malformed json", func(w http.ResponseWriter, r *http.Request) { _, _ = fmt.Fprint(w, `<html>`) }},
		{"wrong shape", func(w http.ResponseWriter, r *http.Request) { _, _ = fmt.Fprint(w, `{"data":"nope"}`) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, p := newAnimeFireServer(t, tc.handler)
			res := p.SearchEpisode(context.Background(), models.EpisodeQuery{AnimeSlug: "a", Episode: "1"})
			assertEpisodeInvariant(t, res)
			assert.True(t, res.Error)
			assert.Contains(t, res.Message, "animefire video request failed")
		})
	}
}

func TestSelectHighestQualityVideo(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", selectHighestQualityVideo(nil))
	assert.Equal(t, "b", selectHighestQualityVideo([]VideoData{
		{Src: "a", Label: "480p"},
		{Src: "b", Label: "720P"},
		{Src: "c", Label: "360p"},
	}))
	assert.Equal(t, "first", selectHighestQualityVideo([]VideoData{
		{Src: "first", Label: "SD"},
		{Src: "second", Label: "HD"},
	}))
}

func TestIsHLS(t *testing.T) {
	t.Parallel()

	assert.True(t, IsHLS("https://cdn/x/master.m3u8"))
	assert.True(t, IsHLS("https://cdn/x/master.M3U8?token=abc"))
	assert.False(t, IsHLS("https://cdn/x/master.m3u8.mp4"))
	assert.False(t, IsHLS("https://cdn/x/video.mp4"))
}
