package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvarorichard/goanime-resolver/internal/models"
	"github.com/alvarorichard/goanime-resolver/internal/provider"
	"github.com/alvarorichard/goanime-resolver/internal/util"
)

// stubProvider succeeds or fails on demand and counts calls
type stubProvider struct {
	mu      sync.Mutex
	name    string
	ok      bool
	calls   int
	queries []models.EpisodeQuery
}

func (p *stubProvider) Descriptor() models.ProviderDescriptor {
	return models.ProviderDescriptor{Name: p.name, Slug: p.name, BaseURL: "https://" + p.name + ".test"}
}

func (p *stubProvider) Kind() provider.Kind { return provider.KindDirect }

func (p *stubProvider) SearchEndpoint(animeSlug, episode string, _ int) string {
	return "https://" + p.name + ".test/" + animeSlug + "/" + episode
}

func (p *stubProvider) SearchEpisode(_ context.Context, q models.EpisodeQuery) models.Result {
	p.mu.Lock()
	p.calls++
	p.queries = append(p.queries, q)
	p.mu.Unlock()

	endpoint := p.SearchEndpoint(q.AnimeSlug, q.Episode, q.SeasonOrDefault())
	if !p.ok {
		return models.Result{Error: true, Provider: p.name, SearchedEndpoint: endpoint, Message: p.name + " is down"}
	}
	return models.Result{Provider: p.name, SearchedEndpoint: endpoint, Episode: models.StringPtr("https://cdn.test/" + p.name + ".mp4")}
}

func (p *stubProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func newStubs(ok ...bool) ([]provider.Provider, []*stubProvider) {
	providers := make([]provider.Provider, len(ok))
	stubs := make([]*stubProvider, len(ok))
	for i, good := range ok {
		stubs[i] = &stubProvider{name: "p" + string(rune('0'+i)), ok: good}
		providers[i] = stubs[i]
	}
	return providers, stubs
}

func newTestServer(providers []provider.Provider) (*Server, *util.PerfTracker) {
	perf := util.NewPerfTracker()
	return NewServer(provider.NewOrchestrator(providers, perf), perf, Options{}), perf
}

func get(t *testing.T, s *Server, target string) (*httptest.ResponseRecorder, models.Resolution) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var body models.Resolution
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return w, body
}

func TestResolutionMissingParams(t *testing.T) {
	s, _ := newTestServer(nil)

	for _, target := range []string{
		"/episode-resolution",
		"/episode-resolution?slug=naruto",
		"/episode-resolution?episode=1",
		"/episode-resolution?slug=%20&episode=1",
	} {
		w, body := get(t, s, target)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		assert.True(t, body.Error)
		assert.NotEmpty(t, body.Message)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	}
}

func TestResolutionAllProvidersFail(t *testing.T) {
	providers, stubs := newStubs(false, false, false, false, false)
	s, perf := newTestServer(providers)

	w, body := get(t, s, "/episode-resolution?slug=naruto&episode=1")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.True(t, body.Error)
	assert.Equal(t, -1, body.Index)
	assert.Equal(t, 5, body.Total)
	assert.Nil(t, body.NextIndex)
	assert.Nil(t, body.Episode)
	assert.Equal(t, provider.AllProviders, body.Provider)
	assert.NotEmpty(t, body.Message)
	for _, st := range stubs {
		assert.Equal(t, 1, st.callCount())
	}
	assert.Equal(t, int64(1), perf.GetCounter("http.resolution.not_found"))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Contains(t, raw, "nextIndex")
	assert.Nil(t, raw["nextIndex"])
}

func TestResolutionResumesPastFailedProviders(t *testing.T) {
	providers, stubs := newStubs(false, true, true, false, true)
	s, _ := newTestServer(providers)

	w, body := get(t, s, "/episode-resolution?slug=naruto&episode=1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, body.Error)
	assert.Equal(t, 1, body.Index)
	require.NotNil(t, body.NextIndex)
	assert.Equal(t, 2, *body.NextIndex)
	assert.Equal(t, "https://cdn.test/p1.mp4", body.EpisodeURL())
	assert.Equal(t, 1, stubs[0].callCount())
	assert.Equal(t, 1, stubs[1].callCount())

	w, body = get(t, s, "/episode-resolution?slug=naruto&episode=1&start=2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, body.Index)
	assert.Equal(t, 1, stubs[0].callCount(), "provider 0 must not be retried")
	assert.Equal(t, 1, stubs[1].callCount(), "provider 1 must not be retried")
	assert.Equal(t, 1, stubs[2].callCount())
}

func TestResolutionLastProviderHasNoNextIndex(t *testing.T) {
	providers, _ := newStubs(false, true)
	s, _ := newTestServer(providers)

	w, body := get(t, s, "/episode-resolution?slug=naruto&episode=1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, body.Index)
	assert.Nil(t, body.NextIndex)
}

func TestResolutionParameterParsing(t *testing.T) {
	providers, stubs := newStubs(true)
	s, _ := newTestServer(providers)

	w, _ := get(t, s, "/episode-resolution?slug=naruto&episode=OVA&season=abc&start=-4&title=Naruto%20Shippuden")
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, stubs[0].queries, 1)
	q := stubs[0].queries[0]
	assert.Equal(t, "naruto", q.AnimeSlug)
	assert.Equal(t, "OVA", q.Episode)
	assert.Equal(t, models.DefaultSeason, q.Season)
	assert.Equal(t, 0, q.Start)
	assert.Equal(t, "Naruto Shippuden", q.TitleHint)
}

func TestResolutionStartPastEnd(t *testing.T) {
	providers, stubs := newStubs(true, true)
	s, _ := newTestServer(providers)

	w, body := get(t, s, "/episode-resolution?slug=naruto&episode=1&start=2")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, -1, body.Index)
	assert.Equal(t, 0, stubs[0].callCount())
	assert.Equal(t, 0, stubs[1].callCount())
}

func TestResolutionPathRoute(t *testing.T) {
	providers, stubs := newStubs(true)
	s, _ := newTestServer(providers)

	w, body := get(t, s, "/api/animes/one-piece/episodes/1071?season=2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "p0", body.Provider)

	q := stubs[0].queries[0]
	assert.Equal(t, "one-piece", q.AnimeSlug)
	assert.Equal(t, "1071", q.Episode)
	assert.Equal(t, 2, q.Season)
}

func TestRequestID(t *testing.T) {
	s, _ := newTestServer(nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestProvidersEndpoint(t *testing.T) {
	providers, _ := newStubs(true, false, true)
	s, _ := newTestServer(providers)

	req := httptest.NewRequest(http.MethodGet, "/providers", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body ProvidersResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Total)
	require.Len(t, body.Providers, 3)
	assert.Equal(t, "p1", body.Providers[1].Slug)
}

func TestStatsEndpoint(t *testing.T) {
	providers, _ := newStubs(true)
	s, _ := newTestServer(providers)

	get(t, s, "/episode-resolution?slug=naruto&episode=1")

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var snap util.PerfSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, int64(1), snap.Counters["http.resolution.ok"])
	assert.Equal(t, int64(1), snap.Counters["provider.p0.hit"])
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(nil)

	req := httptest.NewRequest(http.MethodPost, "/episode-resolution?slug=a&episode=1", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestParseHelpers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw    string
		season int
		start  int
	}{
		{"", 1, 0},
		{"0", 1, 0},
		{" 3 ", 3, 3},
		{"x", 1, 0},
		{"-1", 1, 0},
		{"4", 4, 4},
		{"2.5", 2, 2},
		{"1.5", 1, 1},
		{"3abc", 3, 3},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.season, parseSeason(tc.raw), "season %q", tc.raw)
		assert.Equal(t, tc.start, parseStart(tc.raw), "start %q", tc.raw)
	}
}
