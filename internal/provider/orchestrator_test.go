package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/alvarorichard/goanime-resolver/internal/models"
	"github.com/alvarorichard/goanime-resolver/internal/util"
)

// MockProvider is a scripted provider for orchestrator tests
type MockProvider struct {
	mock.Mock
	name string
}

func (m *MockProvider) Descriptor() models.ProviderDescriptor {
	return models.ProviderDescriptor{Name: m.name, Slug: m.name}
}

func (m *MockProvider) Kind() Kind { return KindDirect }

func (m *MockProvider) SearchEndpoint(animeSlug, episode string, _ int) string {
	return m.name + "/" + animeSlug + "/" + episode
}

func (m *MockProvider) SearchEpisode(ctx context.Context, q models.EpisodeQuery) models.Result {
	args := m.Called(ctx, q)
	return args.Get(0).(models.Result)
}

func okResult(name string) models.Result {
	return models.Result{Provider: name, Episode: models.StringPtr("https://cdn/" + name + ".mp4")}
}

func failResult(name string) models.Result {
	return models.Result{Error: true, Provider: name, Message: name + " failed"}
}

// newMocks creates n providers named p0..pn-1 that fail unless listed in ok
func newMocks(n int, ok ...int) ([]Provider, []*MockProvider) {
	good := make(map[int]bool, len(ok))
	for _, i := range ok {
		good[i] = true
	}
	providers := make([]Provider, n)
	mocks := make([]*MockProvider, n)
	for i := range n {
		m := &MockProvider{name: "p" + string(rune('0'+i))}
		res := failResult(m.name)
		if good[i] {
			res = okResult(m.name)
		}
		m.On("SearchEpisode", mock.Anything, mock.Anything).Return(res).Maybe()
		providers[i], mocks[i] = m, m
	}
	return providers, mocks
}

func TestOrchestratorReturnsFirstSuccess(t *testing.T) {
	providers, mocks := newMocks(5, 1, 3)
	o := NewOrchestrator(providers, nil)

	res, idx := o.Resolve(context.Background(), models.EpisodeQuery{AnimeSlug: "x", Episode: "1"})

	assert.Equal(t, 1, idx)
	assert.Equal(t, "p1", res.Provider)
	mocks[0].AssertNumberOfCalls(t, "SearchEpisode", 1)
	mocks[1].AssertNumberOfCalls(t, "SearchEpisode", 1)
	for _, m := range mocks[2:] {
		m.AssertNotCalled(t, "SearchEpisode", mock.Anything, mock.Anything)
	}
}

func TestOrchestratorResumesFromStart(t *testing.T) {
	providers, mocks := newMocks(5, 1, 3)
	o := NewOrchestrator(providers, nil)

	res, idx := o.Resolve(context.Background(), models.EpisodeQuery{AnimeSlug: "x", Episode: "1", Start: 2})

	assert.Equal(t, 3, idx)
	assert.Equal(t, "p3", res.Provider)
	mocks[0].AssertNotCalled(t, "SearchEpisode", mock.Anything, mock.Anything)
	mocks[1].AssertNotCalled(t, "SearchEpisode", mock.Anything, mock.Anything)
	mocks[2].AssertNumberOfCalls(t, "SearchEpisode", 1)
	mocks[4].AssertNotCalled(t, "SearchEpisode", mock.Anything, mock.Anything)
}

func TestOrchestratorNeverGoesBackwards(t *testing.T) {
	for start := 0; start < 5; start++ {
		var order []int
		providers := make([]Provider, 5)
		for i := range providers {
			m := &MockProvider{name: "p" + string(rune('0'+i))}
			m.On("SearchEpisode", mock.Anything, mock.Anything).
				Run(func(mock.Arguments) { order = append(order, i) }).
				Return(failResult(m.name))
			providers[i] = m
		}

		_, idx := NewOrchestrator(providers, nil).Resolve(context.Background(), models.EpisodeQuery{Start: start})

		assert.Equal(t, -1, idx)
		require.Len(t, order, 5-start)
		for k, got := range order {
			assert.Equal(t, start+k, got)
		}
	}
}

func TestOrchestratorExhausted(t *testing.T) {
	providers, mocks := newMocks(5)
	perf := util.NewPerfTracker()
	o := NewOrchestrator(providers, perf)

	res, idx := o.Resolve(context.Background(), models.EpisodeQuery{AnimeSlug: "x", Episode: "1"})

	assert.Equal(t, -1, idx)
	assert.True(t, res.Error)
	assert.Nil(t, res.Episode)
	assert.Equal(t, AllProviders, res.Provider)
	assert.Equal(t, ExhaustedMessage, res.Message)
	for _, m := range mocks {
		m.AssertNumberOfCalls(t, "SearchEpisode", 1)
	}
	assert.Equal(t, int64(1), perf.GetCounter("resolution.exhausted"))
	assert.Equal(t, int64(1), perf.GetCounter("provider.p4.miss"))
}

func TestOrchestratorStartPastEndMakesNoCalls(t *testing.T) {
	providers, mocks := newMocks(5, 0, 1, 2, 3, 4)
	o := NewOrchestrator(providers, nil)

	for _, start := range []int{5, 6, 100} {
		res, idx := o.Resolve(context.Background(), models.EpisodeQuery{Start: start})
		assert.Equal(t, -1, idx)
		assert.Equal(t, AllProviders, res.Provider)
	}
	for _, m := range mocks {
		m.AssertNotCalled(t, "SearchEpisode", mock.Anything, mock.Anything)
	}
}

func TestOrchestratorNegativeStartBeginsAtZero(t *testing.T) {
	providers, _ := newMocks(2, 0)
	_, idx := NewOrchestrator(providers, nil).Resolve(context.Background(), models.EpisodeQuery{Start: -3})
	assert.Equal(t, 0, idx)
}

func TestOrchestratorStopsWhenCancelled(t *testing.T) {
	providers, mocks := newMocks(3, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, idx := NewOrchestrator(providers, nil).Resolve(ctx, models.EpisodeQuery{})

	assert.Equal(t, -1, idx)
	assert.True(t, res.Error)
	for _, m := range mocks {
		m.AssertNotCalled(t, "SearchEpisode", mock.Anything, mock.Anything)
	}
}

func TestOrchestratorTreatsEmptyEpisodeAsFailure(t *testing.T) {
	bad := &MockProvider{name: "empty"}
	bad.On("SearchEpisode", mock.Anything, mock.Anything).Return(models.Result{Provider: "empty", Episode: models.StringPtr("")})
	good := &MockProvider{name: "good"}
	good.On("SearchEpisode", mock.Anything, mock.Anything).Return(okResult("good"))

	res, idx := NewOrchestrator([]Provider{bad, good}, nil).Resolve(context.Background(), models.EpisodeQuery{})
	assert.Equal(t, 1, idx)
	assert.Equal(t, "good", res.Provider)
}

func TestDefaultProvidersOrder(t *testing.T) {
	t.Parallel()

	o := NewOrchestrator(DefaultProviders(Options{}), nil)
	require.Equal(t, 5, o.Total())

	var slugs []string
	for _, d := range o.Descriptors() {
		slugs = append(slugs, d.Slug)
	}
	assert.Equal(t, []string{
		"anime-fire-api",
		"consumet-gogoanime",
		"animes-online-cc-page",
		"anime-fire-page",
		"superflix-page",
	}, slugs)

	kinds := make([]Kind, 0, 5)
	for _, p := range DefaultProviders(Options{}) {
		kinds = append(kinds, p.Kind())
	}
	assert.Equal(t, []Kind{KindDirect, KindAggregator, KindPage, KindPage, KindPage}, kinds)
}

func TestDefaultProvidersApplyTimeouts(t *testing.T) {
	t.Parallel()

	providers := DefaultProviders(Options{ProviderTimeout: 3, TokenTimeout: 4})
	assert.EqualValues(t, 4, providers[0].(*AnimeFireAPI).Timeout)
	assert.EqualValues(t, 3, providers[1].(*Consumet).Timeout)
}
