// Package playback drives the client side of the continuation protocol: it
// asks the resolution endpoint for an episode, hands the result to a player
// and, when playback fails, resumes one provider past the last success.
package playback

import (
	"context"
	"io"
	"net/url"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/alvarorichard/goanime-resolver/internal/models"
	"github.com/alvarorichard/goanime-resolver/internal/util"
)

// State is the machine's position in Idle -> Loading -> Success | Failed
type State int

const (
	StateIdle State = iota
	StateLoading
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	// ErrAllProvidersFailed is the terminal error once the list is exhausted
	ErrAllProvidersFailed = errors.New("all providers failed")
	// ErrNothingToRetry means TryNext was called before any success
	ErrNothingToRetry = errors.New("no resolution to continue from")
	// ErrBusy means a request is already in flight
	ErrBusy = errors.New("a resolution request is already in flight")
	// ErrExhausted is wrapped by fetchers when the endpoint reports that no
	// provider from the requested start found the episode
	ErrExhausted = errors.New("no provider found the episode")
)

// Decoder is whatever is currently playing the episode. It is closed before
// the next provider is requested.
type Decoder = io.Closer

// Fetcher performs one resolution request
type Fetcher interface {
	Fetch(ctx context.Context, q models.EpisodeQuery) (models.Resolution, error)
}

// Machine is the client-side continuation state machine. It is safe for
// concurrent use; only one request runs at a time.
type Machine struct {
	mu      sync.Mutex
	fetcher Fetcher
	query   models.EpisodeQuery

	state     State
	current   *models.Resolution
	tried     []int
	err       error
	exhausted bool
	decoder   Decoder
}

// NewMachine creates an idle machine for one episode
func NewMachine(fetcher Fetcher, q models.EpisodeQuery) *Machine {
	q.Start = 0
	return &Machine{fetcher: fetcher, query: q}
}

// Start requests the episode from the first provider
func (m *Machine) Start(ctx context.Context) error {
	return m.fetchFrom(ctx, 0)
}

// StartFrom requests the episode beginning at provider index start, e.g.
// when the user picked a provider up front
func (m *Machine) StartFrom(ctx context.Context, start int) error {
	return m.fetchFrom(ctx, max(start, 0))
}

// PlaybackFailed reports that the current source could not be played and
// moves on to the next provider
func (m *Machine) PlaybackFailed(ctx context.Context) error {
	return m.TryNext(ctx)
}

// TryNext requests the provider after the last successful one. Once the
// list is exhausted the machine fails with ErrAllProvidersFailed.
func (m *Machine) TryNext(ctx context.Context) error {
	m.mu.Lock()
	if m.current == nil {
		m.mu.Unlock()
		return ErrNothingToRetry
	}
	next := m.current.Index + 1
	if next >= m.current.Total || m.exhausted {
		m.state = StateFailed
		m.err = ErrAllProvidersFailed
		m.mu.Unlock()
		return ErrAllProvidersFailed
	}
	_ = m.closeDecoderLocked()
	m.mu.Unlock()

	return m.fetchFrom(ctx, next)
}

func (m *Machine) fetchFrom(ctx context.Context, start int) error {
	m.mu.Lock()
	if m.state == StateLoading {
		m.mu.Unlock()
		return ErrBusy
	}
	m.state = StateLoading
	m.err = nil
	q := m.query
	q.Start = start
	m.mu.Unlock()

	util.Debug("requesting resolution", "slug", q.AnimeSlug, "episode", q.Episode, "start", start)
	res, err := m.fetcher.Fetch(ctx, q)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err == nil && !res.OK() {
		err = errors.New(lo.Ternary(res.Message != "", res.Message, "episode not resolved"))
	}
	if err != nil {
		m.state = StateFailed
		m.err = err
		m.exhausted = errors.Is(err, ErrExhausted)
		return err
	}

	m.current = &res
	m.exhausted = false
	if !lo.Contains(m.tried, res.Index) {
		m.tried = append(m.tried, res.Index)
	}
	m.state = StateSuccess
	return nil
}

// Attach registers the decoder playing the current source
func (m *Machine) Attach(d Decoder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_ = m.closeDecoderLocked()
	m.decoder = d
}

// Close releases the attached decoder
func (m *Machine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeDecoderLocked()
}

func (m *Machine) closeDecoderLocked() error {
	if m.decoder == nil {
		return nil
	}
	err := m.decoder.Close()
	m.decoder = nil
	if err != nil {
		util.Debug("closing decoder failed", "error", err)
	}
	return err
}

// State returns the current state
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the error that moved the machine to StateFailed
func (m *Machine) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Current returns the last successful resolution
func (m *Machine) Current() (models.Resolution, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return models.Resolution{}, false
	}
	return *m.current, true
}

// Tried returns the provider indices that produced a result, in order
func (m *Machine) Tried() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.tried...)
}

// CanRetry reports whether providers remain after the last success
func (m *Machine) CanRetry() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil && m.current.HasMore() && !m.exhausted
}

// PlaybackURL returns what a player should open for the current result.
// Sources that need header overrides go through the proxy at proxyBase;
// with no proxy configured the raw episode URL is returned.
func (m *Machine) PlaybackURL(proxyBase string) string {
	res, ok := m.Current()
	if !ok {
		return ""
	}
	return ProxiedURL(res.Result, proxyBase)
}

// ProxiedURL builds {proxyBase}?url=...&referer=... for results that require
// a proxy, and returns the episode URL otherwise
func ProxiedURL(res models.Result, proxyBase string) string {
	episode := res.EpisodeURL()
	if episode == "" || !res.RequiresProxy || proxyBase == "" {
		return episode
	}

	proxied := proxyBase + "?url=" + url.QueryEscape(episode)
	if referer := res.Referer(); referer != "" {
		proxied += "&referer=" + url.QueryEscape(referer)
	}
	return proxied
}
