package playback

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/alvarorichard/goanime-resolver/internal/models"
	"github.com/alvarorichard/goanime-resolver/internal/util"
)

// DefaultRequestTimeout bounds one call to the resolution endpoint. The
// endpoint may walk every provider, so it is generous.
const DefaultRequestTimeout = 2 * time.Minute

// HTTPFetcher calls a remote resolution endpoint
type HTTPFetcher struct {
	Endpoint string
	Client   *http.Client
	Timeout  time.Duration
}

// NewHTTPFetcher creates a fetcher for the server rooted at endpoint,
// e.g. http://localhost:8080
func NewHTTPFetcher(endpoint string) *HTTPFetcher {
	return &HTTPFetcher{
		Endpoint: strings.TrimRight(endpoint, "/"),
		Client:   util.GetSharedClient(),
		Timeout:  DefaultRequestTimeout,
	}
}

// RequestURL builds the path-style resolution URL for q
func (f *HTTPFetcher) RequestURL(q models.EpisodeQuery) string {
	params := url.Values{}
	params.Set("season", strconv.Itoa(q.SeasonOrDefault()))
	if q.TitleHint != "" {
		params.Set("title", q.TitleHint)
	}
	params.Set("start", strconv.Itoa(q.Start))

	return f.Endpoint + "/api/animes/" + url.PathEscape(q.AnimeSlug) +
		"/episodes/" + url.PathEscape(q.Episode) + "?" + params.Encode()
}

// Fetch performs one resolution request. A 404 comes back wrapped in
// ErrExhausted together with the decoded body.
func (f *HTTPFetcher) Fetch(ctx context.Context, q models.EpisodeQuery) (models.Resolution, error) {
	var res models.Resolution

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.RequestURL(q), nil)
	if err != nil {
		return res, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")

	client := f.Client
	if client == nil {
		client = util.GetSharedClient()
	}
	resp, err := client.Do(req)
	if err != nil {
		return res, errors.Wrap(err, "resolution request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return res, errors.Wrap(err, "failed to read response")
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return res, errors.Wrapf(err, "failed to parse response (HTTP %d)", resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return res, errors.Wrap(ErrExhausted, messageOr(res.Message, "episode not found"))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return res, errors.Wrapf(util.ErrHTTPStatus, "HTTP %d: %s", resp.StatusCode, messageOr(res.Message, http.StatusText(resp.StatusCode)))
	case !res.OK():
		return res, errors.New(messageOr(res.Message, "episode not resolved"))
	}
	return res, nil
}

// Providers lists the endpoint's providers in fallback order
func (f *HTTPFetcher) Providers(ctx context.Context) ([]models.ProviderDescriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.Endpoint+"/providers", nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	client := f.Client
	if client == nil {
		client = util.GetSharedClient()
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "providers request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(util.ErrHTTPStatus, "HTTP %d", resp.StatusCode)
	}
	var body struct {
		Providers []models.ProviderDescriptor `json:"providers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(err, "failed to parse providers")
	}
	return body.Providers, nil
}

func messageOr(msg, fallback string) string {
	if strings.TrimSpace(msg) == "" {
		return fallback
	}
	return msg
}
