// Package util provides the shared HTTP client, upstream fetch helpers and logging
package util

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/html/charset"
)

// DefaultUserAgent is the generic User-Agent sent to every upstream origin
const DefaultUserAgent = "Mozilla/5.0"

// maxBodyBytes caps how much of an upstream body is read
const maxBodyBytes = 8 << 20

// ErrHTTPStatus is wrapped by fetch helpers when the upstream answers with a non-2xx status
var ErrHTTPStatus = errors.New("unexpected HTTP status")

var (
	sharedClient     *http.Client
	sharedClientOnce sync.Once
)

// httpClientConfig holds configuration for creating optimized HTTP clients
type httpClientConfig struct {
	timeout             time.Duration
	maxIdleConns        int
	maxIdleConnsPerHost int
	maxConnsPerHost     int
	idleConnTimeout     time.Duration
	tlsHandshakeTimeout time.Duration
	expectContinue      time.Duration
	keepAlive           time.Duration
	dialTimeout         time.Duration
}

// defaultConfig returns the pooled transport configuration.
// The client timeout is only a ceiling; each call carries its own context deadline.
func defaultConfig() httpClientConfig {
	return httpClientConfig{
		timeout:             60 * time.Second,
		maxIdleConns:        200,
		maxIdleConnsPerHost: 20,
		maxConnsPerHost:     50,
		idleConnTimeout:     120 * time.Second,
		tlsHandshakeTimeout: 5 * time.Second,
		expectContinue:      1 * time.Second,
		keepAlive:           30 * time.Second,
		dialTimeout:         5 * time.Second,
	}
}

// createTransport creates an optimized HTTP transport with the given config
func createTransport(cfg httpClientConfig) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.dialTimeout,
			KeepAlive: cfg.keepAlive,
		}).DialContext,
		MaxIdleConns:          cfg.maxIdleConns,
		MaxIdleConnsPerHost:   cfg.maxIdleConnsPerHost,
		MaxConnsPerHost:       cfg.maxConnsPerHost,
		IdleConnTimeout:       cfg.idleConnTimeout,
		TLSHandshakeTimeout:   cfg.tlsHandshakeTimeout,
		ExpectContinueTimeout: cfg.expectContinue,
		ForceAttemptHTTP2:     true,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
}

// GetSharedClient returns the shared HTTP client with connection pooling.
func GetSharedClient() *http.Client {
	sharedClientOnce.Do(func() {
		cfg := defaultConfig()
		sharedClient = &http.Client{
			Transport: createTransport(cfg),
			Timeout:   cfg.timeout,
		}
	})
	return sharedClient
}

// Fetcher performs bounded GET requests against upstream origins.
// Every call gets its own timeout derived from the caller's context, so an
// abandoned request cancels the in-flight call.
type Fetcher struct {
	Client    *http.Client
	UserAgent string
}

// NewFetcher returns a Fetcher on the shared client. An empty userAgent falls back to DefaultUserAgent.
func NewFetcher(userAgent string) *Fetcher {
	return &Fetcher{Client: GetSharedClient(), UserAgent: userAgent}
}

func (f *Fetcher) get(ctx context.Context, url string, timeout time.Duration) (*http.Response, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, nil, errors.Wrap(err, "failed to create request")
	}

	ua := f.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)

	client := f.Client
	if client == nil {
		client = GetSharedClient()
	}

	resp, err := client.Do(req)
	if err != nil {
		cancel()
		return nil, nil, errors.Wrap(err, "request failed")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		cancel()
		return nil, nil, errors.Wrapf(ErrHTTPStatus, "HTTP %d", resp.StatusCode)
	}

	return resp, cancel, nil
}

// FetchText GETs url and returns the body decoded to UTF-8 according to the
// response charset.
func (f *Fetcher) FetchText(ctx context.Context, url string, timeout time.Duration) (string, error) {
	resp, cancel, err := f.get(ctx, url, timeout)
	if err != nil {
		return "", err
	}
	defer cancel()
	defer func() { _ = resp.Body.Close() }()

	reader, err := charset.NewReader(io.LimitReader(resp.Body, maxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", errors.Wrap(err, "failed to detect charset")
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return "", errors.Wrap(err, "failed to read response")
	}
	return string(body), nil
}

// FetchJSON GETs url and decodes the JSON body into v.
func (f *Fetcher) FetchJSON(ctx context.Context, url string, timeout time.Duration, v interface{}) error {
	resp, cancel, err := f.get(ctx, url, timeout)
	if err != nil {
		return err
	}
	defer cancel()
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(v); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}
	return nil
}

// ParallelExecute executes multiple functions in parallel with a worker limit
// Returns when all functions complete. Safe for concurrent use.
func ParallelExecute(maxWorkers int, tasks ...func()) {
	if len(tasks) == 0 {
		return
	}

	workers := maxWorkers
	if workers <= 0 || len(tasks) < workers {
		workers = len(tasks)
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, workers)

	for _, task := range tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release
			task()
		}()
	}

	wg.Wait()
}
