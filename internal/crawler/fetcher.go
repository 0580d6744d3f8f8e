package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// FetchResult is the outcome of a successful page fetch.
type FetchResult struct {
	// EffectiveURL is the final URL after redirects. Relative links in
	// the body resolve against this, not the requested URL.
	EffectiveURL string

	// StatusCode is the HTTP response status code.
	StatusCode int

	// ContentType is the value of the Content-Type response header.
	ContentType string

	// Body is the response body, truncated to the fetcher's size limit.
	Body []byte
}

// Fetcher performs a single GET request with redirect following.
// A returned error is a transport failure (timeout, DNS, connection
// refused); the engine records it as an unreachable node and continues.
//
// Design decision: The engine depends on this interface rather than
// *http.Client directly so tests can substitute fixed responses and so
// alternative transports stay pluggable.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*FetchResult, error)
}

// HTTPFetcher is the default Fetcher backed by net/http.
type HTTPFetcher struct {
	// client is the HTTP client used for requests. The caller configures
	// its timeout; a fetch that exceeds it is a transport failure.
	client *http.Client

	// userAgent is the User-Agent header to send.
	userAgent string

	// headers are extra headers added to every request.
	headers map[string]string

	// maxBodySize limits how much of the response body is read.
	maxBodySize int64
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *HTTPFetcher) {
		f.userAgent = ua
	}
}

// WithHeaders sets extra headers added to every request.
func WithHeaders(headers map[string]string) FetcherOption {
	return func(f *HTTPFetcher) {
		f.headers = headers
	}
}

// WithMaxBodySize sets the maximum response body size to read.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *HTTPFetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// NewHTTPFetcher creates an HTTPFetcher using the given client.
// The client should already carry the configured timeout; redirects are
// followed by net/http's default policy.
func NewHTTPFetcher(client *http.Client, opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:      client,
		userAgent:   "webmap/1.0 (+https://github.com/nao1215/webmap)",
		maxBodySize: 5 * 1024 * 1024, // 5MB
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch performs a GET request and returns the response metadata and
// body. The requested URL should already have its fragment stripped.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", rawURL, err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", rawURL, err)
	}

	effective := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		effective = resp.Request.URL.String()
	}

	return &FetchResult{
		EffectiveURL: effective,
		StatusCode:   resp.StatusCode,
		ContentType:  resp.Header.Get("Content-Type"),
		Body:         body,
	}, nil
}
