// Package httpclient is the shared outbound HTTP client for source adapters.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/time/rate"

	"github.com/everstacklabs/pricehub/internal/cache"
)

// DefaultUserAgent identifies pricehub to upstream pricing sites.
const DefaultUserAgent = "Mozilla/5.0 (compatible; PriceHub/1.0; +https://github.com/everstacklabs/pricehub)"

// maxBodySize caps how much of a response is read.
const maxBodySize = 32 << 20

// Observer receives one call per completed request.
type Observer interface {
	ObserveHTTP(host string, status int, fromCache bool, d time.Duration)
}

// StatusError is returned for responses with status >= 400.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP GET %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Client is an HTTP client with caching, rate limiting, and conditional fetch.
type Client struct {
	http      *http.Client
	cache     cache.Store
	limiter   *rate.Limiter
	observer  Observer
	userAgent string
}

// Option configures the Client.
type Option func(*Client)

// WithCache enables response caching.
func WithCache(s cache.Store) Option {
	return func(cl *Client) { cl.cache = s }
}

// WithRateLimit sets requests per second.
func WithRateLimit(rps float64) Option {
	return func(cl *Client) {
		if rps > 0 {
			cl.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.http.Timeout = d }
}

// WithMetrics reports every request to o.
func WithMetrics(o Observer) Option {
	return func(cl *Client) { cl.observer = o }
}

// WithUserAgent overrides the default User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cl *Client) { cl.userAgent = ua }
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(h *http.Client) Option {
	return func(cl *Client) { cl.http = h }
}

// New creates a new HTTP client.
func New(opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{Timeout: 30 * time.Second},
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Response wraps an HTTP response body and metadata.
type Response struct {
	Body       []byte
	StatusCode int
	FromCache  bool
}

// Get performs an HTTP GET with optional caching and conditional fetch.
func (c *Client) Get(ctx context.Context, rawURL string, headers map[string]string) (resp *Response, err error) {
	start := time.Now()
	defer func() {
		if c.observer == nil {
			return
		}
		status, fromCache := 0, false
		if resp != nil {
			status, fromCache = resp.StatusCode, resp.FromCache
		} else if se := (*StatusError)(nil); errors.As(err, &se) {
			status = se.StatusCode
		}
		c.observer.ObserveHTTP(hostOf(rawURL), status, fromCache, time.Since(start))
	}()

	var staleEntry *cache.Entry
	if c.cache != nil {
		entry, fresh := c.cache.Get(ctx, rawURL)
		if fresh {
			return &Response{Body: entry.Body, StatusCode: entry.StatusCode, FromCache: true}, nil
		}
		staleEntry = entry
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if staleEntry != nil {
		if staleEntry.ETag != "" {
			req.Header.Set("If-None-Match", staleEntry.ETag)
		}
		if staleEntry.LastMod != "" {
			req.Header.Set("If-Modified-Since", staleEntry.LastMod)
		}
	}

	hresp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET %s: %w", rawURL, err)
	}
	defer func() { _ = hresp.Body.Close() }()

	if hresp.StatusCode == http.StatusNotModified && staleEntry != nil {
		_ = c.cache.Set(ctx, rawURL, staleEntry)
		return &Response{Body: staleEntry.Body, StatusCode: staleEntry.StatusCode, FromCache: true}, nil
	}

	body, err := io.ReadAll(io.LimitReader(hresp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if hresp.StatusCode >= 400 {
		return nil, &StatusError{URL: rawURL, StatusCode: hresp.StatusCode, Body: truncate(string(body), 512)}
	}

	if c.cache != nil {
		_ = c.cache.Set(ctx, rawURL, &cache.Entry{
			Body:       body,
			ETag:       hresp.Header.Get("ETag"),
			LastMod:    hresp.Header.Get("Last-Modified"),
			StatusCode: hresp.StatusCode,
		})
	}

	return &Response{Body: body, StatusCode: hresp.StatusCode}, nil
}

// GetJSON fetches rawURL and decodes the body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, headers map[string]string, v any) error {
	h := map[string]string{"Accept": "application/json"}
	for k, val := range headers {
		h[k] = val
	}
	resp, err := c.Get(ctx, rawURL, h)
	if err != nil {
		return err
	}
	if err := sonic.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("decoding %s: %w", rawURL, err)
	}
	return nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
