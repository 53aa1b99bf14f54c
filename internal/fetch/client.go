// Package fetch provides the resilient outbound HTTP client used by every
// job in the lookup core. Calls go through a shared token-bucket rate
// limiter, a per-client circuit breaker, and a retry loop with exponential
// backoff; successful responses are cached with a long TTL so repeat
// lookups for the same product never leave the process.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"supplement-scout/internal/cache"
	"supplement-scout/internal/circuitbreaker"
	"supplement-scout/internal/common/errors"
	"supplement-scout/internal/common/logging"
)

// Client executes outbound GET requests with caching, retry and rate
// limiting. It is safe for concurrent use by the worker pool.
type Client struct {
	config     *Config
	httpClient *http.Client
	cache      cache.Cache
	limiter    *rate.Limiter
	breaker    *circuitbreaker.GoBreakerAdapter
	logger     logging.Logger
}

// Response is the result of a fetch. FromCache reports whether the body was
// served without a network call.
type Response struct {
	StatusCode int           `json:"status_code"`
	Body       []byte        `json:"-"`
	Duration   time.Duration `json:"duration"`
	FromCache  bool          `json:"from_cache"`
}

// IsSuccess reports whether the response carries a 2xx status
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// JSON unmarshals the response body into v
func (r *Response) JSON(v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return errors.DataShapeError("response body is not valid JSON", err)
	}
	return nil
}

// Options adjusts a single fetch. The zero value means: client default
// timeout, cache enabled.
type Options struct {
	Timeout time.Duration
	NoCache bool
}

// cacheEntry is the stored shape of a cached response
type cacheEntry struct {
	RequestKey string    `json:"request_key"`
	Body       []byte    `json:"body"`
	StatusCode int       `json:"status_code"`
	FetchedAt  time.Time `json:"fetched_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// NewClient creates a fetch client backed by the given cache
func NewClient(config *Config, responseCache cache.Cache, logger logging.Logger) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fetch config: %w", err)
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	transport := &http.Transport{
		MaxIdleConns:        config.MaxConnections,
		MaxIdleConnsPerHost: config.MaxConnections / 10,
		IdleConnTimeout:     config.KeepAlive,
	}

	limit := rate.Limit(float64(config.RateLimit) / config.RateWindow.Seconds())

	return &Client{
		config:     config,
		httpClient: &http.Client{Transport: transport},
		cache:      responseCache,
		limiter:    rate.NewLimiter(limit, config.RateLimit),
		breaker:    circuitbreaker.NewGoBreaker("fetch", circuitbreaker.HTTPConfig, logger),
		logger:     logger.WithFields(logging.Field{Key: "component", Value: "fetch"}),
	}, nil
}

// Get performs a GET request with retry, rate limiting and optional caching.
// Only successful responses are cached. After the retry budget is exhausted
// a typed fetch error is returned; non-retryable statuses are returned to
// the caller as a Response so it can decide how to degrade.
func (c *Client) Get(ctx context.Context, rawURL string, params map[string]string, opts *Options) (*Response, error) {
	if opts == nil {
		opts = &Options{}
	}

	reqURL, err := buildURL(rawURL, params)
	if err != nil {
		return nil, errors.ValidationError(fmt.Sprintf("invalid URL %q: %v", rawURL, err))
	}

	key := cacheKey(reqURL)

	if !opts.NoCache && c.cache != nil {
		if entry, ok := c.lookupCache(ctx, key); ok {
			c.logger.Info("fetch completed",
				logging.Field{Key: "url", Value: reqURL},
				logging.Field{Key: "source", Value: "cache"},
				logging.Field{Key: "status", Value: entry.StatusCode},
				logging.Field{Key: "latency_ms", Value: 0},
			)
			return &Response{
				StatusCode: entry.StatusCode,
				Body:       entry.Body,
				FromCache:  true,
			}, nil
		}
	}

	// Cooperatively block until the token bucket frees a slot
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.RateLimitError(fmt.Sprintf("rate limiter wait aborted: %v", err))
	}

	resp, err := c.getWithRetry(ctx, reqURL, opts.Timeout)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if resp.IsSuccess() {
			c.storeCache(ctx, key, resp)
		} else {
			// A stale entry for this key must not outlive a failed refresh
			if err := c.cache.Delete(ctx, key); err != nil {
				c.logger.Warn("failed to evict stale cache entry",
					logging.Field{Key: "key", Value: key},
					logging.Field{Key: "error", Value: err.Error()},
				)
			}
		}
	}

	c.logger.Info("fetch completed",
		logging.Field{Key: "url", Value: reqURL},
		logging.Field{Key: "source", Value: "network"},
		logging.Field{Key: "status", Value: resp.StatusCode},
		logging.Field{Key: "latency_ms", Value: resp.Duration.Milliseconds()},
	)

	return resp, nil
}

// GetJSON fetches and decodes a JSON document in one call. Non-2xx statuses
// become typed errors: not_found for 404, fetch otherwise.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params map[string]string, opts *Options, v interface{}) error {
	resp, err := c.Get(ctx, rawURL, params, opts)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusNotFound {
		return errors.NotFoundError(rawURL)
	}
	if !resp.IsSuccess() {
		return errors.FetchError(fmt.Sprintf("unexpected status %d from %s", resp.StatusCode, rawURL), nil)
	}
	return resp.JSON(v)
}

func (c *Client) getWithRetry(ctx context.Context, reqURL string, timeout time.Duration) (*Response, error) {
	if timeout <= 0 {
		timeout = c.config.Timeout
	}

	var resp *Response
	var lastErr error

	delay := c.config.RetryDelay
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, errors.FetchError("fetch cancelled during backoff", ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}

		err := c.breaker.Execute(ctx, func() error {
			r, doErr := c.doRequest(ctx, reqURL, timeout)
			if doErr != nil {
				return doErr
			}
			resp = r
			if isRetryableStatus(r.StatusCode) {
				return errors.FetchError(fmt.Sprintf("transient status %d", r.StatusCode), nil)
			}
			return nil
		})
		if err == nil {
			return resp, nil
		}
		lastErr = err

		// Breaker-open failures won't recover within the backoff window
		if errors.IsType(err, errors.ErrTypeFetch) && strings.Contains(err.Error(), "circuit breaker") {
			return nil, err
		}
	}

	return nil, errors.FetchError(
		fmt.Sprintf("request failed after %d attempts", c.config.MaxRetries+1), lastErr,
	).WithContext("url", reqURL)
}

func (c *Client) doRequest(ctx context.Context, reqURL string, timeout time.Duration) (*Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.FetchError("failed to create request", err)
	}

	if c.config.CatalogAPIKey != "" && c.config.CatalogHost != "" &&
		strings.Contains(reqURL, c.config.CatalogHost) {
		req.Header.Set("X-Api-Key", c.config.CatalogAPIKey)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.FetchError("request failed", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, errors.FetchError("failed to read response body", err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       body,
		Duration:   time.Since(start),
	}, nil
}

func (c *Client) lookupCache(ctx context.Context, key string) (*cacheEntry, bool) {
	data, found := c.cache.Get(ctx, key)
	if !found {
		return nil, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		_ = c.cache.Delete(ctx, key)
		return nil, false
	}

	// Entries past their expiry or holding a non-2xx status are treated as
	// absent and evicted so they cannot shadow a fresh fetch
	if time.Now().After(entry.ExpiresAt) || entry.StatusCode < 200 || entry.StatusCode >= 300 {
		_ = c.cache.Delete(ctx, key)
		return nil, false
	}

	return &entry, true
}

func (c *Client) storeCache(ctx context.Context, key string, resp *Response) {
	now := time.Now()
	entry := cacheEntry{
		RequestKey: key,
		Body:       resp.Body,
		StatusCode: resp.StatusCode,
		FetchedAt:  now,
		ExpiresAt:  now.Add(c.config.CacheTTL),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, data, c.config.CacheTTL); err != nil {
		c.logger.Warn("failed to cache response",
			logging.Field{Key: "key", Value: key},
			logging.Field{Key: "error", Value: err.Error()},
		)
	}
}

// buildURL merges query params into the raw URL
func buildURL(rawURL string, params map[string]string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if len(params) > 0 {
		q := u.Query()
		for key, value := range params {
			q.Set(key, value)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// cacheKey normalizes a request URL into a deterministic cache key: the URL
// with its query parameters sorted
func cacheKey(reqURL string) string {
	u, err := url.Parse(reqURL)
	if err != nil {
		return reqURL
	}

	q := u.Query()
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("://")
	b.WriteString(u.Host)
	b.WriteString(u.Path)
	for _, k := range keys {
		vals := q[k]
		sort.Strings(vals)
		for _, v := range vals {
			b.WriteString("&")
			b.WriteString(k)
			b.WriteString("=")
			b.WriteString(v)
		}
	}
	return b.String()
}

func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Close releases idle connections held by the transport
func (c *Client) Close() error {
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
	return nil
}
