// Package apiclient is the retrying, caching transport used by platforms with
// an official JSON API.
package apiclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"ticketscout/internal/components/assert"
	"ticketscout/internal/components/chrono"
	"ticketscout/internal/components/kvstore"
	"ticketscout/internal/components/ratelimit"
	"ticketscout/internal/components/telemetry"
	"ticketscout/internal/tickets"
	"ticketscout/lib/restyutil"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
)

const (
	report_execute         = "client.execute"
	report_execute_attempt = "client.execute-attempt"
	report_cache           = "client.cache"
)

const (
	DefaultTimeout       = 30 * time.Second
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = time.Second
	DefaultCacheTTL      = 5 * time.Minute

	// DefaultRateLimitRetryAfter is used when a 429 carries no usable header.
	DefaultRateLimitRetryAfter = 60 * time.Second
)

var errInvalidJSON = errors.New("response body is not valid json")

type Options struct {
	// Platform names the client in cache keys, limiter lookups and errors.
	Platform      string
	BaseURL       string
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	CacheTTL      time.Duration
	// Headers are sent with every request, ex. credentials.
	Headers map[string]string
}

func (o *Options) applyDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = DefaultRetryAttempts
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = DefaultCacheTTL
	}
}

// Deps are the shared collaborators of a Client. Limiter may be nil.
type Deps struct {
	Cache   kvstore.Store
	Limiter *ratelimit.Limiter
	Time    chrono.API
	Tel     telemetry.API
}

type Client struct {
	opts    Options
	http    *resty.Client
	cache   kvstore.Store
	limiter *ratelimit.Limiter
	time    chrono.API
	tel     telemetry.API
}

func New(opts Options, deps Deps) *Client {
	assert.NotEmptyStr(opts.Platform, "platform")
	assert.NotNil(deps.Cache, "cache")
	assert.NotNil(deps.Time, "time")
	assert.NotNil(deps.Tel, "telemetry")
	opts.applyDefaults()

	tel := telemetry.NewScopedAPI(opts.Platform, deps.Tel)

	client := resty.New()
	client.SetBaseURL(opts.BaseURL)
	client.SetTimeout(opts.Timeout)
	client.SetHeader("Accept", "application/json")
	client.SetHeader("User-Agent", "ticketscout/1.0")
	client.SetHeaders(opts.Headers)
	telemetry.InstrumentResty(client, tel, opts.Platform, string(tickets.LayerAPI))

	return &Client{
		opts:    opts,
		http:    client,
		cache:   deps.Cache,
		limiter: deps.Limiter,
		time:    deps.Time,
		tel:     tel,
	}
}

func (c *Client) Platform() string {
	return c.opts.Platform
}

// CacheKey is deterministic for a (client, method, endpoint, params) tuple,
// params are sorted before hashing.
func (c *Client) CacheKey(method, endpoint string, params map[string]string) string {
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	sum := sha256.Sum256([]byte(strings.Join([]string{
		c.opts.Platform,
		strings.ToUpper(method),
		endpoint,
		values.Encode(),
	}, "|")))
	return fmt.Sprintf("api:%s:%s", c.opts.Platform, hex.EncodeToString(sum[:]))
}

// Backoff is the wait after a failed attempt (1-indexed).
func (c *Client) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return c.opts.RetryDelay * time.Duration(1<<(attempt-1))
}

// Execute performs method on endpoint, retrying retryable failures with
// exponential backoff. With useCache a live cached payload is returned
// without touching the network. After the last attempt the last error is
// returned as is.
func (c *Client) Execute(ctx context.Context, method, endpoint string, params map[string]string, useCache bool) (json.RawMessage, error) {
	key := c.CacheKey(method, endpoint, params)
	if useCache {
		if payload, ok := c.cached(ctx, key); ok {
			return payload, nil
		}
	}

	var lastErr error
	for attempt := 1; attempt <= c.opts.RetryAttempts; attempt++ {
		if c.limiter != nil {
			c.limiter.Throttle(ctx, c.opts.Platform)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := c.time.Now()
		payload, err := c.do(ctx, method, endpoint, params)
		elapsed := c.time.Now().Sub(start)
		if err == nil {
			c.tel.ReportDebug(report_execute, method, endpoint, "attempt", attempt, "elapsed", elapsed.String())
			if useCache {
				c.store(ctx, key, payload)
			}
			return payload, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		lastErr = err
		c.tel.ReportWarning(report_execute_attempt, err, endpoint, attempt, elapsed.String())

		if attempt == c.opts.RetryAttempts || !tickets.IsRetryable(err) {
			break
		}
		if after, ok := tickets.RetryAfter(err); ok && after > 0 {
			if err := c.time.Sleep(ctx, after); err != nil {
				return nil, err
			}
		}
		if err := c.time.Sleep(ctx, c.Backoff(attempt)); err != nil {
			return nil, err
		}
	}

	c.tel.ReportBroken(report_execute, lastErr, method, endpoint)
	return nil, lastErr
}

// ExecuteInto is Execute followed by decoding the payload into out.
func (c *Client) ExecuteInto(ctx context.Context, method, endpoint string, params map[string]string, useCache bool, out any) error {
	payload, err := c.Execute(ctx, method, endpoint, params, useCache)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return &tickets.PlatformError{
			Source: c.source(),
			Status: http.StatusOK,
			Err:    fmt.Errorf("decode %s: %w", endpoint, err),
		}
	}
	return nil
}

func (c *Client) source() tickets.Source {
	return tickets.Source{Platform: c.opts.Platform, Layer: tickets.LayerAPI}
}

func (c *Client) cached(ctx context.Context, key string) (json.RawMessage, bool) {
	payload, err := c.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			c.tel.ReportWarning(report_cache, err)
		}
		telemetry.ObserveCache(c.opts.Platform, false)
		return nil, false
	}
	if !json.Valid(payload) {
		telemetry.ObserveCache(c.opts.Platform, false)
		return nil, false
	}
	telemetry.ObserveCache(c.opts.Platform, true)
	return json.RawMessage(payload), true
}

func (c *Client) store(ctx context.Context, key string, payload json.RawMessage) {
	if err := c.cache.Put(ctx, key, payload, c.opts.CacheTTL); err != nil {
		c.tel.ReportWarning(report_cache, err)
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, params map[string]string) (json.RawMessage, error) {
	req := c.http.R().SetContext(ctx)
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodDelete, http.MethodHead:
		req.SetQueryParams(params)
	default:
		req.SetHeader("Content-Type", "application/json")
		req.SetBody(params)
	}

	res, err := req.Execute(strings.ToUpper(method), endpoint)
	if err != nil {
		return nil, &tickets.TimeoutError{Source: c.source(), Err: err}
	}
	if err := c.classify(res, endpoint); err != nil {
		return nil, err
	}

	body := res.Body()
	if !json.Valid(body) {
		return nil, &tickets.PlatformError{
			Source: c.source(),
			Status: res.StatusCode(),
			Body:   restyutil.Truncate(string(body), 512),
			Err:    errInvalidJSON,
		}
	}
	return json.RawMessage(body), nil
}

func (c *Client) classify(res *resty.Response, endpoint string) error {
	status := res.StatusCode()
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		return &tickets.RateLimitError{
			Source:     c.source(),
			RetryAfter: restyutil.ParseRetryAfter(res.Header(), c.time.Now(), DefaultRateLimitRetryAfter, true),
		}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &tickets.AuthError{Source: c.source(), Status: status, Body: restyutil.Truncate(res.String(), 512)}
	case status == http.StatusNotFound:
		return &tickets.NotFoundError{Source: c.source(), Endpoint: endpoint}
	case status >= 500:
		return &tickets.ServerError{Source: c.source(), Status: status, Body: restyutil.Truncate(res.String(), 512)}
	default:
		return &tickets.PlatformError{Source: c.source(), Status: status, Body: restyutil.Truncate(res.String(), 512)}
	}
}

