// Package scraping is the browser-like HTML fetcher shared by every
// platform that has to fall back to reading web pages.
package scraping

import (
	"context"
	"crypto/tls"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"ticketscout/internal/components/assert"
	"ticketscout/internal/components/chrono"
	"ticketscout/internal/components/ratelimit"
	"ticketscout/internal/components/telemetry"
	"ticketscout/internal/tickets"
	"ticketscout/lib/restyutil"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/mazen160/go-random"
	"golang.org/x/net/publicsuffix"
)

const (
	report_fetch    = "scraper.fetch"
	report_delay    = "scraper.delay"
	report_bot      = "scraper.bot-detected"
	report_session  = "scraper.session"
	report_delaying = "scraper.widen-delay"
)

const (
	DefaultTimeout  = 30 * time.Second
	DefaultMinDelay = time.Second
	DefaultMaxDelay = 3 * time.Second

	// DefaultRateLimitRetryAfter applies to a scraped 429 without Retry-After.
	DefaultRateLimitRetryAfter = 300 * time.Second

	widenEvery   = 10
	minDelayStep = 500 * time.Millisecond
	maxDelayStep = time.Second
	minDelayCap  = 5 * time.Second
	maxDelayCap  = 10 * time.Second
)

type Options struct {
	Platform string
	BaseURL  string
	Timeout  time.Duration
	MinDelay time.Duration
	MaxDelay time.Duration
	// DisableBypass leaves the transport untouched, the cloudflare bypass
	// rewrites request headers so it is turned off in tests.
	DisableBypass bool
	UserAgents    []string
	// DumpDir captures every response into files when set.
	DumpDir string
}

func (o *Options) applyDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MinDelay <= 0 {
		o.MinDelay = DefaultMinDelay
	}
	if o.MaxDelay < o.MinDelay {
		o.MaxDelay = DefaultMaxDelay
		if o.MaxDelay < o.MinDelay {
			o.MaxDelay = o.MinDelay
		}
	}
	if len(o.UserAgents) == 0 {
		o.UserAgents = DefaultUserAgents
	}
}

// Deps are the shared collaborators of a Scraper, Limiter and Rand may be nil.
type Deps struct {
	Limiter *ratelimit.Limiter
	Time    chrono.API
	Tel     telemetry.API
	Rand    *rand.Rand
}

type FetchOptions struct {
	Referer string
	Headers map[string]string
	Query   url.Values
}

type Scraper struct {
	opts    Options
	http    *resty.Client
	limiter *ratelimit.Limiter
	time    chrono.API
	tel     telemetry.API
	session string

	mutex       sync.Mutex
	rand        *rand.Rand
	requests    int
	lastRequest time.Time
	minDelay    time.Duration
	maxDelay    time.Duration
}

func New(opts Options, deps Deps) (*Scraper, error) {
	assert.NotEmptyStr(opts.Platform, "platform")
	assert.NotNil(deps.Time, "time")
	assert.NotNil(deps.Tel, "telemetry")
	opts.applyDefaults()

	session, err := random.String(8)
	if err != nil {
		return nil, err
	}
	tel := telemetry.NewScopedAPI(opts.Platform, deps.Tel).Sub(session)

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseURL)
	client.SetTimeout(opts.Timeout)
	client.SetCookieJar(jar)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))

	if !opts.DisableBypass {
		transport, ok := client.GetClient().Transport.(*http.Transport)
		if ok {
			if transport.TLSClientConfig == nil {
				transport.TLSClientConfig = &tls.Config{}
			}
			transport.TLSClientConfig.InsecureSkipVerify = true
		}
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
		if ok && transport.TLSClientConfig != nil {
			transport.TLSClientConfig.InsecureSkipVerify = true
		}
	}

	telemetry.InstrumentResty(client, tel, opts.Platform, string(tickets.LayerScraping))
	if opts.DumpDir != "" {
		out, err := restyutil.NewFilesystemOutput(opts.DumpDir)
		if err != nil {
			return nil, err
		}
		restyutil.Dump(client, opts.Platform, out)
	}

	rnd := deps.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(deps.Time.Now().UnixNano()))
	}

	tel.ReportDebug(report_session, "base_url", opts.BaseURL)

	return &Scraper{
		opts:     opts,
		http:     client,
		limiter:  deps.Limiter,
		time:     deps.Time,
		tel:      tel,
		session:  session,
		rand:     rnd,
		minDelay: opts.MinDelay,
		maxDelay: opts.MaxDelay,
	}, nil
}

func (s *Scraper) Platform() string {
	return s.opts.Platform
}

// Session identifies this scraper's cookie session in logs.
func (s *Scraper) Session() string {
	return s.session
}

// BaseURL is the origin relative links of fetched pages resolve against.
func (s *Scraper) BaseURL() string {
	return s.opts.BaseURL
}

// Delays returns the current (min, max) inter-request delay.
func (s *Scraper) Delays() (time.Duration, time.Duration) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.minDelay, s.maxDelay
}

func (s *Scraper) source() tickets.Source {
	return tickets.Source{Platform: s.opts.Platform, Layer: tickets.LayerScraping}
}

// reserve claims the next request slot and returns how long to wait for it.
// Every widenEvery requests the delay window grows to look less regular.
func (s *Scraper) reserve() (time.Duration, string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.requests++
	if s.requests%widenEvery == 0 {
		s.minDelay = min(s.minDelay+minDelayStep, minDelayCap)
		s.maxDelay = min(s.maxDelay+maxDelayStep, maxDelayCap)
		if s.maxDelay < s.minDelay {
			s.maxDelay = s.minDelay
		}
		s.tel.ReportDebug(report_delaying, "min", s.minDelay.String(), "max", s.maxDelay.String())
	}

	userAgent := s.opts.UserAgents[s.rand.Intn(len(s.opts.UserAgents))]

	now := s.time.Now()
	if s.lastRequest.IsZero() {
		s.lastRequest = now
		return 0, userAgent
	}

	target := s.minDelay
	if spread := s.maxDelay - s.minDelay; spread > 0 {
		target += time.Duration(s.rand.Int63n(int64(spread) + 1))
	}
	wait := target - now.Sub(s.lastRequest)
	if wait < 0 {
		wait = 0
	}
	s.lastRequest = now.Add(wait)
	return wait, userAgent
}

// FetchPage GETs target (absolute, or relative to the base url) with browser
// headers and returns the decoded html. Challenge pages come back as
// *tickets.BotDetectedError.
func (s *Scraper) FetchPage(ctx context.Context, target string, opts FetchOptions) (string, error) {
	if s.limiter != nil {
		s.limiter.Throttle(ctx, s.opts.Platform)
	}

	wait, userAgent := s.reserve()
	if wait > 0 {
		s.tel.ReportDebug(report_delay, "wait", wait.String())
		if err := s.time.Sleep(ctx, wait); err != nil {
			return "", err
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	req := s.http.R().
		SetContext(ctx).
		SetHeaders(BrowserHeaders(userAgent, opts.Referer, opts.Headers))
	if len(opts.Query) > 0 {
		req.SetQueryParamsFromValues(opts.Query)
	}

	res, err := req.Get(target)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &tickets.TimeoutError{Source: s.source(), Err: err}
	}

	body := string(restyutil.DecodeBody(res))
	if err := s.classify(res, body); err != nil {
		s.tel.ReportWarning(report_fetch, err, target)
		return "", err
	}
	return body, nil
}

// FetchDocument is FetchPage parsed into a goquery document.
func (s *Scraper) FetchDocument(ctx context.Context, target string, opts FetchOptions) (*goquery.Document, error) {
	body, err := s.FetchPage(ctx, target, opts)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(body))
}

func (s *Scraper) botDetected(status int, pattern string) error {
	telemetry.ObserveBotDetection(s.opts.Platform)
	s.tel.ReportWarning(report_bot, "status", status, "pattern", pattern)
	return &tickets.BotDetectedError{Source: s.source(), Status: status, Pattern: pattern}
}

func (s *Scraper) classify(res *resty.Response, body string) error {
	status := res.StatusCode()
	switch {
	case status >= 200 && status < 300:
		if pattern, ok := DetectBot(body); ok {
			return s.botDetected(status, pattern)
		}
		return nil
	case status == http.StatusForbidden:
		if match := forbiddenSignature.FindString(body); match != "" {
			return s.botDetected(status, strings.ToLower(match))
		}
		return &tickets.PlatformError{Source: s.source(), Status: status, Body: restyutil.Truncate(body, 512)}
	case status == http.StatusTooManyRequests:
		return &tickets.RateLimitError{
			Source:     s.source(),
			RetryAfter: restyutil.ParseRetryAfter(res.Header(), s.time.Now(), DefaultRateLimitRetryAfter, false),
		}
	case status == http.StatusServiceUnavailable:
		return s.botDetected(status, "")
	default:
		return &tickets.PlatformError{Source: s.source(), Status: status, Body: restyutil.Truncate(body, 512)}
	}
}
