package scraping

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"ticketscout/internal/components/chrono"
	"ticketscout/internal/components/telemetry"
	"ticketscout/internal/tickets"
	"time"

	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

const normalPage = `<html><head><title>Events</title></head><body>
<div class="event-card"><h3>Coldplay</h3><a href="/e/1">Tickets</a></div>
<p>Plenty of ordinary content about the lineup, the support acts and the doors time.</p>
<p>More filler text describing the venue, the seating plan and the date of the show.</p>
<p>Even more filler text, this paragraph exists only to push the body over the size limit.</p>
<p>Yet another paragraph with an address, opening hours and some travel information.</p>
<p>And a final paragraph about refunds, delivery and what to bring on the day itself.</p>
</body></html>`

func newTestScraper(t *testing.T, handler http.HandlerFunc, opts Options) (*Scraper, *chrono.Fake, *telemetry.Recorder) {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	clock := chrono.NewFake(epoch)
	rec := &telemetry.Recorder{}
	if opts.Platform == "" {
		opts.Platform = "testsite"
	}
	opts.BaseURL = srv.URL
	opts.DisableBypass = true
	s, err := New(opts, Deps{
		Time: clock,
		Tel:  rec,
		Rand: rand.New(rand.NewSource(1)),
	})
	require.NoError(t, err)
	return s, clock, rec
}

func TestBrowserHeaders(t *testing.T) {
	var got http.Header
	s, _, _ := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(normalPage))
	}, Options{})

	body, err := s.FetchPage(context.Background(), "/search", FetchOptions{})
	require.NoError(t, err)
	require.Contains(t, body, "event-card")

	require.Contains(t, DefaultUserAgents, got.Get("User-Agent"))
	require.Equal(t, "en-US,en;q=0.9", got.Get("Accept-Language"))
	require.Equal(t, "1", got.Get("DNT"))
	require.Equal(t, "none", got.Get("Sec-Fetch-Site"))
	require.Equal(t, "navigate", got.Get("Sec-Fetch-Mode"))
	require.Equal(t, "?1", got.Get("Sec-Fetch-User"))
	require.Empty(t, got.Get("Referer"))
	require.Len(t, s.Session(), 8)
}

func TestRefererAndCustomHeaders(t *testing.T) {
	var got http.Header
	var query string
	s, _, _ := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		query = r.URL.RawQuery
		w.Write([]byte(normalPage))
	}, Options{})

	_, err := s.FetchPage(context.Background(), "/search", FetchOptions{
		Referer: "https://example.com/",
		Headers: map[string]string{"Accept-Language": "sk-SK,sk;q=0.9"},
		Query:   map[string][]string{"q": {"coldplay"}},
	})
	require.NoError(t, err)
	require.Equal(t, "https://example.com/", got.Get("Referer"))
	require.Equal(t, "same-origin", got.Get("Sec-Fetch-Site"))
	require.Equal(t, "sk-SK,sk;q=0.9", got.Get("Accept-Language"))
	require.Equal(t, "q=coldplay", query)
}

func TestDetectBot(t *testing.T) {
	pattern, ok := DetectBot(normalPage)
	require.False(t, ok, "fixture page matched %q", pattern)

	testCases := []struct {
		name string
		body string
		bot  bool
	}{
		{name: "normal page", body: normalPage},
		{name: "captcha", body: normalPage + "<div>Please complete the CAPTCHA</div>", bot: true},
		{name: "human check", body: normalPage + "<p>Please verify you are human</p>", bot: true},
		{name: "browser check", body: "<p>Checking your browser before accessing</p>", bot: true},
		{name: "short script page", body: "<html><script>window.location='/x'</script></html>", bot: true},
		{name: "short plain page", body: "<html><p>No events</p></html>"},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			_, ok := DetectBot(test.body)
			require.Equal(t, test.bot, ok)
		})
	}
}

func TestStatusClassification(t *testing.T) {
	testCases := []struct {
		name    string
		status  int
		body    string
		headers map[string]string
		check   func(t *testing.T, err error)
	}{
		{
			name:   "challenge on success",
			status: http.StatusOK,
			body:   normalPage + "Please verify you are human",
			check: func(t *testing.T, err error) {
				var bot *tickets.BotDetectedError
				require.ErrorAs(t, err, &bot)
				require.Equal(t, http.StatusOK, bot.Status)
				require.Equal(t, tickets.LayerScraping, bot.Layer)
			},
		},
		{
			name:   "forbidden with captcha",
			status: http.StatusForbidden,
			body:   "Blocked by Cloudflare",
			check: func(t *testing.T, err error) {
				require.True(t, tickets.IsBotDetected(err))
			},
		},
		{
			name:   "plain forbidden",
			status: http.StatusForbidden,
			body:   "no access to this resource",
			check: func(t *testing.T, err error) {
				var platformErr *tickets.PlatformError
				require.ErrorAs(t, err, &platformErr)
				require.Equal(t, http.StatusForbidden, platformErr.Status)
				require.False(t, tickets.IsBotDetected(err))
			},
		},
		{
			name:    "rate limited with header",
			status:  http.StatusTooManyRequests,
			headers: map[string]string{"Retry-After": "45"},
			check: func(t *testing.T, err error) {
				after, ok := tickets.RetryAfter(err)
				require.True(t, ok)
				require.Equal(t, 45*time.Second, after)
			},
		},
		{
			name:   "rate limited without header",
			status: http.StatusTooManyRequests,
			check: func(t *testing.T, err error) {
				after, ok := tickets.RetryAfter(err)
				require.True(t, ok)
				require.Equal(t, DefaultRateLimitRetryAfter, after)
			},
		},
		{
			name:   "service unavailable",
			status: http.StatusServiceUnavailable,
			check: func(t *testing.T, err error) {
				require.True(t, tickets.IsBotDetected(err))
			},
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   "oops",
			check: func(t *testing.T, err error) {
				var platformErr *tickets.PlatformError
				require.ErrorAs(t, err, &platformErr)
				require.Equal(t, "oops", platformErr.Body)
			},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			s, _, _ := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
				for k, v := range test.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(test.status)
				w.Write([]byte(test.body))
			}, Options{})

			_, err := s.FetchPage(context.Background(), "/", FetchOptions{})
			require.Error(t, err)
			test.check(t, err)
		})
	}
}

func TestBotDetectionIsReported(t *testing.T) {
	before := telemetry.BotDetectionCount("botreport")
	s, _, rec := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(normalPage + "unusual traffic from your network"))
	}, Options{Platform: "botreport"})

	_, err := s.FetchPage(context.Background(), "/", FetchOptions{})
	require.True(t, tickets.IsBotDetected(err))
	require.Equal(t, before+1, telemetry.BotDetectionCount("botreport"))
	require.True(t, rec.Has("warning", report_bot))
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	clock := chrono.NewFake(epoch)
	s, err := New(Options{Platform: "down", BaseURL: addr, DisableBypass: true}, Deps{
		Time: clock,
		Tel:  &telemetry.Recorder{},
	})
	require.NoError(t, err)

	_, err = s.FetchPage(context.Background(), "/", FetchOptions{})
	var timeout *tickets.TimeoutError
	require.ErrorAs(t, err, &timeout)
	require.True(t, tickets.IsRetryable(err))
}

func TestDelayBetweenRequests(t *testing.T) {
	s, clock, _ := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(normalPage))
	}, Options{MinDelay: time.Second, MaxDelay: time.Second})

	ctx := context.Background()
	for i := 0; i < 9; i++ {
		_, err := s.FetchPage(ctx, "/", FetchOptions{})
		require.NoError(t, err)
	}

	// first request goes out immediately, the rest wait the fixed delay
	sleeps := clock.Sleeps()
	require.Len(t, sleeps, 8)
	for _, d := range sleeps {
		require.Equal(t, time.Second, d)
	}

	minDelay, maxDelay := s.Delays()
	require.Equal(t, time.Second, minDelay)
	require.Equal(t, time.Second, maxDelay)

	_, err := s.FetchPage(ctx, "/", FetchOptions{})
	require.NoError(t, err)

	minDelay, maxDelay = s.Delays()
	require.Equal(t, 1500*time.Millisecond, minDelay)
	require.Equal(t, 2*time.Second, maxDelay)

	last := clock.Sleeps()[len(clock.Sleeps())-1]
	require.GreaterOrEqual(t, last, 1500*time.Millisecond)
	require.LessOrEqual(t, last, 2*time.Second)
}

func TestDelayAccountsForElapsedTime(t *testing.T) {
	s, clock, _ := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(normalPage))
	}, Options{MinDelay: 2 * time.Second, MaxDelay: 2 * time.Second})

	ctx := context.Background()
	_, err := s.FetchPage(ctx, "/", FetchOptions{})
	require.NoError(t, err)

	clock.Advance(5 * time.Second)
	_, err = s.FetchPage(ctx, "/", FetchOptions{})
	require.NoError(t, err)
	require.Empty(t, clock.Sleeps())
}

func TestDelayWideningIsCapped(t *testing.T) {
	s, _, _ := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(normalPage))
	}, Options{MinDelay: 4 * time.Second, MaxDelay: 9 * time.Second})

	for i := 0; i < 30; i++ {
		s.reserve()
	}
	minDelay, maxDelay := s.Delays()
	require.Equal(t, minDelayCap, minDelay)
	require.Equal(t, maxDelayCap, maxDelay)
}

func TestCookiesPersistAcrossRequests(t *testing.T) {
	var sawCookie bool
	s, _, _ := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err == nil && c.Value == "abc" {
			sawCookie = true
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		w.Write([]byte(normalPage))
	}, Options{})

	ctx := context.Background()
	_, err := s.FetchPage(ctx, "/first", FetchOptions{})
	require.NoError(t, err)
	_, err = s.FetchPage(ctx, "/second", FetchOptions{})
	require.NoError(t, err)
	require.True(t, sawCookie)
}

func TestCancelledContext(t *testing.T) {
	s, _, _ := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(normalPage))
	}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.FetchPage(ctx, "/", FetchOptions{})
	require.True(t, errors.Is(err, context.Canceled))
}

func TestFetchDocument(t *testing.T) {
	s, _, _ := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(normalPage))
	}, Options{})

	doc, err := s.FetchDocument(context.Background(), "/", FetchOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, doc.Find(".event-card").Length())
	require.Equal(t, "Coldplay", doc.Find(".event-card h3").Text())
}
