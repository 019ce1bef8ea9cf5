// Package adapter defines the surface every ticket platform exposes and the
// generic, profile driven scrape engine most of them are built from.
package adapter

import (
	"context"
	"fmt"
	"math/rand"
	"ticketscout/internal/components/apiclient"
	"ticketscout/internal/components/chrono"
	"ticketscout/internal/components/kvstore"
	"ticketscout/internal/components/ratelimit"
	"ticketscout/internal/components/scraping"
	"ticketscout/internal/components/telemetry"
	"ticketscout/internal/config"
	"ticketscout/internal/tickets"
)

const (
	report_search  = "search-events"
	report_event   = "get-event"
	report_venue   = "get-venue"
	report_tickets = "get-event-tickets"
)

// Adapter is a single ticket platform.
//
// Scrape backed methods never fail for upstream problems, a failure is
// reported through telemetry and looks like an empty result. The only
// errors they return are context cancellations.
type Adapter interface {
	Name() string
	SearchEvents(ctx context.Context, criteria tickets.SearchCriteria) ([]tickets.Event, error)
	GetEvent(ctx context.Context, id string) (tickets.Event, error)
	GetVenue(ctx context.Context, id string) (tickets.Venue, error)
}

// TicketLister is implemented by platforms that expose per-listing prices
// of an event.
type TicketLister interface {
	GetEventTickets(ctx context.Context, id string) ([]tickets.PriceEntry, error)
}

// Deps are the process wide collaborators shared by every adapter.
type Deps struct {
	Cache   kvstore.Store
	Limiter *ratelimit.Limiter
	Time    chrono.API
	Tel     telemetry.API
	// Rand seeds user agent and delay choices, nil uses a clock seeded source.
	Rand *rand.Rand
}

// NewScraper builds the anti-detection transport for profile.
func NewScraper(profile Profile, cfg config.Platform, deps Deps) (*scraping.Scraper, error) {
	return scraping.New(scraping.Options{
		Platform:      profile.Platform,
		BaseURL:       profile.BaseURL,
		Timeout:       cfg.Timeout(),
		MinDelay:      cfg.MinDelay(),
		MaxDelay:      cfg.MaxDelay(),
		DisableBypass: cfg.Scraping.DisableBypass,
		DumpDir:       cfg.Scraping.DumpDir,
	}, scraping.Deps{
		Limiter: deps.Limiter,
		Time:    deps.Time,
		Tel:     deps.Tel,
		Rand:    deps.Rand,
	})
}

// NewAPIClient builds the retrying JSON transport of a platform.
func NewAPIClient(platform, baseURL string, cfg config.Platform, headers map[string]string, deps Deps) *apiclient.Client {
	return apiclient.New(apiclient.Options{
		Platform:      platform,
		BaseURL:       baseURL,
		Timeout:       cfg.Timeout(),
		RetryAttempts: cfg.RetryAttempts,
		RetryDelay:    cfg.RetryDelay(),
		CacheTTL:      cfg.CacheTTL(),
		Headers:       headers,
	}, apiclient.Deps{
		Cache:   deps.Cache,
		Limiter: deps.Limiter,
		Time:    deps.Time,
		Tel:     deps.Tel,
	})
}

// Guard runs fn at an adapter method boundary. Errors and panics are
// reported, counted as extraction failures and turned into the zero value.
// Context cancellation is the exception and is returned as is.
func Guard[T any](ctx context.Context, tel telemetry.API, platform, op string, fn func() (T, error)) (out T, err error) {
	var zero T
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		tel.ReportBroken(op, fmt.Errorf("panic: %v", r))
		telemetry.ObserveExtractionFailure(platform, op)
		out, err = zero, ctx.Err()
	}()

	out, err = fn()
	if err == nil {
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return zero, ctxErr
	}
	tel.ReportBroken(op, err)
	telemetry.ObserveExtractionFailure(platform, op)
	return zero, nil
}

// GuardList is Guard for list results, a swallowed failure yields an empty
// (non nil) slice.
func GuardList[T any](ctx context.Context, tel telemetry.API, platform, op string, fn func() ([]T, error)) ([]T, error) {
	out, err := Guard(ctx, tel, platform, op, fn)
	if out == nil && err == nil {
		out = []T{}
	}
	return out, err
}
