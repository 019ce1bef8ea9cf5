package adapter

import (
	"context"
	"errors"
	"ticketscout/internal/components/apiclient"
	"ticketscout/internal/components/telemetry"
	"ticketscout/internal/tickets"
)

const report_api_fallback = "api-fallback"

// ErrNoTransport is returned by hybrid platforms that have neither api
// credentials nor scraping enabled.
var ErrNoTransport = errors.New("no api credentials and scraping is disabled")

// Hybrid is the base of platforms with an official api and a scraped site.
// API is nil without credentials, Scrape is nil when scraping is disabled.
type Hybrid struct {
	API    *apiclient.Client
	Scrape *ScrapeAdapter

	platform string
	tel      telemetry.API
}

func NewHybrid(platform string, api *apiclient.Client, scrape *ScrapeAdapter, tel telemetry.API) *Hybrid {
	return &Hybrid{
		API:      api,
		Scrape:   scrape,
		platform: platform,
		tel:      telemetry.NewScopedAPI(platform, tel),
	}
}

func (h *Hybrid) Name() string {
	return h.platform
}

// Fallback tries the api call first (when credentials exist and api is not
// nil) and falls back to the scraped call on any api failure. Without
// scraping the typed api error is returned to the caller.
func Fallback[T any](ctx context.Context, h *Hybrid, op string, api func() (T, error), scrape func(*ScrapeAdapter) (T, error)) (T, error) {
	var zero T
	if h.API != nil && api != nil {
		out, err := api()
		if err == nil {
			return out, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		if h.Scrape == nil {
			return zero, err
		}
		h.tel.ReportWarning(report_api_fallback, err, op)
	}
	if h.Scrape == nil {
		return zero, ErrNoTransport
	}
	return scrape(h.Scrape)
}

// GetVenue has no api counterpart on the hybrid platforms.
func (h *Hybrid) GetVenue(_ context.Context, id string) (tickets.Venue, error) {
	return tickets.UnknownVenueRecord(h.platform, id), nil
}
