package adapter

import (
	"context"
	"ticketscout/internal/components/telemetry"
	"ticketscout/internal/config"
	"ticketscout/internal/tickets"
)

// ScrapeAdapter is an Adapter backed only by a ScrapeEngine, every method
// degrades to an empty result on failure.
type ScrapeAdapter struct {
	*ScrapeEngine
}

func NewScrapeAdapter(engine *ScrapeEngine) *ScrapeAdapter {
	return &ScrapeAdapter{ScrapeEngine: engine}
}

// BuildScrapeAdapter wires a scraper and an engine for profile.
func BuildScrapeAdapter(profile Profile, cfg config.Platform, deps Deps) (*ScrapeAdapter, error) {
	scraper, err := NewScraper(profile, cfg, deps)
	if err != nil {
		return nil, err
	}
	return NewScrapeAdapter(NewScrapeEngine(profile, scraper, deps.Tel)), nil
}

func (a *ScrapeAdapter) Name() string {
	return a.Platform()
}

func (a *ScrapeAdapter) Telemetry() telemetry.API {
	return a.tel
}

func (a *ScrapeAdapter) SearchEvents(ctx context.Context, criteria tickets.SearchCriteria) ([]tickets.Event, error) {
	return GuardList(ctx, a.tel, a.Platform(), report_search, func() ([]tickets.Event, error) {
		return a.Search(ctx, criteria)
	})
}

func (a *ScrapeAdapter) GetEvent(ctx context.Context, id string) (tickets.Event, error) {
	return Guard(ctx, a.tel, a.Platform(), report_event, func() (tickets.Event, error) {
		return a.Event(ctx, id)
	})
}

func (a *ScrapeAdapter) GetVenue(ctx context.Context, id string) (tickets.Venue, error) {
	return Guard(ctx, a.tel, a.Platform(), report_venue, func() (tickets.Venue, error) {
		return a.Venue(ctx, id)
	})
}

func (a *ScrapeAdapter) GetEventTickets(ctx context.Context, id string) ([]tickets.PriceEntry, error) {
	return GuardList(ctx, a.tel, a.Platform(), report_tickets, func() ([]tickets.PriceEntry, error) {
		return a.EventTickets(ctx, id)
	})
}
