// Package ticketmaster scrapes ticketmaster.com search and event pages.
package ticketmaster

import (
	"regexp"
	"strings"
	"ticketscout/internal/adapter"
	"ticketscout/internal/config"
	"ticketscout/internal/tickets"

	"github.com/PuerkitoBio/goquery"
)

const (
	Name           = "ticketmaster"
	DefaultBaseURL = "https://www.ticketmaster.com"
)

var Statuses = tickets.CommonStatuses.Merge(tickets.StatusVocabulary{
	"buytickets":          tickets.StatusAvailable,
	"findtickets":         tickets.StatusAvailable,
	"limitedtickets":      tickets.StatusAvailable,
	"verifiedresale":      tickets.StatusAvailable,
	"ticketsnotavailable": tickets.StatusNotAvailable,
	"presalesoon":         tickets.StatusPresale,
	"on_presale":          tickets.StatusPresale,
	"canceled_event":      tickets.StatusCancelled,
})

func cardHook(raw *adapter.Raw, card *goquery.Selection) {
	// the resale badge only appears on cards with fan to fan listings
	if card.Find("[class*='resale'], [data-testid='resale-badge']").Length() > 0 {
		raw.Set("verified_resale", true)
	}
}

func transform(raw adapter.Raw, event *tickets.Event) {
	event.SetExtension(Name, "verified_resale", raw.Bool("verified_resale"))
	if raw.Category != "" {
		event.SetExtension(Name, "category", strings.TrimSpace(raw.Category))
	}
}

func Profile(baseURL string) adapter.Profile {
	return adapter.Profile{
		Platform:   Name,
		BaseURL:    baseURL,
		SearchPath: "/search",
		Params: adapter.Params{
			Query:    "q",
			City:     "loc",
			DateFrom: "startDate",
			DateTo:   "endDate",
			Category: "classificationId",
			Limit:    "size",
			Static:   map[string]string{"sort": "date,asc"},
		},
		DefaultLimit: 20,
		MaxLimit:     100,
		EventPath:    "/event/%s",
		Card: adapter.Selectors{
			Card: []string{
				"li[data-testid='event-list-item']",
				"div[class*='event-listing']",
				"article[class*='event']",
			},
			Name:     []string{"[data-testid='event-title']", "h3", "span[class*='event-name']"},
			Link:     []string{"a[href*='/event/']"},
			Date:     []string{"time", "[data-testid='event-date']", "span[class*='date']"},
			Venue:    []string{"[data-testid='event-venue']", "span[class*='venue']"},
			Location: []string{"[data-testid='event-location']", "span[class*='location']"},
			Price:    []string{"[class*='price']"},
			Status:   []string{"[data-testid='event-status']", "span[class*='status']"},
			Category: []string{"[data-testid='event-category']"},
		},
		Detail: adapter.DetailSelectors{
			Name:     []string{"h1", "title"},
			Date:     []string{"time", "[class*='event-date']"},
			Venue:    []string{"[class*='venue-name']", "[class*='venue']"},
			Location: []string{"[class*='location']", "address"},
			Status:   []string{"[class*='status']"},
			Listing:  []string{"[data-testid='listing']", "div[class*='offer-card']"},
		},
		Links:           []string{"a[href*='/event/']"},
		IDPattern:       regexp.MustCompile(`/event/([A-Za-z0-9]+)`),
		Statuses:        Statuses,
		Currency:        "USD",
		TitleSeparators: []string{" | "},
		TitleSuffixes:   []string{"Tickets"},
		Hooks: adapter.Hooks{
			Card:      cardHook,
			Country:   adapter.USCountryFromLocation,
			Transform: transform,
		},
	}
}

type Adapter struct {
	*adapter.ScrapeAdapter
}

func New(cfg config.Platform, deps adapter.Deps) (*Adapter, error) {
	a, err := adapter.BuildScrapeAdapter(Profile(cfg.BaseURLOr(DefaultBaseURL)), cfg, deps)
	if err != nil {
		return nil, err
	}
	return &Adapter{ScrapeAdapter: a}, nil
}
