// Package eventbrite scrapes eventbrite.com discovery and event pages.
// Eventbrite lists a lot of free and online events, both are surfaced as
// extensions.
package eventbrite

import (
	"regexp"
	"strings"
	"ticketscout/internal/adapter"
	"ticketscout/internal/config"
	"ticketscout/internal/tickets"
	"ticketscout/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

const (
	Name           = "eventbrite"
	DefaultBaseURL = "https://www.eventbrite.com"
)

var Statuses = tickets.CommonStatuses.Merge(tickets.StatusVocabulary{
	"salesended":     tickets.StatusNotAvailable,
	"salesendsoon":   tickets.StatusAvailable,
	"almostfull":     tickets.StatusAvailable,
	"goingfast":      tickets.StatusAvailable,
	"salesstartsoon": tickets.StatusPresale,
	"unavailable":    tickets.StatusNotAvailable,
	"eventended":     tickets.StatusNotAvailable,
})

var freeMarker = regexp.MustCompile(`(?i)^\s*free\b`)

// IsOnline reports whether a location names an online event.
func IsOnline(location string) bool {
	l := strings.ToLower(location)
	return strings.Contains(l, "online") || strings.Contains(l, "virtual")
}

func markFree(raw *adapter.Raw, priceText, currency string) {
	if !freeMarker.MatchString(priceText) {
		return
	}
	raw.Set("is_free", true)
	if len(raw.Prices) == 0 {
		raw.Prices = []tickets.PriceEntry{{Price: decimal.Zero, Currency: currency, Type: "free"}}
	}
}

func cardHook(raw *adapter.Raw, card *goquery.Selection) {
	markFree(raw, htmlutil.Text(card.Find("[class*='price']").First()), "USD")
	if organizer := htmlutil.Text(card.Find("[class*='organizer']").First()); organizer != "" {
		raw.Set("organizer", organizer)
	}
}

func detailHook(raw *adapter.Raw, page *goquery.Selection) {
	markFree(raw, htmlutil.Text(page.Find("[class*='conversion-bar__panel-info'], [class*='ticket-price']").First()), "USD")
	if organizer := htmlutil.Text(page.Find("[class*='organizer-name'], [data-testid='organizer-name']").First()); organizer != "" {
		raw.Set("organizer", organizer)
	}
	if strings.Contains(strings.ToLower(htmlutil.Text(page.Find("[class*='sales-ended'], [class*='status']").First())), "sales ended") {
		raw.Canonical = tickets.StatusNotAvailable
	}
}

func transform(raw adapter.Raw, event *tickets.Event) {
	free := raw.Bool("is_free")
	event.SetExtension(Name, "is_free", free)
	if free && event.Status == tickets.StatusUnknown {
		event.Status = tickets.StatusAvailable
	}
	online := IsOnline(raw.Location) || IsOnline(raw.Venue)
	event.SetExtension(Name, "online_event", online)
	if online {
		event.City = "Online"
		event.Country = "Online"
	}
	if organizer, ok := raw.Field("organizer"); ok {
		event.SetExtension(Name, "organizer", organizer)
	}
}

func Profile(baseURL string) adapter.Profile {
	return adapter.Profile{
		Platform:   Name,
		BaseURL:    baseURL,
		SearchPath: "/d/events/",
		Params: adapter.Params{
			Query:    "q",
			City:     "location",
			DateFrom: "start_date",
			DateTo:   "end_date",
			Category: "category",
			Offset:   "page_offset",
		},
		DefaultLimit: 20,
		MaxLimit:     50,
		EventPath:    "/e/%s",
		Card: adapter.Selectors{
			Card: []string{
				"div[data-testid='search-event']",
				"article.eds-event-card",
				"div[class*='discover-search-desktop-card']",
			},
			Name:     []string{"h3", "h2", "[class*='event-card__title']"},
			Link:     []string{"a.event-card-link", "a[href*='/e/']"},
			Date:     []string{"time", "p[class*='date']", "[class*='event-card__date']"},
			Venue:    []string{"[class*='location-info__address-text']", "[class*='venue']"},
			Location: []string{"[class*='location']", "[class*='card-text--truncated']"},
			Price:    []string{"[class*='price']"},
			Status:   []string{"[class*='urgency']", "[class*='status']"},
			Category: []string{"[class*='category']"},
			Image:    []string{"img"},
		},
		Detail: adapter.DetailSelectors{
			Name:        []string{"h1", "title"},
			Date:        []string{"time", "[class*='date-info']"},
			Venue:       []string{"[class*='location-info__address-text']", "[class*='venue']"},
			Location:    []string{"[class*='location-info__address']", "address"},
			Description: []string{"[class*='summary']", "[class*='description']"},
			Listing:     []string{"[data-testid='ticket-card']", "[class*='ticket-card']"},
		},
		Links:           []string{"a[href*='/e/']"},
		IDPattern:       regexp.MustCompile(`-(\d{6,})(?:[/?#]|$)`),
		Statuses:        Statuses,
		Currency:        "USD",
		TitleSeparators: []string{" | "},
		TitleSuffixes:   []string{"Tickets"},
		Hooks: adapter.Hooks{
			Card:      cardHook,
			Detail:    detailHook,
			Transform: transform,
			Country:   adapter.USCountryFromLocation,
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
