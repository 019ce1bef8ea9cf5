// Package axs scrapes axs.com.
package axs

import (
	"regexp"
	"strings"
	"ticketscout/internal/adapter"
	"ticketscout/internal/config"
	"ticketscout/internal/tickets"
	"ticketscout/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	Name           = "axs"
	DefaultBaseURL = "https://www.axs.com"
)

var Statuses = tickets.CommonStatuses.Merge(tickets.StatusVocabulary{
	"buytickets":       tickets.StatusAvailable,
	"onsale":           tickets.StatusAvailable,
	"resaleonly":       tickets.StatusAvailable,
	"comingsoon":       tickets.StatusPresale,
	"onsalesoon":       tickets.StatusPresale,
	"offsale":          tickets.StatusNotAvailable,
	"noticketsonsale":  tickets.StatusNotAvailable,
	"eventrescheduled": tickets.StatusPostponed,
})

// resale and mobile entry markers as printed on cards and event pages
var (
	resaleMarkers = []string{"official resale", "axs resale"}
	mobileMarkers = []string{"mobile id", "flash seats", "mobile entry"}
)

func hasAny(text string, markers []string) bool {
	text = strings.ToLower(text)
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

func flags(raw *adapter.Raw, text string) {
	raw.Set("official_resale", hasAny(text, resaleMarkers))
	raw.Set("mobile_entry", hasAny(text, mobileMarkers))
}

func cardHook(raw *adapter.Raw, card *goquery.Selection) {
	flags(raw, htmlutil.Text(card))
}

func detailHook(raw *adapter.Raw, page *goquery.Selection) {
	flags(raw, htmlutil.Text(page.Find("body")))
	if presenter := htmlutil.Text(page.Find("[class*='presented-by'], [class*='promoter']").First()); presenter != "" {
		raw.Set("presented_by", strings.TrimSpace(strings.TrimPrefix(presenter, "Presented by")))
	}
}

func transform(raw adapter.Raw, event *tickets.Event) {
	event.SetExtension(Name, "official_resale", raw.Bool("official_resale"))
	event.SetExtension(Name, "mobile_entry", raw.Bool("mobile_entry"))
	if presenter, ok := raw.Field("presented_by"); ok {
		event.SetExtension(Name, "presented_by", presenter)
	}
}

func Profile(baseURL string) adapter.Profile {
	return adapter.Profile{
		Platform:   Name,
		BaseURL:    baseURL,
		SearchPath: "/search",
		Params: adapter.Params{
			Query:    "q",
			City:     "location",
			DateFrom: "start_date",
			DateTo:   "end_date",
			Limit:    "per_page",
			Offset:   "offset",
		},
		DefaultLimit: 24,
		MaxLimit:     96,
		EventPath:    "/events/%s",
		Card: adapter.Selectors{
			Card:     []string{"div.c-search-result", "li[class*='event-item']", "div[class*='event-card']"},
			Name:     []string{"[class*='headliner']", "h3", "h2"},
			Link:     []string{"a[href*='/events/']"},
			Date:     []string{"time", "[class*='date']"},
			Venue:    []string{"[class*='venue']"},
			Location: []string{"[class*='city']", "[class*='location']"},
			Price:    []string{"[class*='price']"},
			Status:   []string{"[class*='cta']", "[class*='status']"},
		},
		Detail: adapter.DetailSelectors{
			Name:     []string{"h1", "title"},
			Date:     []string{"time", "[class*='event-date']"},
			Venue:    []string{"[class*='venue-name']", "[class*='venue']"},
			Location: []string{"[class*='venue-location']", "[class*='location']"},
			Status:   []string{"[class*='ticket-status']", "[class*='cta']"},
			Listing:  []string{"[class*='price-level']", "[class*='offer']"},
		},
		Links:           []string{"a[href*='/events/']"},
		IDPattern:       regexp.MustCompile(`/events/(\d+)`),
		Statuses:        Statuses,
		Currency:        "USD",
		TitleSeparators: []string{" | ", " - AXS"},
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
