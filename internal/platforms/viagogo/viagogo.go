// Package viagogo scrapes the viagogo resale marketplace.
package viagogo

import (
	"regexp"
	"strings"
	"ticketscout/internal/adapter"
	"ticketscout/internal/config"
	"ticketscout/internal/tickets"
)

const (
	Name           = "viagogo"
	DefaultBaseURL = "https://www.viagogo.com"
)

var defaultCoverage = map[string]any{
	"authenticity":       "Guaranteed authentic tickets",
	"delivery":           "Guaranteed delivery or full refund",
	"event_cancellation": "Full refund if event is cancelled",
	"replacement":        "Replacement tickets if there are issues",
}

// GuaranteeInfo describes the buyer guarantee attached to every listing,
// refined by what the event description mentions.
func GuaranteeInfo(description string) map[string]any {
	coverage := make(map[string]any, len(defaultCoverage)+1)
	for k, v := range defaultCoverage {
		coverage[k] = v
	}
	info := map[string]any{
		"has_guarantee":  true,
		"guarantee_type": "full_guarantee",
		"coverage":       coverage,
	}

	description = strings.ToLower(description)
	if strings.Contains(description, "100% guarantee") {
		info["guarantee_type"] = "100_percent_guarantee"
	}
	if strings.Contains(description, "instant download") {
		coverage["instant_download"] = "Instant download available"
	}
	return info
}

var locationWords = regexp.MustCompile(`[a-z]+`)

// Currency picks the currency from the printed location when no price
// carried one.
func Currency(location string) string {
	location = strings.ToLower(location)
	if strings.Contains(location, "united kingdom") {
		return "GBP"
	}
	if strings.Contains(location, "united states") {
		return "USD"
	}
	if strings.Contains(location, "canada") {
		return "CAD"
	}
	for _, word := range locationWords.FindAllString(location, -1) {
		switch word {
		case "uk", "gb", "england", "scotland":
			return "GBP"
		case "us", "usa":
			return "USD"
		}
	}
	return ""
}

func Profile(baseURL string) adapter.Profile {
	return adapter.Profile{
		Platform:   Name,
		BaseURL:    baseURL,
		SearchPath: "/secure/search",
		Params: adapter.Params{
			Query:    "SearchTerm",
			City:     "Location",
			DateFrom: "FromDate",
			DateTo:   "ToDate",
			Limit:    "PageSize",
			Static:   map[string]string{"Sort": "EventDate"},
		},
		DefaultLimit: 25,
		MaxLimit:     50,
		EventPath:    "/event/%s",
		Card: adapter.Selectors{
			Card: []string{
				"div[class*='event-card']",
				"div[class*='search-result']",
				"article[class*='event']",
				"div[class*='listing-item']",
			},
			Name: []string{"h2", "h3", "h4", "span[class*='title']", "a[class*='event-title']"},
			Link: []string{"a[href*='/event/']", "a[href*='/tickets/']"},
			Date: []string{"time", "span[class*='date']", "div[class*='date']"},
			Venue: []string{
				"span[class*='venue']",
				"div[class*='venue']",
				"p[class*='venue']",
			},
			Location: []string{
				"span[class*='location']",
				"div[class*='city']",
				"span[class*='city']",
			},
			Price: []string{"span[class*='price']", "div[class*='price']"},
			TicketCount: []string{
				"span[class*='available']",
				"span:contains('ticket')",
				"span:contains('listing')",
			},
			Category: []string{"span[class*='category']"},
		},
		Detail: adapter.DetailSelectors{
			Name:  []string{"h1", "title"},
			Date:  []string{"span[class*='event-date']", "div[class*='date']", "time"},
			Venue: []string{"span[class*='venue']", "div[class*='venue']", "h2[class*='venue']"},
			Location: []string{
				"span[class*='location']",
				"address",
				"div[class*='city']",
			},
			Description: []string{
				"div[class*='description']",
				"div[class*='event-info']",
				"section[class*='about']",
			},
			Category:     []string{"span[class*='category']", "div[class*='genre']"},
			Listing:      []string{"div[class*='listing']", "div[class*='ticket-row']", "tr[class*='ticket']"},
			ListingPrice: []string{"[class*='price']"},
		},
		Links:     []string{"a[href*='/event/']"},
		IDPattern: regexp.MustCompile(`/(?:event|e)-?(\d+)`),
		Statuses:  tickets.CommonStatuses,
		Currency:  "EUR",
		DateLayouts: []string{
			"2 Jan 2006, 15:04",
			"2 January 2006, 15:04",
			"Jan 2, 2006 15:04",
			"January 2, 2006 15:04",
		},
		TitleSeparators: []string{"|"},
		Hooks: adapter.Hooks{
			Currency: func(raw adapter.Raw) string {
				for _, p := range raw.Prices {
					if p.Currency != "" {
						return p.Currency
					}
				}
				return Currency(raw.Location)
			},
			Transform: func(raw adapter.Raw, event *tickets.Event) {
				event.SetExtension(Name, "guarantee_info", GuaranteeInfo(raw.Description))
				if raw.Category != "" {
					event.SetExtension(Name, "category", raw.Category)
				}
			},
		},
	}
}

// Adapter scrapes viagogo, it has no venue pages.
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
