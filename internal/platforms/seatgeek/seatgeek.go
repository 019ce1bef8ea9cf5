// Package seatgeek uses the SeatGeek platform api (client id auth) and
// scrapes seatgeek.com when the api cannot be used.
package seatgeek

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"ticketscout/internal/adapter"
	"ticketscout/internal/components/apiclient"
	"ticketscout/internal/config"
	"ticketscout/internal/extract"
	"ticketscout/internal/tickets"

	"github.com/shopspring/decimal"
)

const (
	Name           = "seatgeek"
	DefaultBaseURL = "https://seatgeek.com"
	DefaultAPIURL  = "https://api.seatgeek.com/2"

	defaultPerPage = 25
	maxPerPage     = 100
)

var Statuses = tickets.CommonStatuses.Merge(tickets.StatusVocabulary{
	"normal":  tickets.StatusAvailable,
	"ended":   tickets.StatusNotAvailable,
	"delayed": tickets.StatusPostponed,
})

var countries = map[string]string{
	"US": "United States",
	"CA": "Canada",
	"GB": "United Kingdom",
	"UK": "United Kingdom",
	"MX": "Mexico",
	"AU": "Australia",
}

// Country expands the iso codes the api returns.
func Country(code string) string {
	if c, ok := countries[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return c
	}
	return strings.TrimSpace(code)
}

type apiVenue struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Address         string `json:"address"`
	ExtendedAddress string `json:"extended_address"`
	City            string `json:"city"`
	State           string `json:"state"`
	Country         string `json:"country"`
	Capacity        int    `json:"capacity"`
	URL             string `json:"url"`
	Timezone        string `json:"timezone"`
}

type apiStats struct {
	ListingCount        *int                `json:"listing_count"`
	VisibleListingCount *int                `json:"visible_listing_count"`
	LowestPrice         decimal.NullDecimal `json:"lowest_price"`
	HighestPrice        decimal.NullDecimal `json:"highest_price"`
	AveragePrice        decimal.NullDecimal `json:"average_price"`
}

type apiEvent struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	Type          string   `json:"type"`
	Status        string   `json:"status"`
	DatetimeLocal string   `json:"datetime_local"`
	TimeTBD       bool     `json:"time_tbd"`
	DateTBD       bool     `json:"date_tbd"`
	URL           string   `json:"url"`
	Score         float64  `json:"score"`
	Venue         apiVenue `json:"venue"`
	Stats         apiStats `json:"stats"`
	Performers    []struct {
		Name string `json:"name"`
	} `json:"performers"`
}

type apiSearch struct {
	Events []apiEvent `json:"events"`
	Meta   struct {
		Total   int `json:"total"`
		Page    int `json:"page"`
		PerPage int `json:"per_page"`
	} `json:"meta"`
}

const datetimeLocal = "2006-01-02T15:04:05"

func fromAPI(e apiEvent) tickets.Event {
	event := tickets.Event{
		ID:                strconv.FormatInt(e.ID, 10),
		Platform:          Name,
		Name:              strings.TrimSpace(e.Title),
		Venue:             e.Venue.Name,
		City:              e.Venue.City,
		Country:           Country(e.Venue.Country),
		URL:               e.URL,
		Currency:          "USD",
		AvailableListings: e.Stats.ListingCount,
	}
	if e.Stats.VisibleListingCount != nil {
		event.TicketCount = e.Stats.VisibleListingCount
	}

	if !e.DateTBD {
		if parsed, ok := extract.ParseDate(e.DatetimeLocal, datetimeLocal); ok {
			event.SetDateTime(parsed.Pointer(), parsed.HasTime && !e.TimeTBD)
		}
	}

	for _, p := range []decimal.NullDecimal{e.Stats.LowestPrice, e.Stats.HighestPrice} {
		if !p.Valid {
			continue
		}
		if len(event.Prices) == 1 && event.Prices[0].Price.Equal(p.Decimal) {
			continue
		}
		event.Prices = append(event.Prices, tickets.PriceEntry{Price: p.Decimal, Currency: "USD", Section: "General"})
	}
	event.SetPriceRange()

	event.Status = Statuses.Map(e.Status)
	switch {
	case event.Status == tickets.StatusUnknown:
		event.Status = adapter.DeriveStatus(event.Prices, event.TicketCount, event.AvailableListings)
	case event.Status == tickets.StatusAvailable && event.TicketCount != nil && *event.TicketCount == 0:
		// "normal" only says the event is on
		event.Status = tickets.StatusSoldOut
	}

	if e.Type != "" {
		event.SetExtension(Name, "type", e.Type)
	}
	if e.Score > 0 {
		event.SetExtension(Name, "score", e.Score)
	}
	if e.Stats.AveragePrice.Valid {
		event.SetExtension(Name, "average_price", e.Stats.AveragePrice.Decimal)
	}
	if len(e.Performers) > 0 {
		names := make([]string, 0, len(e.Performers))
		for _, p := range e.Performers {
			names = append(names, p.Name)
		}
		event.SetExtension(Name, "performers", names)
	}
	event.ApplyDefaults("USD")
	return event
}

func venueFromAPI(v apiVenue) tickets.Venue {
	venue := tickets.Venue{
		ID:       strconv.FormatInt(v.ID, 10),
		Platform: Name,
		Name:     v.Name,
		Address:  strings.TrimSpace(strings.Join([]string{v.Address, v.ExtendedAddress}, ", ")),
		City:     v.City,
		Country:  Country(v.Country),
		URL:      v.URL,
	}
	venue.Address = strings.Trim(venue.Address, ", ")
	if v.Capacity > 0 {
		capacity := v.Capacity
		venue.Capacity = &capacity
	}
	if v.Timezone != "" {
		venue.Extensions = map[string]map[string]any{Name: {"timezone": v.Timezone, "state": v.State}}
	}
	if venue.Name == "" {
		venue.Name = tickets.UnknownVenue
	}
	if venue.City == "" {
		venue.City = tickets.UnknownCity
	}
	if venue.Country == "" {
		venue.Country = tickets.UnknownCountry
	}
	return venue
}

// SearchParams maps criteria onto the /events query.
func SearchParams(clientID string, criteria tickets.SearchCriteria) map[string]string {
	perPage := criteria.Limit(defaultPerPage, maxPerPage)
	page := criteria.Page
	if page < 1 {
		page = 1
	}
	params := map[string]string{
		"client_id": clientID,
		"per_page":  strconv.Itoa(perPage),
		"page":      strconv.Itoa(page),
		"sort":      "datetime_local.asc",
	}
	if criteria.Query != "" {
		params["q"] = criteria.Query
	}
	if criteria.City != "" {
		params["venue.city"] = criteria.City
	}
	if criteria.Category != "" {
		params["taxonomies.name"] = criteria.Category
	}
	if criteria.DateFrom != nil {
		params["datetime_local.gte"] = criteria.DateFrom.Format(tickets.DateLayout)
	}
	if criteria.DateTo != nil {
		params["datetime_local.lte"] = criteria.DateTo.Format(tickets.DateLayout)
	}
	return params
}

func Profile(baseURL string) adapter.Profile {
	return adapter.Profile{
		Platform:   Name,
		BaseURL:    baseURL,
		SearchPath: "/search",
		Params: adapter.Params{
			Query: "search",
			City:  "city",
		},
		DefaultLimit: defaultPerPage,
		MaxLimit:     maxPerPage,
		EventPath:    "/e/events/%s",
		Card: adapter.Selectors{
			Card: []string{
				"[data-testid='event-item']",
				"li[class*='EventItem']",
				"div[class*='event-listing']",
				"article[class*='event']",
			},
			Name:     []string{"[data-testid='event-item-title']", "h3", "h2", "[class*='title']"},
			Link:     []string{"a[href*='/concert/']", "a[href*='/sports/']", "a[href*='/theater/']", "a[href]"},
			Date:     []string{"time", "[class*='date']"},
			Venue:    []string{"[data-testid='event-item-venue']", "[class*='venue']"},
			Location: []string{"[class*='location']", "[class*='city']"},
			Price:    []string{"[class*='price']"},
		},
		Detail: adapter.DetailSelectors{
			Name:     []string{"h1", "title"},
			Date:     []string{"time", "[class*='event-date']"},
			Venue:    []string{"[class*='venue-name']", "[class*='venue']"},
			Location: []string{"[class*='location']", "address"},
			Listing:  []string{"[data-testid='listing']", "div[class*='listing']"},
		},
		IDPattern:       regexp.MustCompile(`/(\d{4,})(?:[/?#]|$)`),
		Statuses:        Statuses,
		Currency:        "USD",
		Country:         "United States",
		TitleSeparators: []string{" | ", " - SeatGeek"},
		TitleSuffixes:   []string{"Tickets"},
	}
}

type Adapter struct {
	*adapter.Hybrid
	clientID string
}

func New(cfg config.Platform, deps adapter.Deps) (*Adapter, error) {
	var api *apiclient.Client
	if cfg.HasCredentials("client_id") {
		api = adapter.NewAPIClient(Name, cfg.APIURLOr(DefaultAPIURL), cfg, nil, deps)
	}
	var scrape *adapter.ScrapeAdapter
	if cfg.ScrapingEnabled() {
		var err error
		scrape, err = adapter.BuildScrapeAdapter(Profile(cfg.BaseURLOr(DefaultBaseURL)), cfg, deps)
		if err != nil {
			return nil, err
		}
	}
	return &Adapter{
		Hybrid:   adapter.NewHybrid(Name, api, scrape, deps.Tel),
		clientID: cfg.ClientID,
	}, nil
}

func (a *Adapter) auth() map[string]string {
	return map[string]string{"client_id": a.clientID}
}

func (a *Adapter) SearchEvents(ctx context.Context, criteria tickets.SearchCriteria) ([]tickets.Event, error) {
	return adapter.Fallback(ctx, a.Hybrid, "search-events", func() ([]tickets.Event, error) {
		var res apiSearch
		if err := a.API.ExecuteInto(ctx, http.MethodGet, "/events", SearchParams(a.clientID, criteria), true, &res); err != nil {
			return nil, err
		}
		events := make([]tickets.Event, 0, len(res.Events))
		for _, e := range res.Events {
			if event := fromAPI(e); event.Valid() {
				events = append(events, event)
			}
		}
		return events, nil
	}, func(s *adapter.ScrapeAdapter) ([]tickets.Event, error) {
		return s.SearchEvents(ctx, criteria)
	})
}

func (a *Adapter) GetEvent(ctx context.Context, id string) (tickets.Event, error) {
	return adapter.Fallback(ctx, a.Hybrid, "get-event", func() (tickets.Event, error) {
		var res apiEvent
		if err := a.API.ExecuteInto(ctx, http.MethodGet, "/events/"+url.PathEscape(id), a.auth(), true, &res); err != nil {
			return tickets.Event{}, err
		}
		return fromAPI(res), nil
	}, func(s *adapter.ScrapeAdapter) (tickets.Event, error) {
		return s.GetEvent(ctx, id)
	})
}

// GetVenue reads /venues/{id}, the site has no venue pages worth scraping.
func (a *Adapter) GetVenue(ctx context.Context, id string) (tickets.Venue, error) {
	return adapter.Fallback(ctx, a.Hybrid, "get-venue", func() (tickets.Venue, error) {
		var res apiVenue
		if err := a.API.ExecuteInto(ctx, http.MethodGet, "/venues/"+url.PathEscape(id), a.auth(), true, &res); err != nil {
			return tickets.Venue{}, err
		}
		return venueFromAPI(res), nil
	}, func(s *adapter.ScrapeAdapter) (tickets.Venue, error) {
		return s.GetVenue(ctx, id)
	})
}
