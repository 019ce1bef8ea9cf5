// Package stubhub talks to the StubHub catalog api and falls back to
// scraping stubhub.com when the api is unavailable.
package stubhub

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"ticketscout/internal/adapter"
	"ticketscout/internal/components/apiclient"
	"ticketscout/internal/config"
	"ticketscout/internal/extract"
	"ticketscout/internal/tickets"
	"ticketscout/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

const (
	Name           = "stubhub"
	DefaultBaseURL = "https://www.stubhub.com"
	DefaultAPIURL  = "https://api.stubhub.com"

	searchEndpoint = "/sellers/search/events/v3"
	maxRows        = 100
	defaultRows    = 50
)

var Statuses = tickets.CommonStatuses.Merge(tickets.StatusVocabulary{
	"active":      tickets.StatusAvailable,
	"contingent":  tickets.StatusPresale,
	"completed":   tickets.StatusNotAvailable,
	"expired":     tickets.StatusNotAvailable,
	"deleted":     tickets.StatusNotAvailable,
	"rescheduled": tickets.StatusPostponed,
})

// Country resolves "Austin, TX" style locations, see
// adapter.USCountryFromLocation.
func Country(location string) string {
	return adapter.USCountryFromLocation(location)
}

// Headers are the credential headers of the catalog api.
func Headers(creds config.Credentials) map[string]string {
	out := map[string]string{}
	if creds.APIKey != "" {
		out["Authorization"] = "Bearer " + creds.APIKey
	}
	if creds.AppToken != "" {
		out["X-SH-Application-Token"] = creds.AppToken
	}
	return out
}

func Profile(baseURL string) adapter.Profile {
	return adapter.Profile{
		Platform:   Name,
		BaseURL:    baseURL,
		SearchPath: "/secure/search",
		Params: adapter.Params{
			Query:    "q",
			City:     "city",
			DateFrom: "start_date",
			DateTo:   "end_date",
			Limit:    "rows",
			Offset:   "start",
			Static:   map[string]string{"sort": "event_date_asc"},
		},
		DefaultLimit: defaultRows,
		MaxLimit:     maxRows,
		EventPath:    "/event/%s",
		Card: adapter.Selectors{
			Card:     []string{".EventCard", ".event-card", ".SearchResultCard", ".search-result"},
			Name:     []string{".event-name", "h3", "h4", ".title", "a"},
			Link:     []string{"a[href*='/event/']"},
			Date:     []string{".date", "time", ".event-date"},
			Venue:    []string{".venue", ".venue-name"},
			Location: []string{".location", ".city"},
			Price:    []string{".price", ".ticket-price", ".listing-price", "[data-price]"},
			Status:   []string{".status"},
		},
		Detail: adapter.DetailSelectors{
			Name:         []string{"h1[class*='event-title']", "h1", ".event-title", "title"},
			Date:         []string{"span[class*='event-date']", "div[class*='date']", "time"},
			Venue:        []string{".venue-name", "span[class*='venue']", "div[class*='venue']"},
			Location:     []string{"span[class*='location']", "address"},
			Description:  []string{"div[class*='description']", "div[class*='event-info']"},
			Listing:      []string{"div[class*='listing']"},
			ListingPrice: []string{"span[class*='price']"},
		},
		IDPattern:       regexp.MustCompile(`/event/(\d+)`),
		Statuses:        Statuses,
		Currency:        "USD",
		TitleSeparators: []string{"|"},
		Hooks: adapter.Hooks{
			Country:   Country,
			Detail:    detailHook,
			Transform: transform,
		},
	}
}

// detailHook replaces the flat listing prices with per section entries
// when the listings name their section.
func detailHook(raw *adapter.Raw, page *goquery.Selection) {
	var prices []tickets.PriceEntry
	zones := map[string]bool{}
	page.Find("div[class*='listing']").Each(func(_ int, listing *goquery.Selection) {
		entry, ok := extract.PriceFromText(htmlutil.Text(listing.Find("span[class*='price']").First()))
		if !ok {
			return
		}
		if entry.Currency == "" {
			entry.Currency = "USD"
		}
		if section := htmlutil.Text(listing.Find("[class*='section']").First()); section != "" {
			entry.Section = section
		}
		entry.Type = SectionType(entry.Section)
		if zone := htmlutil.Text(listing.Find("[class*='zone']").First()); zone != "" {
			zones[zone] = true
		}
		prices = append(prices, entry)
	})
	if len(prices) > 0 {
		raw.Prices = prices
	}
	if len(zones) > 0 {
		raw.Set("zones", sortedKeys(zones))
	}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func transform(raw adapter.Raw, event *tickets.Event) {
	zones, _ := raw.Field("zones")
	setExtensions(event, zones)
	if raw.Description != "" {
		event.SetExtension(Name, "description", raw.Description)
	}
}

// SectionType classifies a section by its name.
func SectionType(section string) string {
	section = strings.ToLower(section)
	switch {
	case strings.Contains(section, "vip") || strings.Contains(section, "premium"):
		return "premium"
	case strings.Contains(section, "floor") || strings.Contains(section, "pit"):
		return "floor"
	case strings.Contains(section, "upper") || strings.Contains(section, "balcony"):
		return "upper"
	case strings.Contains(section, "lower") || strings.Contains(section, "orchestra"):
		return "lower"
	}
	return "general"
}

type TicketClass struct {
	Class    string          `json:"class"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
}

type SectionMapping struct {
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	PriceMin decimal.Decimal `json:"price_min"`
	PriceMax decimal.Decimal `json:"price_max"`
}

// TicketClasses lists the distinct (section, price, currency) combinations.
func TicketClasses(prices []tickets.PriceEntry) []TicketClass {
	var out []TicketClass
	seen := map[string]bool{}
	for _, p := range prices {
		key := p.Section + "|" + p.Price.String() + "|" + p.Currency
		if p.Section == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, TicketClass{Class: p.Section, Price: p.Price, Currency: p.Currency})
	}
	return out
}

// Sections groups prices by section name with the price range of each.
func Sections(prices []tickets.PriceEntry) map[string]SectionMapping {
	out := map[string]SectionMapping{}
	for _, p := range prices {
		if p.Section == "" {
			continue
		}
		s, ok := out[p.Section]
		if !ok {
			out[p.Section] = SectionMapping{Name: p.Section, Type: SectionType(p.Section), PriceMin: p.Price, PriceMax: p.Price}
			continue
		}
		s.PriceMin = decimal.Min(s.PriceMin, p.Price)
		s.PriceMax = decimal.Max(s.PriceMax, p.Price)
		out[p.Section] = s
	}
	return out
}

func setExtensions(event *tickets.Event, zones any) {
	event.SetExtension(Name, "ticket_classes", TicketClasses(event.Prices))
	event.SetExtension(Name, "section_mappings", Sections(event.Prices))
	if zones != nil {
		event.SetExtension(Name, "zones", zones)
	}
	if event.AvailableListings != nil {
		event.SetExtension(Name, "listing_count", *event.AvailableListings)
	}
}

type apiVenue struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
}

type apiTicketInfo struct {
	MinPrice      decimal.NullDecimal `json:"minPrice"`
	MaxPrice      decimal.NullDecimal `json:"maxPrice"`
	TotalTickets  *int                `json:"totalTickets"`
	TotalListings *int                `json:"totalListings"`
	CurrencyCode  string              `json:"currencyCode"`
}

type apiEvent struct {
	ID             int64         `json:"id"`
	Name           string        `json:"name"`
	Status         string        `json:"status"`
	EventDateLocal string        `json:"eventDateLocal"`
	WebURI         string        `json:"webURI"`
	Venue          apiVenue      `json:"venue"`
	TicketInfo     apiTicketInfo `json:"ticketInfo"`
	Categories     []struct {
		Name string `json:"name"`
	} `json:"categories"`
}

type apiSearch struct {
	NumFound int        `json:"numFound"`
	Events   []apiEvent `json:"events"`
}

// eventDateLayouts are the timestamp formats seen in eventDateLocal.
var eventDateLayouts = []string{"2006-01-02T15:04:05-0700", "2006-01-02T15:04:05"}

func (a *Adapter) fromAPI(e apiEvent) tickets.Event {
	currency := e.TicketInfo.CurrencyCode
	if currency == "" {
		currency = "USD"
	}
	id := strconv.FormatInt(e.ID, 10)
	event := tickets.Event{
		ID:                id,
		Platform:          Name,
		Name:              strings.TrimSpace(e.Name),
		Venue:             e.Venue.Name,
		City:              e.Venue.City,
		Currency:          currency,
		TicketCount:       e.TicketInfo.TotalTickets,
		AvailableListings: e.TicketInfo.TotalListings,
	}

	region := e.Venue.Country
	if region == "" {
		region = e.Venue.State
	}
	event.Country = Country(strings.Join([]string{e.Venue.City, region}, ", "))

	switch {
	case e.WebURI != "":
		event.URL = extract.NormalizeURL(e.WebURI, a.baseURL)
	default:
		event.URL = extract.NormalizeURL(fmt.Sprintf("/event/%s", id), a.baseURL)
	}

	if parsed, ok := extract.ParseDate(e.EventDateLocal, eventDateLayouts...); ok {
		event.SetDateTime(parsed.Pointer(), parsed.HasTime)
	}

	for _, p := range []decimal.NullDecimal{e.TicketInfo.MinPrice, e.TicketInfo.MaxPrice} {
		if !p.Valid {
			continue
		}
		if len(event.Prices) == 1 && event.Prices[0].Price.Equal(p.Decimal) {
			continue
		}
		event.Prices = append(event.Prices, tickets.PriceEntry{Price: p.Decimal, Currency: currency, Section: "General"})
	}
	event.SetPriceRange()

	event.Status = Statuses.Map(e.Status)
	if event.Status == tickets.StatusUnknown {
		event.Status = adapter.DeriveStatus(event.Prices, event.TicketCount, event.AvailableListings)
	}
	if len(e.Categories) > 0 {
		event.SetExtension(Name, "category", e.Categories[0].Name)
	}
	if e.Venue.ID != 0 {
		event.SetExtension(Name, "venue_id", strconv.FormatInt(e.Venue.ID, 10))
	}
	setExtensions(&event, nil)
	event.ApplyDefaults(currency)
	return event
}

// SearchParams maps criteria onto the catalog search parameters.
func SearchParams(criteria tickets.SearchCriteria) map[string]string {
	rows := criteria.Limit(defaultRows, maxRows)
	params := map[string]string{
		"rows":  strconv.Itoa(rows),
		"start": strconv.Itoa(criteria.Offset(rows)),
	}
	if criteria.Query != "" {
		params["name"] = criteria.Query
	}
	if criteria.City != "" {
		params["city"] = criteria.City
	}
	if criteria.DateFrom != nil {
		params["minDate"] = criteria.DateFrom.Format(tickets.DateLayout)
	}
	if criteria.DateTo != nil {
		params["maxDate"] = criteria.DateTo.Format(tickets.DateLayout)
	}
	return params
}

type Adapter struct {
	*adapter.Hybrid
	baseURL string
	// searchAPI is false without an application token, search then goes
	// straight to the site.
	searchAPI bool
}

func New(cfg config.Platform, deps adapter.Deps) (*Adapter, error) {
	baseURL := cfg.BaseURLOr(DefaultBaseURL)

	var api *apiclient.Client
	if cfg.HasCredentials("api_key") {
		api = adapter.NewAPIClient(Name, cfg.APIURLOr(DefaultAPIURL), cfg, Headers(cfg.Credentials), deps)
	}
	var scrape *adapter.ScrapeAdapter
	if cfg.ScrapingEnabled() {
		var err error
		scrape, err = adapter.BuildScrapeAdapter(Profile(baseURL), cfg, deps)
		if err != nil {
			return nil, err
		}
	}
	return &Adapter{
		Hybrid:    adapter.NewHybrid(Name, api, scrape, deps.Tel),
		baseURL:   baseURL,
		searchAPI: cfg.HasCredentials("api_key", "app_token"),
	}, nil
}

func (a *Adapter) SearchEvents(ctx context.Context, criteria tickets.SearchCriteria) ([]tickets.Event, error) {
	var api func() ([]tickets.Event, error)
	if a.searchAPI {
		api = func() ([]tickets.Event, error) {
			var res apiSearch
			if err := a.API.ExecuteInto(ctx, http.MethodGet, searchEndpoint, SearchParams(criteria), true, &res); err != nil {
				return nil, err
			}
			events := make([]tickets.Event, 0, len(res.Events))
			for _, e := range res.Events {
				if event := a.fromAPI(e); event.Valid() {
					events = append(events, event)
				}
			}
			return events, nil
		}
	}
	return adapter.Fallback(ctx, a.Hybrid, "search-events", api, func(s *adapter.ScrapeAdapter) ([]tickets.Event, error) {
		return s.SearchEvents(ctx, criteria)
	})
}

func (a *Adapter) GetEvent(ctx context.Context, id string) (tickets.Event, error) {
	return adapter.Fallback(ctx, a.Hybrid, "get-event", func() (tickets.Event, error) {
		var res apiEvent
		endpoint := searchEndpoint + "/events/" + url.PathEscape(id)
		if err := a.API.ExecuteInto(ctx, http.MethodGet, endpoint, nil, true, &res); err != nil {
			return tickets.Event{}, err
		}
		return a.fromAPI(res), nil
	}, func(s *adapter.ScrapeAdapter) (tickets.Event, error) {
		return s.GetEvent(ctx, id)
	})
}

// GetEventTickets lists the prices of an event, per section when the event
// page names them.
func (a *Adapter) GetEventTickets(ctx context.Context, id string) ([]tickets.PriceEntry, error) {
	event, err := a.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.Prices == nil {
		return []tickets.PriceEntry{}, nil
	}
	return event.Prices, nil
}
