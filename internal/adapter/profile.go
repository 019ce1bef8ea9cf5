package adapter

import (
	"regexp"
	"ticketscout/internal/extract"
	"ticketscout/internal/tickets"

	"github.com/PuerkitoBio/goquery"
	"github.com/goccy/go-json"
)

// Params names the query parameters of a platform's search page. Empty
// names are not sent.
type Params struct {
	Query    string
	City     string
	Venue    string
	Category string
	DateFrom string
	DateTo   string
	Limit    string
	Offset   string
	// DateLayout formats DateFrom and DateTo, tickets.DateLayout by default.
	DateLayout string
	// Static params are sent with every search, ex. sort=date.
	Static map[string]string
}

// Selectors are the ordered selector cascades of a search result card.
type Selectors struct {
	Card        []string
	Name        []string
	Link        []string
	Date        []string
	Time        []string
	Venue       []string
	Location    []string
	Price       []string
	Status      []string
	TicketCount []string
	Category    []string
	Image       []string
}

// DetailSelectors are the cascades of an event page.
type DetailSelectors struct {
	Name        []string
	Date        []string
	Time        []string
	Venue       []string
	Location    []string
	Description []string
	Category    []string
	Status      []string
	Image       []string
	// Listing matches one node per ticket listing, ListingPrice is looked up
	// inside each of them.
	Listing      []string
	ListingPrice []string
}

type VenueSelectors struct {
	Name     []string
	Address  []string
	City     []string
	Capacity []string
	Type     []string
}

// Hooks are the escape hatches for logic a profile cannot express.
type Hooks struct {
	// Card enriches a search result with platform specific fields.
	Card func(raw *Raw, card *goquery.Selection)
	// Detail enriches an event page record.
	Detail func(raw *Raw, page *goquery.Selection)
	// Transform adjusts the canonical event after the generic mapping, it
	// runs before defaults are applied.
	Transform func(raw Raw, event *tickets.Event)
	// EventURL overrides the url built from EventPath.
	EventURL func(id string) string
	// ID overrides the IDPattern lookup.
	ID func(url string) string
	// Name derives a name from a url when an anchor has no text.
	Name     func(url string) string
	City     func(location string) string
	Country  func(location string) string
	Currency func(raw Raw) string
	// Venue parses a venue page instead of VenueSelectors.
	Venue func(id string, page *goquery.Selection) tickets.Venue
	// VenueFallback is returned when the venue page cannot be scraped, nil
	// keeps the failure visible to Guard.
	VenueFallback func(id string) tickets.Venue
}

// Profile declares everything the scrape engine needs to know about a site.
type Profile struct {
	Platform   string
	BaseURL    string
	SearchPath string
	Params     Params
	// DefaultLimit applies when the criteria carry no page size, MaxLimit
	// caps it.
	DefaultLimit int
	MaxLimit     int
	// EventPath and VenuePath are fmt patterns with a single %s for the id.
	// Without a VenuePath GetVenue returns the unknown venue record.
	EventPath string
	VenuePath string

	Card      Selectors
	Detail    DetailSelectors
	VenuePage VenueSelectors
	// Links match event anchors when no result card was found.
	Links []string

	IDPattern *regexp.Regexp
	// TicketPattern reads ticket counts, defaults to "12 tickets" style text.
	TicketPattern *regexp.Regexp
	Statuses      tickets.StatusVocabulary
	Currency      string
	// Country is used for every event when set (single country sites).
	Country     string
	DateLayouts []string
	// TitleSeparators cut page titles ("Coldplay | Site") at the first hit,
	// TitleSuffixes are then trimmed ("Coldplay Tickets").
	TitleSeparators []string
	TitleSuffixes   []string

	Hooks Hooks
}

var defaultTicketPattern = regexp.MustCompile(`(?i)(\d[\d,]*)\s*(?:ticket|listing)s?`)

func (p Profile) ticketPattern() *regexp.Regexp {
	if p.TicketPattern != nil {
		return p.TicketPattern
	}
	return defaultTicketPattern
}

// Raw is the intermediate record read off a page, before Transform.
type Raw struct {
	Source      string               `json:"source"`
	ID          string               `json:"id,omitempty"`
	Name        string               `json:"name"`
	URL         string               `json:"url,omitempty"`
	Date        string               `json:"date,omitempty"`
	Time        string               `json:"time,omitempty"`
	Venue       string               `json:"venue,omitempty"`
	Location    string               `json:"location,omitempty"`
	Status      string               `json:"status,omitempty"`
	Category    string               `json:"category,omitempty"`
	Description string               `json:"description,omitempty"`
	Image       string               `json:"image_url,omitempty"`
	Prices      []tickets.PriceEntry `json:"prices,omitempty"`
	TicketCount *int                 `json:"ticket_count,omitempty"`
	Listings    *int                 `json:"available_listings,omitempty"`
	// Canonical is set when the source already used the canonical
	// vocabulary (JSON-LD), it wins over Status.
	Canonical tickets.Status `json:"canonical_status,omitempty"`
	// Start is set when the date was already parsed.
	Start  *extract.Parsed `json:"-"`
	Fields map[string]any  `json:"fields,omitempty"`
}

const (
	SourceCard   = "card"
	SourceJSONLD = "jsonld"
	SourceLink   = "link"
	SourceDetail = "detail"
)

// Set stores a platform specific field.
func (r *Raw) Set(key string, value any) {
	if r.Fields == nil {
		r.Fields = map[string]any{}
	}
	r.Fields[key] = value
}

func (r Raw) Field(key string) (any, bool) {
	v, ok := r.Fields[key]
	return v, ok
}

// Bool reads a boolean field, false when absent.
func (r Raw) Bool(key string) bool {
	v, _ := r.Fields[key].(bool)
	return v
}

// Map is the generic representation kept in Event.RawData.
func (r Raw) Map() map[string]any {
	buf, err := json.Marshal(r)
	if err != nil {
		return map[string]any{"name": r.Name, "url": r.URL}
	}
	out := map[string]any{}
	if err := json.Unmarshal(buf, &out); err != nil {
		return map[string]any{"name": r.Name, "url": r.URL}
	}
	return out
}
