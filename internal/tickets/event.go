package tickets

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	UnknownVenue   = "Unknown Venue"
	UnknownCity    = "Unknown City"
	UnknownCountry = "Unknown Country"

	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Status is the canonical availability of an event, every platform maps its
// own vocabulary onto this fixed set.
type Status string

const (
	StatusAvailable    Status = "available"
	StatusSoldOut      Status = "sold_out"
	StatusPresale      Status = "presale"
	StatusNotAvailable Status = "not_available"
	StatusCancelled    Status = "cancelled"
	StatusPostponed    Status = "postponed"
	StatusUnknown      Status = "unknown"
)

var AllStatuses = []Status{
	StatusAvailable,
	StatusSoldOut,
	StatusPresale,
	StatusNotAvailable,
	StatusCancelled,
	StatusPostponed,
	StatusUnknown,
}

// PriceEntry is a single price point observed for an event.
type PriceEntry struct {
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	Section  string          `json:"section,omitempty"`
	Type     string          `json:"type,omitempty"`
	NoFee    bool            `json:"is_no_fee,omitempty"`
}

// Event is the normalized record every adapter produces.
type Event struct {
	ID       string `json:"id"`
	Platform string `json:"platform"`
	Name     string `json:"name"`

	// Date and Time are nil when the source date could not be parsed.
	Date *string `json:"date"`
	Time *string `json:"time"`

	Venue   string `json:"venue"`
	City    string `json:"city"`
	Country string `json:"country"`
	URL     string `json:"url"`

	PriceMin decimal.NullDecimal `json:"price_min"`
	PriceMax decimal.NullDecimal `json:"price_max"`
	Currency string              `json:"currency"`
	Prices   []PriceEntry        `json:"prices,omitempty"`

	Status            Status `json:"availability_status"`
	TicketCount       *int   `json:"ticket_count"`
	AvailableListings *int   `json:"available_listings"`

	// Extensions holds platform specific fields under the platform's namespace,
	// ex. {"tickpick": {"is_no_fee": true}}.
	Extensions map[string]map[string]any `json:"extensions,omitempty"`
	RawData    map[string]any            `json:"raw_data,omitempty"`
}

// Valid reports whether the event has enough data to be kept.
func (e Event) Valid() bool {
	return e.Name != ""
}

// IsZero reports whether the event is the empty result.
func (e Event) IsZero() bool {
	return e.ID == "" && e.Name == ""
}

// StartsAt combines Date and Time into a timestamp in loc, ok is false when
// the date is unknown.
func (e Event) StartsAt(loc *time.Location) (time.Time, bool) {
	if e.Date == nil {
		return time.Time{}, false
	}
	value := *e.Date
	layout := DateLayout
	if e.Time != nil {
		value += " " + *e.Time
		layout += " " + TimeLayout
	}
	t, err := time.ParseInLocation(layout, value, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// SetExtension stores a platform namespaced extension field.
func (e *Event) SetExtension(namespace, key string, value any) {
	if e.Extensions == nil {
		e.Extensions = map[string]map[string]any{}
	}
	ns, ok := e.Extensions[namespace]
	if !ok {
		ns = map[string]any{}
		e.Extensions[namespace] = ns
	}
	ns[key] = value
}

// Extension reads a platform namespaced extension field.
func (e Event) Extension(namespace, key string) (any, bool) {
	ns, ok := e.Extensions[namespace]
	if !ok {
		return nil, false
	}
	v, ok := ns[key]
	return v, ok
}

// SetDateTime splits t into the decomposed Date/Time fields, a zero t
// clears them. Time is left nil when t is exactly midnight and hasTime is false.
func (e *Event) SetDateTime(t *time.Time, hasTime bool) {
	if t == nil || t.IsZero() {
		e.Date = nil
		e.Time = nil
		return
	}
	d := t.Format(DateLayout)
	e.Date = &d
	if hasTime {
		tm := t.Format(TimeLayout)
		e.Time = &tm
	} else {
		e.Time = nil
	}
}

// SetPriceRange computes PriceMin/PriceMax from Prices.
func (e *Event) SetPriceRange() {
	if len(e.Prices) == 0 {
		e.PriceMin = decimal.NullDecimal{}
		e.PriceMax = decimal.NullDecimal{}
		return
	}
	lo := e.Prices[0].Price
	hi := e.Prices[0].Price
	for _, p := range e.Prices[1:] {
		lo = decimal.Min(lo, p.Price)
		hi = decimal.Max(hi, p.Price)
	}
	e.PriceMin = decimal.NewNullDecimal(lo)
	e.PriceMax = decimal.NewNullDecimal(hi)
}

// ApplyDefaults substitutes the sentinel values for unresolved fields.
func (e *Event) ApplyDefaults(currency string) {
	if e.Venue == "" {
		e.Venue = UnknownVenue
	}
	if e.City == "" {
		e.City = UnknownCity
	}
	if e.Country == "" {
		e.Country = UnknownCountry
	}
	if e.Currency == "" {
		e.Currency = currency
	}
	if e.Status == "" {
		e.Status = StatusUnknown
	}
}

var syntheticNamespace = uuid.MustParse("6f1c8a52-3c1e-4b8e-9a53-1d8f0f6b2a77")

// SyntheticID derives a stable id from a url (or any other unique string) for
// sources that do not expose one.
func SyntheticID(platform, source string) string {
	return uuid.NewSHA1(syntheticNamespace, []byte(platform+"|"+source)).String()
}

// Venue is the normalized venue record.
type Venue struct {
	ID         string                    `json:"id"`
	Platform   string                    `json:"platform"`
	Name       string                    `json:"name"`
	Address    string                    `json:"address,omitempty"`
	City       string                    `json:"city"`
	Country    string                    `json:"country"`
	Capacity   *int                      `json:"capacity,omitempty"`
	Type       string                    `json:"type,omitempty"`
	URL        string                    `json:"url,omitempty"`
	Extensions map[string]map[string]any `json:"extensions,omitempty"`
}

// UnknownVenueRecord is returned by platforms that cannot look up venues.
func UnknownVenueRecord(platform, id string) Venue {
	return Venue{
		ID:       id,
		Platform: platform,
		Name:     UnknownVenue,
		City:     UnknownCity,
		Country:  UnknownCountry,
	}
}

// SearchCriteria is the input bag for SearchEvents, adapters interpret the
// subset their upstream supports.
type SearchCriteria struct {
	Query    string     `json:"q"`
	City     string     `json:"city"`
	Venue    string     `json:"venue"`
	Category string     `json:"category"`
	DateFrom *time.Time `json:"date_start"`
	DateTo   *time.Time `json:"date_end"`
	PerPage  int        `json:"per_page"`
	Page     int        `json:"page"`
	Sort     string     `json:"sort"`
}

// Limit returns PerPage clamped into [1, max], using def when unset.
func (c SearchCriteria) Limit(def, max int) int {
	n := c.PerPage
	if n <= 0 {
		n = def
	}
	if max > 0 && n > max {
		n = max
	}
	return n
}

// Offset is the zero based index of the first result for the current page.
func (c SearchCriteria) Offset(limit int) int {
	if c.Page <= 1 {
		return 0
	}
	return (c.Page - 1) * limit
}
