package adapter

import (
	"fmt"
	"regexp"
	"strings"
	"ticketscout/internal/extract"
	"ticketscout/internal/tickets"
	"ticketscout/lib/textutil"
)

// DeriveStatus infers availability for pages that print no status: nothing
// for sale at all reads as sold out, known stock as available.
func DeriveStatus(prices []tickets.PriceEntry, ticketCount, listings *int) tickets.Status {
	count := 0
	if ticketCount != nil {
		count = *ticketCount
	}
	if len(prices) == 0 && count == 0 {
		return tickets.StatusSoldOut
	}
	if count > 0 {
		return tickets.StatusAvailable
	}
	if listings != nil && *listings > 0 {
		return tickets.StatusAvailable
	}
	return tickets.StatusUnknown
}

var countryCodes = map[string]string{
	"US":  "United States",
	"USA": "United States",
	"UK":  "United Kingdom",
	"GB":  "United Kingdom",
	"CA":  "Canada",
	"AU":  "Australia",
	"DE":  "Germany",
	"FR":  "France",
	"IT":  "Italy",
	"ES":  "Spain",
	"NL":  "Netherlands",
	"BE":  "Belgium",
	"IE":  "Ireland",
	"SK":  "Slovakia",
	"CZ":  "Czech Republic",
}

// CityFromLocation takes the first part of "Paris, France" style text.
func CityFromLocation(location string) string {
	city, _, _ := strings.Cut(location, ",")
	return strings.TrimSpace(city)
}

// CountryFromLocation takes the last part of a location with at least two
// parts, expanding well known country codes.
func CountryFromLocation(location string) string {
	parts := strings.Split(location, ",")
	if len(parts) < 2 {
		return ""
	}
	last := strings.TrimSpace(parts[len(parts)-1])
	if name, ok := countryCodes[strings.ToUpper(last)]; ok {
		return name
	}
	return last
}

// usSiteCodes are the country codes US centric sites print, every other two
// letter code is a state.
var usSiteCodes = map[string]string{
	"US":  "United States",
	"USA": "United States",
	"UK":  "United Kingdom",
	"GB":  "United Kingdom",
	"AU":  "Australia",
	"DE":  "Germany",
	"FR":  "France",
	"IT":  "Italy",
	"ES":  "Spain",
}

var stateCode = regexp.MustCompile(`^[A-Z]{2}$`)

// USCountryFromLocation resolves "Austin, TX" style locations. Known country
// codes win, any other two letter code is taken as a US state (so "CA" is
// California). Locations without a country part are in the United States.
func USCountryFromLocation(location string) string {
	parts := strings.Split(location, ",")
	if strings.TrimSpace(location) == "" || len(parts) < 2 {
		return "United States"
	}
	last := strings.TrimSpace(parts[len(parts)-1])
	if country, ok := usSiteCodes[strings.ToUpper(last)]; ok {
		return country
	}
	if stateCode.MatchString(last) {
		return "United States"
	}
	return last
}

func (e *ScrapeEngine) city(location string) string {
	if e.profile.Hooks.City != nil {
		return e.profile.Hooks.City(location)
	}
	return CityFromLocation(location)
}

func (e *ScrapeEngine) country(location string) string {
	if e.profile.Hooks.Country != nil {
		return e.profile.Hooks.Country(location)
	}
	if e.profile.Country != "" {
		return e.profile.Country
	}
	return CountryFromLocation(location)
}

func (e *ScrapeEngine) currency(raw Raw) string {
	if e.profile.Hooks.Currency != nil {
		if c := e.profile.Hooks.Currency(raw); c != "" {
			return c
		}
	}
	for _, p := range raw.Prices {
		if p.Currency != "" {
			return p.Currency
		}
	}
	return e.profile.Currency
}

// Status resolves the canonical status of a record: the source's canonical
// value, then the platform vocabulary, then DeriveStatus.
func (e *ScrapeEngine) Status(raw Raw) tickets.Status {
	if raw.Canonical != "" {
		return raw.Canonical
	}
	if raw.Status != "" {
		if status := e.profile.Statuses.Map(raw.Status); status != tickets.StatusUnknown {
			return status
		}
	}
	return DeriveStatus(raw.Prices, raw.TicketCount, raw.Listings)
}

func (e *ScrapeEngine) parseDate(raw Raw) *extract.Parsed {
	if raw.Start != nil {
		return raw.Start
	}
	if raw.Date == "" {
		return nil
	}
	if raw.Time != "" {
		if parsed, ok := extract.ParseDate(raw.Date+" "+raw.Time, e.profile.DateLayouts...); ok {
			return &parsed
		}
	}
	if parsed, ok := extract.ParseDate(raw.Date, e.profile.DateLayouts...); ok {
		return &parsed
	}
	return nil
}

// Transform maps a Raw record onto the canonical event. It never fails,
// anything it cannot resolve gets the literal defaults.
func (e *ScrapeEngine) Transform(raw Raw) (event tickets.Event) {
	p := e.profile
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		e.tel.ReportBroken(report_transform, fmt.Errorf("panic: %v", r), raw.URL)
		event = tickets.Event{
			ID:       raw.ID,
			Platform: p.Platform,
			Name:     textutil.CollapseSpace(raw.Name),
			URL:      raw.URL,
		}
		event.ApplyDefaults(p.Currency)
	}()

	event = tickets.Event{
		ID:                raw.ID,
		Platform:          p.Platform,
		Name:              textutil.CollapseSpace(raw.Name),
		URL:               raw.URL,
		Venue:             textutil.CollapseSpace(raw.Venue),
		City:              e.city(raw.Location),
		Country:           e.country(raw.Location),
		Prices:            raw.Prices,
		TicketCount:       raw.TicketCount,
		AvailableListings: raw.Listings,
		Status:            e.Status(raw),
		RawData:           raw.Map(),
	}
	if event.ID == "" && event.URL != "" {
		event.ID = tickets.SyntheticID(p.Platform, event.URL)
	}
	if parsed := e.parseDate(raw); parsed != nil {
		event.SetDateTime(parsed.Pointer(), parsed.HasTime)
	}
	event.Currency = e.currency(raw)
	event.SetPriceRange()

	if p.Hooks.Transform != nil {
		p.Hooks.Transform(raw, &event)
	}
	event.ApplyDefaults(p.Currency)
	return event
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return strings.Join(out, sep)
}
