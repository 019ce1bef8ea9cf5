package extract

import (
	"strings"
	"ticketscout/internal/tickets"

	"github.com/PuerkitoBio/goquery"
	"github.com/goccy/go-json"
)

// LDItem is a single decoded JSON-LD object.
type LDItem map[string]any

// Types returns the @type of the item, which may be a string or a list.
func (i LDItem) Types() []string {
	switch v := i["@type"].(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, t := range v {
			if s, ok := t.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Is reports whether the item has type typ. "Event" also matches the
// schema.org subtypes (MusicEvent, SportsEvent, TheaterEvent, ...).
func (i LDItem) Is(typ string) bool {
	for _, t := range i.Types() {
		if t == typ {
			return true
		}
		if typ == "Event" && strings.HasSuffix(t, "Event") {
			return true
		}
	}
	return false
}

func (i LDItem) String(key string) string {
	switch v := i[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	}
	return ""
}

// Object returns key as an item, the first element is used for lists.
func (i LDItem) Object(key string) LDItem {
	switch v := i[key].(type) {
	case map[string]any:
		return LDItem(v)
	case []any:
		if len(v) > 0 {
			if m, ok := v[0].(map[string]any); ok {
				return LDItem(m)
			}
		}
	}
	return nil
}

// Objects returns key as a list of items whether it is a list or a single
// object.
func (i LDItem) Objects(key string) []LDItem {
	switch v := i[key].(type) {
	case map[string]any:
		return []LDItem{LDItem(v)}
	case []any:
		out := make([]LDItem, 0, len(v))
		for _, e := range v {
			if m, ok := e.(map[string]any); ok {
				out = append(out, LDItem(m))
			}
		}
		return out
	}
	return nil
}

func decodeLD(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var out any
	err := dec.Decode(&out)
	return out, err
}

func collectLD(value any, typ string, out *[]LDItem) {
	switch v := value.(type) {
	case []any:
		for _, e := range v {
			collectLD(e, typ, out)
		}
	case map[string]any:
		item := LDItem(v)
		if graph, ok := v["@graph"]; ok {
			collectLD(graph, typ, out)
		}
		if len(item.Types()) == 0 {
			return
		}
		if typ == "" || item.Is(typ) {
			*out = append(*out, item)
		}
	}
}

// JSONLD decodes every ld+json script under root and returns the items of
// type typ (all typed items when typ is empty). Blocks that fail to decode
// are skipped.
func JSONLD(root *goquery.Selection, typ string) []LDItem {
	var items []LDItem
	root.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		value, err := decodeLD(s.Text())
		if err != nil {
			return
		}
		collectLD(value, typ, &items)
	})
	return items
}

// LDEvent is the subset of a schema.org Event the adapters consume.
type LDEvent struct {
	Name      string
	StartDate string
	URL       string
	Venue     string
	City      string
	Country   string
	Status    tickets.Status
	Prices    []tickets.PriceEntry
}

var ldStatuses = map[string]tickets.Status{
	"eventcancelled":      tickets.StatusCancelled,
	"eventpostponed":      tickets.StatusPostponed,
	"eventrescheduled":    tickets.StatusPostponed,
	"eventmovedonline":    tickets.StatusAvailable,
	"instock":             tickets.StatusAvailable,
	"limitedavailability": tickets.StatusAvailable,
	"soldout":             tickets.StatusSoldOut,
	"presale":             tickets.StatusPresale,
	"preorder":            tickets.StatusPresale,
	"outofstock":          tickets.StatusNotAvailable,
	"discontinued":        tickets.StatusNotAvailable,
}

// ldStatus maps "https://schema.org/EventCancelled" style values.
func ldStatus(raw string) (tickets.Status, bool) {
	if raw == "" {
		return "", false
	}
	if idx := strings.LastIndex(raw, "/"); idx >= 0 {
		raw = raw[idx+1:]
	}
	status, ok := ldStatuses[strings.ToLower(raw)]
	return status, ok
}

// ParseLDEvent flattens a JSON-LD Event item.
func ParseLDEvent(item LDItem, defaultCurrency string) LDEvent {
	event := LDEvent{
		Name:      item.String("name"),
		StartDate: item.String("startDate"),
		URL:       item.String("url"),
		Status:    tickets.StatusUnknown,
	}

	if location := item.Object("location"); location != nil {
		event.Venue = location.String("name")
		if address := location.Object("address"); address != nil {
			event.City = address.String("addressLocality")
			event.Country = address.String("addressCountry")
			if country := address.Object("addressCountry"); country != nil {
				event.Country = country.String("name")
			}
		} else if address := location.String("address"); address != "" && event.Venue == "" {
			event.Venue = address
		}
	}

	if status, ok := ldStatus(item.String("eventStatus")); ok {
		event.Status = status
	}
	for _, offer := range item.Objects("offers") {
		if event.Status != tickets.StatusUnknown {
			break
		}
		if status, ok := ldStatus(offer.String("availability")); ok {
			event.Status = status
		}
	}

	event.Prices = PricesFromLD([]LDItem{item}, defaultCurrency)
	return event
}

// PricesFromLD collects offers[].price (and AggregateOffer low/high prices)
// from Event items.
func PricesFromLD(items []LDItem, defaultCurrency string) []tickets.PriceEntry {
	var prices []tickets.PriceEntry
	for _, item := range items {
		for _, offer := range item.Objects("offers") {
			currency := offer.String("priceCurrency")
			if currency == "" {
				currency = defaultCurrency
			}
			section := offer.String("name")
			if section == "" {
				section = "General"
			}

			keys := []string{"price"}
			if _, ok := offer["price"]; !ok {
				keys = []string{"lowPrice", "highPrice"}
			}
			for _, key := range keys {
				raw := offer.String(key)
				if raw == "" {
					continue
				}
				price, ok := ExtractNumericPrice(raw)
				if !ok {
					continue
				}
				prices = append(prices, tickets.PriceEntry{
					Price:    price,
					Currency: currency,
					Section:  section,
				})
			}
		}
	}
	return prices
}
