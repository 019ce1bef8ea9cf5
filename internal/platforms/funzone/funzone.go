// Package funzone scrapes FunZone, the Slovak regional event portal.
package funzone

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"ticketscout/internal/adapter"
	"ticketscout/internal/config"
	"ticketscout/internal/tickets"
	"ticketscout/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	Name           = "funzone"
	DefaultBaseURL = "https://www.funzone.sk"
	Country        = "Slovakia"
)

// Statuses adds the Slovak words to the common vocabulary.
var Statuses = tickets.CommonStatuses.Merge(tickets.StatusVocabulary{
	"dostupné":   tickets.StatusAvailable,
	"vypredané":  tickets.StatusSoldOut,
	"predpredaj": tickets.StatusPresale,
	"zrušené":    tickets.StatusCancelled,
	"odložené":   tickets.StatusPostponed,
	"presunuté":  tickets.StatusPostponed,
})

var categories = map[string]string{
	"koncert":        "concert",
	"divadlo":        "theater",
	"tanec":          "dance",
	"opera":          "opera",
	"balet":          "ballet",
	"muzikál":        "musical",
	"komedia":        "comedy",
	"festival":       "festival",
	"výstava":        "exhibition",
	"šport":          "sports",
	"futbal":         "football",
	"hokej":          "hockey",
	"basketbal":      "basketball",
	"konferencia":    "conference",
	"prednáška":      "lecture",
	"workshop":       "workshop",
	"stand-up":       "comedy",
	"rock":           "rock_concert",
	"pop":            "pop_concert",
	"jazz":           "jazz_concert",
	"klasická hudba": "classical_music",
	"detské":         "children_show",
	"kino":           "cinema",
}

// Category maps a Slovak category label, "other" when unknown.
func Category(raw string) string {
	if c, ok := categories[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return c
	}
	return "other"
}

type keyword struct {
	word  string
	value string
}

// checked in order, the first contained word wins
var regions = []keyword{
	{"bratislava", "Bratislavský kraj"},
	{"trnava", "Trnavský kraj"},
	{"trenčín", "Trenčiansky kraj"},
	{"nitra", "Nitriansky kraj"},
	{"žilina", "Žilinský kraj"},
	{"banská bystrica", "Banskobystrický kraj"},
	{"prešov", "Prešovský kraj"},
	{"košice", "Košický kraj"},
}

var venueTypes = []keyword{
	{"divadlo", "theater"},
	{"štadión", "stadium"},
	{"aréna", "arena"},
	{"hala", "hall"},
	{"club", "club"},
	{"klub", "club"},
	{"kultúrny dom", "cultural_center"},
	{"kd", "cultural_center"},
	{"park", "outdoor"},
}

var culturalCategories = []keyword{
	{"folklore", "folklore"},
	{"ľudová", "folklore"},
	{"klasická hudba", "classical"},
	{"moderný tanec", "contemporary_dance"},
	{"tradičný", "traditional"},
	{"experimentálny", "experimental"},
}

var organizerTypes = []keyword{
	{"divadlo", "theater_company"},
	{"filharmónia", "orchestra"},
	{"orchester", "orchestra"},
	{"klub", "club"},
	{"asociácia", "organization"},
	{"spoločnosť", "organization"},
}

func lookup(text string, table []keyword, def string) string {
	text = strings.ToLower(text)
	for _, k := range table {
		if strings.Contains(text, k.word) {
			return k.value
		}
	}
	return def
}

func Region(location string) string {
	return lookup(location, regions, "Unknown Region")
}

func VenueType(venue string) string {
	return lookup(venue, venueTypes, "venue")
}

func CulturalCategory(text string) string {
	return lookup(text, culturalCategories, "general")
}

func OrganizerType(organizer string) string {
	return lookup(organizer, organizerTypes, "other")
}

// EventType guesses the kind of event from its name, category and venue.
func EventType(name, category, venue string) string {
	name = strings.ToLower(name)
	category = strings.ToLower(category)
	venue = strings.ToLower(venue)
	switch {
	case strings.Contains(name, "koncert") || strings.Contains(category, "koncert"):
		return "concert"
	case strings.Contains(name, "divadlo") || strings.Contains(venue, "divadlo"):
		return "theater"
	case strings.Contains(name, "festival") || strings.Contains(category, "festival"):
		return "festival"
	case strings.Contains(venue, "štadión") || strings.Contains(venue, "aréna"):
		return "sports"
	case strings.Contains(name, "výstava") || strings.Contains(category, "výstava"):
		return "exhibition"
	}
	return "entertainment"
}

var minimumAge = regexp.MustCompile(`(\d+)\+`)

// AgeRestrictions reads "15+" style limits and children's shows, nil when
// the text says nothing about age.
func AgeRestrictions(name, description string) map[string]any {
	text := strings.ToLower(description + " " + name)
	out := map[string]any{}
	if m := minimumAge.FindStringSubmatch(text); m != nil {
		age, _ := strconv.Atoi(m[1])
		out["minimum_age"] = age
	}
	if strings.Contains(text, "detské") {
		out["target_audience"] = "children"
		out["family_friendly"] = true
	}
	if strings.Contains(text, "18+") {
		out["minimum_age"] = 18
		out["adult_only"] = true
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

var (
	postalCode = regexp.MustCompile(`^\d{3}\s*\d{2}\s*`)
	numericID  = regexp.MustCompile(`/(?:event|show)/(\d+)`)
	slugID     = regexp.MustCompile(`/(?:event|show)/([^/?]+)`)
)

// City drops a leading postal code ("811 01 Bratislava, ...") and keeps
// the part before the first comma.
func City(location string) string {
	location = postalCode.ReplaceAllString(strings.TrimSpace(location), "")
	city, _, _ := strings.Cut(location, ",")
	return strings.TrimSpace(city)
}

func EventID(url string) string {
	if m := numericID.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	if m := slugID.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return ""
}

func NameFromURL(url string) string {
	m := slugID.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return adapter.NameFromSlug(m[1])
}

func first(root *goquery.Selection, selectors string) string {
	return htmlutil.Text(root.Find(selectors).First())
}

var statusSelectors = []string{"span[class*='status']", "div[class*='availability']"}

// StatusFromText maps a printed availability label. Text that is present
// but outside the vocabulary is unknown, it never falls back to the
// listings on the page.
func StatusFromText(text string) tickets.Status {
	if status := Statuses.Map(text); status != tickets.StatusUnknown {
		return status
	}
	lower := strings.ToLower(text)
	for _, word := range []string{"vypredané", "zrušené", "odložené", "presunuté", "predpredaj", "dostupné"} {
		if strings.Contains(lower, word) {
			return Statuses[word]
		}
	}
	return tickets.StatusUnknown
}

func applyStatus(raw *adapter.Raw) {
	if strings.TrimSpace(raw.Status) != "" {
		raw.Canonical = StatusFromText(raw.Status)
	}
}

func cardHook(raw *adapter.Raw, card *goquery.Selection) {
	applyStatus(raw)
	if description := first(card, "div[class*='description'], p[class*='desc'], div[class*='summary']"); description != "" {
		raw.Description = description
	}
}

func detailHook(raw *adapter.Raw, page *goquery.Selection) {
	applyStatus(raw)

	if organizer := first(page, "span[class*='organizer'], div[class*='organizer'], span[class*='organizator']"); organizer != "" {
		raw.Set("organizer", organizer)
	}
	if duration := first(page, "span[class*='duration'], div[class*='trvanie']"); duration != "" {
		raw.Set("duration", duration)
	}
	if details := first(page, "div[class*='venue-details'], section[class*='venue-info']"); details != "" {
		raw.Set("venue_details", details)
	}

	var categories []map[string]string
	page.Find("div[class*='ticket-listing'], div[class*='price-row'], tr[class*='ticket'], div[class*='cenova-kategoria']").Each(func(_ int, listing *goquery.Selection) {
		price := first(listing, "[class*='price'], [class*='cena']")
		label := first(listing, "[class*='category'], [class*='section']")
		if price != "" && label != "" {
			categories = append(categories, map[string]string{"category": label, "price": price})
		}
	})
	if len(categories) > 0 {
		raw.Set("price_categories", categories)
	}
}

func transform(raw adapter.Raw, event *tickets.Event) {
	event.Country = Country
	event.SetExtension(Name, "entertainment_category", Category(raw.Category))
	event.SetExtension(Name, "event_type", EventType(raw.Name, raw.Category, raw.Venue))
	if ages := AgeRestrictions(raw.Name, raw.Description); ages != nil {
		event.SetExtension(Name, "age_restrictions", ages)
	}
	if v, ok := raw.Field("organizer"); ok {
		organizer := v.(string)
		event.SetExtension(Name, "organizer_info", map[string]any{
			"name": organizer,
			"type": OrganizerType(organizer),
		})
	}
	for _, key := range []string{"duration", "venue_details", "price_categories"} {
		if v, ok := raw.Field(key); ok {
			event.SetExtension(Name, key, v)
		}
	}
	if raw.Description != "" {
		event.SetExtension(Name, "description", raw.Description)
	}
	event.SetExtension(Name, "region", Region(raw.Location))
	event.SetExtension(Name, "venue_type", VenueType(raw.Venue))
	event.SetExtension(Name, "cultural_category", CulturalCategory(strings.Join([]string{raw.Name, raw.Category, raw.Description}, " ")))
}

// BasicVenue is returned when the venue page cannot be scraped.
func BasicVenue(id string) tickets.Venue {
	return tickets.Venue{
		ID:       id,
		Platform: Name,
		Name:     tickets.UnknownVenue,
		City:     tickets.UnknownCity,
		Country:  Country,
	}
}

func Profile(baseURL string) adapter.Profile {
	return adapter.Profile{
		Platform:   Name,
		BaseURL:    baseURL,
		SearchPath: "/events",
		Params: adapter.Params{
			Query:    "search",
			City:     "city",
			Venue:    "venue",
			DateFrom: "date_from",
			DateTo:   "date_to",
			Category: "category",
			Limit:    "limit",
			Static:   map[string]string{"sort": "date"},
		},
		DefaultLimit: 25,
		MaxLimit:     50,
		EventPath:    "/event/%s",
		VenuePath:    "/venue/%s",
		Card: adapter.Selectors{
			Card: []string{
				"div[class*='event-card']",
				"div[class*='event-item']",
				"article[class*='event']",
				"div[class*='listing']",
				"div[class*='product-item']",
			},
			Name: []string{
				"h1", "h2", "h3", "h4",
				"span[class*='title']",
				"a[class*='event-title']",
				"div[class*='event-name']",
				"span[class*='name']",
			},
			Link:     []string{"a[href*='/event/']", "a[href*='/show/']", "a[href*='/events/']"},
			Date:     []string{"time", "span[class*='date']", "div[class*='date']", "span[class*='datum']"},
			Venue:    []string{"span[class*='venue']", "div[class*='venue']", "p[class*='venue']", "span[class*='miesto']"},
			Location: []string{"span[class*='location']", "div[class*='city']", "span[class*='city']", "span[class*='mesto']"},
			Price:    []string{"span[class*='price']", "div[class*='price']", "span[class*='cena']"},
			TicketCount: []string{
				"span[class*='available']",
				"span:contains('ticket')",
				"span:contains('lístk')",
				"span:contains('voľn')",
				"div[class*='quantity']",
			},
			Category: []string{"span[class*='category']", "div[class*='genre']", "span[class*='typ']"},
			Status:   statusSelectors,
			Image:    []string{"img"},
		},
		Detail: adapter.DetailSelectors{
			Name:     []string{"h1", "title"},
			Date:     []string{"span[class*='event-date']", "div[class*='date']", "time", "span[class*='datum']"},
			Venue:    []string{"span[class*='venue']", "div[class*='venue']", "h2[class*='venue']", "span[class*='miesto']"},
			Location: []string{"span[class*='location']", "address", "div[class*='city']", "span[class*='adresa']"},
			Description: []string{
				"div[class*='description']",
				"div[class*='event-info']",
				"section[class*='about']",
				"div[class*='popis']",
			},
			Category: []string{"span[class*='category']", "div[class*='genre']", "span[class*='typ']"},
			Status:   statusSelectors,
			Listing: []string{
				"div[class*='ticket-listing']",
				"div[class*='price-row']",
				"tr[class*='ticket']",
				"div[class*='cenova-kategoria']",
			},
			ListingPrice: []string{"[class*='price']", "[class*='cena']"},
		},
		VenuePage: adapter.VenueSelectors{
			Name:     []string{"h1", "title"},
			Address:  []string{"address", "div[class*='address']", "span[class*='adresa']"},
			City:     []string{"span[class*='city']", "div[class*='city']", "span[class*='mesto']"},
			Capacity: []string{"span[class*='capacity']", "div[class*='kapacita']"},
		},
		Links:           []string{"a[href*='/event/']", "a[href*='/events/']", "a[href*='/show/']"},
		TicketPattern:   regexp.MustCompile(`(?i)(\d[\d,]*)\s*(?:ticket|listing|lístok|lístky|lístkov|voľný|voľné|voľných)s?`),
		Statuses:        Statuses,
		Currency:        "EUR",
		Country:         Country,
		TitleSeparators: []string{"|", " - "},
		Hooks: adapter.Hooks{
			ID:            EventID,
			Name:          NameFromURL,
			City:          City,
			Card:          cardHook,
			Detail:        detailHook,
			Transform:     transform,
			VenueFallback: BasicVenue,
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

// GetVenue classifies the venue by its name when the page does not say.
func (a *Adapter) GetVenue(ctx context.Context, id string) (tickets.Venue, error) {
	venue, err := a.ScrapeAdapter.GetVenue(ctx, id)
	if err != nil {
		return venue, err
	}
	if venue.Type == "" && venue.Name != tickets.UnknownVenue {
		venue.Type = VenueType(venue.Name)
	}
	return venue, nil
}
