package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"ticketscout/internal/components/scraping"
	"ticketscout/internal/components/telemetry"
	"ticketscout/internal/extract"
	"ticketscout/internal/tickets"
	"ticketscout/lib/htmlutil"
	"ticketscout/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_parse_search = "engine.parse-search"
	report_parse_event  = "engine.parse-event"
	report_transform    = "engine.transform"
)

var (
	ErrNoEvent = errors.New("no event found on page")
	ErrNoVenue = errors.New("no venue found on page")
)

// ScrapeEngine is the generic scrape adapter: it fetches pages through the
// anti-detection transport and extracts Raw records as the Profile says.
type ScrapeEngine struct {
	profile Profile
	scraper *scraping.Scraper
	stats   *extract.Stats
	tel     telemetry.API
}

func NewScrapeEngine(profile Profile, scraper *scraping.Scraper, tel telemetry.API) *ScrapeEngine {
	if profile.Statuses == nil {
		profile.Statuses = tickets.CommonStatuses
	}
	if profile.Params.DateLayout == "" {
		profile.Params.DateLayout = tickets.DateLayout
	}
	tel = telemetry.NewScopedAPI(profile.Platform, tel)
	return &ScrapeEngine{
		profile: profile,
		scraper: scraper,
		stats:   extract.NewStats(profile.Platform, tel),
		tel:     tel,
	}
}

func (e *ScrapeEngine) Platform() string {
	return e.profile.Platform
}

func (e *ScrapeEngine) Profile() Profile {
	return e.profile
}

func (e *ScrapeEngine) Stats() *extract.Stats {
	return e.stats
}

func (e *ScrapeEngine) Scraper() *scraping.Scraper {
	return e.scraper
}

// SearchQuery maps criteria onto the platform's search parameters.
func (e *ScrapeEngine) SearchQuery(criteria tickets.SearchCriteria) url.Values {
	p := e.profile.Params
	q := url.Values{}
	set := func(name, value string) {
		if name != "" && value != "" {
			q.Set(name, value)
		}
	}
	set(p.Query, criteria.Query)
	set(p.City, criteria.City)
	set(p.Venue, criteria.Venue)
	set(p.Category, criteria.Category)
	if criteria.DateFrom != nil {
		set(p.DateFrom, criteria.DateFrom.Format(p.DateLayout))
	}
	if criteria.DateTo != nil {
		set(p.DateTo, criteria.DateTo.Format(p.DateLayout))
	}
	limit := e.limit(criteria)
	set(p.Limit, strconv.Itoa(limit))
	if offset := criteria.Offset(limit); offset > 0 {
		set(p.Offset, strconv.Itoa(offset))
	}
	for k, v := range p.Static {
		q.Set(k, v)
	}
	return q
}

func (e *ScrapeEngine) limit(criteria tickets.SearchCriteria) int {
	return criteria.Limit(e.profile.DefaultLimit, e.profile.MaxLimit)
}

// Search fetches the search page and transforms every result.
func (e *ScrapeEngine) Search(ctx context.Context, criteria tickets.SearchCriteria) ([]tickets.Event, error) {
	doc, err := e.scraper.FetchDocument(ctx, e.profile.SearchPath, scraping.FetchOptions{
		Query: e.SearchQuery(criteria),
	})
	if err != nil {
		return nil, err
	}
	raws := e.ParseSearch(doc.Selection, e.limit(criteria))
	events := make([]tickets.Event, 0, len(raws))
	for _, raw := range raws {
		event := e.Transform(raw)
		if event.Valid() {
			events = append(events, event)
		}
	}
	telemetry.ObserveEvents(e.profile.Platform, len(events))
	return events, nil
}

// ParseSearch reads results out of a search page: result cards first, then
// JSON-LD events, then bare event links. limit <= 0 keeps everything.
func (e *ScrapeEngine) ParseSearch(root *goquery.Selection, limit int) []Raw {
	var out []Raw
	full := func() bool {
		return limit > 0 && len(out) >= limit
	}

	if len(e.profile.Card.Card) > 0 {
		root.Find(strings.Join(e.profile.Card.Card, ", ")).EachWithBreak(func(_ int, card *goquery.Selection) bool {
			raw := e.parseCard(card)
			if raw.Name != "" {
				out = append(out, raw)
			}
			return !full()
		})
	}
	if len(out) > 0 {
		return out
	}

	for _, item := range extract.JSONLD(root, "Event") {
		raw := e.rawFromLD(item)
		if raw.Name != "" {
			out = append(out, raw)
		}
		if full() {
			return out
		}
	}
	if len(out) > 0 {
		return out
	}

	if len(e.profile.Links) > 0 {
		seen := map[string]bool{}
		root.Find(strings.Join(e.profile.Links, ", ")).EachWithBreak(func(_ int, link *goquery.Selection) bool {
			raw := e.parseLink(link)
			if raw.Name == "" || raw.URL == "" || seen[raw.URL] {
				return true
			}
			seen[raw.URL] = true
			out = append(out, raw)
			return !full()
		})
	}
	if len(out) == 0 {
		e.tel.ReportDebug(report_parse_search, "results", 0)
	}
	return out
}

func (e *ScrapeEngine) text(root *goquery.Selection, selectors []string) string {
	return e.stats.TrySelectors(root, selectors, "")
}

func (e *ScrapeEngine) attr(root *goquery.Selection, selectors []string, attr string) string {
	return strings.TrimSpace(e.stats.TrySelectors(root, selectors, attr))
}

// dateText prefers a machine readable datetime attribute over the text.
func (e *ScrapeEngine) dateText(root *goquery.Selection, selectors []string) string {
	value, _ := extract.FirstMatch(selectors, func(selector string) (string, bool) {
		node := root.Find(selector).First()
		ok := node.Length() > 0
		e.stats.Track(selector, ok)
		if !ok {
			return "", false
		}
		if dt, ok := node.Attr("datetime"); ok && strings.TrimSpace(dt) != "" {
			return strings.TrimSpace(dt), true
		}
		if dt, ok := node.Attr("content"); ok && strings.TrimSpace(dt) != "" {
			return strings.TrimSpace(dt), true
		}
		return htmlutil.Text(node), true
	})
	return value
}

func (e *ScrapeEngine) absolute(href string) string {
	return extract.NormalizeURL(href, e.profile.BaseURL)
}

// EventID pulls the platform id out of an event url, "" when it has none.
func (e *ScrapeEngine) EventID(eventURL string) string {
	if e.profile.Hooks.ID != nil {
		return e.profile.Hooks.ID(eventURL)
	}
	if e.profile.IDPattern == nil || eventURL == "" {
		return ""
	}
	m := e.profile.IDPattern.FindStringSubmatch(eventURL)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// EventURL is the page of an event id. Ids that already are paths or urls
// are made absolute instead.
func (e *ScrapeEngine) EventURL(id string) string {
	if e.profile.Hooks.EventURL != nil {
		return e.profile.Hooks.EventURL(id)
	}
	if strings.HasPrefix(id, "http://") || strings.HasPrefix(id, "https://") || strings.Contains(id, "/") {
		return e.absolute(id)
	}
	return e.absolute(fmt.Sprintf(e.profile.EventPath, url.PathEscape(id)))
}

func (e *ScrapeEngine) ticketCount(texts ...string) *int {
	pattern := e.profile.ticketPattern()
	for _, text := range texts {
		m := pattern.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
		if err != nil {
			continue
		}
		return &n
	}
	return nil
}

func (e *ScrapeEngine) parseCard(card *goquery.Selection) Raw {
	p := e.profile.Card
	raw := Raw{Source: SourceCard}
	raw.Name = e.text(card, p.Name)

	href := e.attr(card, p.Link, "href")
	if href == "" && goquery.NodeName(card) == "a" {
		href = card.AttrOr("href", "")
	}
	raw.URL = e.absolute(href)
	raw.ID = e.EventID(raw.URL)

	raw.Date = e.dateText(card, p.Date)
	raw.Time = e.text(card, p.Time)
	raw.Venue = e.text(card, p.Venue)
	raw.Location = e.text(card, p.Location)
	raw.Status = e.text(card, p.Status)
	raw.Category = e.text(card, p.Category)
	if img := e.attr(card, p.Image, "src"); img != "" {
		raw.Image = e.absolute(img)
	}
	raw.Prices = extract.PricesFromSelectors(card, p.Price, e.profile.Currency)
	raw.TicketCount = e.ticketCount(e.text(card, p.TicketCount))

	if e.profile.Hooks.Card != nil {
		e.profile.Hooks.Card(&raw, card)
	}
	return raw
}

func (e *ScrapeEngine) rawFromLD(item extract.LDItem) Raw {
	ld := extract.ParseLDEvent(item, e.profile.Currency)
	raw := Raw{
		Source:    SourceJSONLD,
		Name:      ld.Name,
		URL:       e.absolute(ld.URL),
		Date:      ld.StartDate,
		Venue:     ld.Venue,
		Location:  joinNonEmpty(", ", ld.City, ld.Country),
		Prices:    ld.Prices,
		Canonical: ld.Status,
	}
	if raw.Canonical == tickets.StatusUnknown {
		raw.Canonical = ""
	}
	raw.ID = e.EventID(raw.URL)
	return raw
}

var slugSeparators = regexp.MustCompile(`[-_]+`)

// NameFromSlug turns "coldplay-music-of-the-spheres" into
// "Coldplay Music Of The Spheres".
func NameFromSlug(slug string) string {
	return textutil.TitleCase(slugSeparators.ReplaceAllString(slug, " "))
}

func (e *ScrapeEngine) parseLink(link *goquery.Selection) Raw {
	raw := Raw{Source: SourceLink}
	raw.URL = e.absolute(link.AttrOr("href", ""))
	raw.ID = e.EventID(raw.URL)

	raw.Name = htmlutil.Text(link)
	if raw.Name == "" {
		raw.Name = strings.TrimSpace(link.AttrOr("title", ""))
	}
	if raw.Name == "" && e.profile.Hooks.Name != nil {
		raw.Name = e.profile.Hooks.Name(raw.URL)
	}

	parent := link.Parent()
	if parent.Length() > 0 {
		raw.Date = e.dateText(parent, e.profile.Card.Date)
		raw.Venue = e.text(parent, e.profile.Card.Venue)
	}
	return raw
}

// CleanTitle cuts a page title at the first separator and trims suffixes.
func (e *ScrapeEngine) CleanTitle(title string) string {
	title = strings.TrimSpace(title)
	for _, sep := range e.profile.TitleSeparators {
		if idx := strings.Index(title, sep); idx > 0 {
			title = strings.TrimSpace(title[:idx])
		}
	}
	for _, suffix := range e.profile.TitleSuffixes {
		if len(title) > len(suffix) && strings.EqualFold(title[len(title)-len(suffix):], suffix) {
			title = strings.TrimSpace(title[:len(title)-len(suffix)])
		}
	}
	return title
}

// Event fetches and transforms a single event page.
func (e *ScrapeEngine) Event(ctx context.Context, id string) (tickets.Event, error) {
	raw, err := e.EventRaw(ctx, id)
	if err != nil {
		return tickets.Event{}, err
	}
	return e.Transform(raw), nil
}

// EventRaw fetches an event page and returns its Raw record.
func (e *ScrapeEngine) EventRaw(ctx context.Context, id string) (Raw, error) {
	target := e.EventURL(id)
	doc, err := e.scraper.FetchDocument(ctx, target, scraping.FetchOptions{Referer: e.profile.BaseURL})
	if err != nil {
		return Raw{}, err
	}
	raw := e.ParseEvent(doc.Selection, id, target)
	if raw.Name == "" {
		return Raw{}, fmt.Errorf("%s: %w", target, ErrNoEvent)
	}
	return raw, nil
}

// ParseEvent reads an event page, JSON-LD data wins over the selectors.
func (e *ScrapeEngine) ParseEvent(root *goquery.Selection, id, pageURL string) Raw {
	p := e.profile.Detail
	raw := Raw{Source: SourceDetail, ID: id, URL: pageURL}
	if items := extract.JSONLD(root, "Event"); len(items) > 0 {
		ld := e.rawFromLD(items[0])
		raw.Name = ld.Name
		raw.Date = ld.Date
		raw.Venue = ld.Venue
		raw.Location = ld.Location
		raw.Canonical = ld.Canonical
	}

	if raw.Name == "" {
		raw.Name = e.CleanTitle(e.text(root, p.Name))
	}
	if raw.Date == "" {
		raw.Date = e.dateText(root, p.Date)
		raw.Time = e.text(root, p.Time)
	}
	if raw.Venue == "" {
		raw.Venue = e.text(root, p.Venue)
	}
	if raw.Location == "" {
		raw.Location = e.text(root, p.Location)
	}
	raw.Description = e.text(root, p.Description)
	raw.Category = e.text(root, p.Category)
	raw.Status = e.text(root, p.Status)
	if img := e.attr(root, p.Image, "src"); img != "" {
		raw.Image = e.absolute(img)
	}

	var listingPrices []tickets.PriceEntry
	if len(p.Listing) > 0 {
		listings := root.Find(strings.Join(p.Listing, ", "))
		n := listings.Length()
		raw.Listings = &n
		listings.Each(func(_ int, listing *goquery.Selection) {
			text := e.text(listing, p.ListingPrice)
			if text == "" {
				text = htmlutil.Text(listing)
			}
			if entry, ok := extract.PriceFromText(text); ok {
				if entry.Currency == "" {
					entry.Currency = e.profile.Currency
				}
				listingPrices = append(listingPrices, entry)
			}
		})
	}
	prices, source := extract.ExtractPrices(root, e.profile.Currency, func() []tickets.PriceEntry {
		return listingPrices
	})
	raw.Prices = prices
	if source != extract.PriceSourceNone {
		raw.Set("price_source", string(source))
	}

	if e.profile.Hooks.Detail != nil {
		e.profile.Hooks.Detail(&raw, root)
	}
	if raw.Name == "" {
		e.tel.ReportDebug(report_parse_event, "id", id, "url", pageURL)
	}
	return raw
}

// EventTickets returns the individual prices listed on an event page.
func (e *ScrapeEngine) EventTickets(ctx context.Context, id string) ([]tickets.PriceEntry, error) {
	raw, err := e.EventRaw(ctx, id)
	if err != nil {
		return nil, err
	}
	return raw.Prices, nil
}

var capacityPattern = regexp.MustCompile(`\d[\d\s.,]*`)

// Venue scrapes a venue page. Platforms without venue pages get the
// unknown venue record.
func (e *ScrapeEngine) Venue(ctx context.Context, id string) (tickets.Venue, error) {
	if e.profile.VenuePath == "" {
		return tickets.UnknownVenueRecord(e.profile.Platform, id), nil
	}
	target := e.absolute(fmt.Sprintf(e.profile.VenuePath, url.PathEscape(id)))
	doc, err := e.scraper.FetchDocument(ctx, target, scraping.FetchOptions{Referer: e.profile.BaseURL})
	if err != nil {
		if e.profile.Hooks.VenueFallback != nil && ctx.Err() == nil {
			e.tel.ReportWarning(report_venue, err, id)
			return e.profile.Hooks.VenueFallback(id), nil
		}
		return tickets.Venue{}, err
	}

	var venue tickets.Venue
	if e.profile.Hooks.Venue != nil {
		venue = e.profile.Hooks.Venue(id, doc.Selection)
	} else {
		venue = e.ParseVenue(doc.Selection, id)
	}
	venue.URL = target
	if venue.Name == "" {
		if e.profile.Hooks.VenueFallback != nil {
			return e.profile.Hooks.VenueFallback(id), nil
		}
		return tickets.Venue{}, fmt.Errorf("%s: %w", target, ErrNoVenue)
	}
	return venue, nil
}

// ParseVenue reads a venue page with the profile's VenuePage selectors.
func (e *ScrapeEngine) ParseVenue(root *goquery.Selection, id string) tickets.Venue {
	p := e.profile.VenuePage
	venue := tickets.Venue{
		ID:       id,
		Platform: e.profile.Platform,
		Name:     e.text(root, p.Name),
		Address:  e.text(root, p.Address),
		City:     e.text(root, p.City),
		Type:     e.text(root, p.Type),
		Country:  e.profile.Country,
	}
	if m := capacityPattern.FindString(e.text(root, p.Capacity)); m != "" {
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, m)
		if n, err := strconv.Atoi(digits); err == nil {
			venue.Capacity = &n
		}
	}
	if venue.City == "" {
		venue.City = e.city(venue.Address)
	}
	if venue.City == "" {
		venue.City = tickets.UnknownCity
	}
	if venue.Country == "" {
		venue.Country = tickets.UnknownCountry
	}
	return venue
}
