// Package tickpick scrapes TickPick, a no-fee US marketplace.
package tickpick

import (
	"regexp"
	"strings"
	"ticketscout/internal/adapter"
	"ticketscout/internal/config"
	"ticketscout/internal/extract"
	"ticketscout/internal/tickets"
	"ticketscout/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

const (
	Name           = "tickpick"
	DefaultBaseURL = "https://www.tickpick.com"
)

var (
	trailingID  = regexp.MustCompile(`/(\d+)$`)
	buySlug     = regexp.MustCompile(`/buy-([^/]+)`)
	buyName     = regexp.MustCompile(`/buy-(.+?)-tickets`)
	noFeeMarker = []string{"no fee", "all-in"}
	// an event page marks no-fee listings with any of these
	noFeePage = []string{"no fee", "all-in", "final price"}
)

// EventID reads the numeric id at the end of a url, falling back to the
// buy-... slug.
func EventID(url string) string {
	if m := trailingID.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	if m := buySlug.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return ""
}

// NameFromURL recovers "Taylor Swift" from /buy-taylor-swift-tickets/...
func NameFromURL(url string) string {
	m := buyName.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return adapter.NameFromSlug(m[1])
}

var (
	percent15     = decimal.RequireFromString("0.15")
	percent10     = decimal.RequireFromString("0.10")
	flatFee       = decimal.NewFromInt(10)
	hundred       = decimal.NewFromInt(100)
	competitorFee = "Estimated savings compared to typical competitor fees"
)

type FeeSavings struct {
	EstimatedFeeSavings decimal.Decimal `json:"estimated_fee_savings"`
	PercentageSavings   decimal.Decimal `json:"percentage_savings"`
	ComparisonNote      string          `json:"comparison_note"`
}

// EstimateFeeSavings estimates what a typical competitor would add on top
// of price: the larger of 15% or 10% plus a $10 service fee.
func EstimateFeeSavings(price decimal.Decimal) (FeeSavings, bool) {
	if !price.IsPositive() {
		return FeeSavings{}, false
	}
	fees := decimal.Max(price.Mul(percent15), price.Mul(percent10).Add(flatFee))
	return FeeSavings{
		EstimatedFeeSavings: fees.Round(2),
		PercentageSavings:   fees.Div(price.Add(fees)).Mul(hundred).Round(1),
		ComparisonNote:      competitorFee,
	}, true
}

func containsAny(text string, markers []string) bool {
	text = strings.ToLower(text)
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// markNoFee flags every price node whose surrounding text advertises the
// price as final.
func markNoFee(raw *adapter.Raw, nodes *goquery.Selection, context func(*goquery.Selection) string, markers []string) {
	nodes.Each(func(_ int, node *goquery.Selection) {
		entry, ok := extract.PriceFromText(htmlutil.Text(node))
		if !ok || !containsAny(context(node), markers) {
			return
		}
		for i := range raw.Prices {
			if raw.Prices[i].Price.Equal(entry.Price) {
				raw.Prices[i].NoFee = true
			}
		}
	})
}

func noFeePrices(prices []tickets.PriceEntry) []tickets.PriceEntry {
	var out []tickets.PriceEntry
	for _, p := range prices {
		if p.NoFee {
			out = append(out, p)
		}
	}
	return out
}

func parentText(s *goquery.Selection) string {
	return htmlutil.Text(s.Parent())
}

func cardHook(raw *adapter.Raw, card *goquery.Selection) {
	markNoFee(raw, card.Find("span[class*='price'], div[class*='price']"), parentText, noFeeMarker)
	badge := card.Find("span:contains('No Fee'), div:contains('All-In'), span[class*='no-fee']")
	raw.Set("is_no_fee", badge.Length() > 0)
}

func detailHook(raw *adapter.Raw, page *goquery.Selection) {
	listings := page.Find("div[class*='listing'], div[class*='ticket-row'], tr[class*='ticket'], div[class*='price-row']")
	listings.Each(func(_ int, listing *goquery.Selection) {
		markNoFee(raw, listing.Find("[class*='price']").First(), func(*goquery.Selection) string {
			return htmlutil.Text(listing)
		}, noFeePage)
	})
	raw.Set("is_no_fee", containsAny(htmlutil.Text(page.Find("body")), noFeePage))
}

func transform(raw adapter.Raw, event *tickets.Event) {
	isNoFee := raw.Bool("is_no_fee")
	event.SetExtension(Name, "is_no_fee_available", isNoFee)
	event.SetExtension(Name, "final_price_guarantee", isNoFee)
	event.SetExtension(Name, "fees_included", isNoFee)
	event.SetExtension(Name, "transparent_pricing", true)

	pricing := map[string]any{
		"has_no_fee_tickets": isNoFee,
		"price_transparency": map[string]any{
			"all_fees_included":       isNoFee,
			"final_price_display":     true,
			"no_hidden_fees":          true,
			"fee_breakdown_available": false,
		},
	}
	if noFee := noFeePrices(raw.Prices); len(noFee) > 0 {
		lo, hi := noFee[0].Price, noFee[0].Price
		for _, p := range noFee[1:] {
			lo = decimal.Min(lo, p.Price)
			hi = decimal.Max(hi, p.Price)
		}
		pricing["no_fee_price_min"] = lo
		pricing["no_fee_price_max"] = hi
		pricing["no_fee_prices"] = noFee
	}
	if event.PriceMin.Valid {
		if savings, ok := EstimateFeeSavings(event.PriceMin.Decimal); ok {
			pricing["savings_vs_competitors"] = savings
		}
	}
	event.SetExtension(Name, "no_fee_pricing", pricing)
	if raw.Category != "" {
		event.SetExtension(Name, "category", raw.Category)
	}
}

func Profile(baseURL string) adapter.Profile {
	return adapter.Profile{
		Platform:   Name,
		BaseURL:    baseURL,
		SearchPath: "/buy-tickets",
		Params: adapter.Params{
			Query:    "search",
			City:     "location",
			DateFrom: "date_from",
			DateTo:   "date_to",
			Category: "category",
			Limit:    "limit",
			Static:   map[string]string{"sort": "date"},
		},
		DefaultLimit: 25,
		MaxLimit:     50,
		EventPath:    "/buy-tickets/%s",
		Card: adapter.Selectors{
			Card: []string{
				"div[class*='event-card']",
				"div[class*='search-item']",
				"article[class*='event']",
				"div[class*='ticket-listing']",
			},
			Name: []string{
				"h2", "h3", "h4",
				"span[class*='title']",
				"a[class*='event-title']",
				"div[class*='event-name']",
			},
			Link:     []string{"a[href*='/buy-']", "a[href*='-tickets']"},
			Date:     []string{"time", "span[class*='date']", "div[class*='date']"},
			Venue:    []string{"span[class*='venue']", "div[class*='venue']", "p[class*='venue']"},
			Location: []string{"span[class*='location']", "div[class*='city']", "span[class*='city']"},
			Price:    []string{"span[class*='price']", "div[class*='price']"},
			TicketCount: []string{
				"span[class*='available']",
				"span:contains('ticket')",
				"div[class*='quantity']",
			},
		},
		Detail: adapter.DetailSelectors{
			Name:     []string{"h1", "title"},
			Date:     []string{"span[class*='event-date']", "div[class*='date']", "time"},
			Venue:    []string{"span[class*='venue']", "div[class*='venue']", "h2[class*='venue']"},
			Location: []string{"span[class*='location']", "address", "div[class*='city']"},
			Description: []string{
				"div[class*='description']",
				"div[class*='event-info']",
				"section[class*='about']",
			},
			Category: []string{"span[class*='category']", "div[class*='genre']", "span[class*='sport']"},
			Listing: []string{
				"div[class*='listing']",
				"div[class*='ticket-row']",
				"tr[class*='ticket']",
				"div[class*='price-row']",
			},
			ListingPrice: []string{"[class*='price']"},
		},
		Links:           []string{"a[href*='/buy-'][href*='-tickets']"},
		Statuses:        tickets.CommonStatuses,
		Currency:        "USD",
		Country:         "United States",
		TitleSeparators: []string{"|"},
		TitleSuffixes:   []string{"Tickets"},
		Hooks: adapter.Hooks{
			ID:        EventID,
			Name:      NameFromURL,
			Card:      cardHook,
			Detail:    detailHook,
			Transform: transform,
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
