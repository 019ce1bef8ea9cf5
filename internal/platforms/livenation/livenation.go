// Package livenation scrapes livenation.com. Checkout happens on
// Ticketmaster, the hand-off link is kept as an extension.
package livenation

import (
	"regexp"
	"strings"
	"ticketscout/internal/adapter"
	"ticketscout/internal/config"
	"ticketscout/internal/tickets"
	"ticketscout/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	Name           = "livenation"
	DefaultBaseURL = "https://www.livenation.com"
)

var Statuses = tickets.CommonStatuses.Merge(tickets.StatusVocabulary{
	"buytickets":    tickets.StatusAvailable,
	"getticket":     tickets.StatusAvailable,
	"gettickets":    tickets.StatusAvailable,
	"presale":       tickets.StatusPresale,
	"presalenow":    tickets.StatusPresale,
	"onsalesoon":    tickets.StatusPresale,
	"moreinfo":      tickets.StatusUnknown,
	"eventcanceled": tickets.StatusCancelled,
})

var ticketmasterLink = "a[href*='ticketmaster.']"

func checkout(raw *adapter.Raw, root *goquery.Selection) {
	if href, ok := root.Find(ticketmasterLink).First().Attr("href"); ok {
		raw.Set("checkout_url", strings.TrimSpace(href))
	}
}

func cardHook(raw *adapter.Raw, card *goquery.Selection) {
	checkout(raw, card)
	if support := htmlutil.Text(card.Find("[class*='support'], [class*='subtitle']").First()); support != "" {
		raw.Set("support_acts", splitActs(support))
	}
}

func detailHook(raw *adapter.Raw, page *goquery.Selection) {
	checkout(raw, page)
	if strings.Contains(strings.ToLower(htmlutil.Text(page.Find("[class*='presale']").First())), "presale") {
		raw.Canonical = tickets.StatusPresale
	}
}

var actSeparators = regexp.MustCompile(`\s*(?:,|&|\band\b|\bwith\b|\bw/)\s*`)

// splitActs splits "with Foo, Bar & Baz" into its acts.
func splitActs(text string) []string {
	var out []string
	for _, act := range actSeparators.Split(strings.TrimSpace(text), -1) {
		if act = strings.TrimSpace(act); act != "" {
			out = append(out, act)
		}
	}
	return out
}

func transform(raw adapter.Raw, event *tickets.Event) {
	event.SetExtension(Name, "promoter", "Live Nation")
	if url, ok := raw.Field("checkout_url"); ok {
		event.SetExtension(Name, "checkout_url", url)
	}
	if acts, ok := raw.Field("support_acts"); ok {
		event.SetExtension(Name, "support_acts", acts)
	}
}

func Profile(baseURL string) adapter.Profile {
	return adapter.Profile{
		Platform:   Name,
		BaseURL:    baseURL,
		SearchPath: "/search",
		Params: adapter.Params{
			Query:    "query",
			City:     "location",
			DateFrom: "startDate",
			DateTo:   "endDate",
			Category: "genre",
		},
		DefaultLimit: 20,
		MaxLimit:     60,
		EventPath:    "/event/%s",
		Card: adapter.Selectors{
			Card:     []string{"li[class*='event-card']", "div[class*='eventCard']", "article[data-testid='event']"},
			Name:     []string{"[class*='event-title']", "h3", "h2"},
			Link:     []string{"a[href*='/event/']"},
			Date:     []string{"time", "[class*='event-date']"},
			Venue:    []string{"[class*='venue']"},
			Location: []string{"[class*='location']", "[class*='city']"},
			Price:    []string{"[class*='price']"},
			Status:   []string{"[class*='cta']", "[class*='status']"},
		},
		Detail: adapter.DetailSelectors{
			Name:     []string{"h1", "title"},
			Date:     []string{"time", "[class*='date']"},
			Venue:    []string{"[class*='venue-name']", "[class*='venue']"},
			Location: []string{"[class*='venue-address']", "[class*='location']"},
			Status:   []string{"[class*='cta']", "[class*='status']"},
		},
		Links:           []string{"a[href*='/event/']"},
		IDPattern:       regexp.MustCompile(`/event/([A-Za-z0-9]+)`),
		Statuses:        Statuses,
		Currency:        "USD",
		TitleSeparators: []string{" | "},
		TitleSuffixes:   []string{"Tickets"},
		Hooks: adapter.Hooks{
			Card:      cardHook,
			Detail:    detailHook,
			Transform: transform,
			Country:   adapter.USCountryFromLocation,
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
