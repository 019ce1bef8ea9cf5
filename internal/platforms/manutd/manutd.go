// Package manutd scrapes the Manchester United ticketing fixtures list.
// The club only plays home games at Old Trafford so venues are static.
package manutd

import (
	"context"
	"regexp"
	"strings"
	"ticketscout/internal/adapter"
	"ticketscout/internal/config"
	"ticketscout/internal/tickets"
	"ticketscout/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	Name           = "manutd"
	DefaultBaseURL = "https://www.manutd.com"
	Club           = "Manchester United"
	VenueID        = "old-trafford"
)

var Statuses = tickets.CommonStatuses.Merge(tickets.StatusVocabulary{
	"onsale":         tickets.StatusAvailable,
	"buynow":         tickets.StatusAvailable,
	"generalsale":    tickets.StatusAvailable,
	"memberssale":    tickets.StatusPresale,
	"membersonly":    tickets.StatusPresale,
	"ballot":         tickets.StatusPresale,
	"notyetonsale":   tickets.StatusPresale,
	"comingsoon":     tickets.StatusPresale,
	"allocationsold": tickets.StatusSoldOut,
	"unavailable":    tickets.StatusNotAvailable,
})

// OldTrafford is the club's stadium, id becomes the record's id.
func OldTrafford(id string) tickets.Venue {
	if id == "" {
		id = VenueID
	}
	capacity := 74310
	return tickets.Venue{
		ID:       id,
		Platform: Name,
		Name:     "Old Trafford",
		Address:  "Sir Matt Busby Way, Old Trafford, Manchester M16 0RA",
		City:     "Manchester",
		Country:  "United Kingdom",
		Capacity: &capacity,
		Type:     "stadium",
		URL:      DefaultBaseURL + "/en/visit-old-trafford",
	}
}

var highDemandOpponents = map[string]bool{
	"liverpool":       true,
	"manchester city": true,
	"arsenal":         true,
	"chelsea":         true,
	"real madrid":     true,
	"barcelona":       true,
	"bayern munich":   true,
}

// DemandLevel rates a fixture by opponent.
func DemandLevel(opponent string) string {
	if highDemandOpponents[strings.ToLower(strings.TrimSpace(opponent))] {
		return "very_high"
	}
	return "high"
}

func isClub(team string) bool {
	t := strings.ToLower(team)
	return strings.Contains(t, "manchester united") || strings.Contains(t, "man utd") || t == "mufc"
}

func cardHook(raw *adapter.Raw, card *goquery.Selection) {
	home := htmlutil.Text(card.Find("[class*='team--home'], [class*='home-team']").First())
	away := htmlutil.Text(card.Find("[class*='team--away'], [class*='away-team']").First())
	if home == "" || away == "" {
		return
	}
	if raw.Name == "" {
		raw.Name = home + " vs " + away
	}
	homeMatch := isClub(home)
	opponent := away
	if !homeMatch {
		opponent = home
	}
	raw.Set("home_match", homeMatch)
	raw.Set("opponent", opponent)
	if homeMatch {
		if raw.Venue == "" {
			raw.Venue = "Old Trafford"
		}
		if raw.Location == "" {
			raw.Location = "Manchester"
		}
	}
	if competition := htmlutil.Text(card.Find("[class*='competition']").First()); competition != "" {
		raw.Set("competition", competition)
	}
}

var opponentPattern = regexp.MustCompile(`(?i)(?:manchester united|man utd)\s+(?:vs?\.?|-)\s+(.+)|(.+?)\s+(?:vs?\.?|-)\s+(?:manchester united|man utd)`)

func detailHook(raw *adapter.Raw, page *goquery.Selection) {
	if _, ok := raw.Field("opponent"); ok {
		return
	}
	m := opponentPattern.FindStringSubmatch(raw.Name)
	if m == nil {
		return
	}
	homeMatch := m[1] != ""
	opponent := strings.TrimSpace(m[1])
	if !homeMatch {
		opponent = strings.TrimSpace(m[2])
	}
	raw.Set("home_match", homeMatch)
	raw.Set("opponent", opponent)
	if homeMatch && raw.Venue == "" {
		raw.Venue = "Old Trafford"
		raw.Location = "Manchester"
	}
	if competition := htmlutil.Text(page.Find("[class*='competition']").First()); competition != "" {
		raw.Set("competition", competition)
	}
}

func transform(raw adapter.Raw, event *tickets.Event) {
	event.SetExtension(Name, "club", Club)
	event.SetExtension(Name, "home_match", raw.Bool("home_match"))
	if opponent, ok := raw.Field("opponent"); ok {
		name, _ := opponent.(string)
		event.SetExtension(Name, "opponent", name)
		event.SetExtension(Name, "demand_level", DemandLevel(name))
	}
	if competition, ok := raw.Field("competition"); ok {
		event.SetExtension(Name, "competition", competition)
	}
	if raw.Bool("home_match") {
		event.SetExtension(Name, "venue_id", VenueID)
	}
}

func Profile(baseURL string) adapter.Profile {
	return adapter.Profile{
		Platform:   Name,
		BaseURL:    baseURL,
		SearchPath: "/en/tickets",
		Params: adapter.Params{
			Query:    "q",
			Category: "competition",
			DateFrom: "from",
			DateTo:   "to",
		},
		DefaultLimit: 50,
		MaxLimit:     100,
		EventPath:    "/en/tickets/match/%s",
		Card: adapter.Selectors{
			Card:     []string{"div.fixture-card", "li[class*='fixture']", "div[class*='match-card']"},
			Name:     []string{"[class*='fixture__title']", "h3"},
			Link:     []string{"a[href*='/match/']"},
			Date:     []string{"time", "[class*='fixture__date']", "[class*='date']"},
			Time:     []string{"[class*='kick-off']", "[class*='kickoff']"},
			Venue:    []string{"[class*='venue']", "[class*='stadium']"},
			Price:    []string{"[class*='price']"},
			Status:   []string{"[class*='ticket-status']", "[class*='availability']"},
			Category: []string{"[class*='competition']"},
		},
		Detail: adapter.DetailSelectors{
			Name:     []string{"h1", "title"},
			Date:     []string{"time", "[class*='match-date']"},
			Time:     []string{"[class*='kick-off']"},
			Venue:    []string{"[class*='venue']", "[class*='stadium']"},
			Status:   []string{"[class*='ticket-status']", "[class*='availability']"},
			Category: []string{"[class*='competition']"},
			Listing:  []string{"[class*='price-band']", "[class*='ticket-category']"},
		},
		Links:           []string{"a[href*='/match/']"},
		IDPattern:       regexp.MustCompile(`/match/([A-Za-z0-9-]+)`),
		Statuses:        Statuses,
		Currency:        "GBP",
		Country:         "United Kingdom",
		DateLayouts:     []string{"Mon 2 Jan 2006 15:04", "Mon 2 Jan 2006"},
		TitleSeparators: []string{" | "},
		TitleSuffixes:   []string{"Tickets"},
		Hooks: adapter.Hooks{
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

// GetVenue always returns Old Trafford, away grounds are not tracked.
func (a *Adapter) GetVenue(ctx context.Context, id string) (tickets.Venue, error) {
	if err := ctx.Err(); err != nil {
		return tickets.Venue{}, err
	}
	return OldTrafford(id), nil
}
