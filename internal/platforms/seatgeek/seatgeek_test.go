package seatgeek

import (
	"context"
	"net/http"
	"testing"
	"ticketscout/internal/config"
	"ticketscout/internal/tickets"
	"ticketscout/lib/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const eventsJSON = `{
	"events": [
		{
			"id": 17001234,
			"title": "Coldplay",
			"type": "concert",
			"status": "normal",
			"datetime_local": "2025-06-07T19:00:00",
			"time_tbd": false,
			"date_tbd": false,
			"url": "https://seatgeek.com/coldplay-tickets/pasadena-california-rose-bowl-2025-06-07-7-pm/concert/17001234",
			"score": 0.87,
			"venue": {"id": 1570, "name": "Rose Bowl", "city": "Pasadena", "state": "CA", "country": "US"},
			"stats": {"listing_count": 812, "visible_listing_count": 640, "lowest_price": 95, "highest_price": 640, "average_price": 210},
			"performers": [{"name": "Coldplay"}]
		},
		{
			"id": 17005555,
			"title": "Sold Out Gig",
			"status": "normal",
			"datetime_local": "2025-07-01T03:30:00",
			"time_tbd": true,
			"venue": {"name": "Troubadour", "city": "West Hollywood", "country": "US"},
			"stats": {"visible_listing_count": 0}
		}
	],
	"meta": {"total": 2, "page": 1, "per_page": 25}
}`

const venueJSON = `{
	"id": 1570,
	"name": "Rose Bowl",
	"address": "1001 Rose Bowl Dr",
	"extended_address": "Pasadena, CA 91103",
	"city": "Pasadena",
	"state": "CA",
	"country": "US",
	"capacity": 88565,
	"timezone": "America/Los_Angeles"
}`

const searchBody = `
<script type="application/ld+json">[{
	"@context": "https://schema.org",
	"@type": "MusicEvent",
	"name": "Coldplay",
	"startDate": "2025-06-07T19:00:00-07:00",
	"url": "https://seatgeek.com/coldplay-tickets/pasadena-california-rose-bowl-2025-06-07-7-pm/concert/17001234",
	"location": {"@type": "Place", "name": "Rose Bowl", "address": {"addressLocality": "Pasadena", "addressCountry": "US"}},
	"offers": {"@type": "AggregateOffer", "lowPrice": "95", "highPrice": "640", "priceCurrency": "USD"}
}]</script>`

func withClientID(cfg config.Platform) config.Platform {
	cfg.ClientID = "abc"
	return cfg
}

func TestSearchViaAPI(t *testing.T) {
	env := testutil.SetupPlatform(t, testutil.PlatformParams{
		Routes: map[string]testutil.Page{"/events": testutil.JSON(eventsJSON)},
	})
	a, err := New(withClientID(env.Config()), env.Deps)
	require.NoError(t, err)

	events, err := a.SearchEvents(context.Background(), tickets.SearchCriteria{Query: "Coldplay", City: "Pasadena"})
	require.NoError(t, err)
	require.Len(t, events, 2)

	first := events[0]
	require.Equal(t, "17001234", first.ID)
	require.Equal(t, "2025-06-07", *first.Date)
	require.Equal(t, "19:00", *first.Time)
	require.Equal(t, "Rose Bowl", first.Venue)
	require.Equal(t, "United States", first.Country)
	require.True(t, first.PriceMin.Decimal.Equal(decimal.NewFromInt(95)))
	require.Equal(t, 640, *first.TicketCount)
	require.Equal(t, 812, *first.AvailableListings)
	require.Equal(t, tickets.StatusAvailable, first.Status)
	performers, _ := first.Extension(Name, "performers")
	require.Equal(t, []string{"Coldplay"}, performers)

	second := events[1]
	require.Equal(t, "2025-07-01", *second.Date)
	require.Nil(t, second.Time)
	require.Equal(t, tickets.StatusSoldOut, second.Status)
	require.Equal(t, "USD", second.Currency)

	req := env.Requests("/events")
	require.Len(t, req, 1)
	require.Equal(t, "abc", req[0].Query.Get("client_id"))
	require.Equal(t, "Coldplay", req[0].Query.Get("q"))
	require.Equal(t, "Pasadena", req[0].Query.Get("venue.city"))
	require.Equal(t, "25", req[0].Query.Get("per_page"))
	require.Equal(t, "1", req[0].Query.Get("page"))
}

func TestAuthFailureFallsBackToScraping(t *testing.T) {
	env := testutil.SetupPlatform(t, testutil.PlatformParams{
		Routes: map[string]testutil.Page{
			"/events": {Status: http.StatusUnauthorized, ContentType: "application/json", Body: `{"message": "bad client id"}`},
			"/search": testutil.HTML(searchBody),
		},
	})
	a, err := New(withClientID(env.Config()), env.Deps)
	require.NoError(t, err)

	events, err := a.SearchEvents(context.Background(), tickets.SearchCriteria{Query: "Coldplay"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "17001234", events[0].ID)
	require.Equal(t, "Pasadena", events[0].City)
	require.True(t, events[0].PriceMax.Decimal.Equal(decimal.NewFromInt(640)))

	// auth failures are not retried
	require.Len(t, env.Requests("/events"), 1)
	require.True(t, env.Rec.Has("warning", "api-fallback"))
}

func TestGetVenue(t *testing.T) {
	env := testutil.SetupPlatform(t, testutil.PlatformParams{
		Routes: map[string]testutil.Page{"/venues/1570": testutil.JSON(venueJSON)},
	})
	a, err := New(withClientID(env.Config()), env.Deps)
	require.NoError(t, err)

	venue, err := a.GetVenue(context.Background(), "1570")
	require.NoError(t, err)
	require.Equal(t, "Rose Bowl", venue.Name)
	require.Equal(t, "1001 Rose Bowl Dr, Pasadena, CA 91103", venue.Address)
	require.Equal(t, 88565, *venue.Capacity)
	require.Equal(t, "United States", venue.Country)

	// served from the cache the second time
	_, err = a.GetVenue(context.Background(), "1570")
	require.NoError(t, err)
	require.Len(t, env.Requests("/venues/1570"), 1)
}

func TestGetVenueNotFoundWithoutScraping(t *testing.T) {
	env := testutil.SetupPlatform(t, testutil.PlatformParams{})
	cfg := withClientID(env.Config())
	disabled := false
	cfg.Scraping.Enabled = &disabled
	a, err := New(cfg, env.Deps)
	require.NoError(t, err)

	_, err = a.GetVenue(context.Background(), "999")
	var notFound *tickets.NotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Len(t, env.Requests("/venues/999"), 1)
}

func TestSearchParams(t *testing.T) {
	params := SearchParams("abc", tickets.SearchCriteria{Category: "concert", PerPage: 250, Page: 3})
	require.Equal(t, map[string]string{
		"client_id":       "abc",
		"per_page":        "100",
		"page":            "3",
		"sort":            "datetime_local.asc",
		"taxonomies.name": "concert",
	}, params)
}
