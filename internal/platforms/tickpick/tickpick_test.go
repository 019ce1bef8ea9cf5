package tickpick

import (
	"context"
	"testing"
	"ticketscout/internal/tickets"
	"ticketscout/lib/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const searchBody = `
<div class="event-card">
	<h3>Taylor Swift | The Eras Tour</h3>
	<a href="/buy-taylor-swift-tickets-sofi-stadium-8-3-25/5432109">Tickets</a>
	<time datetime="2025-08-03">Aug 3</time>
	<span class="venue">SoFi Stadium</span>
	<span class="location">Inglewood, CA</span>
	<div class="fee-note"><span class="badge">No Fee</span> <span class="price">$389</span></div>
	<span class="available">1,204 tickets</span>
</div>
<div class="event-card">
	<h3>Taylor Swift Tribute</h3>
	<a href="/buy-taylor-swift-tribute-tickets/777">Tickets</a>
	<span class="price">$45</span>
</div>`

const linksBody = `
<ul>
	<li><a href="/buy-billy-joel-tickets-msg/4242"></a><span class="date">2025-04-10</span></li>
	<li><a href="/about">About</a></li>
</ul>`

const eventBody = `
<h1>Taylor Swift | The Eras Tour Tickets</h1>
<span class="event-date">2025-08-03 19:00</span>
<span class="venue">SoFi Stadium</span>
<span class="location">Inglewood, CA</span>
<div class="description">All prices are the final price you pay.</div>
<div class="listing">Section 110, No Fee <span class="price">$400</span></div>
<div class="listing">Section 540 <span class="price">$250</span></div>`

func TestSearch(t *testing.T) {
	env := testutil.SetupPlatform(t, testutil.PlatformParams{
		Routes: map[string]testutil.Page{"/buy-tickets": testutil.HTML(searchBody)},
	})
	a, err := New(env.Config(), env.Deps)
	require.NoError(t, err)

	events, err := a.SearchEvents(context.Background(), tickets.SearchCriteria{Query: "Taylor Swift", PerPage: 80})
	require.NoError(t, err)
	require.Len(t, events, 2)

	first := events[0]
	require.Equal(t, "5432109", first.ID)
	require.Equal(t, "Taylor Swift | The Eras Tour", first.Name)
	require.Equal(t, "2025-08-03", *first.Date)
	require.Equal(t, "Inglewood", first.City)
	require.Equal(t, "United States", first.Country)
	require.Equal(t, "USD", first.Currency)
	require.Equal(t, 1204, *first.TicketCount)
	require.True(t, first.Prices[0].NoFee)

	available, _ := first.Extension(Name, "is_no_fee_available")
	require.Equal(t, true, available)
	pricing, _ := first.Extension(Name, "no_fee_pricing")
	savings := pricing.(map[string]any)["savings_vs_competitors"].(FeeSavings)
	require.True(t, savings.EstimatedFeeSavings.Equal(decimal.RequireFromString("58.35")))

	second := events[1]
	require.Equal(t, "777", second.ID)
	require.False(t, second.Prices[0].NoFee)
	available, _ = second.Extension(Name, "is_no_fee_available")
	require.Equal(t, false, available)

	req := env.Requests("/buy-tickets")
	require.Len(t, req, 1)
	require.Equal(t, "Taylor Swift", req[0].Query.Get("search"))
	require.Equal(t, "date", req[0].Query.Get("sort"))
	require.Equal(t, "50", req[0].Query.Get("limit"))
}

func TestSearchLinkFallbackNamesFromURL(t *testing.T) {
	env := testutil.SetupPlatform(t, testutil.PlatformParams{
		Routes: map[string]testutil.Page{"/buy-tickets": testutil.HTML(linksBody)},
	})
	a, err := New(env.Config(), env.Deps)
	require.NoError(t, err)

	events, err := a.SearchEvents(context.Background(), tickets.SearchCriteria{Query: "Billy Joel"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "Billy Joel", events[0].Name)
	require.Equal(t, "4242", events[0].ID)
	require.Equal(t, "2025-04-10", *events[0].Date)
}

func TestGetEvent(t *testing.T) {
	env := testutil.SetupPlatform(t, testutil.PlatformParams{
		Routes: map[string]testutil.Page{"/buy-tickets/5432109": testutil.HTML(eventBody)},
	})
	a, err := New(env.Config(), env.Deps)
	require.NoError(t, err)

	event, err := a.GetEvent(context.Background(), "5432109")
	require.NoError(t, err)
	require.Equal(t, "Taylor Swift", event.Name)
	require.Equal(t, "19:00", *event.Time)
	require.Equal(t, 2, *event.AvailableListings)
	require.True(t, event.PriceMin.Decimal.Equal(decimal.NewFromInt(250)))

	var noFee []string
	for _, p := range event.Prices {
		if p.NoFee {
			noFee = append(noFee, p.Price.String())
		}
	}
	require.Equal(t, []string{"400"}, noFee)

	pricing, _ := event.Extension(Name, "no_fee_pricing")
	require.True(t, pricing.(map[string]any)["no_fee_price_min"].(decimal.Decimal).Equal(decimal.NewFromInt(400)))
}

func TestEventID(t *testing.T) {
	testCases := []struct {
		url    string
		expect string
	}{
		{url: "https://www.tickpick.com/buy-adele-tickets-caesars/8123", expect: "8123"},
		{url: "https://www.tickpick.com/buy-adele-tickets-caesars", expect: "adele-tickets-caesars"},
		{url: "https://www.tickpick.com/about", expect: ""},
	}
	for _, test := range testCases {
		t.Run(test.url, func(t *testing.T) {
			require.Equal(t, test.expect, EventID(test.url))
		})
	}
	require.Equal(t, "Adele", NameFromURL("/buy-adele-tickets/8123"))
}

func TestEstimateFeeSavings(t *testing.T) {
	testCases := []struct {
		price   string
		fees    string
		percent string
	}{
		// 10% + $10 wins under $200
		{price: "50", fees: "15", percent: "23.1"},
		{price: "200", fees: "30", percent: "13"},
		{price: "389", fees: "58.35", percent: "13"},
	}
	for _, test := range testCases {
		t.Run(test.price, func(t *testing.T) {
			savings, ok := EstimateFeeSavings(decimal.RequireFromString(test.price))
			require.True(t, ok)
			require.True(t, savings.EstimatedFeeSavings.Equal(decimal.RequireFromString(test.fees)), savings.EstimatedFeeSavings.String())
			require.True(t, savings.PercentageSavings.Equal(decimal.RequireFromString(test.percent)), savings.PercentageSavings.String())
		})
	}

	_, ok := EstimateFeeSavings(decimal.Zero)
	require.False(t, ok)
}
