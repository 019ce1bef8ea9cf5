package axs

import (
	"context"
	"testing"
	"ticketscout/internal/tickets"
	"ticketscout/lib/testutil"

	"github.com/stretchr/testify/require"
)

const searchBody = `
<div class="c-search-result">
	<span class="headliner">Kings of Leon</span>
	<a href="/events/551234/kings-of-leon-tickets">Tickets</a>
	<time datetime="2025-05-17T20:00:00">May 17</time>
	<span class="venue">The O2</span>
	<span class="city">London, UK</span>
	<span class="price">£65.00</span>
	<span class="cta">Buy Tickets</span>
	<span class="tag">Official Resale</span>
</div>
<div class="c-search-result">
	<span class="headliner">Kings of Leon</span>
	<a href="/events/551300/kings-of-leon-tickets">Tickets</a>
	<time datetime="2025-06-02">Jun 2</time>
	<span class="venue">Crypto.com Arena</span>
	<span class="city">Los Angeles, CA</span>
	<span class="cta">Coming Soon</span>
</div>`

const eventBody = `
<h1>Kings of Leon Tickets</h1>
<time datetime="2025-05-17T20:00:00">Sat May 17</time>
<span class="venue-name">The O2</span>
<span class="venue-location">London, UK</span>
<span class="presented-by">Presented by AEG Presents</span>
<p>Entry with Mobile ID only.</p>
<div class="price-level">Standing £65.00</div>
<div class="price-level">Block 101 £95.00</div>`

func TestSearch(t *testing.T) {
	env := testutil.SetupPlatform(t, testutil.PlatformParams{
		Routes: map[string]testutil.Page{"/search": testutil.HTML(searchBody)},
	})
	a, err := New(env.Config(), env.Deps)
	require.NoError(t, err)

	events, err := a.SearchEvents(context.Background(), tickets.SearchCriteria{Query: "kings of leon"})
	require.NoError(t, err)
	require.Len(t, events, 2)

	london := events[0]
	require.Equal(t, "551234", london.ID)
	require.Equal(t, "United Kingdom", london.Country)
	require.Equal(t, "GBP", london.Currency)
	require.Equal(t, tickets.StatusAvailable, london.Status)
	resale, _ := london.Extension(Name, "official_resale")
	require.Equal(t, true, resale)

	la := events[1]
	require.Equal(t, "Los Angeles", la.City)
	require.Equal(t, "United States", la.Country)
	require.Equal(t, "USD", la.Currency)
	require.Equal(t, tickets.StatusPresale, la.Status)

	req := env.Requests("/search")
	require.Len(t, req, 1)
	require.Equal(t, "24", req[0].Query.Get("per_page"))
}

func TestGetEvent(t *testing.T) {
	env := testutil.SetupPlatform(t, testutil.PlatformParams{
		Routes: map[string]testutil.Page{"/events/551234": testutil.HTML(eventBody)},
	})
	a, err := New(env.Config(), env.Deps)
	require.NoError(t, err)

	event, err := a.GetEvent(context.Background(), "551234")
	require.NoError(t, err)
	require.Equal(t, "Kings of Leon", event.Name)
	require.Equal(t, "The O2", event.Venue)
	require.Equal(t, "London", event.City)
	require.Equal(t, "65", event.PriceMin.Decimal.String())
	require.Equal(t, "95", event.PriceMax.Decimal.String())

	mobile, _ := event.Extension(Name, "mobile_entry")
	require.Equal(t, true, mobile)
	presenter, _ := event.Extension(Name, "presented_by")
	require.Equal(t, "AEG Presents", presenter)
}

func TestGetEventTickets(t *testing.T) {
	env := testutil.SetupPlatform(t, testutil.PlatformParams{
		Routes: map[string]testutil.Page{"/events/551234": testutil.HTML(eventBody)},
	})
	a, err := New(env.Config(), env.Deps)
	require.NoError(t, err)

	prices, err := a.GetEventTickets(context.Background(), "551234")
	require.NoError(t, err)
	require.Len(t, prices, 2)
	require.Equal(t, "GBP", prices[0].Currency)
}
