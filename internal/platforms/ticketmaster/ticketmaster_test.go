package ticketmaster

import (
	"context"
	"testing"
	"ticketscout/internal/tickets"
	"ticketscout/lib/testutil"

	"github.com/stretchr/testify/require"
)

const searchBody = `
<ul>
<li data-testid="event-list-item">
	<span data-testid="event-title">Coldplay: Music of the Spheres</span>
	<a href="/coldplay-music-of-the-spheres-foxborough-massachusetts-06-05-2025/event/01006084D1A2">Find tickets</a>
	<time datetime="2025-06-05T19:30:00">Jun 5</time>
	<span data-testid="event-venue">Gillette Stadium</span>
	<span data-testid="event-location">Foxborough, MA</span>
	<span class="price-range">$89.50</span>
	<span data-testid="event-status">Find Tickets</span>
	<span class="resale-badge">Verified Resale</span>
</li>
<li data-testid="event-list-item">
	<span data-testid="event-title">Coldplay: Music of the Spheres</span>
	<a href="/coldplay-toronto/event/10006084F5B3">Find tickets</a>
	<time datetime="2025-07-12">Jul 12</time>
	<span data-testid="event-location">Toronto, ON, Canada</span>
	<span data-testid="event-status">Cancelled</span>
</li>
</ul>`

const eventBody = `
<script type="application/ld+json">
{"@context":"https://schema.org","@type":"MusicEvent","name":"Coldplay: Music of the Spheres",
 "startDate":"2025-06-05T19:30:00-04:00","eventStatus":"https://schema.org/EventScheduled",
 "location":{"@type":"Place","name":"Gillette Stadium","address":{"addressLocality":"Foxborough","addressCountry":"US"}},
 "offers":{"@type":"AggregateOffer","lowPrice":"89.50","highPrice":"450","priceCurrency":"USD","availability":"https://schema.org/InStock"}}
</script>
<h1>Coldplay Tickets</h1>`

func TestSearch(t *testing.T) {
	env := testutil.SetupPlatform(t, testutil.PlatformParams{
		Routes: map[string]testutil.Page{"/search": testutil.HTML(searchBody)},
	})
	a, err := New(env.Config(), env.Deps)
	require.NoError(t, err)

	events, err := a.SearchEvents(context.Background(), tickets.SearchCriteria{Query: "Coldplay", City: "Boston"})
	require.NoError(t, err)
	require.Len(t, events, 2)

	first := events[0]
	require.Equal(t, "01006084D1A2", first.ID)
	require.Equal(t, "2025-06-05", *first.Date)
	require.Equal(t, "19:30", *first.Time)
	require.Equal(t, "Foxborough", first.City)
	require.Equal(t, "United States", first.Country)
	require.Equal(t, tickets.StatusAvailable, first.Status)
	require.Equal(t, "89.5", first.PriceMin.Decimal.String())
	resale, _ := first.Extension(Name, "verified_resale")
	require.Equal(t, true, resale)

	second := events[1]
	require.Equal(t, "Toronto", second.City)
	require.Equal(t, "Canada", second.Country)
	require.Equal(t, tickets.StatusCancelled, second.Status)

	req := env.Requests("/search")
	require.Len(t, req, 1)
	require.Equal(t, "Coldplay", req[0].Query.Get("q"))
	require.Equal(t, "Boston", req[0].Query.Get("loc"))
	require.Equal(t, "20", req[0].Query.Get("size"))
}

func TestGetEvent(t *testing.T) {
	env := testutil.SetupPlatform(t, testutil.PlatformParams{
		Routes: map[string]testutil.Page{"/event/01006084D1A2": testutil.HTML(eventBody)},
	})
	a, err := New(env.Config(), env.Deps)
	require.NoError(t, err)

	event, err := a.GetEvent(context.Background(), "01006084D1A2")
	require.NoError(t, err)
	require.Equal(t, "01006084D1A2", event.ID)
	require.Equal(t, "Coldplay: Music of the Spheres", event.Name)
	require.Equal(t, "Gillette Stadium", event.Venue)
	require.Equal(t, tickets.StatusAvailable, event.Status)
	require.Equal(t, "450", event.PriceMax.Decimal.String())
}

func TestGetEventBlockedIsEmpty(t *testing.T) {
	env := testutil.SetupPlatform(t, testutil.PlatformParams{
		Routes: map[string]testutil.Page{"/event/1": {Status: 403, Body: "Access denied"}},
	})
	a, err := New(env.Config(), env.Deps)
	require.NoError(t, err)

	event, err := a.GetEvent(context.Background(), "1")
	require.NoError(t, err)
	require.Equal(t, tickets.Event{}, event)
	require.NotEmpty(t, env.Rec.Reports("broken"))
}
