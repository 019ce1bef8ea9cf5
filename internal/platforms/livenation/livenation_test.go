package livenation

import (
	"context"
	"testing"
	"ticketscout/internal/tickets"
	"ticketscout/lib/testutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const searchBody = `
<ul>
<li class="event-card">
	<h3 class="event-title">Green Day: The Saviors Tour</h3>
	<p class="subtitle">with The Smashing Pumpkins, Rancid &amp; The Linda Lindas</p>
	<a href="/event/vvG1zZ9KbOlXpA/green-day-the-saviors-tour">Details</a>
	<time datetime="2025-08-29T18:30:00">Fri Aug 29</time>
	<span class="venue">Wrigley Field</span>
	<span class="location">Chicago, IL</span>
	<a class="cta" href="https://www.ticketmaster.com/event/04005E8FA1">Buy Tickets</a>
</li>
</ul>`

const eventBody = `
<h1>Green Day | Live Nation</h1>
<time datetime="2025-08-29T18:30:00">Fri Aug 29</time>
<span class="venue-name">Wrigley Field</span>
<span class="venue-address">Chicago, IL</span>
<div class="presale-banner">Citi Presale ends Thursday</div>
<a href="https://www.ticketmaster.com/event/04005E8FA1">Continue</a>`

func TestSearch(t *testing.T) {
	env := testutil.SetupPlatform(t, testutil.PlatformParams{
		Routes: map[string]testutil.Page{"/search": testutil.HTML(searchBody)},
	})
	a, err := New(env.Config(), env.Deps)
	require.NoError(t, err)

	events, err := a.SearchEvents(context.Background(), tickets.SearchCriteria{Query: "green day"})
	require.NoError(t, err)
	require.Len(t, events, 1)

	event := events[0]
	require.Equal(t, "vvG1zZ9KbOlXpA", event.ID)
	require.Equal(t, "Chicago", event.City)
	require.Equal(t, "United States", event.Country)
	require.Equal(t, tickets.StatusAvailable, event.Status)

	checkout, _ := event.Extension(Name, "checkout_url")
	require.Equal(t, "https://www.ticketmaster.com/event/04005E8FA1", checkout)
	acts, _ := event.Extension(Name, "support_acts")
	require.Equal(t, []string{"The Smashing Pumpkins", "Rancid", "The Linda Lindas"}, acts)
}

func TestGetEventPresale(t *testing.T) {
	env := testutil.SetupPlatform(t, testutil.PlatformParams{
		Routes: map[string]testutil.Page{"/event/vvG1zZ9KbOlXpA": testutil.HTML(eventBody)},
	})
	a, err := New(env.Config(), env.Deps)
	require.NoError(t, err)

	event, err := a.GetEvent(context.Background(), "vvG1zZ9KbOlXpA")
	require.NoError(t, err)
	require.Equal(t, "Green Day", event.Name)
	require.Equal(t, tickets.StatusPresale, event.Status)
	promoter, _ := event.Extension(Name, "promoter")
	require.Equal(t, "Live Nation", promoter)
}

func TestSplitActs(t *testing.T) {
	testCases := []struct {
		in     string
		expect []string
	}{
		{in: "with Foo", expect: []string{"Foo"}},
		{in: "Foo, Bar & Baz", expect: []string{"Foo", "Bar", "Baz"}},
		{in: "w/ Foo and Bar", expect: []string{"Foo", "Bar"}},
		{in: "", expect: nil},
	}
	for _, test := range testCases {
		t.Run(test.in, func(t *testing.T) {
			if diff := cmp.Diff(test.expect, splitActs(test.in)); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}
