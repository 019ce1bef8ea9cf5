package extract

import (
	"strings"
	"testing"
	"ticketscout/internal/components/telemetry"
	"ticketscout/internal/tickets"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *goquery.Selection {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	require.NoError(t, err)
	return doc.Selection
}

func TestSelectorCascadeShortCircuits(t *testing.T) {
	root := parse(t, `<div>
		<h2 class="b">Second</h2>
		<h3 class="c">Third</h3>
	</div>`)

	var probed []string
	probe := selectionProbe(root, "")
	value, idx := FirstMatch([]string{".a", ".b", ".c"}, func(selector string) (string, bool) {
		probed = append(probed, selector)
		return probe(selector)
	})

	require.Equal(t, "Second", value)
	require.Equal(t, 1, idx)
	require.Equal(t, []string{".a", ".b"}, probed)
}

func TestTrySelectors(t *testing.T) {
	root := parse(t, `<div class="card">
		<a class="link" href="/e/42">  Coldplay
			World Tour </a>
		<img data-src="/img.png">
	</div>`)

	testCases := []struct {
		name      string
		selectors []string
		attr      string
		expect    string
	}{
		{name: "text of first match", selectors: []string{".title", "a.link"}, expect: "Coldplay World Tour"},
		{name: "attribute", selectors: []string{"a.missing", "a.link"}, attr: "href", expect: "/e/42"},
		{name: "missing attribute still stops", selectors: []string{"a.link", "img"}, attr: "data-src", expect: ""},
		{name: "no match", selectors: []string{".nope", "#nothing"}, expect: ""},
		{name: "empty list", expect: ""},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expect, TrySelectors(root, test.selectors, test.attr))
		})
	}
}

func TestSelectorStats(t *testing.T) {
	rec := &telemetry.Recorder{}
	stats := NewStats("testsite", rec)
	root := parse(t, `<div><h2 class="b">Second</h2><h3 class="c">Third</h3></div>`)

	for i := 0; i < 10; i++ {
		require.Equal(t, "Second", stats.TrySelectors(root, []string{".a", ".b", ".c"}, ""))
	}

	require.Equal(t, SelectorStat{Misses: 10}, stats.Get(".a"))
	require.Equal(t, SelectorStat{Hits: 10}, stats.Get(".b"))
	require.Equal(t, SelectorStat{}, stats.Get(".c"))
	require.Equal(t, []string{".a", ".b"}, stats.Selectors())

	reports := rec.Reports("debug")
	require.Len(t, reports, 2)
	require.Equal(t, report_selector_stats, reports[0].ID)

	require.Equal(t, 100.0, SelectorStat{Hits: 3}.SuccessRate())
	require.Equal(t, 33.33, SelectorStat{Hits: 1, Misses: 2}.SuccessRate())

	var nilStats *Stats
	require.Equal(t, "Third", nilStats.TrySelectors(root, []string{".c"}, ""))
}

const ldPage = `<html><head>
<script type="application/ld+json">{"@context":"https://schema.org","@type":"Organization","name":"StubHub"}</script>
<script type="application/ld+json">[
	{"@type":"MusicEvent","name":"Coldplay","startDate":"2025-06-20T19:30:00+01:00",
	 "eventStatus":"https://schema.org/EventScheduled",
	 "location":{"@type":"Place","name":"Wembley Stadium","address":{"addressLocality":"London","addressCountry":"GB"}},
	 "offers":[
		{"@type":"Offer","name":"Floor","price":"89.50","priceCurrency":"GBP","availability":"https://schema.org/InStock"},
		{"@type":"Offer","name":"Upper Tier","price":45,"priceCurrency":"GBP"}
	 ]}
]</script>
<script type="application/ld+json">{"@graph":[{"@type":"Event","name":"Adele","offers":{"@type":"AggregateOffer","lowPrice":"60","highPrice":"250","priceCurrency":"EUR"}}]}</script>
<script type="application/ld+json">{ not json</script>
</head><body><span class="price">£12</span></body></html>`

func TestJSONLD(t *testing.T) {
	root := parse(t, ldPage)

	require.Len(t, JSONLD(root, ""), 3)

	events := JSONLD(root, "Event")
	require.Len(t, events, 2)
	require.Equal(t, "Coldplay", events[0].String("name"))
	require.Equal(t, "Adele", events[1].String("name"))

	ev := ParseLDEvent(events[0], "USD")
	require.Equal(t, "Wembley Stadium", ev.Venue)
	require.Equal(t, "London", ev.City)
	require.Equal(t, "GB", ev.Country)
	require.Equal(t, tickets.StatusAvailable, ev.Status)
	require.Equal(t, "2025-06-20T19:30:00+01:00", ev.StartDate)
	require.Len(t, ev.Prices, 2)
	require.Equal(t, "Floor", ev.Prices[0].Section)
	require.True(t, decimal.RequireFromString("89.5").Equal(ev.Prices[0].Price))
	require.True(t, decimal.NewFromInt(45).Equal(ev.Prices[1].Price))

	adele := ParseLDEvent(events[1], "USD")
	require.Len(t, adele.Prices, 2)
	require.Equal(t, "EUR", adele.Prices[0].Currency)
	require.True(t, decimal.NewFromInt(60).Equal(adele.Prices[0].Price))
	require.True(t, decimal.NewFromInt(250).Equal(adele.Prices[1].Price))
	require.Equal(t, tickets.StatusUnknown, adele.Status)
}

func TestPriceFallbackOrdering(t *testing.T) {
	fallbackCalls := 0
	fallback := func() []tickets.PriceEntry {
		fallbackCalls++
		return []tickets.PriceEntry{{Price: decimal.NewFromInt(1), Currency: "USD", Section: "General"}}
	}

	t.Run("json-ld wins over selectors", func(t *testing.T) {
		prices, source := ExtractPrices(parse(t, ldPage), "USD", fallback)
		require.Equal(t, PriceSourceJSONLD, source)
		require.Len(t, prices, 4)
		require.True(t, decimal.RequireFromString("89.5").Equal(prices[0].Price))
		require.Zero(t, fallbackCalls)
	})

	t.Run("detected selectors without json-ld", func(t *testing.T) {
		root := parse(t, `<div class="listing">
			<span class="ticket-price amount">£45</span>
			<span class="ticket-price amount">£1,250.00</span>
			<p>nothing here</p>
		</div>`)
		prices, source := ExtractPrices(root, "USD", fallback)
		require.Equal(t, PriceSourceDetected, source)
		require.Len(t, prices, 2)
		require.Equal(t, "GBP", prices[0].Currency)
		require.True(t, decimal.NewFromInt(45).Equal(prices[0].Price))
		require.True(t, decimal.NewFromInt(1250).Equal(prices[1].Price))
		require.Zero(t, fallbackCalls)
	})

	t.Run("fallback last", func(t *testing.T) {
		prices, source := ExtractPrices(parse(t, `<div><p>Sold out</p></div>`), "USD", fallback)
		require.Equal(t, PriceSourceFallback, source)
		require.Len(t, prices, 1)
		require.Equal(t, 1, fallbackCalls)
	})

	t.Run("nothing", func(t *testing.T) {
		prices, source := ExtractPrices(parse(t, `<div></div>`), "USD", nil)
		require.Equal(t, PriceSourceNone, source)
		require.Empty(t, prices)
	})
}

func TestPricesFromSelectors(t *testing.T) {
	root := parse(t, `<ul>
		<li class="cena">25,00 €</li>
		<li class="cena">1 250 Kč</li>
		<li class="cena">vypredané</li>
	</ul>`)

	prices := PricesFromSelectors(root, []string{".cena", "li"}, "EUR")
	require.Len(t, prices, 2)
	require.Equal(t, "EUR", prices[0].Currency)
	require.True(t, decimal.NewFromInt(25).Equal(prices[0].Price))
	require.Equal(t, "CZK", prices[1].Currency)
	require.True(t, decimal.NewFromInt(1250).Equal(prices[1].Price))
}

func TestExtractNumericPrice(t *testing.T) {
	testCases := []struct {
		in     string
		expect string
		ok     bool
	}{
		{in: "$1,250.50", expect: "1250.5", ok: true},
		{in: "1.250,50 €", expect: "1250.5", ok: true},
		{in: "25,00 €", expect: "25", ok: true},
		{in: "€ 45", expect: "45", ok: true},
		{in: "1 250 Kč", expect: "1250", ok: true},
		{in: "from 45 - 120", expect: "45", ok: true},
		{in: "1,250", expect: "1250", ok: true},
		{in: "89.99", expect: "89.99", ok: true},
		{in: "free", ok: false},
		{in: "", ok: false},
	}

	for _, test := range testCases {
		t.Run(test.in, func(t *testing.T) {
			got, ok := ExtractNumericPrice(test.in)
			require.Equal(t, test.ok, ok)
			if test.ok {
				require.True(t, decimal.RequireFromString(test.expect).Equal(got), "got %s", got)
			}
		})
	}
}

func TestParseCurrency(t *testing.T) {
	testCases := []struct {
		in     string
		expect string
		ok     bool
	}{
		{in: "$", expect: "USD", ok: true},
		{in: "€", expect: "EUR", ok: true},
		{in: "£", expect: "GBP", ok: true},
		{in: "¥", expect: "JPY", ok: true},
		{in: "Kč", expect: "CZK", ok: true},
		{in: " eur ", expect: "EUR", ok: true},
		{in: "Euros", expect: "EUR", ok: true},
		{in: "xyz"},
	}

	for _, test := range testCases {
		t.Run(test.in, func(t *testing.T) {
			got, ok := ParseCurrency(test.in)
			require.Equal(t, test.ok, ok)
			require.Equal(t, test.expect, got)
		})
	}
}

func TestPriceFromText(t *testing.T) {
	testCases := []struct {
		in       string
		price    string
		currency string
		ok       bool
	}{
		{in: "Tickets from £45", price: "45", currency: "GBP", ok: true},
		{in: "25,00 €", price: "25", currency: "EUR", ok: true},
		{in: "Cena: 1 250 Kč", price: "1250", currency: "CZK", ok: true},
		{in: "USD 99.99 incl. fees", price: "99.99", currency: "USD", ok: true},
		{in: "no price yet"},
	}

	for _, test := range testCases {
		t.Run(test.in, func(t *testing.T) {
			got, ok := PriceFromText(test.in)
			require.Equal(t, test.ok, ok)
			if !test.ok {
				return
			}
			require.Equal(t, test.currency, got.Currency)
			require.True(t, decimal.RequireFromString(test.price).Equal(got.Price), "got %s", got.Price)
		})
	}
}

func TestDateRoundTrip(t *testing.T) {
	moments := []time.Time{
		time.Date(2024, time.July, 23, 19, 30, 0, 0, time.UTC),
		time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.February, 29, 12, 5, 0, 0, time.UTC),
		time.Date(2025, time.March, 14, 9, 7, 0, 0, time.UTC),
		time.Date(2026, time.January, 5, 0, 45, 0, 0, time.UTC),
		time.Date(2025, time.May, 1, 23, 59, 0, 0, time.UTC),
	}

	for _, layout := range DateLayouts {
		for _, moment := range moments {
			// "05/01/2026" is read day-first, month-first layouts only
			// round trip once the day is past 12
			if strings.HasPrefix(layout, "01/02") && moment.Day() <= 12 {
				continue
			}
			in := moment.Format(layout)
			t.Run(layout+"/"+in, func(t *testing.T) {
				parsed, ok := ParseDate(in)
				require.True(t, ok)
				expect := moment
				if !layoutHasTime(layout) {
					expect = time.Date(moment.Year(), moment.Month(), moment.Day(), 0, 0, 0, 0, time.UTC)
				}
				require.Equal(t, layoutHasTime(layout), parsed.HasTime)
				require.Equal(t, expect, parsed.Time)
				require.Equal(t, in, parsed.Time.Format(layout))
			})
		}
	}
}

func TestDayFirstBeatsMonthFirst(t *testing.T) {
	parsed, ok := ParseDate("03/04/2025")
	require.True(t, ok)
	require.Equal(t, time.Date(2025, time.April, 3, 0, 0, 0, 0, time.UTC), parsed.Time)

	parsed, ok = ParseDate("04/23/2025 00:15")
	require.True(t, ok)
	require.Equal(t, time.Date(2025, time.April, 23, 0, 15, 0, 0, time.UTC), parsed.Time)
}

func TestParseDate(t *testing.T) {
	testCases := []struct {
		name    string
		in      string
		extra   []string
		expect  time.Time
		hasTime bool
		ok      bool
	}{
		{
			name:    "english with prefix",
			in:      "Date:  Jul 23, 2024   7:30 PM",
			expect:  time.Date(2024, 7, 23, 19, 30, 0, 0, time.UTC),
			hasTime: true,
			ok:      true,
		},
		{
			name:   "when prefix",
			in:     "When: 2024-07-23",
			expect: time.Date(2024, 7, 23, 0, 0, 0, 0, time.UTC),
			ok:     true,
		},
		{
			name:    "slovak prefix",
			in:      "Dátum: 23.07.2024 19:30",
			expect:  time.Date(2024, 7, 23, 19, 30, 0, 0, time.UTC),
			hasTime: true,
			ok:      true,
		},
		{
			name:    "site layout",
			in:      "5. 3. 2025 20:00",
			extra:   []string{"2. 1. 2006 15:04"},
			expect:  time.Date(2025, 3, 5, 20, 0, 0, 0, time.UTC),
			hasTime: true,
			ok:      true,
		},
		{
			name:   "ambiguous slash is day first",
			in:     "03/04/2025",
			expect: time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC),
			ok:     true,
		},
		{
			name:    "permissive weekday and ordinal",
			in:      "Saturday, July 23rd, 2024 at 7:30pm",
			expect:  time.Date(2024, 7, 23, 19, 30, 0, 0, time.UTC),
			hasTime: true,
			ok:      true,
		},
		{
			name:    "iso timestamp",
			in:      "2025-06-20T19:30:00Z",
			expect:  time.Date(2025, 6, 20, 19, 30, 0, 0, time.UTC),
			hasTime: true,
			ok:      true,
		},
		{
			name:   "non padded european",
			in:     "5.3.2025",
			expect: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
			ok:     true,
		},
		{name: "placeholder", in: "TBA"},
		{name: "empty", in: "   "},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			parsed, ok := ParseDate(test.in, test.extra...)
			require.Equal(t, test.ok, ok)
			if !test.ok {
				require.Nil(t, parsed.Pointer())
				return
			}
			require.True(t, test.expect.Equal(parsed.Time), "got %s", parsed.Time)
			require.Equal(t, test.hasTime, parsed.HasTime)
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	testCases := []struct {
		href   string
		base   string
		expect string
	}{
		{href: "https://www.stubhub.com/e/1", base: "https://x.com", expect: "https://www.stubhub.com/e/1"},
		{href: "//cdn.stubhub.com/e/1", base: "https://www.stubhub.com", expect: "https://cdn.stubhub.com/e/1"},
		{href: "/event/1", base: "https://www.funzone.sk/", expect: "https://www.funzone.sk/event/1"},
		{href: "/event/1", base: "https://www.funzone.sk/sk/", expect: "https://www.funzone.sk/event/1"},
		{href: "event/1", base: "https://www.funzone.sk/", expect: "https://www.funzone.sk/event/1"},
		{href: "./event/1", base: "https://www.funzone.sk", expect: "https://www.funzone.sk/event/1"},
		{href: "  ", base: "https://www.funzone.sk", expect: ""},
	}

	for _, test := range testCases {
		t.Run(test.href, func(t *testing.T) {
			require.Equal(t, test.expect, NormalizeURL(test.href, test.base))
		})
	}
}
