package extract

import (
	"regexp"
	"strings"
	"ticketscout/internal/tickets"
	"ticketscout/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"golang.org/x/net/html"
)

var currencies = map[string]string{
	"$":      "USD",
	"us$":    "USD",
	"usd":    "USD",
	"dollar": "USD",
	"€":      "EUR",
	"eur":    "EUR",
	"euro":   "EUR",
	"£":      "GBP",
	"gbp":    "GBP",
	"pound":  "GBP",
	"¥":      "JPY",
	"jpy":    "JPY",
	"kč":     "CZK",
	"czk":    "CZK",
	"ca$":    "CAD",
	"cad":    "CAD",
	"a$":     "AUD",
	"aud":    "AUD",
}

// ParseCurrency maps a currency symbol, code or word onto its ISO code.
func ParseCurrency(raw string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.TrimSuffix(key, "s")
	code, ok := currencies[key]
	return code, ok
}

var numberToken = regexp.MustCompile(`\d(?:[\d.,]|\s\d{3}\b)*`)

// ExtractNumericPrice reads the first number out of s. Both "1,250.50" and
// the european "1.250,50" / "25,00" notations are understood.
func ExtractNumericPrice(s string) (decimal.Decimal, bool) {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	token := numberToken.FindString(s)
	if token == "" {
		return decimal.Decimal{}, false
	}
	token = strings.Join(strings.Fields(token), "")
	token = strings.TrimRight(token, ".,")

	lastDot := strings.LastIndex(token, ".")
	lastComma := strings.LastIndex(token, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			token = strings.ReplaceAll(token, ".", "")
			token = strings.Replace(token, ",", ".", 1)
		} else {
			token = strings.ReplaceAll(token, ",", "")
		}
	case lastComma >= 0:
		// a single comma followed by exactly two digits is a decimal comma
		if strings.Count(token, ",") == 1 && len(token)-lastComma-1 == 2 {
			token = strings.Replace(token, ",", ".", 1)
		} else {
			token = strings.ReplaceAll(token, ",", "")
		}
	case strings.Count(token, ".") > 1:
		token = strings.ReplaceAll(token, ".", "")
	}

	value, err := decimal.NewFromString(token)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return value, true
}

// priceSymbolPattern is the narrow pattern used over heuristically detected
// nodes, the number must directly follow a currency symbol.
var priceSymbolPattern = regexp.MustCompile(`([€$£¥]|Kč)\s*([0-9,]+(?:\.[0-9]{2})?)`)

// pricePattern accepts the symbol or code on either side of the amount.
var pricePattern = regexp.MustCompile(
	`(?i)(?:(€|\$|£|¥|Kč|EUR|USD|GBP|CZK|JPY)\s*(\d(?:[\d.,]|\s\d{3}\b)*))` +
		`|(?:(\d(?:[\d.,]|\s\d{3}\b)*)\s*(€|\$|£|¥|Kč|EUR|USD|GBP|CZK|JPY))`,
)

// PriceFromText finds the first amount with a currency marker in text.
func PriceFromText(text string) (tickets.PriceEntry, bool) {
	text = strings.ReplaceAll(text, "\u00a0", " ")
	m := pricePattern.FindStringSubmatch(text)
	if m == nil {
		return tickets.PriceEntry{}, false
	}
	symbol, amount := m[1], m[2]
	if symbol == "" {
		amount, symbol = m[3], m[4]
	}
	price, ok := ExtractNumericPrice(amount)
	if !ok {
		return tickets.PriceEntry{}, false
	}
	currency, _ := ParseCurrency(symbol)
	return tickets.PriceEntry{Price: price, Currency: currency, Section: "General"}, true
}

func priceFromSymbolText(text string) (tickets.PriceEntry, bool) {
	m := priceSymbolPattern.FindStringSubmatch(text)
	if m == nil {
		return tickets.PriceEntry{}, false
	}
	price, err := decimal.NewFromString(strings.ReplaceAll(m[2], ",", ""))
	if err != nil {
		return tickets.PriceEntry{}, false
	}
	currency, _ := ParseCurrency(m[1])
	return tickets.PriceEntry{Price: price, Currency: currency, Section: "General"}, true
}

var priceIndicators = []string{"$", "€", "£", "¥", "Kč", "USD", "EUR", "GBP", "CZK", "price", "cost"}

func classSelector(class string) string {
	fields := strings.Fields(class)
	if len(fields) == 0 {
		return ""
	}
	return "." + strings.Join(fields, ".")
}

// DetectPriceSelectors scans the page for classed elements whose own text
// carries a price indicator and returns class selectors for them.
func DetectPriceSelectors(root *goquery.Selection) []string {
	seen := map[string]bool{}
	var selectors []string
	root.Find("*").Each(func(_ int, s *goquery.Selection) {
		class, ok := s.Attr("class")
		if !ok {
			return
		}
		own := htmlutil.OwnText(s.Nodes[0])
		if strings.TrimSpace(own) == "" {
			return
		}
		for _, indicator := range priceIndicators {
			if !strings.Contains(own, indicator) {
				continue
			}
			selector := classSelector(class)
			if selector != "" && !seen[selector] {
				seen[selector] = true
				selectors = append(selectors, selector)
			}
			return
		}
	})
	return selectors
}

// PricesFromSelectors reads every node matched by selectors and keeps the
// ones whose text holds an amount with a currency marker.
func PricesFromSelectors(root *goquery.Selection, selectors []string, defaultCurrency string) []tickets.PriceEntry {
	return collectPrices(root, selectors, defaultCurrency, PriceFromText)
}

func collectPrices(root *goquery.Selection, selectors []string, defaultCurrency string, parse func(string) (tickets.PriceEntry, bool)) []tickets.PriceEntry {
	seen := map[*html.Node]bool{}
	var prices []tickets.PriceEntry
	for _, selector := range selectors {
		root.Find(selector).Each(func(_ int, s *goquery.Selection) {
			node := s.Nodes[0]
			if seen[node] {
				return
			}
			seen[node] = true
			entry, ok := parse(htmlutil.Text(s))
			if !ok {
				return
			}
			if entry.Currency == "" {
				entry.Currency = defaultCurrency
			}
			prices = append(prices, entry)
		})
	}
	return prices
}

type PriceSource string

const (
	PriceSourceNone     PriceSource = ""
	PriceSourceJSONLD   PriceSource = "jsonld"
	PriceSourceDetected PriceSource = "detected"
	PriceSourceFallback PriceSource = "fallback"
)

// ExtractPrices runs the price strategies in priority order and stops at
// the first one that yields anything: JSON-LD offers, heuristically
// detected price nodes, then fallback (which may be nil).
func ExtractPrices(root *goquery.Selection, defaultCurrency string, fallback func() []tickets.PriceEntry) ([]tickets.PriceEntry, PriceSource) {
	if prices := PricesFromLD(JSONLD(root, "Event"), defaultCurrency); len(prices) > 0 {
		return prices, PriceSourceJSONLD
	}
	if prices := collectPrices(root, DetectPriceSelectors(root), defaultCurrency, priceFromSymbolText); len(prices) > 0 {
		return prices, PriceSourceDetected
	}
	if fallback != nil {
		if prices := fallback(); len(prices) > 0 {
			return prices, PriceSourceFallback
		}
	}
	return nil, PriceSourceNone
}
