// Package extract holds the markup-tolerant helpers every scraped platform
// routes through: selector cascades, JSON-LD, prices, dates and urls.
package extract

import (
	"sort"
	"sync"
	"ticketscout/internal/components/telemetry"
	"ticketscout/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const report_selector_stats = "extract.selector-stats"

// statsReportEvery is how many attempts on a single selector pass between
// effectiveness reports.
const statsReportEvery = 10

// FirstMatch runs probe over selectors in order and stops at the first one
// that reports ok. It returns the probed value and the index of the
// selector, or ("", -1).
func FirstMatch(selectors []string, probe func(selector string) (string, bool)) (string, int) {
	for i, selector := range selectors {
		if value, ok := probe(selector); ok {
			return value, i
		}
	}
	return "", -1
}

func selectionProbe(root *goquery.Selection, attr string) func(string) (string, bool) {
	return func(selector string) (string, bool) {
		node := root.Find(selector).First()
		if node.Length() == 0 {
			return "", false
		}
		if attr == "" {
			return htmlutil.Text(node), true
		}
		value, _ := node.Attr(attr)
		return value, true
	}
}

// TrySelectors returns the text (or attr when non-empty) of the first node
// matched by the first selector that matches anything under root.
func TrySelectors(root *goquery.Selection, selectors []string, attr string) string {
	value, _ := FirstMatch(selectors, selectionProbe(root, attr))
	return value
}

type SelectorStat struct {
	Hits   int
	Misses int
}

func (s SelectorStat) Total() int {
	return s.Hits + s.Misses
}

// SuccessRate is the hit percentage rounded to 2 decimals.
func (s SelectorStat) SuccessRate() float64 {
	if s.Total() == 0 {
		return 0
	}
	rate := float64(s.Hits) / float64(s.Total()) * 100
	return float64(int(rate*100+0.5)) / 100
}

// Stats tracks how often each selector of a platform actually matches, so
// selectors that rot after a redesign show up in the logs.
type Stats struct {
	platform string
	tel      telemetry.API

	mutex sync.Mutex
	stats map[string]SelectorStat
}

func NewStats(platform string, tel telemetry.API) *Stats {
	return &Stats{
		platform: platform,
		tel:      tel,
		stats:    map[string]SelectorStat{},
	}
}

func (s *Stats) Track(selector string, ok bool) {
	s.mutex.Lock()
	stat := s.stats[selector]
	if ok {
		stat.Hits++
	} else {
		stat.Misses++
	}
	s.stats[selector] = stat
	s.mutex.Unlock()

	if stat.Total()%statsReportEvery == 0 {
		s.tel.ReportDebug(
			report_selector_stats,
			"platform", s.platform,
			"selector", selector,
			"success_rate", stat.SuccessRate(),
			"total_attempts", stat.Total(),
			"successful", stat.Hits,
			"failed", stat.Misses,
		)
	}
}

func (s *Stats) Get(selector string) SelectorStat {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.stats[selector]
}

// Selectors lists every tracked selector, sorted.
func (s *Stats) Selectors() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	out := make([]string, 0, len(s.stats))
	for selector := range s.stats {
		out = append(out, selector)
	}
	sort.Strings(out)
	return out
}

// TrySelectors is the package level TrySelectors that also records a miss
// for every selector tried before the hit. A nil Stats only extracts.
func (s *Stats) TrySelectors(root *goquery.Selection, selectors []string, attr string) string {
	probe := selectionProbe(root, attr)
	if s == nil {
		value, _ := FirstMatch(selectors, probe)
		return value
	}
	value, _ := FirstMatch(selectors, func(selector string) (string, bool) {
		value, ok := probe(selector)
		s.Track(selector, ok)
		return value, ok
	})
	return value
}
