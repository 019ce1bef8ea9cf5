// Package aggregator fans a search out to several platforms and merges the
// results into a single, deduplicated, date ordered list.
package aggregator

import (
	"context"
	"maps"
	"sort"
	"sync"
	"ticketscout/internal/adapter"
	"ticketscout/internal/components/telemetry"
	"ticketscout/internal/tickets"
	"ticketscout/lib/textutil"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("internal/aggregator")

const (
	report_platform_failed = "platform-failed"
	report_unknown         = "unknown-platform"
	report_merged          = "merged-duplicates"
)

// DuplicateThreshold is the name similarity above which two events on the
// same date are taken to be the same event.
const DuplicateThreshold = 0.92

// ExtensionNamespace holds the merge bookkeeping on merged events.
const ExtensionNamespace = "aggregator"

type Result struct {
	Events []tickets.Event
	// Counts is the number of events each platform returned before merging.
	Counts map[string]int
	// Errors holds the platforms whose search failed, they contributed
	// nothing to Events.
	Errors map[string]error
	Took   time.Duration
}

type Aggregator struct {
	adapters map[string]adapter.Adapter
	tel      telemetry.API
	now      func() time.Time
}

func New(adapters []adapter.Adapter, tel telemetry.API) *Aggregator {
	byName := make(map[string]adapter.Adapter, len(adapters))
	for _, a := range adapters {
		byName[a.Name()] = a
	}
	return &Aggregator{
		adapters: byName,
		tel:      telemetry.NewScopedAPI("aggregator", tel),
		now:      time.Now,
	}
}

// Available lists the platforms this aggregator searches, sorted.
func (a *Aggregator) Available() []string {
	out := make([]string, 0, len(a.adapters))
	for name := range a.adapters {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Adapter returns the adapter of a platform.
func (a *Aggregator) Adapter(name string) (adapter.Adapter, bool) {
	ad, ok := a.adapters[name]
	return ad, ok
}

func (a *Aggregator) selected(platforms []string) []adapter.Adapter {
	if len(platforms) == 0 {
		platforms = a.Available()
	}
	out := make([]adapter.Adapter, 0, len(platforms))
	for _, name := range platforms {
		ad, ok := a.adapters[name]
		if !ok {
			a.tel.ReportWarning(report_unknown, name)
			continue
		}
		out = append(out, ad)
	}
	return out
}

// SearchAll searches platforms (every available one when empty)
// concurrently. A failing platform is recorded in Result.Errors and does not
// fail the search, only a cancelled ctx does.
func (a *Aggregator) SearchAll(ctx context.Context, criteria tickets.SearchCriteria, platforms ...string) (Result, error) {
	ctx, span := tracer.Start(ctx, "SearchAll")
	defer span.End()
	span.SetAttributes(attribute.String("query", criteria.Query))

	start := a.now()
	result := Result{
		Counts: map[string]int{},
		Errors: map[string]error{},
	}

	var mu sync.Mutex
	var all []tickets.Event
	wg := sync.WaitGroup{}
	for _, ad := range a.selected(platforms) {
		ad := ad
		wg.Add(1)
		go func() {
			defer wg.Done()

			events, err := ad.SearchEvents(ctx, criteria)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				a.tel.ReportBroken(report_platform_failed, ad.Name(), err)
				result.Errors[ad.Name()] = err
				return
			}
			result.Counts[ad.Name()] = len(events)
			all = append(all, events...)
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	merged := Dedupe(all)
	if n := len(all) - len(merged); n > 0 {
		a.tel.ReportCount(report_merged, int64(n))
	}
	SortByDate(merged)
	result.Events = merged
	result.Took = a.now().Sub(start)
	span.SetAttributes(attribute.Int("events", len(merged)))
	return result, nil
}

func sameDate(a, b tickets.Event) bool {
	if a.Date == nil || b.Date == nil {
		return false
	}
	return *a.Date == *b.Date
}

// cheaper reports whether a has a lower known minimum price than b.
func cheaper(a, b tickets.Event) bool {
	if !a.PriceMin.Valid {
		return false
	}
	if !b.PriceMin.Valid {
		return true
	}
	return a.PriceMin.Decimal.LessThan(b.PriceMin.Decimal)
}

func alsoOn(e tickets.Event) []string {
	v, _ := e.Extension(ExtensionNamespace, "also_on")
	list, _ := v.([]string)
	return list
}

func cloneExtensions(in map[string]map[string]any) map[string]map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]map[string]any, len(in))
	for ns, values := range in {
		out[ns] = maps.Clone(values)
	}
	return out
}

// Dedupe merges events that share a date and have near identical names
// (Jaro-Winkler similarity of at least DuplicateThreshold). The cheapest
// listing is kept, the platforms of the dropped ones are recorded in its
// aggregator.also_on extension. Order of first appearance is preserved.
func Dedupe(events []tickets.Event) []tickets.Event {
	out := make([]tickets.Event, 0, len(events))
	for _, event := range events {
		dup := -1
		for i, kept := range out {
			if sameDate(kept, event) && textutil.Similarity(kept.Name, event.Name) >= DuplicateThreshold {
				dup = i
				break
			}
		}
		if dup < 0 {
			out = append(out, event)
			continue
		}

		kept := out[dup]
		winner, loser := kept, event
		if cheaper(event, kept) {
			winner, loser = event, kept
		}
		platforms := append([]string{}, alsoOn(winner)...)
		platforms = append(platforms, loser.Platform)
		platforms = append(platforms, alsoOn(loser)...)
		winner.Extensions = cloneExtensions(winner.Extensions)
		winner.SetExtension(ExtensionNamespace, "also_on", platforms)
		out[dup] = winner
	}
	return out
}

// SortByDate orders events by date and time, undated events last. Ties
// are broken by name.
func SortByDate(events []tickets.Event) {
	key := func(e tickets.Event) string {
		if e.Date == nil {
			return ""
		}
		k := *e.Date
		if e.Time != nil {
			k += " " + *e.Time
		}
		return k
	}
	sort.SliceStable(events, func(i, j int) bool {
		ki, kj := key(events[i]), key(events[j])
		if ki == "" || kj == "" {
			return ki != "" && kj == ""
		}
		if ki != kj {
			return ki < kj
		}
		return events[i].Name < events[j].Name
	})
}

// UnderPrice keeps the events whose minimum price is at most max. Events
// without a known price are kept.
func UnderPrice(events []tickets.Event, max decimal.Decimal) []tickets.Event {
	out := make([]tickets.Event, 0, len(events))
	for _, e := range events {
		if e.PriceMin.Valid && e.PriceMin.Decimal.GreaterThan(max) {
			continue
		}
		out = append(out, e)
	}
	return out
}
