// Package ratelimit implements the per-platform sliding window limiter.
//
// Every platform has a (max requests, window) policy. A request is allowed
// immediately while fewer than max requests were recorded in the trailing
// window, otherwise the caller waits until the oldest one leaves the window.
// Bursts up to max are allowed, there is no refill rate.
package ratelimit

import (
	"context"
	"errors"
	"sort"
	"sync"
	"ticketscout/internal/components/chrono"
	"ticketscout/internal/components/kvstore"
	"ticketscout/internal/components/telemetry"
	"time"

	"github.com/goccy/go-json"
)

const (
	report_limiter_load  = "limiter.load"
	report_limiter_store = "limiter.store"
	report_limiter_wait  = "limiter.wait"
)

type Policy struct {
	Max    int           `json:"max" yaml:"max"`
	Window time.Duration `json:"window" yaml:"window"`
}

func (p Policy) valid() bool {
	return p.Max > 0 && p.Window > 0
}

// DefaultPolicies are the request budgets of every supported platform.
var DefaultPolicies = map[string]Policy{
	"ticketmaster": {Max: 5, Window: time.Minute},
	"stubhub":      {Max: 10, Window: time.Minute},
	"seatgeek":     {Max: 20, Window: time.Minute},
	"viagogo":      {Max: 5, Window: time.Minute},
	"tickpick":     {Max: 15, Window: time.Minute},
	"funzone":      {Max: 10, Window: time.Minute},
	"eventbrite":   {Max: 10, Window: time.Minute},
	"axs":          {Max: 10, Window: time.Minute},
	"livenation":   {Max: 10, Window: time.Minute},
	"manutd":       {Max: 5, Window: time.Minute},
}

type Limiter struct {
	store    kvstore.Store
	time     chrono.API
	tel      telemetry.API
	policies map[string]Policy

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLimiter creates a limiter, overrides are merged over DefaultPolicies.
func NewLimiter(store kvstore.Store, clock chrono.API, tel telemetry.API, overrides map[string]Policy) *Limiter {
	policies := make(map[string]Policy, len(DefaultPolicies)+len(overrides))
	for name, p := range DefaultPolicies {
		policies[name] = p
	}
	for name, p := range overrides {
		if p.valid() {
			policies[name] = p
		}
	}
	return &Limiter{
		store:    store,
		time:     clock,
		tel:      telemetry.NewScopedAPI("ratelimit", tel),
		policies: policies,
		locks:    map[string]*sync.Mutex{},
	}
}

// Policy returns the policy of a platform.
func (l *Limiter) Policy(platform string) (Policy, bool) {
	p, ok := l.policies[platform]
	return p, ok
}

// Platforms returns the platform names with a policy, sorted.
func (l *Limiter) Platforms() []string {
	out := make([]string, 0, len(l.policies))
	for name := range l.policies {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (l *Limiter) keyLock(key string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[key] = lock
	}
	return lock
}

func storageKey(key string) string {
	return "ratelimit:" + key
}

// CheckAndRecord atomically (within this process) trims the window of key,
// computes how long the caller has to wait and records the request at the
// moment it will actually be sent. A store failure allows the request
// without recording it.
func (l *Limiter) CheckAndRecord(ctx context.Context, key string, policy Policy) time.Duration {
	if !policy.valid() {
		return 0
	}

	lock := l.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	var window []int64
	raw, err := l.store.Get(ctx, storageKey(key))
	switch {
	case errors.Is(err, kvstore.ErrNotFound):
	case err != nil:
		l.tel.ReportWarning(report_limiter_load, err, key)
		return 0
	default:
		if err := json.Unmarshal(raw, &window); err != nil {
			l.tel.ReportWarning(report_limiter_load, err, key)
			window = nil
		}
	}

	now := l.time.Now()
	kept := window[:0]
	for _, ms := range window {
		if now.Sub(time.UnixMilli(ms)) < policy.Window {
			kept = append(kept, ms)
		}
	}

	var wait time.Duration
	if len(kept) >= policy.Max {
		sort.Slice(kept, func(i, j int) bool { return kept[i] < kept[j] })
		// with exactly max entries this is the oldest one, with more (callers
		// already queued behind the limit) it is the one whose expiry frees a slot.
		oldest := kept[len(kept)-policy.Max]
		wait = policy.Window - now.Sub(time.UnixMilli(oldest))
		if wait < 0 {
			wait = 0
		}
	}

	kept = append(kept, now.Add(wait).UnixMilli())
	encoded, err := json.Marshal(kept)
	if err != nil {
		l.tel.ReportWarning(report_limiter_store, err, key)
		return wait
	}
	// the recorded timestamp can be in the future by `wait`, keep it around
	// for a full window after that.
	if err := l.store.Put(ctx, storageKey(key), encoded, policy.Window+wait); err != nil {
		l.tel.ReportWarning(report_limiter_store, err, key)
	}
	return wait
}

// Throttle blocks until platform may issue another request. Platforms without
// a policy are never throttled. It returns early only when ctx is done.
func (l *Limiter) Throttle(ctx context.Context, platform string) {
	policy, ok := l.policies[platform]
	if !ok {
		return
	}
	wait := l.CheckAndRecord(ctx, platform, policy)
	if wait <= 0 {
		return
	}
	l.tel.ReportDebug(report_limiter_wait, platform, wait.String())
	telemetry.ObserveThrottleWait(platform, wait)
	_ = l.time.Sleep(ctx, wait)
}
