package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"ticketscout/internal/components/chrono"
	"ticketscout/internal/components/kvstore"
	"ticketscout/internal/components/telemetry"
	"time"

	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestLimiter(policies map[string]Policy) (*Limiter, *chrono.Fake, *telemetry.Recorder) {
	clock := chrono.NewFake(epoch)
	rec := &telemetry.Recorder{}
	store := kvstore.NewMemoryStore(clock)
	return NewLimiter(store, clock, rec, policies), clock, rec
}

func TestWindowBlocksAfterMax(t *testing.T) {
	testCases := []struct {
		platform string
		policy   Policy
	}{
		{platform: "ticketmaster", policy: DefaultPolicies["ticketmaster"]},
		{platform: "seatgeek", policy: DefaultPolicies["seatgeek"]},
		{platform: "custom", policy: Policy{Max: 2, Window: 10 * time.Second}},
	}

	for _, test := range testCases {
		t.Run(test.platform, func(t *testing.T) {
			limiter, clock, _ := newTestLimiter(map[string]Policy{test.platform: test.policy})
			ctx := context.Background()

			for i := 0; i < test.policy.Max; i++ {
				limiter.Throttle(ctx, test.platform)
				clock.Advance(100 * time.Millisecond)
			}
			require.Empty(t, clock.Sleeps())

			limiter.Throttle(ctx, test.platform)
			sleeps := clock.Sleeps()
			require.Len(t, sleeps, 1)
			require.Greater(t, sleeps[0], time.Duration(0))
			require.LessOrEqual(t, sleeps[0], test.policy.Window)
			// the oldest request was made max*100ms ago
			elapsed := time.Duration(test.policy.Max) * 100 * time.Millisecond
			require.Equal(t, test.policy.Window-elapsed, sleeps[0])
		})
	}
}

func TestSpacedRequestsNeverBlock(t *testing.T) {
	limiter, clock, _ := newTestLimiter(nil)
	policy := DefaultPolicies["viagogo"]
	ctx := context.Background()

	for i := 0; i < policy.Max*3; i++ {
		limiter.Throttle(ctx, "viagogo")
		clock.Advance(policy.Window + time.Second)
	}
	require.Empty(t, clock.Sleeps())
}

func TestUnknownPlatformIsNoop(t *testing.T) {
	limiter, clock, _ := newTestLimiter(nil)
	for i := 0; i < 100; i++ {
		limiter.Throttle(context.Background(), "nowhere")
	}
	require.Empty(t, clock.Sleeps())
	_, ok := limiter.Policy("nowhere")
	require.False(t, ok)
}

func TestCheckAndRecordConcurrent(t *testing.T) {
	limiter, _, _ := newTestLimiter(nil)
	policy := Policy{Max: 5, Window: time.Minute}

	var wg sync.WaitGroup
	var mu sync.Mutex
	free := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wait := limiter.CheckAndRecord(context.Background(), "shared", policy)
			if wait == 0 {
				mu.Lock()
				free++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, policy.Max, free)
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (brokenStore) Put(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func (brokenStore) Has(context.Context, string) (bool, error) {
	return false, errors.New("connection refused")
}

func TestStoreUnavailableIsNoop(t *testing.T) {
	clock := chrono.NewFake(epoch)
	rec := &telemetry.Recorder{}
	limiter := NewLimiter(brokenStore{}, clock, rec, nil)

	for i := 0; i < 50; i++ {
		limiter.Throttle(context.Background(), "ticketmaster")
	}
	require.Empty(t, clock.Sleeps())
	require.True(t, rec.Has("warning", report_limiter_load))
}

func TestCorruptWindowIsReset(t *testing.T) {
	clock := chrono.NewFake(epoch)
	store := kvstore.NewMemoryStore(clock)
	require.NoError(t, store.Put(context.Background(), storageKey("stubhub"), []byte("not json"), time.Minute))

	limiter := NewLimiter(store, clock, &telemetry.Recorder{}, nil)
	wait := limiter.CheckAndRecord(context.Background(), "stubhub", DefaultPolicies["stubhub"])
	require.Zero(t, wait)
}

func TestOverridesAndPlatforms(t *testing.T) {
	limiter, _, _ := newTestLimiter(map[string]Policy{
		"stubhub": {Max: 1, Window: time.Second},
		"broken":  {Max: 0, Window: time.Second},
	})
	p, ok := limiter.Policy("stubhub")
	require.True(t, ok)
	require.Equal(t, 1, p.Max)
	_, ok = limiter.Policy("broken")
	require.False(t, ok)
	require.Contains(t, limiter.Platforms(), "funzone")
}
