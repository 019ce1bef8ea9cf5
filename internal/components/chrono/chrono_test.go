package chrono

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStandardSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := StandardImpl{}.Sleep(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
}

func TestStandardSleep(t *testing.T) {
	start := time.Now()
	err := StandardImpl{}.Sleep(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestFake(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFake(start)

	require.NoError(t, clock.Sleep(context.Background(), 2*time.Second))
	clock.Advance(time.Second)
	require.NoError(t, clock.Sleep(context.Background(), 0))

	require.Equal(t, start.Add(3*time.Second), clock.Now())
	require.Equal(t, []time.Duration{2 * time.Second, 0}, clock.Sleeps())
	require.Equal(t, 2*time.Second, clock.Slept())
}
