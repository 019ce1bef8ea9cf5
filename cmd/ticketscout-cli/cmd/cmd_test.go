package cmd

import (
	"context"
	"errors"
	"testing"
	"ticketscout/internal/components/chrono"
	"ticketscout/internal/components/kvstore"
	"ticketscout/internal/components/telemetry"
	"ticketscout/internal/config"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestParseDay(t *testing.T) {
	day, err := parseDay("2025-03-09")
	require.NoError(t, err)
	require.Equal(t, "2025-03-09", day.Format("2006-01-02"))

	day, err = parseDay("")
	require.NoError(t, err)
	require.Nil(t, day)

	_, err = parseDay("09/03/2025")
	require.Error(t, err)
}

func TestExtensionRowsAreSorted(t *testing.T) {
	rows := extensionRows(map[string]map[string]any{
		"tickpick":   {"is_no_fee_available": true, "category": "concerts"},
		"aggregator": {"also_on": []string{"stubhub"}},
	})
	require.Equal(t, []table.Row{
		{"aggregator.also_on", "[stubhub]"},
		{"tickpick.category", "concerts"},
		{"tickpick.is_no_fee_available", "true"},
	}, rows)
}

func TestOpenCacheFallsBackWhenRedisIsDown(t *testing.T) {
	rec := &telemetry.Recorder{}
	clock := chrono.NewFake(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))

	store := openCache(context.Background(), config.Redis{URL: "redis://127.0.0.1:1/0"}, clock, rec)
	require.IsType(t, &kvstore.MemoryStore{}, store)
	require.True(t, rec.Has("warning", "redis-unavailable"))

	require.NoError(t, store.Put(context.Background(), "k", []byte("v"), time.Minute))
	value, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), value)
}

func TestOpenCacheWithoutRedis(t *testing.T) {
	rec := &telemetry.Recorder{}
	store := openCache(context.Background(), config.Redis{}, chrono.NewFake(time.Now()), rec)
	require.IsType(t, &kvstore.MemoryStore{}, store)
	require.Empty(t, rec.Reports(""))
}

func TestCleanupsRunWhenCommandFails(t *testing.T) {
	ran := false
	failing := &cobra.Command{
		Use:           "failing",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cleanups = append(cleanups, func() { ran = true })
			return errors.New("search failed")
		},
	}
	failing.SetArgs([]string{})

	err := execute(context.Background(), failing)
	require.EqualError(t, err, "search failed")
	require.True(t, ran)
	require.Empty(t, cleanups)
}
