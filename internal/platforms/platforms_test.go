package platforms

import (
	"testing"
	"ticketscout/internal/config"
	"ticketscout/lib/testutil"

	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	require.Equal(t, []string{
		"axs", "eventbrite", "funzone", "livenation", "manutd",
		"seatgeek", "stubhub", "ticketmaster", "tickpick", "viagogo",
	}, Names())
}

func TestBuildEveryPlatform(t *testing.T) {
	env := testutil.SetupPlatform(t, testutil.PlatformParams{})
	for _, name := range Names() {
		a, err := Build(name, env.Config(), env.Deps)
		require.NoError(t, err)
		require.Equal(t, name, a.Name())
	}
}

func TestBuildUnknown(t *testing.T) {
	env := testutil.SetupPlatform(t, testutil.PlatformParams{})
	_, err := Build("nope", env.Config(), env.Deps)
	require.ErrorIs(t, err, ErrUnknownPlatform)
}

func TestBuildEnabled(t *testing.T) {
	env := testutil.SetupPlatform(t, testutil.PlatformParams{})
	disabled := false
	cfg := config.Config{Platforms: map[string]config.Platform{
		"viagogo": {Enabled: &disabled},
	}}

	all, err := BuildEnabled(cfg, env.Deps)
	require.NoError(t, err)
	require.Len(t, all, len(Names())-1)
	for _, a := range all {
		require.NotEqual(t, "viagogo", a.Name())
	}

	some, err := BuildEnabled(cfg, env.Deps, "tickpick", "viagogo", "nope")
	require.ErrorIs(t, err, ErrUnknownPlatform)
	require.Len(t, some, 1)
	require.Equal(t, "tickpick", some[0].Name())
}
