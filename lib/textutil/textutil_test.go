package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	testCases := []struct {
		in       string
		expected string
	}{
		{in: "Sold Out", expected: "soldout"},
		{in: "  On\tSale \n", expected: "onsale"},
		{in: "Vypredané", expected: "vypredané"},
		{in: "", expected: ""},
	}
	for _, test := range testCases {
		require.Equal(t, test.expected, NormalizeName(test.in), test.in)
	}
}

func TestMatchName(t *testing.T) {
	require.True(t, MatchName("No Fee Tickets", []string{"nofee", "all-in"}))
	require.False(t, MatchName("Service fee applies", []string{"nofee"}))
}

func TestCollapseSpace(t *testing.T) {
	require.Equal(t, "Dec 15, 2024 8:00 PM", CollapseSpace("  Dec 15,\n  2024   8:00 PM "))
}

func TestSimilarity(t *testing.T) {
	require.Equal(t, 1.0, Similarity("Coldplay: Music of the Spheres", "coldplay music of the spheres"))
	require.Greater(t, Similarity("Coldplay - Live in London", "Coldplay Live in London!"), 0.92)
	require.Less(t, Similarity("Coldplay", "Taylor Swift"), 0.7)
	require.Equal(t, 0.0, Similarity("", "anything"))
}

func TestTitleCase(t *testing.T) {
	require.Equal(t, "Coldplay Music Of The Spheres", TitleCase("coldplay music of the  spheres"))
	require.Equal(t, "Šláger Fest", TitleCase("šláger fest"))
	require.Equal(t, "", TitleCase("  "))
}
