package tfidf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBestMatchNoPriors(t *testing.T) {
	match := BestMatch("the mitochondria is the powerhouse of the cell", nil)
	require.Equal(t, -1, match.Index)
	require.Zero(t, match.Score)
}

func TestBestMatchAllBlankPriors(t *testing.T) {
	match := BestMatch("some submission text", []string{"", "   ", "\t"})
	require.Equal(t, -1, match.Index)
	require.Zero(t, match.Score)
}

func TestBestMatchIdenticalText(t *testing.T) {
	text := "the mitochondria is the powerhouse of the cell"
	match := BestMatch(text, []string{text})
	require.Equal(t, 0, match.Index)
	require.InDelta(t, 1.0, match.Score, 0.0001)
}

func TestBestMatchIndexSkipsBlankEntries(t *testing.T) {
	text := "the quick brown fox jumps over the lazy dog"
	priors := []string{"", "completely unrelated essay about economics", text}

	match := BestMatch(text, priors)
	require.Equal(t, 2, match.Index)
	require.InDelta(t, 1.0, match.Score, 0.0001)
}

func TestBestMatchDissimilarTextScoresLow(t *testing.T) {
	match := BestMatch(
		"photosynthesis converts sunlight into chemical energy in plants",
		[]string{"the french revolution began in 1789 and reshaped europe"},
	)
	require.Equal(t, 0, match.Index)
	require.Less(t, match.Score, 0.1)
}

func TestBestMatchMonotonicWithOverlap(t *testing.T) {
	prior := "alpha beta gamma delta epsilon zeta eta theta"
	variants := []string{
		"one two three four five six seven eight",
		"alpha beta three four five six seven eight",
		"alpha beta gamma delta five six seven eight",
		"alpha beta gamma delta epsilon zeta seven eight",
		"alpha beta gamma delta epsilon zeta eta theta",
	}

	last := -1.0
	for _, variant := range variants {
		match := BestMatch(variant, []string{prior})
		require.GreaterOrEqual(t, match.Score, last, "overlap increase must not decrease score for %q", variant)
		last = match.Score
	}
	require.InDelta(t, 1.0, last, 0.0001)
}

func TestBestMatchPicksStrongestPrior(t *testing.T) {
	text := "binary search trees support logarithmic lookup and insertion"
	priors := []string{
		"bubble sort compares adjacent elements repeatedly",
		"binary search trees support logarithmic lookup and deletion",
		"hash tables offer constant time lookup on average",
	}

	match := BestMatch(text, priors)
	require.Equal(t, 1, match.Index)
	require.Greater(t, match.Score, 0.5)
}

func TestBestMatchScoreRounded(t *testing.T) {
	match := BestMatch(
		"shared words plus some unique content here",
		[]string{"shared words plus other distinct material there"},
	)
	rounded := float64(int(match.Score*10000+0.5)) / 10000
	require.InDelta(t, rounded, match.Score, 1e-9)
}
