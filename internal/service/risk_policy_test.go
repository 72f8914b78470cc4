package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/veritas-lms/veritas-go-api/internal/models"
)

func TestClassifyNoPriors(t *testing.T) {
	verdict := DefaultPolicyConfig().Classify(false, 0, SemanticOutcome{})

	require.Equal(t, models.RiskLow, verdict.Risk)
	require.Equal(t, models.PlagiarismStatusAccepted, verdict.Status)
	require.Zero(t, verdict.Similarity)
	require.Nil(t, verdict.Semantic)
}

func TestClassifyBelowStage1Threshold(t *testing.T) {
	// A semantic score may exist (the embedding is always generated) but
	// must not influence classification below the structural gate.
	verdict := DefaultPolicyConfig().Classify(true, 0.39, SemanticOutcome{Scored: true, Score: 0.95})

	require.Equal(t, models.RiskLow, verdict.Risk)
	require.Equal(t, models.PlagiarismStatusAccepted, verdict.Status)
	require.InDelta(t, 0.39, verdict.Similarity, 1e-9)
	require.Nil(t, verdict.Semantic)
}

func TestClassifySemanticBoundaries(t *testing.T) {
	cases := []struct {
		name   string
		score  float64
		risk   string
		status string
	}{
		{"high at cut", 0.8, models.RiskHigh, models.PlagiarismStatusFlagged},
		{"moderate at cut", 0.6, models.RiskModerate, models.PlagiarismStatusNeedsReview},
		{"just below moderate", 0.5999, models.RiskLow, models.PlagiarismStatusAccepted},
		{"well above high", 0.97, models.RiskHigh, models.PlagiarismStatusFlagged},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verdict := DefaultPolicyConfig().Classify(true, 0.5, SemanticOutcome{Scored: true, Score: tc.score})

			require.Equal(t, tc.risk, verdict.Risk)
			require.Equal(t, tc.status, verdict.Status)
			require.InDelta(t, tc.score, verdict.Similarity, 1e-9)
			require.NotNil(t, verdict.Semantic)
			require.InDelta(t, tc.score, *verdict.Semantic, 1e-9)
		})
	}
}

func TestClassifyStructuralFallback(t *testing.T) {
	policy := DefaultPolicyConfig()

	moderate := policy.Classify(true, 0.72, SemanticOutcome{})
	require.Equal(t, models.RiskModerate, moderate.Risk)
	require.Equal(t, models.PlagiarismStatusNeedsReview, moderate.Status)
	require.InDelta(t, 0.72, moderate.Similarity, 1e-9)
	require.Nil(t, moderate.Semantic)

	// Structural fallback never produces a high verdict: shared wording
	// alone is not enough to flag without a semantic confirmation.
	strong := policy.Classify(true, 0.99, SemanticOutcome{})
	require.Equal(t, models.RiskModerate, strong.Risk)

	low := policy.Classify(true, 0.45, SemanticOutcome{})
	require.Equal(t, models.RiskLow, low.Risk)
	require.Equal(t, models.PlagiarismStatusAccepted, low.Status)
}
