package service

import "github.com/veritas-lms/veritas-go-api/internal/models"

// PolicyConfig holds the thresholds driving the two-gate escalation policy.
// Stage 1 (structural) always runs; Stage 2 (semantic) is consulted for
// classification only when the structural score clears Stage1Threshold.
type PolicyConfig struct {
	// Stage1Threshold gates escalation to semantic classification.
	Stage1Threshold float64
	// SemanticHigh and SemanticModerate classify a usable semantic score.
	SemanticHigh     float64
	SemanticModerate float64
	// StructuralModerate classifies when the semantic pass is unavailable.
	StructuralModerate float64
}

// DefaultPolicyConfig returns the production thresholds.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		Stage1Threshold:    0.4,
		SemanticHigh:       0.8,
		SemanticModerate:   0.6,
		StructuralModerate: 0.6,
	}
}

// SemanticOutcome reports whether the semantic pass produced a usable score.
// The classifier branches on Scored explicitly rather than on a nullable
// sentinel, so "provider down" and "score of zero" can never be confused.
type SemanticOutcome struct {
	Scored    bool
	Score     float64
	StudentID uint
}

// Verdict is the classified result for one submission.
type Verdict struct {
	Risk   string
	Status string
	// Similarity is the strongest signal used: the semantic score when the
	// semantic pass produced one, otherwise the structural score.
	Similarity float64
	// Semantic carries the semantic score when one was used, for reporting.
	Semantic *float64
}

// Classify combines the structural score and the semantic outcome into a
// risk verdict per the escalation policy.
func (c PolicyConfig) Classify(hasPriors bool, structural float64, semantic SemanticOutcome) Verdict {
	switch {
	case !hasPriors:
		// First submission for the assignment: nothing to compare against.
		return lowVerdict(structural)
	case structural < c.Stage1Threshold:
		return lowVerdict(structural)
	case semantic.Scored:
		score := semantic.Score
		verdict := Verdict{Similarity: score, Semantic: &score}
		switch {
		case score >= c.SemanticHigh:
			verdict.Risk = models.RiskHigh
		case score >= c.SemanticModerate:
			verdict.Risk = models.RiskModerate
		default:
			verdict.Risk = models.RiskLow
		}
		verdict.Status = statusForRisk(verdict.Risk)
		return verdict
	default:
		// Semantic pass unavailable: structural-only fallback.
		verdict := Verdict{Similarity: structural}
		if structural >= c.StructuralModerate {
			verdict.Risk = models.RiskModerate
		} else {
			verdict.Risk = models.RiskLow
		}
		verdict.Status = statusForRisk(verdict.Risk)
		return verdict
	}
}

func lowVerdict(structural float64) Verdict {
	return Verdict{
		Risk:       models.RiskLow,
		Status:     models.PlagiarismStatusAccepted,
		Similarity: structural,
	}
}

func statusForRisk(risk string) string {
	switch risk {
	case models.RiskHigh:
		return models.PlagiarismStatusFlagged
	case models.RiskModerate:
		return models.PlagiarismStatusNeedsReview
	default:
		return models.PlagiarismStatusAccepted
	}
}
