// Package embed provides semantic fingerprints for submission text via a
// remote embedding provider, plus the vector math used to compare them.
package embed

import (
	"context"
	"math"
)

// Embedder produces a fixed-length vector for a piece of text. Network,
// auth and quota failures are all reported as errors; callers degrade to
// structural-only scoring rather than failing the request.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Candidate pairs a prior submitter with their stored embedding.
type Candidate struct {
	StudentID uint
	Vector    []float64
}

// Match is the best semantic match among a candidate set.
type Match struct {
	Score     float64
	StudentID uint
	Found     bool
}

// Cosine returns the cosine similarity between two vectors. A zero-norm
// vector (or mismatched/empty input) yields 0 so the caller never divides
// by zero.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// BestMatch scans candidates for the highest cosine similarity against vec,
// skipping candidates without a usable embedding. Ties keep the first-seen
// candidate. The returned score is rounded to 4 decimal places.
func BestMatch(vec []float64, candidates []Candidate) Match {
	if len(vec) == 0 {
		return Match{}
	}

	best := Match{}
	for _, candidate := range candidates {
		if len(candidate.Vector) == 0 {
			continue
		}
		score := Cosine(vec, candidate.Vector)
		if !best.Found || score > best.Score {
			best = Match{Score: score, StudentID: candidate.StudentID, Found: true}
		}
	}

	if best.Found {
		best.Score = math.Round(best.Score*10000) / 10000
	}
	return best
}

// average computes the element-wise mean of equal-length vectors. Vectors
// whose length differs from the first are skipped, matching how Cosine
// treats mismatched input.
func average(vectors [][]float64) []float64 {
	if len(vectors) == 0 {
		return nil
	}
	if len(vectors) == 1 {
		return vectors[0]
	}

	out := make([]float64, len(vectors[0]))
	used := 0
	for _, vec := range vectors {
		if len(vec) != len(out) {
			continue
		}
		for i, v := range vec {
			out[i] += v
		}
		used++
	}

	n := float64(used)
	for i := range out {
		out[i] /= n
	}
	return out
}
