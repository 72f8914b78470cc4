// Package tfidf implements the structural similarity pass over submission
// text: a joint TF-IDF vector space with cosine scoring against prior
// submissions. Everything runs in-process; there are no external calls.
package tfidf

import (
	"math"
	"sort"
	"strings"
)

// MaxFeatures caps the joint vocabulary at the most frequent terms across
// the corpus.
const MaxFeatures = 10000

// Match identifies the most similar prior document.
type Match struct {
	// Score is the cosine similarity rounded to 4 decimal places.
	Score float64
	// Index points into the caller's original prior list, or -1 when no
	// usable prior document exists.
	Index int
}

// BestMatch builds a TF-IDF space over the new text plus all prior texts and
// returns the highest cosine similarity together with the index of the best
// matching prior. Blank priors are ignored for scoring but keep their slot in
// the index space.
func BestMatch(text string, priors []string) Match {
	kept := make([]int, 0, len(priors))
	docs := make([]string, 0, len(priors)+1)
	docs = append(docs, text)
	for i, prior := range priors {
		if strings.TrimSpace(prior) == "" {
			continue
		}
		kept = append(kept, i)
		docs = append(docs, prior)
	}

	if len(kept) == 0 {
		return Match{Score: 0, Index: -1}
	}

	vectors := vectorize(docs)

	best := Match{Score: 0, Index: -1}
	for pos, originalIdx := range kept {
		score := dot(vectors[0], vectors[pos+1])
		if best.Index == -1 || score > best.Score {
			best = Match{Score: score, Index: originalIdx}
		}
	}

	best.Score = round4(best.Score)
	return best
}

// vectorize returns one L2-normalized TF-IDF vector per document, using
// unigram and bigram features, sublinear term-frequency scaling and smoothed
// inverse document frequency.
func vectorize(docs []string) []map[string]float64 {
	counts := make([]map[string]int, len(docs))
	corpusFreq := make(map[string]int)
	docFreq := make(map[string]int)

	for i, doc := range docs {
		counts[i] = termCounts(doc)
		for term, count := range counts[i] {
			corpusFreq[term] += count
			docFreq[term]++
		}
	}

	vocabulary := selectVocabulary(corpusFreq)

	n := float64(len(docs))
	vectors := make([]map[string]float64, len(docs))
	for i := range docs {
		vec := make(map[string]float64, len(counts[i]))
		var norm float64
		for term, count := range counts[i] {
			if _, ok := vocabulary[term]; !ok {
				continue
			}
			tf := 1 + math.Log(float64(count))
			idf := math.Log((1+n)/(1+float64(docFreq[term]))) + 1
			w := tf * idf
			vec[term] = w
			norm += w * w
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for term := range vec {
				vec[term] /= norm
			}
		}
		vectors[i] = vec
	}

	return vectors
}

func termCounts(doc string) map[string]int {
	tokens := strings.Fields(doc)
	counts := make(map[string]int, len(tokens)*2)
	for i, token := range tokens {
		counts[token]++
		if i+1 < len(tokens) {
			counts[token+" "+tokens[i+1]]++
		}
	}
	return counts
}

// selectVocabulary keeps the MaxFeatures terms with the highest corpus
// frequency, breaking ties alphabetically.
func selectVocabulary(corpusFreq map[string]int) map[string]struct{} {
	vocabulary := make(map[string]struct{}, len(corpusFreq))
	if len(corpusFreq) <= MaxFeatures {
		for term := range corpusFreq {
			vocabulary[term] = struct{}{}
		}
		return vocabulary
	}

	terms := make([]string, 0, len(corpusFreq))
	for term := range corpusFreq {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if corpusFreq[terms[i]] != corpusFreq[terms[j]] {
			return corpusFreq[terms[i]] > corpusFreq[terms[j]]
		}
		return terms[i] < terms[j]
	})

	for _, term := range terms[:MaxFeatures] {
		vocabulary[term] = struct{}{}
	}
	return vocabulary
}

func dot(a, b map[string]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var sum float64
	for term, weight := range a {
		if other, ok := b[term]; ok {
			sum += weight * other
		}
	}
	return sum
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
