package rag

import (
	"sort"
)

// RRFConstant is the constant used in RRF formula: 1 / (k + rank)
const RRFConstant = 60

// FuseRRF combines ranked passage lists using weighted Reciprocal Rank Fusion:
//
//	score(d) = Σ w_i / (RRFConstant + rank_i(d))
//
// Passages are identified by their content, so the same chunk returned by
// both the English and the Indic index is merged. Ties keep first-seen order.
// Missing weights count as zero.
func FuseRRF(lists [][]Passage, weights []float64) []Passage {
	type fused struct {
		passage Passage
		score   float64
		order   int
	}

	byContent := make(map[string]*fused)
	var seen int
	for li, list := range lists {
		var w float64
		if li < len(weights) {
			w = weights[li]
		}
		for i, p := range list {
			score := w / float64(RRFConstant+i+1)
			if f, ok := byContent[p.Content]; ok {
				f.score += score
				continue
			}
			byContent[p.Content] = &fused{passage: p, score: score, order: seen}
			seen++
		}
	}

	results := make([]*fused, 0, len(byContent))
	for _, f := range byContent {
		results = append(results, f)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].order < results[j].order
	})

	out := make([]Passage, len(results))
	for i, f := range results {
		out[i] = f.passage
		out[i].Score = float32(f.score)
	}
	return out
}

// EqualWeights returns n weights summing to one.
func EqualWeights(n int) []float64 {
	if n <= 0 {
		return nil
	}
	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}
	return w
}
