package rag

import (
	"context"
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	chromem "github.com/philippgille/chromem-go"
)

// DefaultSimilarityThreshold drops passages less similar to the query than this.
const DefaultSimilarityThreshold float32 = 0.7

// passageVectorCacheSize bounds the passage vectors kept per generation.
const passageVectorCacheSize = 4096

// EmbeddingsFilter keeps retrieved passages whose cosine similarity to the
// query reaches the threshold. Order is preserved. Passage vectors are
// cached by content, so a passage is embedded once per generation rather
// than on every query.
type EmbeddingsFilter struct {
	embed     chromem.EmbeddingFunc
	threshold float32
	vectors   *lru.Cache[string, []float32]
}

// NewEmbeddingsFilter creates a filter. A non-positive threshold uses the default.
func NewEmbeddingsFilter(embed chromem.EmbeddingFunc, threshold float32) *EmbeddingsFilter {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	// New fails only for a non-positive size.
	vectors, _ := lru.New[string, []float32](passageVectorCacheSize)
	return &EmbeddingsFilter{embed: embed, threshold: threshold, vectors: vectors}
}

func (f *EmbeddingsFilter) passageVector(ctx context.Context, content string) ([]float32, error) {
	if v, ok := f.vectors.Get(content); ok {
		return v, nil
	}
	v, err := f.embed(ctx, content)
	if err != nil {
		return nil, err
	}
	f.vectors.Add(content, v)
	return v, nil
}

// Threshold returns the minimum similarity.
func (f *EmbeddingsFilter) Threshold() float32 {
	return f.threshold
}

// Filter returns the passages similar enough to query, with Score set to
// the similarity.
func (f *EmbeddingsFilter) Filter(ctx context.Context, query string, passages []Passage) ([]Passage, error) {
	if len(passages) == 0 {
		return nil, nil
	}
	qv, err := f.embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	kept := make([]Passage, 0, len(passages))
	for _, p := range passages {
		pv, err := f.passageVector(ctx, p.Content)
		if err != nil {
			return nil, fmt.Errorf("embed passage %s: %w", p.ID, err)
		}
		sim := cosineSimilarity(qv, pv)
		if sim < f.threshold {
			continue
		}
		p.Score = sim
		kept = append(kept, p)
	}
	return kept, nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
