package rag

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Retriever returns passages relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]Passage, error)
}

// IndexRetriever retrieves the top K passages from one index.
type IndexRetriever struct {
	Index Index
	K     int
}

// Retrieve implements Retriever.
func (r IndexRetriever) Retrieve(ctx context.Context, query string) ([]Passage, error) {
	return r.Index.Search(ctx, query, r.K)
}

// EnsembleRetriever queries several retrievers in parallel and fuses their
// rankings with weighted RRF.
type EnsembleRetriever struct {
	retrievers []Retriever
	weights    []float64
}

// NewEnsembleRetriever creates an ensemble. Nil weights mean equal weighting.
func NewEnsembleRetriever(retrievers []Retriever, weights []float64) (*EnsembleRetriever, error) {
	if len(retrievers) == 0 {
		return nil, errors.New("ensemble needs at least one retriever")
	}
	if weights == nil {
		weights = EqualWeights(len(retrievers))
	}
	if len(weights) != len(retrievers) {
		return nil, fmt.Errorf("ensemble has %d retrievers but %d weights", len(retrievers), len(weights))
	}
	return &EnsembleRetriever{retrievers: retrievers, weights: weights}, nil
}

// Retrieve implements Retriever. Any sub-retriever failure fails the call.
func (e *EnsembleRetriever) Retrieve(ctx context.Context, query string) ([]Passage, error) {
	lists := make([][]Passage, len(e.retrievers))
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range e.retrievers {
		g.Go(func() error {
			passages, err := r.Retrieve(gctx, query)
			if err != nil {
				return err
			}
			lists[i] = passages
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ensemble retrieve: %w", err)
	}
	return FuseRRF(lists, e.weights), nil
}

// FilteredRetriever post-filters a base retriever by embedding similarity.
type FilteredRetriever struct {
	Base   Retriever
	Filter *EmbeddingsFilter
}

// Retrieve implements Retriever.
func (f FilteredRetriever) Retrieve(ctx context.Context, query string) ([]Passage, error) {
	passages, err := f.Base.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}
	return f.Filter.Filter(ctx, query, passages)
}
