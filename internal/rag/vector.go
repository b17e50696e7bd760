package rag

import (
	"context"
	"fmt"

	chromem "github.com/philippgille/chromem-go"
)

// Collection names inside a chromem database.
const (
	EnglishCollection   = "english"
	IndicCollection     = "indic"
	TimetableCollection = "timetable"
)

// embedConcurrency bounds parallel embedding calls during AddDocuments.
const embedConcurrency = 4

// VectorIndex is an Index over one chromem collection.
// chromem collections are safe for concurrent use, so no extra locking is needed.
type VectorIndex struct {
	name       string
	collection *chromem.Collection
}

// NewVectorIndex gets or creates the named collection in db.
func NewVectorIndex(db *chromem.DB, name string, embed chromem.EmbeddingFunc) (*VectorIndex, error) {
	collection, err := db.GetOrCreateCollection(name, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("get or create collection %s: %w", name, err)
	}
	return &VectorIndex{name: name, collection: collection}, nil
}

// Name returns the collection name.
func (v *VectorIndex) Name() string {
	return v.name
}

// Insert embeds and stores docs.
func (v *VectorIndex) Insert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	chromemDocs := make([]chromem.Document, 0, len(docs))
	for _, d := range docs {
		chromemDocs = append(chromemDocs, chromem.Document{
			ID:       d.ID,
			Content:  d.Content,
			Metadata: d.Metadata,
		})
	}
	if err := v.collection.AddDocuments(ctx, chromemDocs, embedConcurrency); err != nil {
		return fmt.Errorf("add documents to %s: %w", v.name, err)
	}
	return nil
}

// Search returns up to k passages ordered by cosine similarity.
func (v *VectorIndex) Search(ctx context.Context, query string, k int) ([]Passage, error) {
	if query == "" || k <= 0 {
		return nil, nil
	}
	// chromem rejects nResults greater than the document count.
	n := min(k, v.collection.Count())
	if n == 0 {
		return nil, nil
	}

	results, err := v.collection.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", v.name, err)
	}

	passages := make([]Passage, 0, len(results))
	for _, r := range results {
		passages = append(passages, Passage{
			ID:       r.ID,
			Content:  r.Content,
			Metadata: r.Metadata,
			Score:    r.Similarity,
		})
	}
	return passages, nil
}

// Count returns the number of stored chunks.
func (v *VectorIndex) Count() int {
	return v.collection.Count()
}
