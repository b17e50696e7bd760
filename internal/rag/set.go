package rag

import (
	"context"
	"errors"
	"fmt"
)

// KnowledgeIndexSet broadcasts inserts to every active index so a curated
// answer becomes retrievable through all of them at once.
type KnowledgeIndexSet struct {
	indexes []Index
}

// NewKnowledgeIndexSet creates a set of the non-nil indexes.
func NewKnowledgeIndexSet(indexes ...Index) *KnowledgeIndexSet {
	set := &KnowledgeIndexSet{}
	for _, idx := range indexes {
		if idx != nil {
			set.indexes = append(set.indexes, idx)
		}
	}
	return set
}

// Len returns the number of member indexes.
func (s *KnowledgeIndexSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.indexes)
}

// Names returns member index names in insertion order.
func (s *KnowledgeIndexSet) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.indexes))
	for i, idx := range s.indexes {
		names[i] = idx.Name()
	}
	return names
}

// Insert adds docs to every member and returns how many accepted them.
// Failures are joined; members that succeeded keep the documents.
func (s *KnowledgeIndexSet) Insert(ctx context.Context, docs []Document) (int, error) {
	if s == nil {
		return 0, nil
	}
	var (
		added int
		errs  []error
	)
	for _, idx := range s.indexes {
		if err := idx.Insert(ctx, docs); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", idx.Name(), err))
			continue
		}
		added++
	}
	return added, errors.Join(errs...)
}

// Counts returns the document count of each member keyed by name.
func (s *KnowledgeIndexSet) Counts() map[string]int {
	counts := make(map[string]int)
	if s == nil {
		return counts
	}
	for _, idx := range s.indexes {
		counts[idx.Name()] = idx.Count()
	}
	return counts
}
