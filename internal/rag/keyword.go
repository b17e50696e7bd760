package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	bm25 "github.com/iwilltry42/bm25-go/bm25"
)

// KeywordCollection names the BM25 index.
const KeywordCollection = "keyword"

// KeywordIndex provides BM25 keyword search over inserted documents.
// BM25 needs corpus-wide statistics, so every insert rebuilds the scorer.
type KeywordIndex struct {
	name  string
	mu    sync.RWMutex
	docs  []Document
	byID  map[string]int
	okapi *bm25.BM25Okapi
}

// NewKeywordIndex creates an empty keyword index.
func NewKeywordIndex(name string) *KeywordIndex {
	if name == "" {
		name = KeywordCollection
	}
	return &KeywordIndex{name: name, byID: make(map[string]int)}
}

// Name returns the index name.
func (k *KeywordIndex) Name() string {
	return k.name
}

// Insert adds docs, replacing any with the same ID, and rebuilds the scorer.
func (k *KeywordIndex) Insert(_ context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	for _, d := range docs {
		if strings.TrimSpace(d.Content) == "" {
			continue
		}
		if i, ok := k.byID[d.ID]; ok && d.ID != "" {
			k.docs[i] = d
			continue
		}
		k.byID[d.ID] = len(k.docs)
		k.docs = append(k.docs, d)
	}
	if len(k.docs) == 0 {
		return nil
	}

	corpus := make([]string, len(k.docs))
	for i, d := range k.docs {
		corpus[i] = d.Content
	}
	// k1=1.5, b=0.75 are the standard Okapi parameters.
	okapi, err := bm25.NewBM25Okapi(corpus, Tokenize, 1.5, 0.75, nil)
	if err != nil {
		return fmt.Errorf("build BM25 index: %w", err)
	}
	k.okapi = okapi
	return nil
}

// Search returns up to limit passages with a positive BM25 score, best first.
func (k *KeywordIndex) Search(_ context.Context, query string, limit int) ([]Passage, error) {
	tokens := Tokenize(query)
	if len(tokens) == 0 || limit <= 0 {
		return nil, nil
	}

	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.okapi == nil {
		return nil, nil
	}
	scores, err := k.okapi.GetScores(tokens)
	if err != nil {
		return nil, fmt.Errorf("BM25 scores: %w", err)
	}

	order := make([]int, 0, len(scores))
	for i, s := range scores {
		if s > 0 {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	if len(order) > limit {
		order = order[:limit]
	}

	passages := make([]Passage, 0, len(order))
	for _, i := range order {
		d := k.docs[i]
		passages = append(passages, Passage{
			ID:       d.ID,
			Content:  d.Content,
			Metadata: d.Metadata,
			Score:    float32(scores[i]),
		})
	}
	return passages, nil
}

// Count returns the number of indexed documents.
func (k *KeywordIndex) Count() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.docs)
}

// Tokenize lowercases text and splits it into words.
// Combining marks stay inside the word so Devanagari vowel signs are not
// treated as separators.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsMark(r)
	})
}
