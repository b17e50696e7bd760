package rag

import (
	"sync/atomic"
	"time"
)

// KnowledgeBase is one built generation of indexes. A refresh builds a new
// KnowledgeBase and swaps it into the Holder; the old one keeps serving
// in-flight requests until they finish.
type KnowledgeBase struct {
	retriever Retriever
	timetable Index
	indexes   *KnowledgeIndexSet
	builtAt   time.Time
}

// NewKnowledgeBase assembles a knowledge base. timetable may be nil when no
// timetable PDF was indexed.
func NewKnowledgeBase(retriever Retriever, timetable Index, indexes *KnowledgeIndexSet) *KnowledgeBase {
	return &KnowledgeBase{
		retriever: retriever,
		timetable: timetable,
		indexes:   indexes,
		builtAt:   time.Now(),
	}
}

// Retriever returns the general-question retriever.
func (kb *KnowledgeBase) Retriever() Retriever {
	return kb.retriever
}

// TimetableIndex returns the timetable PDF index, or nil.
func (kb *KnowledgeBase) TimetableIndex() Index {
	if kb == nil {
		return nil
	}
	return kb.timetable
}

// Indexes returns the broadcast set that curated answers are inserted into.
func (kb *KnowledgeBase) Indexes() *KnowledgeIndexSet {
	return kb.indexes
}

// BuiltAt returns when the generation was assembled.
func (kb *KnowledgeBase) BuiltAt() time.Time {
	return kb.builtAt
}

// Holder publishes the current KnowledgeBase to concurrent readers.
type Holder struct {
	current atomic.Pointer[KnowledgeBase]
}

// Load returns the current knowledge base, or nil when none is built.
func (h *Holder) Load() *KnowledgeBase {
	return h.current.Load()
}

// Store replaces the current knowledge base. Storing nil marks it unavailable.
func (h *Holder) Store(kb *KnowledgeBase) {
	h.current.Store(kb)
}

// Ready reports whether a knowledge base is available.
func (h *Holder) Ready() bool {
	return h.current.Load() != nil
}
