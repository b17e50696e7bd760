// Package rag provides the knowledge base behind general questions:
// chromem-go vector indexes for English and Indic embeddings, a BM25
// keyword index, weighted reciprocal-rank fusion and an embeddings filter.
package rag

import (
	"context"
	"fmt"
	"maps"
	"strconv"

	"github.com/google/uuid"
)

// Metadata keys attached to documents.
const (
	MetaSource       = "source"
	MetaPage         = "page"
	MetaChunk        = "chunk"
	MetaUnansweredID = "unanswered_id"
	MetaURL          = "url"
)

// Document sources.
const (
	SourceFAQ           = "faq"
	SourceTimetable     = "timetable"
	SourceAdminApproved = "admin_approved"
	SourceWeb           = "web"
)

// Document is a unit of indexable text.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// Passage is a retrieved document with its score.
// Score semantics depend on the producer: cosine similarity for vector
// indexes and the embeddings filter, BM25 score for the keyword index,
// fused RRF score for ensembles.
type Passage struct {
	ID       string
	Content  string
	Metadata map[string]string
	Score    float32
}

// Source returns the document source recorded in metadata.
func (p Passage) Source() string {
	return p.Metadata[MetaSource]
}

// Index is a searchable document store.
type Index interface {
	Name() string
	Insert(ctx context.Context, docs []Document) error
	Search(ctx context.Context, query string, k int) ([]Passage, error)
	Count() int
}

// ApprovedDocument builds the document recorded when an admin answers an
// escalated question.
func ApprovedDocument(unansweredID int64, question, answer string) Document {
	return Document{
		ID:      fmt.Sprintf("approved-%d", unansweredID),
		Content: fmt.Sprintf("Q: %s\nA: %s", question, answer),
		Metadata: map[string]string{
			MetaSource:       SourceAdminApproved,
			MetaUnansweredID: strconv.FormatInt(unansweredID, 10),
		},
	}
}

// WebDocument builds the document of an ingested web page. The ID is derived
// from the URL, so ingesting a page again replaces its chunks.
func WebDocument(url, title, text string) Document {
	content := text
	if title != "" && text != "" {
		content = title + "\n" + text
	}
	return Document{
		ID:      "web-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(url)).String(),
		Content: content,
		Metadata: map[string]string{
			MetaSource: SourceWeb,
			MetaURL:    url,
		},
	}
}

func copyMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m)+1)
	maps.Copy(out, m)
	return out
}
