// Package ingest turns uploaded files and fetched web pages into
// knowledge-base documents.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/campussathi/campussathi-go/internal/rag"
)

// MetaFile records the file name a document was extracted from.
const MetaFile = "file"

// PDFLoader extracts one document per non-blank PDF page.
type PDFLoader struct{}

// NewPDFLoader creates a PDF loader.
func NewPDFLoader() *PDFLoader {
	return &PDFLoader{}
}

// Load reads the PDF at path. Page numbers in metadata are 0-based.
func (l *PDFLoader) Load(ctx context.Context, path, source string) (docs []rag.Document, err error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	// The parser panics on some malformed streams.
	defer func() {
		if r := recover(); r != nil {
			docs, err = nil, fmt.Errorf("parse pdf %s: %v", path, r)
		}
	}()

	name := filepath.Base(path)
	base := strings.TrimSuffix(name, filepath.Ext(name))
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d of %s: %w", i, path, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		docs = append(docs, rag.Document{
			ID:      fmt.Sprintf("%s-p%d", base, i-1),
			Content: text,
			Metadata: map[string]string{
				rag.MetaSource: source,
				rag.MetaPage:   strconv.Itoa(i - 1),
				MetaFile:       name,
			},
		})
	}
	return docs, nil
}
