package ingest

import (
	"context"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/campussathi/campussathi-go/internal/errors"
	"github.com/campussathi/campussathi-go/internal/rag"
	"github.com/campussathi/campussathi-go/internal/scraper"
	"github.com/campussathi/campussathi-go/internal/storage"
)

// PageFetcher downloads a page and returns its readable text.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (scraper.Page, error)
}

// WebIngester converts college web pages into FAQ chunks.
type WebIngester struct {
	fetcher  PageFetcher
	splitter *rag.Splitter
}

// NewWebIngester creates a web ingester.
func NewWebIngester(fetcher PageFetcher, splitter *rag.Splitter) *WebIngester {
	return &WebIngester{fetcher: fetcher, splitter: splitter}
}

// FetchPage fetches rawURL and returns its readable text. Pages without
// any text are rejected as invalid input.
func (w *WebIngester) FetchPage(ctx context.Context, rawURL string) (*storage.WebPage, error) {
	target, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}

	page, err := w.fetcher.Fetch(ctx, target)
	if err != nil {
		return nil, apperrors.NewFetchError(target, 0, err)
	}
	if strings.TrimSpace(page.Text) == "" {
		return nil, apperrors.NewValidationError("url", "page has no readable text")
	}
	return &storage.WebPage{
		URL:       target,
		Title:     strings.TrimSpace(page.Title),
		Content:   page.Text,
		FetchedAt: time.Now(),
	}, nil
}

// Documents splits page into chunks. Chunk IDs are derived from the URL,
// so ingesting a page again overwrites its previous chunks.
func (w *WebIngester) Documents(page *storage.WebPage) []rag.Document {
	doc := rag.WebDocument(page.URL, page.Title, page.Content)
	return w.splitter.SplitDocuments([]rag.Document{doc})
}

// ValidateURL accepts absolute http(s) URLs and returns them normalized.
func ValidateURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", apperrors.NewValidationError("url", "malformed URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", apperrors.NewValidationError("url", "only http and https URLs are supported")
	}
	if u.Host == "" {
		return "", apperrors.NewValidationError("url", "URL has no host")
	}
	u.Fragment = ""
	return u.String(), nil
}
