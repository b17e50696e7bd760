package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/campussathi/campussathi-go/internal/config"
	apperrors "github.com/campussathi/campussathi-go/internal/errors"
	"github.com/campussathi/campussathi-go/internal/rag"
)

// RefreshedMessage is the reply of a successful refresh.
const RefreshedMessage = "Indexes reloaded."

// RefreshIndexes rebuilds the knowledge base from the uploaded files and
// curated content and reloads the structured timetable. Concurrent calls
// share one rebuild.
func (s *Service) RefreshIndexes(ctx context.Context) (string, error) {
	_, err, shared := s.refreshes.Do("refresh", func() (any, error) {
		// Detached so one caller giving up does not cancel the others.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.IndexBuild)
		defer cancel()
		return nil, s.Rebuild(rctx, true)
	})
	if shared {
		s.logger.DebugContext(ctx, "Joined in-flight index refresh")
	}
	if err != nil {
		return "", s.record("refresh", wrapper("refresh").Wrapf(err, "Failed to refresh indexes: %v", err))
	}
	s.metrics.RecordAdminAction("refresh", "success")
	return RefreshedMessage, nil
}

// Rebuild builds a knowledge base generation and publishes it. Unless
// force is set, a persisted generation is reused (startup warm-up).
// A nil generation (nothing to index) marks the knowledge base unavailable.
func (s *Service) Rebuild(ctx context.Context, force bool) error {
	start := time.Now()

	if err := s.timetable.Reload(); err != nil {
		s.logger.WithError(err).WarnContext(ctx, "Failed to reload structured timetable, keeping previous")
	}

	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	s.mu.Lock()
	s.rebuilding, s.backlog = true, nil
	s.mu.Unlock()

	// Embedding can take minutes; approvals and ingests keep working meanwhile.
	kb, err := s.builder.Build(ctx, force)

	s.mu.Lock()
	defer s.mu.Unlock()
	backlog := s.backlog
	s.rebuilding, s.backlog = false, nil

	if err != nil {
		s.metrics.RecordIndexRefresh("error", time.Since(start).Seconds())
		return fmt.Errorf("build knowledge base: %w", err)
	}
	if kb != nil && len(backlog) > 0 {
		// IDs are stable, so documents the build already read are upserted.
		if _, err := kb.Indexes().Insert(ctx, backlog); err != nil {
			s.logger.WithError(err).WithField("documents", len(backlog)).
				WarnContext(ctx, "Failed to replay curated documents, they return on the next refresh")
		}
	}
	s.knowledge.Store(kb)
	s.updateKnowledgeGauges(kb)
	s.metrics.RecordIndexRefresh("success", time.Since(start).Seconds())

	s.logger.WithFields(map[string]any{
		"ready":    kb != nil,
		"duration": time.Since(start).String(),
	}).InfoContext(ctx, "Knowledge base published")
	return nil
}

func (s *Service) updateKnowledgeGauges(kb *rag.KnowledgeBase) {
	counts := map[string]int{
		rag.EnglishCollection:   0,
		rag.IndicCollection:     0,
		rag.KeywordCollection:   0,
		rag.TimetableCollection: 0,
	}
	if kb != nil {
		for name, n := range kb.Indexes().Counts() {
			counts[name] = n
		}
		if tt := kb.TimetableIndex(); tt != nil {
			counts[rag.TimetableCollection] = tt.Count()
		}
	}
	for name, n := range counts {
		s.metrics.SetKnowledgeDocuments(name, n)
	}
}

// IngestURL fetches a college web page and adds its text to the knowledge
// base. The page is stored, so later refreshes keep it.
func (s *Service) IngestURL(ctx context.Context, rawURL string) (string, error) {
	start := time.Now()
	msg, err := s.ingestURL(ctx, rawURL)
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordIngest(status, time.Since(start).Seconds())
	return msg, s.record("ingest", err)
}

func (s *Service) ingestURL(ctx context.Context, rawURL string) (string, error) {
	w := wrapper("ingest")
	if s.web == nil {
		return "", w.Wrap(apperrors.ErrInvalidInput, "URL ingestion is not enabled.")
	}

	fctx, cancel := context.WithTimeout(ctx, config.IngestFetch)
	page, err := s.web.FetchPage(fctx, rawURL)
	cancel()
	if err != nil {
		if apperrors.IsInvalidInput(err) {
			return "", w.Wrapf(err, "Cannot ingest URL: %v", err)
		}
		return "", w.Wrapf(err, "Failed to fetch page: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SaveWebPage(ctx, page); err != nil {
		return "", w.Wrap(err, "Failed to save page.")
	}

	docs := s.web.Documents(page)
	added, live, err := s.insertCurated(ctx, docs)
	if err != nil {
		return "", w.Wrapf(err, "Error adding to vectorstores: %v", err)
	}
	if !live {
		return fmt.Sprintf("Saved %s. Click Refresh Indexes to apply.", page.URL), nil
	}
	s.logger.WithFields(map[string]any{
		"url":    page.URL,
		"chunks": len(docs),
		"stores": added,
	}).InfoContext(ctx, "Web page ingested")
	return fmt.Sprintf("Added %d chunks from %s to %d stores.", len(docs), page.URL, added), nil
}

// insertCurated adds docs to the published knowledge base, if any, and to
// the backlog of a running rebuild. live reports whether a knowledge base
// was published. Callers hold s.mu.
func (s *Service) insertCurated(ctx context.Context, docs []rag.Document) (added int, live bool, err error) {
	if kb := s.knowledge.Load(); kb != nil {
		live = true
		if added, err = kb.Indexes().Insert(ctx, docs); err != nil {
			return 0, true, err
		}
	}
	if s.rebuilding {
		s.backlog = append(s.backlog, docs...)
	}
	return added, live, nil
}
