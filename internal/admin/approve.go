package admin

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/campussathi/campussathi-go/internal/errors"
	"github.com/campussathi/campussathi-go/internal/rag"
	"github.com/campussathi/campussathi-go/internal/storage"
)

// Approve answers an escalated question. The Q/A pair is inserted into
// every index of the current knowledge base and the row is resolved.
//
// A row is resolved at most once; approving it again returns an
// ErrAlreadyResolved error and inserts nothing. When the index insert fails
// the row stays pending so the approval can be retried.
func (s *Service) Approve(ctx context.Context, id int64, answer string) (string, error) {
	msg, err := s.approve(ctx, id, answer)
	return msg, s.record("approve", err)
}

func (s *Service) approve(ctx context.Context, id int64, answer string) (string, error) {
	w := wrapper("approve")
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", w.Wrap(apperrors.NewValidationError("answer", "answer is required"), "Answer text is empty.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.store.GetUnanswered(ctx, id)
	if err != nil {
		return "", w.Wrap(err, "Failed to load unanswered query.")
	}
	if q == nil {
		return "", w.Wrap(apperrors.ErrNotFound, "Unanswered ID not found.")
	}
	if q.IsResolved() {
		return "", w.Wrapf(apperrors.ErrAlreadyResolved, "Unanswered ID %d already resolved.", id)
	}

	docs := s.splitter.SplitDocuments([]rag.Document{rag.ApprovedDocument(q.ID, q.Query, answer)})
	added, live, err := s.insertCurated(ctx, docs)
	if err != nil {
		return "", w.Wrapf(err, "Error adding to vectorstores: %v", err)
	}
	if !live {
		s.logger.WithField("unanswered_id", id).WarnContext(ctx, "No knowledge base loaded, answer will be indexed on the next refresh")
	}

	ok, err := s.store.MarkUnansweredResolved(ctx, id, answer)
	if err != nil {
		return "", w.Wrap(err, "Failed to mark query resolved.")
	}
	if !ok {
		return "", w.Wrapf(apperrors.ErrAlreadyResolved, "Unanswered ID %d already resolved.", id)
	}

	s.refreshPendingGauge(ctx)
	s.logger.WithFields(map[string]any{
		"unanswered_id": id,
		"stores":        added,
	}).InfoContext(ctx, "Approved answer added to knowledge base")
	return fmt.Sprintf("Approved and added to vectorstores (added to %d stores).", added), nil
}

// PendingUnanswered lists the review queue, oldest first.
func (s *Service) PendingUnanswered(ctx context.Context) ([]storage.UnansweredQuery, error) {
	items, err := s.store.ListUnanswered(ctx, storage.StatusPending)
	if err != nil {
		return nil, wrapper("list_unanswered").Wrap(err, "Failed to load unanswered queries.")
	}
	s.metrics.SetPendingUnanswered(len(items))
	return items, nil
}

func (s *Service) refreshPendingGauge(ctx context.Context) {
	n, err := s.store.CountPendingUnanswered(ctx)
	if err != nil {
		s.logger.WithError(err).DebugContext(ctx, "Failed to count pending queries")
		return
	}
	s.metrics.SetPendingUnanswered(n)
}
