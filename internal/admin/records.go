package admin

import (
	"context"
	"strings"

	apperrors "github.com/campussathi/campussathi-go/internal/errors"
	"github.com/campussathi/campussathi-go/internal/storage"
)

// ListStudents returns students whose uid or name contains search.
func (s *Service) ListStudents(ctx context.Context, search string) ([]storage.Student, error) {
	students, err := s.store.ListStudents(ctx, strings.TrimSpace(search))
	if err != nil {
		return nil, wrapper("list_students").Wrap(err, "Failed to load students.")
	}
	return students, nil
}

// UpsertStudent inserts or replaces a student record.
func (s *Service) UpsertStudent(ctx context.Context, student *storage.Student) (string, error) {
	w := wrapper("upsert_student")
	student.UID = strings.TrimSpace(student.UID)
	student.Name = strings.TrimSpace(student.Name)
	if student.UID == "" {
		return "", s.record("upsert_student", w.Wrap(apperrors.NewValidationError("uid", "uid is required"), "UID is required."))
	}
	if student.Name == "" {
		return "", s.record("upsert_student", w.Wrap(apperrors.NewValidationError("name", "name is required"), "Name is required."))
	}
	if err := s.store.UpsertStudent(ctx, student); err != nil {
		return "", s.record("upsert_student", w.Wrap(err, "Failed to save student."))
	}
	s.metrics.RecordAdminAction("upsert_student", "success")
	return "Student " + student.UID + " saved.", nil
}

// DeleteStudent removes a student record.
func (s *Service) DeleteStudent(ctx context.Context, uid string) (string, error) {
	w := wrapper("delete_student")
	deleted, err := s.store.DeleteStudent(ctx, strings.TrimSpace(uid))
	if err != nil {
		return "", s.record("delete_student", w.Wrap(err, "Failed to delete student."))
	}
	if !deleted {
		return "", s.record("delete_student", w.Wrap(apperrors.ErrNotFound, "Student not found."))
	}
	s.metrics.RecordAdminAction("delete_student", "success")
	return "Student " + uid + " deleted.", nil
}

// ListQueryLogs returns the newest exchanges first.
func (s *Service) ListQueryLogs(ctx context.Context, limit int, fallbackOnly bool) ([]storage.QueryLog, error) {
	logs, err := s.store.ListQueryLogs(ctx, storage.QueryLogFilter{Limit: limit, FallbackOnly: fallbackOnly})
	if err != nil {
		return nil, wrapper("list_logs").Wrap(err, "Failed to load query logs.")
	}
	return logs, nil
}

// ListWebPages returns the ingested pages.
func (s *Service) ListWebPages(ctx context.Context) ([]storage.WebPage, error) {
	pages, err := s.store.ListWebPages(ctx)
	if err != nil {
		return nil, wrapper("list_pages").Wrap(err, "Failed to load web pages.")
	}
	return pages, nil
}

// DeleteWebPage forgets an ingested page. Its chunks leave the knowledge
// base on the next refresh.
func (s *Service) DeleteWebPage(ctx context.Context, url string) (string, error) {
	w := wrapper("delete_page")
	deleted, err := s.store.DeleteWebPage(ctx, strings.TrimSpace(url))
	if err != nil {
		return "", s.record("delete_page", w.Wrap(err, "Failed to delete page."))
	}
	if !deleted {
		return "", s.record("delete_page", w.Wrap(apperrors.ErrNotFound, "Page not found."))
	}
	s.metrics.RecordAdminAction("delete_page", "success")
	return "Removed " + url + ". Click Refresh Indexes to apply.", nil
}
