package admin

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/campussathi/campussathi-go/internal/errors"
)

// PostAnnouncement makes msg the only active announcement.
func (s *Service) PostAnnouncement(ctx context.Context, msg string) (string, error) {
	w := wrapper("post_announcement")
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return "", s.record("post_announcement",
			w.Wrap(apperrors.NewValidationError("message", "message is required"), "Announcement text is empty."))
	}
	if _, err := s.store.PostAnnouncement(ctx, msg); err != nil {
		return "", s.record("post_announcement", w.Wrap(err, "Failed to post announcement."))
	}
	s.logger.InfoContext(ctx, "Announcement posted")
	s.metrics.RecordAdminAction("post_announcement", "success")
	return fmt.Sprintf("Announcement posted: '%s'", msg), nil
}

// ClearAnnouncements deactivates every announcement. Clearing when none is
// active succeeds.
func (s *Service) ClearAnnouncements(ctx context.Context) (string, error) {
	n, err := s.store.ClearAnnouncements(ctx)
	if err != nil {
		return "", s.record("clear_announcements", wrapper("clear_announcements").Wrap(err, "Failed to clear announcements."))
	}
	s.logger.WithField("cleared", n).InfoContext(ctx, "Announcements cleared")
	s.metrics.RecordAdminAction("clear_announcements", "success")
	return "All announcements cleared.", nil
}
