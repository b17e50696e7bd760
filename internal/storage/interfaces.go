package storage

import (
	"context"
	"time"
)

// StudentRepository defines student record operations.
type StudentRepository interface {
	GetStudent(ctx context.Context, uid string) (*Student, error)
	ListStudents(ctx context.Context, search string) ([]Student, error)
	UpsertStudent(ctx context.Context, student *Student) error
	DeleteStudent(ctx context.Context, uid string) (bool, error)
	CountStudents(ctx context.Context) (int, error)
}

// QueryLogRepository defines the append-only exchange log.
type QueryLogRepository interface {
	AppendQueryLog(ctx context.Context, entry *QueryLog) error
	ListQueryLogs(ctx context.Context, filter QueryLogFilter) ([]QueryLog, error)
	PurgeQueryLogsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// UnansweredRepository defines the human review queue.
type UnansweredRepository interface {
	InsertUnanswered(ctx context.Context, uid, query string) (int64, error)
	GetUnanswered(ctx context.Context, id int64) (*UnansweredQuery, error)
	ListUnanswered(ctx context.Context, status string) ([]UnansweredQuery, error)
	CountPendingUnanswered(ctx context.Context) (int, error)
	MarkUnansweredResolved(ctx context.Context, id int64, answer string) (bool, error)
	ListApprovedAnswers(ctx context.Context) ([]UnansweredQuery, error)
}

// AnnouncementRepository defines the single active announcement slot.
type AnnouncementRepository interface {
	PostAnnouncement(ctx context.Context, message string) (*Announcement, error)
	ActiveAnnouncement(ctx context.Context) (*Announcement, error)
	ClearAnnouncements(ctx context.Context) (int64, error)
}

// BindingRepository defines LINE user to student bindings.
type BindingRepository interface {
	BindLineUser(ctx context.Context, lineUserID, uid string) error
	GetLineBinding(ctx context.Context, lineUserID string) (*LineBinding, error)
	UnbindLineUser(ctx context.Context, lineUserID string) (bool, error)
}

// WebPageRepository defines ingested web page storage.
type WebPageRepository interface {
	SaveWebPage(ctx context.Context, page *WebPage) error
	ListWebPages(ctx context.Context) ([]WebPage, error)
	DeleteWebPage(ctx context.Context, url string) (bool, error)
}

var (
	_ StudentRepository      = (*DB)(nil)
	_ QueryLogRepository     = (*DB)(nil)
	_ UnansweredRepository   = (*DB)(nil)
	_ AnnouncementRepository = (*DB)(nil)
	_ BindingRepository      = (*DB)(nil)
	_ WebPageRepository      = (*DB)(nil)
)
