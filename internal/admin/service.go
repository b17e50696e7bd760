// Package admin implements the curation workflow behind the admin API:
// approving escalated questions into the knowledge base, announcements,
// knowledge file uploads, index refreshes, web page ingestion and the
// student, log and review-queue tables.
//
// Every operation returns the reply shown to the admin. Failures are
// returned as errors carrying a user message (see errors.PublicMessage).
package admin

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	apperrors "github.com/campussathi/campussathi-go/internal/errors"
	"github.com/campussathi/campussathi-go/internal/logger"
	"github.com/campussathi/campussathi-go/internal/metrics"
	"github.com/campussathi/campussathi-go/internal/rag"
	"github.com/campussathi/campussathi-go/internal/storage"
	"github.com/campussathi/campussathi-go/internal/timetable"
)

// Store is the record store the curation workflow reads and writes.
type Store interface {
	storage.StudentRepository
	storage.QueryLogRepository
	storage.UnansweredRepository
	storage.AnnouncementRepository
	storage.WebPageRepository
}

// KnowledgeBuilder builds knowledge base generations.
type KnowledgeBuilder interface {
	Build(ctx context.Context, force bool) (*rag.KnowledgeBase, error)
}

// PageIngester fetches web pages and splits them into documents.
type PageIngester interface {
	FetchPage(ctx context.Context, rawURL string) (*storage.WebPage, error)
	Documents(page *storage.WebPage) []rag.Document
}

// Mirror copies uploaded files to object storage.
type Mirror interface {
	Push(ctx context.Context, name string, data []byte) (string, error)
}

// Config wires a Service. Web and Mirror are optional.
type Config struct {
	Store     Store
	Knowledge *rag.Holder
	Builder   KnowledgeBuilder
	Splitter  *rag.Splitter // chunks approved answers like source files
	Timetable *timetable.Store
	Web       PageIngester
	Mirror    Mirror

	FAQPath          string
	TimetablePDFPath string

	Logger  *logger.Logger
	Metrics *metrics.Metrics
}

// Service implements the admin operations.
type Service struct {
	store     Store
	knowledge *rag.Holder
	builder   KnowledgeBuilder
	splitter  *rag.Splitter
	timetable *timetable.Store
	web       PageIngester
	mirror    Mirror

	faqPath          string
	timetablePDFPath string

	logger  *logger.Logger
	metrics *metrics.Metrics

	// mu serializes curated writes and the publish step of a rebuild.
	// While rebuilding is set, curated documents are also kept in backlog
	// and replayed into the new generation before it replaces the old one.
	mu         sync.Mutex
	rebuilding bool
	backlog    []rag.Document

	buildMu   sync.Mutex // one Build at a time, held without mu
	refreshes singleflight.Group
}

// New creates a Service.
func New(cfg Config) *Service {
	splitter := cfg.Splitter
	if splitter == nil {
		splitter = rag.NewSplitter(rag.DefaultChunkSize, rag.DefaultChunkOverlap)
	}
	return &Service{
		store:            cfg.Store,
		knowledge:        cfg.Knowledge,
		builder:          cfg.Builder,
		splitter:         splitter,
		timetable:        cfg.Timetable,
		web:              cfg.Web,
		mirror:           cfg.Mirror,
		faqPath:          cfg.FAQPath,
		timetablePDFPath: cfg.TimetablePDFPath,
		logger:           cfg.Logger.WithModule("admin"),
		metrics:          cfg.Metrics,
	}
}

// record counts an admin action and passes err through.
func (s *Service) record(action string, err error) error {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordAdminAction(action, status)
	return err
}

func wrapper(operation string) apperrors.Scope {
	return apperrors.In("admin", operation)
}
