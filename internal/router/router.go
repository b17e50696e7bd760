// Package router decides how each chat message is answered and when it is
// escalated to the human review queue.
//
// A request is classified into one of three intents. Timetable and personal
// questions are answered from structured records; everything else goes
// through retrieval and answer generation. Answers the knowledge base could
// not supply are queued as unanswered queries and logged with
// fallback_needed set.
package router

import (
	"context"
	"strings"
	"time"

	"github.com/campussathi/campussathi-go/internal/facts"
	"github.com/campussathi/campussathi-go/internal/genai"
	"github.com/campussathi/campussathi-go/internal/logger"
	"github.com/campussathi/campussathi-go/internal/metrics"
	"github.com/campussathi/campussathi-go/internal/rag"
	"github.com/campussathi/campussathi-go/internal/sentry"
	"github.com/campussathi/campussathi-go/internal/storage"
	"github.com/campussathi/campussathi-go/internal/timetable"
)

// Fixed replies.
const (
	TimetableUIDPrompt    = "❌ Please provide your UID so I can fetch your timetable."
	PersonalUIDPrompt     = "❌ Please provide your UID so I can look up your details."
	KnowledgeUnavailable  = "⚠️ Knowledge base not available. Admin: please upload FAQ/timetable and refresh indexes."
	TimetableLookupError  = "⚠️ Could not look up your timetable right now. Please try again later."
	StudentLookupError    = "⚠️ Could not look up your student record right now. Please try again later."
	RAGError              = "⚠️ Error querying RAG. Please try again later."
	announcementSeparator = "\n\n---\n\n"
)

// Chat outcomes recorded in metrics.
const (
	outcomeStructured = "structured"
	outcomeAnswered   = "answered"
	outcomeEscalated  = "escalated"
	outcomeUsageError = "usage_error"
	outcomeNotFound   = "not_found"
	outcomeError      = "error"
)

// Store is the part of the record store the router reads and appends to.
type Store interface {
	ActiveAnnouncement(ctx context.Context) (*storage.Announcement, error)
	GetStudent(ctx context.Context, uid string) (*storage.Student, error)
	AppendQueryLog(ctx context.Context, entry *storage.QueryLog) error
	InsertUnanswered(ctx context.Context, uid, query string) (int64, error)
	CountPendingUnanswered(ctx context.Context) (int, error)
}

// TimetableResolver answers timetable requests for a student.
type TimetableResolver interface {
	Resolve(ctx context.Context, uid, day string) (string, error)
}

// KnowledgeSource returns the current knowledge base, or nil when none is built.
type KnowledgeSource interface {
	Load() *rag.KnowledgeBase
}

// Request is one chat message.
type Request struct {
	Query string
	// UID is the student identifier; empty for anonymous users.
	UID string
}

// Config wires a Router to its collaborators.
type Config struct {
	Store      Store
	Classifier genai.IntentClassifier
	Generator  genai.AnswerGenerator
	Timetable  TimetableResolver
	Knowledge  KnowledgeSource
	Logger     *logger.Logger
	Metrics    *metrics.Metrics
}

// Router answers chat messages.
type Router struct {
	store      Store
	classifier genai.IntentClassifier
	generator  genai.AnswerGenerator
	timetable  TimetableResolver
	knowledge  KnowledgeSource
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

// New creates a Router.
func New(cfg Config) *Router {
	return &Router{
		store:      cfg.Store,
		classifier: cfg.Classifier,
		generator:  cfg.Generator,
		timetable:  cfg.Timetable,
		knowledge:  cfg.Knowledge,
		logger:     cfg.Logger.WithModule("router"),
		metrics:    cfg.Metrics,
	}
}

// outcome is the result of one branch before the announcement is applied.
type outcome struct {
	reply  string
	status string
	// log is false for usage errors, which are not recorded.
	log      bool
	fallback bool
}

// Route answers req. It never fails: collaborator errors are logged and
// turned into reply text.
func (r *Router) Route(ctx context.Context, req Request) string {
	start := time.Now()
	query := strings.TrimSpace(req.Query)
	uid := strings.TrimSpace(req.UID)

	announcement := r.activeAnnouncement(ctx)
	intent := r.classify(ctx, query)

	var out outcome
	switch intent {
	case genai.IntentTimetable:
		out = r.handleTimetable(ctx, uid, query)
	case genai.IntentPersonal:
		out = r.handlePersonal(ctx, uid, query)
	default:
		out = r.handleGeneral(ctx, uid, query)
	}

	if out.log {
		r.appendLog(ctx, uid, query, out.reply, out.fallback)
	}
	r.metrics.RecordChat(string(intent), out.status, time.Since(start).Seconds())

	if announcement != "" {
		return "📢 **Announcement:** " + announcement + announcementSeparator + out.reply
	}
	return out.reply
}

func (r *Router) activeAnnouncement(ctx context.Context) string {
	a, err := r.store.ActiveAnnouncement(ctx)
	if err != nil {
		r.logger.WithError(err).WarnContext(ctx, "Failed to read active announcement")
		return ""
	}
	if a == nil {
		return ""
	}
	return a.Message
}

// classify never fails; errors and unknown labels become general_faq.
func (r *Router) classify(ctx context.Context, query string) genai.Intent {
	if r.classifier == nil {
		r.metrics.RecordIntentDefaulted("no_classifier")
		return genai.IntentGeneral
	}
	intent, err := r.classifier.Classify(ctx, query)
	if err != nil {
		r.logger.WithError(err).WarnContext(ctx, "Intent classification failed, treating as general question")
		r.metrics.RecordIntentDefaulted("classifier_error")
		return genai.IntentGeneral
	}
	switch intent {
	case genai.IntentTimetable, genai.IntentPersonal, genai.IntentGeneral:
		return intent
	default:
		r.logger.WithField("intent", string(intent)).WarnContext(ctx, "Unknown intent label, treating as general question")
		r.metrics.RecordIntentDefaulted("unknown_label")
		return genai.IntentGeneral
	}
}

func (r *Router) handleTimetable(ctx context.Context, uid, query string) outcome {
	if uid == "" {
		return outcome{reply: TimetableUIDPrompt, status: outcomeUsageError}
	}
	day := timetable.DetectDay(query)
	reply, err := r.timetable.Resolve(ctx, uid, day)
	if err != nil {
		o := r.serviceError(ctx, "timetable", err)
		// A broken student DB or timetable index is not a knowledge gap.
		o.fallback = false
		return o
	}
	status := outcomeStructured
	if reply == timetable.UnknownUIDMessage {
		status = outcomeNotFound
	}
	return outcome{reply: reply, status: status, log: true}
}

func (r *Router) handlePersonal(ctx context.Context, uid, query string) outcome {
	if uid == "" {
		return outcome{reply: PersonalUIDPrompt, status: outcomeUsageError}
	}
	res, err := facts.ResolveForUID(ctx, r.store, uid, query)
	if err != nil {
		return r.serviceError(ctx, "personal", err)
	}
	if !res.Found {
		return outcome{reply: res.Text, status: outcomeNotFound, log: true}
	}
	if res.Matched {
		return outcome{reply: res.Text, status: outcomeStructured, log: true}
	}
	r.logger.DebugContext(ctx, "No personal fact matched, answering as general question")
	return r.handleGeneral(ctx, uid, query)
}

func (r *Router) handleGeneral(ctx context.Context, uid, query string) outcome {
	kb := r.knowledge.Load()
	if kb == nil || r.generator == nil {
		r.escalate(ctx, uid, query, "kb_unavailable")
		return outcome{reply: KnowledgeUnavailable, status: outcomeEscalated, log: true, fallback: true}
	}

	retrieveStart := time.Now()
	passages, err := kb.Retriever().Retrieve(ctx, query)
	r.metrics.RecordRetrieval(time.Since(retrieveStart).Seconds())
	if err != nil {
		return r.serviceError(ctx, "retrieve", err)
	}

	answer, err := r.generator.Generate(ctx, query, passages)
	if err != nil {
		return r.serviceError(ctx, "generate", err)
	}

	if !answer.Found || genai.ContainsFallback(answer.Text) {
		r.escalate(ctx, uid, query, "fallback_answer")
		return outcome{reply: answer.Text, status: outcomeEscalated, log: true, fallback: true}
	}
	return outcome{reply: answer.Text, status: outcomeAnswered, log: true}
}

// serviceError reports a collaborator failure and builds the degraded
// reply for stage. err goes to the logs and Sentry, never to the user.
func (r *Router) serviceError(ctx context.Context, stage string, err error) outcome {
	r.logger.WithError(err).WithField("stage", stage).ErrorContext(ctx, "Failed to answer query")
	sentry.Capture(ctx, err, "router", "stage", stage)

	reply := RAGError
	switch stage {
	case "timetable":
		reply = TimetableLookupError
	case "personal":
		reply = StudentLookupError
	}
	return outcome{reply: reply, status: outcomeError, log: true, fallback: true}
}

// escalate queues query for admin review. Failures are logged only.
func (r *Router) escalate(ctx context.Context, uid, query, reason string) {
	r.metrics.RecordEscalation(reason)
	id, err := r.store.InsertUnanswered(ctx, uidOrGuest(uid), query)
	if err != nil {
		r.logger.WithError(err).ErrorContext(ctx, "Failed to queue unanswered query")
		return
	}
	r.logger.WithField("unanswered_id", id).WithField("reason", reason).InfoContext(ctx, "Query escalated for review")

	if n, err := r.store.CountPendingUnanswered(ctx); err == nil {
		r.metrics.SetPendingUnanswered(n)
	}
}

func (r *Router) appendLog(ctx context.Context, uid, query, reply string, fallback bool) {
	entry := &storage.QueryLog{
		UID:            uidOrGuest(uid),
		Query:          query,
		BotResponse:    reply,
		FallbackNeeded: fallback,
	}
	if err := r.store.AppendQueryLog(ctx, entry); err != nil {
		r.logger.WithError(err).ErrorContext(ctx, "Failed to append query log")
	}
}

func uidOrGuest(uid string) string {
	if uid == "" {
		return storage.AnonymousUID
	}
	return uid
}
