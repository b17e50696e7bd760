// Package metrics defines the Prometheus metrics exported by the service.
//
// All Record*/Set* methods are nil-safe, so components built without
// metrics (tests, CLIs) can record unconditionally.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Chat routing metrics
	ChatRequestsTotal     *prometheus.CounterVec
	RouteDurationSeconds  *prometheus.HistogramVec
	EscalationsTotal      *prometheus.CounterVec
	IntentDefaultedTotal  *prometheus.CounterVec
	PendingUnanswered     prometheus.Gauge
	RetrievalDurationSecs prometheus.Histogram

	// LLM metrics
	LLMRequestsTotal   *prometheus.CounterVec
	LLMDurationSeconds *prometheus.HistogramVec
	LLMFallbackTotal   *prometheus.CounterVec
	LLMTokensTotal     *prometheus.CounterVec

	// Knowledge base metrics
	KnowledgeDocuments    *prometheus.GaugeVec
	IndexRefreshTotal     *prometheus.CounterVec
	IndexRefreshDuration  prometheus.Histogram
	AdminActionsTotal     *prometheus.CounterVec
	IngestRequestsTotal   *prometheus.CounterVec
	IngestDurationSeconds prometheus.Histogram

	// Webhook metrics
	WebhookDurationSeconds *prometheus.HistogramVec
	WebhookRequestsTotal   *prometheus.CounterVec

	// HTTP metrics
	HTTPErrorsTotal *prometheus.CounterVec

	// Rate limiter metrics
	RateLimiterDropped *prometheus.CounterVec
	RateLimiterUsers   *prometheus.GaugeVec

	// Background job metrics
	JobRunsTotal     *prometheus.CounterVec
	WarmupTasksTotal *prometheus.CounterVec
	WarmupDuration   prometheus.Histogram
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	m := &Metrics{
		// Chat routing metrics
		ChatRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campussathi_chat_requests_total",
				Help: "Total number of routed chat requests by intent and outcome",
			},
			[]string{"intent", "outcome"}, // outcome: structured, answered, escalated, not_found, usage_error, error
		),

		RouteDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "campussathi_route_duration_seconds",
				Help:    "End-to-end routing duration in seconds by intent",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"intent"},
		),

		EscalationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campussathi_escalations_total",
				Help: "Total number of queries recorded for human review by reason",
			},
			[]string{"reason"}, // reason: fallback_answer, kb_unavailable
		),

		IntentDefaultedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campussathi_intent_defaulted_total",
				Help: "Total number of classifications that defaulted to general_faq",
			},
			[]string{"reason"}, // reason: classifier_error, unknown_label, no_classifier
		),

		PendingUnanswered: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "campussathi_unanswered_pending",
				Help: "Number of unanswered queries waiting for admin review",
			},
		),

		RetrievalDurationSecs: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "campussathi_retrieval_duration_seconds",
				Help:    "Knowledge retrieval duration in seconds (embedding + search + filter)",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		),

		// LLM metrics
		LLMRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campussathi_llm_requests_total",
				Help: "Total LLM requests by provider, operation and status",
			},
			[]string{"provider", "operation", "status"}, // operation: intent, answer
		),

		LLMDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "campussathi_llm_duration_seconds",
				Help:    "LLM request duration in seconds by provider and operation",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20},
			},
			[]string{"provider", "operation"},
		),

		LLMFallbackTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campussathi_llm_fallback_total",
				Help: "Total provider fallbacks by source, target and operation",
			},
			[]string{"from", "to", "operation"},
		),

		LLMTokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campussathi_llm_tokens_total",
				Help: "Total LLM tokens by provider, operation and kind",
			},
			[]string{"provider", "operation", "kind"}, // kind: input, output
		),

		// Knowledge base metrics
		KnowledgeDocuments: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "campussathi_knowledge_documents",
				Help: "Number of chunks per knowledge index",
			},
			[]string{"index"}, // index: english, indic, keyword, timetable
		),

		IndexRefreshTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campussathi_index_refresh_total",
				Help: "Total knowledge base rebuilds by status",
			},
			[]string{"status"},
		),

		IndexRefreshDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "campussathi_index_refresh_duration_seconds",
				Help:    "Knowledge base rebuild duration in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 900},
			},
		),

		AdminActionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campussathi_admin_actions_total",
				Help: "Total admin curation actions by action and status",
			},
			[]string{"action", "status"}, // action: approve, upload_<kind>, post_announcement, refresh, ingest, ...
		),

		IngestRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campussathi_ingest_requests_total",
				Help: "Total web page fetches for ingestion by status",
			},
			[]string{"status"}, // status: success, error, timeout
		),

		IngestDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "campussathi_ingest_duration_seconds",
				Help:    "Web page fetch duration in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
			},
		),

		// Webhook metrics
		WebhookDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "campussathi_webhook_duration_seconds",
				Help:    "LINE event processing duration in seconds by event type",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"event_type"},
		),

		WebhookRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campussathi_webhook_requests_total",
				Help: "Total LINE events by event type and status",
			},
			[]string{"event_type", "status"},
		),

		// HTTP metrics
		HTTPErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campussathi_http_errors_total",
				Help: "Total HTTP errors by type and route group",
			},
			[]string{"error_type", "group"}, // error_type: bad_request, rate_limit, invalid_signature, internal
		),

		// Rate limiter metrics
		RateLimiterDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campussathi_rate_limiter_dropped_total",
				Help: "Total number of requests dropped by rate limiter",
			},
			[]string{"limiter_type"},
		),

		RateLimiterUsers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "campussathi_rate_limiter_users",
				Help: "Number of keys currently tracked by a rate limiter",
			},
			[]string{"limiter_type"},
		),

		// Background job metrics
		JobRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campussathi_job_runs_total",
				Help: "Total scheduled job runs by job and status",
			},
			[]string{"job", "status"},
		),

		WarmupTasksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campussathi_warmup_tasks_total",
				Help: "Total startup warmup tasks by task and status",
			},
			[]string{"task", "status"},
		),

		WarmupDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "campussathi_warmup_duration_seconds",
				Help:    "Startup warmup duration in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
	}

	return m
}

// RecordChat records one routed chat request.
func (m *Metrics) RecordChat(intent, outcome string, duration float64) {
	if m == nil {
		return
	}
	m.ChatRequestsTotal.WithLabelValues(intent, outcome).Inc()
	m.RouteDurationSeconds.WithLabelValues(intent).Observe(duration)
}

// RecordEscalation records a query logged for human review.
func (m *Metrics) RecordEscalation(reason string) {
	if m == nil {
		return
	}
	m.EscalationsTotal.WithLabelValues(reason).Inc()
}

// RecordIntentDefaulted records a classification that fell back to general_faq.
func (m *Metrics) RecordIntentDefaulted(reason string) {
	if m == nil {
		return
	}
	m.IntentDefaultedTotal.WithLabelValues(reason).Inc()
}

// SetPendingUnanswered updates the review queue depth.
func (m *Metrics) SetPendingUnanswered(count int) {
	if m == nil {
		return
	}
	m.PendingUnanswered.Set(float64(count))
}

// RecordRetrieval records one retrieval pass.
func (m *Metrics) RecordRetrieval(duration float64) {
	if m == nil {
		return
	}
	m.RetrievalDurationSecs.Observe(duration)
}

// RecordLLMRequest records one provider call.
func (m *Metrics) RecordLLMRequest(provider, operation, status string, duration float64) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.WithLabelValues(provider, operation, status).Inc()
	if status == "success" {
		m.LLMDurationSeconds.WithLabelValues(provider, operation).Observe(duration)
	}
}

// RecordLLMFallback records a switch from one provider/model to the next.
func (m *Metrics) RecordLLMFallback(from, to, operation string) {
	if m == nil {
		return
	}
	m.LLMFallbackTotal.WithLabelValues(from, to, operation).Inc()
}

// RecordLLMTokens records token usage reported by a provider.
func (m *Metrics) RecordLLMTokens(provider, operation string, input, output int64) {
	if m == nil {
		return
	}
	if input > 0 {
		m.LLMTokensTotal.WithLabelValues(provider, operation, "input").Add(float64(input))
	}
	if output > 0 {
		m.LLMTokensTotal.WithLabelValues(provider, operation, "output").Add(float64(output))
	}
}

// SetKnowledgeDocuments updates the chunk count of an index.
func (m *Metrics) SetKnowledgeDocuments(index string, count int) {
	if m == nil {
		return
	}
	m.KnowledgeDocuments.WithLabelValues(index).Set(float64(count))
}

// RecordIndexRefresh records a knowledge base rebuild.
func (m *Metrics) RecordIndexRefresh(status string, duration float64) {
	if m == nil {
		return
	}
	m.IndexRefreshTotal.WithLabelValues(status).Inc()
	m.IndexRefreshDuration.Observe(duration)
}

// RecordAdminAction records an admin curation action.
func (m *Metrics) RecordAdminAction(action, status string) {
	if m == nil {
		return
	}
	m.AdminActionsTotal.WithLabelValues(action, status).Inc()
}

// RecordIngest records one web page fetch.
func (m *Metrics) RecordIngest(status string, duration float64) {
	if m == nil {
		return
	}
	m.IngestRequestsTotal.WithLabelValues(status).Inc()
	m.IngestDurationSeconds.Observe(duration)
}

// RecordWebhook records one processed LINE event.
func (m *Metrics) RecordWebhook(eventType, status string, duration float64) {
	if m == nil {
		return
	}
	m.WebhookRequestsTotal.WithLabelValues(eventType, status).Inc()
	m.WebhookDurationSeconds.WithLabelValues(eventType).Observe(duration)
}

// RecordHTTPError records an HTTP error response.
func (m *Metrics) RecordHTTPError(errorType, group string) {
	if m == nil {
		return
	}
	m.HTTPErrorsTotal.WithLabelValues(errorType, group).Inc()
}

// RecordRateLimiterDrop records a request rejected by a limiter.
func (m *Metrics) RecordRateLimiterDrop(limiterType string) {
	if m == nil {
		return
	}
	m.RateLimiterDropped.WithLabelValues(limiterType).Inc()
}

// SetRateLimiterUsers updates the number of active keys in a limiter.
func (m *Metrics) SetRateLimiterUsers(limiterType string, count int) {
	if m == nil {
		return
	}
	m.RateLimiterUsers.WithLabelValues(limiterType).Set(float64(count))
}

// RecordJobRun records a scheduled job execution.
func (m *Metrics) RecordJobRun(job, status string) {
	if m == nil {
		return
	}
	m.JobRunsTotal.WithLabelValues(job, status).Inc()
}

// RecordWarmupTask records a warmup task result.
func (m *Metrics) RecordWarmupTask(task, status string) {
	if m == nil {
		return
	}
	m.WarmupTasksTotal.WithLabelValues(task, status).Inc()
}

// RecordWarmupDuration records total warmup duration.
func (m *Metrics) RecordWarmupDuration(duration float64) {
	if m == nil {
		return
	}
	m.WarmupDuration.Observe(duration)
}
