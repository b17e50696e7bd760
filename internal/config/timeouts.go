// Package config provides centralized timeout constants for the application.
//
// The values are tuned for a chat front-end that waits synchronously for a
// reply while the server talks to an LLM provider and an embedding service:
//   - Chat replies should arrive well within a browser's patience (~1 minute)
//   - LINE expects a quick 200 OK and gets its reply asynchronously
//   - Index rebuilds embed every chunk and can take minutes on large PDFs
package config

import "time"

// HTTP server timeouts
const (
	// HTTPRead is the HTTP server read timeout. Uploads are bounded by
	// MaxUploadSize, so a generous value is enough for slow links.
	HTTPRead = 30 * time.Second

	// HTTPWrite is the HTTP server write timeout.
	// Must accommodate ChatProcessing plus response serialization.
	HTTPWrite = 65 * time.Second

	// HTTPIdle is the HTTP server idle timeout for keep-alive connections.
	HTTPIdle = 120 * time.Second
)

// Request processing timeouts
const (
	// ChatProcessing bounds one routed chat request end to end:
	// classification, retrieval and generation.
	ChatProcessing = 60 * time.Second

	// WebhookProcessing is the timeout for processing a single LINE event.
	WebhookProcessing = 60 * time.Second

	// LLMRequest is the timeout for one provider call inside the fallback chain.
	LLMRequest = 20 * time.Second

	// RetrievalTimeout bounds embedding the query and searching the indexes.
	RetrievalTimeout = 30 * time.Second
)

// Ingestion timeouts
const (
	// IndexBuild bounds a full knowledge base rebuild (all PDFs re-embedded).
	IndexBuild = 15 * time.Minute

	// IngestFetch is the timeout for fetching one web page for ingestion.
	IngestFetch = 30 * time.Second

	// IngestRetryInitial is the initial delay before retrying a failed fetch.
	// Uses exponential backoff: 2s -> 4s -> 8s
	IngestRetryInitial = 2 * time.Second

	// MirrorTransfer bounds an upload or download against R2.
	MirrorTransfer = 2 * time.Minute
)

// Database timeouts
const (
	// DatabaseBusyTimeout is SQLite busy_timeout pragma value.
	// Handles concurrent write contention between chat logging and admin writes.
	DatabaseBusyTimeout = 30 * time.Second

	// DatabaseConnMaxLifetime is the maximum lifetime of database connections.
	DatabaseConnMaxLifetime = time.Hour

	// SlowQueryThreshold is the duration above which repository calls log a warning.
	SlowQueryThreshold = 100 * time.Millisecond
)

// Background job intervals
const (
	// MetricsUpdateInterval is how often gauge metrics (pending queue, KB size) are updated.
	MetricsUpdateInterval = 5 * time.Minute

	// RateLimiterCleanupInterval is how often inactive per-user limiters are cleaned.
	RateLimiterCleanupInterval = 5 * time.Minute

	// WarmupReadyTimeout is how long /readyz waits for the first index build
	// before reporting ready anyway (chat still answers with "KB unavailable").
	WarmupReadyTimeout = 10 * time.Minute
)

// Graceful shutdown
const (
	// GracefulShutdown is the timeout for graceful server shutdown.
	// Allows in-flight requests to complete before forceful termination.
	GracefulShutdown = 30 * time.Second
)

// MaxUploadSize caps a single admin upload (PDF or structured timetable).
const MaxUploadSize = 32 << 20
