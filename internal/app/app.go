// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/campussathi/campussathi-go/internal/admin"
	"github.com/campussathi/campussathi-go/internal/buildinfo"
	"github.com/campussathi/campussathi-go/internal/config"
	"github.com/campussathi/campussathi-go/internal/genai"
	"github.com/campussathi/campussathi-go/internal/ingest"
	"github.com/campussathi/campussathi-go/internal/logger"
	"github.com/campussathi/campussathi-go/internal/maintenance"
	"github.com/campussathi/campussathi-go/internal/metrics"
	"github.com/campussathi/campussathi-go/internal/r2client"
	"github.com/campussathi/campussathi-go/internal/rag"
	"github.com/campussathi/campussathi-go/internal/ratelimit"
	"github.com/campussathi/campussathi-go/internal/router"
	"github.com/campussathi/campussathi-go/internal/scraper"
	"github.com/campussathi/campussathi-go/internal/sentry"
	"github.com/campussathi/campussathi-go/internal/storage"
	"github.com/campussathi/campussathi-go/internal/timetable"
	"github.com/campussathi/campussathi-go/internal/warmup"
	"github.com/campussathi/campussathi-go/internal/webhook"
)

// lineOutboundRPS caps calls to the LINE Messaging API.
const lineOutboundRPS = 10

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg            *config.Config
	logger         *logger.Logger
	db             *storage.DB
	metrics        *metrics.Metrics
	registry       *prometheus.Registry
	knowledge      *rag.Holder
	chat           chatRouter
	answering      bool // an answer generator is configured
	admin          *admin.Service
	chatLimiter    *ratelimit.KeyedLimiter
	lineLimiter    *ratelimit.KeyedLimiter
	webhookHandler *webhook.Handler // nil when LINE is not configured
	scheduler      *maintenance.Scheduler
	warmupOptions  warmup.Options
	gate           *warmup.Gate // holds webhooks back until warm-up finishes
	server         *http.Server
	wg             sync.WaitGroup // Track background goroutines for graceful shutdown
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterStackToken:    cfg.BetterStackToken,
		BetterStackEndpoint: cfg.BetterStackEndpoint,
	})

	log = log.WithField("service", "campussathi")
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Set as default logger so package-level slog.*Context() calls pick up
	// request and user IDs through the trace handler.
	slog.SetDefault(log.Logger)

	log.Info("Initializing application...")
	if cfg.BetterStackEnabled() {
		log.WithField("endpoint", cfg.BetterStackEndpoint).Info("Better Stack logging enabled")
	}
	if cfg.SentryEnabled() {
		err := sentry.Init(sentry.Config{
			Token:       cfg.SentryToken,
			Host:        cfg.SentryHost,
			Environment: cfg.SentryEnvironment,
			Release:     buildinfo.Version,
			SampleRate:  cfg.SentrySampleRate,
		})
		if err != nil {
			log.WithError(err).Warn("Sentry initialization failed")
		} else {
			log.Info("Sentry error reporting enabled")
		}
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	db, err := storage.New(ctx, cfg.SQLitePath())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	log.WithField("path", cfg.SQLitePath()).Info("Database connected")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	embedders, err := genai.NewEmbedders(buildEmbedConfig(cfg))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("embedders: %w", err)
	}
	if embedders.English == nil {
		log.Info("No embedding provider configured, using keyword retrieval")
	}

	knowledge := &rag.Holder{}
	builder := rag.NewBuilder(rag.BuildConfig{
		FAQPath:             cfg.FAQPath(),
		TimetablePath:       cfg.TimetablePDFPath(),
		VectorDir:           cfg.VectorDir(),
		ChunkSize:           cfg.ChunkSize,
		ChunkOverlap:        cfg.ChunkOverlap,
		K:                   cfg.RetrieverK,
		SimilarityThreshold: float32(cfg.SimilarityThreshold),
	}, embedders, ingest.NewPDFLoader(), db, log)
	tt := timetable.NewStore(cfg.StructuredTimetablePath())

	fetcher := scraper.NewClient(scraper.Options{
		Timeout:      config.IngestFetch,
		InitialDelay: config.IngestRetryInitial,
	})

	adminCfg := admin.Config{
		Store:            db,
		Knowledge:        knowledge,
		Builder:          builder,
		Splitter:         builder.Splitter(),
		Timetable:        tt,
		Web:              ingest.NewWebIngester(fetcher, builder.Splitter()),
		FAQPath:          cfg.FAQPath(),
		TimetablePDFPath: cfg.TimetablePDFPath(),
		Logger:           log,
		Metrics:          m,
	}
	warmupOpts := warmup.Options{Metrics: m}
	if cfg.SeedSampleData {
		warmupOpts.Seeder = db
	}
	if mirror := newMirror(ctx, cfg, log); mirror != nil {
		adminCfg.Mirror = mirror
		warmupOpts.Restorer = mirror
		warmupOpts.Files = []string{cfg.FAQPath(), cfg.TimetablePDFPath(), cfg.StructuredTimetablePath()}
	}
	adminSvc := admin.New(adminCfg)
	warmupOpts.Knowledge = adminSvc

	routerCfg := router.Config{
		Store: db,
		Timetable: timetable.NewResolver(db, tt, func() rag.Index {
			return knowledge.Load().TimetableIndex()
		}),
		Knowledge: knowledge,
		Logger:    log,
		Metrics:   m,
	}
	applyLLM(ctx, cfg, m, log, &routerCfg)
	chat := router.New(routerCfg)

	chatLimiter := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:          "chat",
		Burst:         cfg.ChatRateBurst,
		RefillRate:    cfg.ChatRateRefill,
		DailyLimit:    cfg.ChatDailyLimit,
		CleanupPeriod: config.RateLimiterCleanupInterval,
		Metrics:       m,
	})

	app := &Application{
		cfg:            cfg,
		logger:         log,
		db:             db,
		metrics:        m,
		registry:       registry,
		knowledge:      knowledge,
		chat:           chat,
		answering:      routerCfg.Generator != nil,
		admin:          adminSvc,
		chatLimiter:    chatLimiter,
		scheduler:      maintenance.New(log, m),
		warmupOptions:  warmupOpts,
		gate:           warmup.NewGate(config.WarmupReadyTimeout),
	}

	if cfg.LineEnabled() {
		if err := app.initLine(chat); err != nil {
			app.closeResources()
			return nil, err
		}
	}

	if err := app.addJobs(); err != nil {
		app.closeResources()
		return nil, err
	}

	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.newEngine(),
		ReadHeaderTimeout: config.HTTPRead,
		ReadTimeout:       config.HTTPRead,
		WriteTimeout:      config.HTTPWrite,
		IdleTimeout:       config.HTTPIdle,
	}

	log.Info("Initialization complete")
	return app, nil
}

// newMirror connects to R2 when it is configured. Mirroring is optional;
// a connection failure is logged and the instance runs without it.
func newMirror(ctx context.Context, cfg *config.Config, log *logger.Logger) *r2client.Mirror {
	if !cfg.R2Enabled() {
		return nil
	}
	client, err := r2client.New(ctx, r2client.Config{
		Endpoint:    cfg.R2Endpoint(),
		AccessKeyID: cfg.R2AccessKeyID,
		SecretKey:   cfg.R2SecretAccessKey,
		BucketName:  cfg.R2BucketName,
	})
	if err != nil {
		log.WithError(err).Warn("R2 mirror disabled")
		return nil
	}
	log.WithFields(map[string]any{"bucket": cfg.R2BucketName, "prefix": cfg.R2Prefix}).Info("R2 mirror enabled")
	return r2client.NewMirror(client, cfg.R2Prefix)
}

// initLine creates the LINE webhook handler and its per-user limiter.
func (a *Application) initLine(chat chatRouter) error {
	messenger, err := webhook.NewLineMessenger(a.cfg.LineChannelToken, lineOutboundRPS)
	if err != nil {
		return fmt.Errorf("line messenger: %w", err)
	}
	a.lineLimiter = ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:          "line",
		Burst:         a.cfg.ChatRateBurst,
		RefillRate:    a.cfg.ChatRateRefill,
		DailyLimit:    a.cfg.ChatDailyLimit,
		CleanupPeriod: config.RateLimiterCleanupInterval,
		Metrics:       a.metrics,
	})
	handler, err := webhook.NewHandler(webhook.HandlerConfig{
		ChannelSecret: a.cfg.LineChannelSecret,
		Messenger:     messenger,
		Router:        chat,
		Store:         a.db,
		UserLimiter:   a.lineLimiter,
		Logger:        a.logger,
		Metrics:       a.metrics,
	})
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	a.webhookHandler = handler
	a.logger.Info("LINE channel enabled")
	return nil
}

// addJobs registers the maintenance jobs. Jobs with an empty schedule are disabled.
func (a *Application) addJobs() error {
	jobs := []maintenance.Job{
		maintenance.RefreshJob(a.cfg.RefreshSchedule, a.admin),
		maintenance.RetentionJob(a.cfg.RetentionSchedule, a.cfg.LogRetention, a.db, a.logger),
		maintenance.GaugeJob(a.db, a.metrics),
	}
	for _, job := range jobs {
		if err := a.scheduler.Add(job); err != nil {
			return err
		}
	}
	return nil
}

// Run starts the HTTP server and background jobs.
//
// Graceful shutdown sequence:
//  1. Receive shutdown signal (SIGINT/SIGTERM)
//  2. Cancel context to stop the warm-up
//  3. Wait for background goroutines to return
//  4. Drain HTTP, webhook events and scheduled jobs, then close resources
//
// The database is closed last so no running build or job writes to a closed handle.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.startBackgroundJobs(ctx)
	a.startHTTPServer()

	sig := a.waitForShutdownSignal()
	a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")

	cancel()

	a.logger.Info("Waiting for background jobs to finish...")
	start := time.Now()
	a.wg.Wait()
	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("All background jobs completed")

	return a.shutdown()
}

// startBackgroundJobs starts the warm-up and the maintenance scheduler.
func (a *Application) startBackgroundJobs(ctx context.Context) {
	a.wg.Go(func() {
		a.runWarmup(ctx)
	})
	a.scheduler.Start()
}

// runWarmup seeds, restores and builds the first knowledge base, then
// marks the instance ready whatever the outcome.
func (a *Application) runWarmup(ctx context.Context) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			a.logger.WithField("panic", r).Error("Panic in warmup")
			err = fmt.Errorf("warmup panic: %v", r)
		}
		a.gate.Open(err)
	}()

	var stats *warmup.Stats
	stats, err = warmup.Run(ctx, a.logger, a.warmupOptions)
	if err != nil {
		a.logger.WithError(err).Error("Warmup failed")
		return
	}
	a.logger.WithFields(map[string]any{
		"students_seeded": stats.StudentsSeeded.Load(),
		"files_restored":  stats.FilesRestored.Load(),
		"kb_ready":        a.kbReady(),
	}).Info("Service marked as ready after warmup")
}

// startHTTPServer starts the HTTP server in a goroutine.
func (a *Application) startHTTPServer() {
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Error("HTTP server error")
		}
	}()
}

// waitForShutdownSignal blocks until SIGINT/SIGTERM is received.
func (a *Application) waitForShutdownSignal() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}

// shutdown stops the HTTP server, waits for webhook events and scheduled
// jobs, and closes resources.
func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	if a.webhookHandler != nil {
		a.logger.Info("Waiting for webhook events to complete...")
		if err := a.webhookHandler.Shutdown(shutdownCtx); err != nil {
			a.logger.WithError(err).Warn("Webhook handler shutdown timeout")
		}
	}

	a.logger.Info("Stopping scheduled jobs...")
	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Scheduler shutdown timeout")
	}

	a.closeResources()

	sentry.Flush(2 * time.Second)
	if err := a.logger.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Logger shutdown timed out")
	}

	a.logger.Info("Shutdown complete")
	return nil
}

// closeResources closes the database and stops the limiters.
func (a *Application) closeResources() {
	a.logger.Info("Closing resources...")
	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "database").Error("Component close error")
	}
	if a.chatLimiter != nil {
		a.chatLimiter.Stop()
	}
	if a.lineLimiter != nil {
		a.lineLimiter.Stop()
	}
}

// newEngine builds the Gin engine with middleware and routes.
func (a *Application) newEngine() *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	if sentry.Enabled() {
		r.Use(sentry.Middleware())
	}
	r.Use(corsMiddleware(a.cfg.AllowedOrigin))
	r.Use(securityHeadersMiddleware())
	r.Use(loggingMiddleware(a.logger))
	a.registerRoutes(r)
	return r
}
