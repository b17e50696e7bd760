package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campussathi/campussathi-go/internal/buildinfo"
)

// readinessCheckTimeout bounds the database ping of /readyz.
const readinessCheckTimeout = 3 * time.Second

func (a *Application) registerRoutes(r *gin.Engine) {
	r.GET("/health", a.health)
	r.GET("/status", a.status)
	r.GET("/livez", a.livenessCheck)
	r.HEAD("/livez", a.livenessCheck)
	r.GET("/readyz", a.readinessCheck)
	r.HEAD("/readyz", a.readinessCheck)
	r.GET("/metrics",
		basicAuthMiddleware("metrics", a.cfg.MetricsUsername, a.cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	r.POST("/chat", a.handleChat)
	if a.webhookHandler != nil {
		r.POST("/webhook", a.readinessMiddleware(), a.webhookHandler.Handle)
	}

	a.registerAdminRoutes(r)
}

func (a *Application) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// status reports whether general questions can be answered.
func (a *Application) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"kb_ready": a.kbReady()})
}

// kbReady is true when a knowledge base is loaded and a generator can
// answer from it. Without either, general questions are escalated.
func (a *Application) kbReady() bool {
	return a.answering && a.knowledge.Ready()
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "alive",
		"version": buildinfo.Version,
	})
}

func (a *Application) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessCheckTimeout)
	defer cancel()

	warm := a.gate.Status()
	if !warm.Serving {
		a.logger.WithField("elapsed_seconds", warm.ElapsedSeconds).
			Debug("Readiness check: warmup in progress")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "knowledge base warm-up in progress",
			"warmup": warm,
		})
		return
	}

	if err := a.db.Ping(ctx); err != nil {
		a.logger.WithError(err).Warn("Readiness check failed: database unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "database unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"database": "connected",
		"warmup":   warm,
		"features": gin.H{
			"kb_ready": a.kbReady(),
			"line":     a.webhookHandler != nil,
		},
	})
}
