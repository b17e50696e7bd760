// Package sentry reports errors to Better Stack Errors through the Sentry
// SDK. Every helper is a no-op until Init succeeds.
package sentry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"

	"github.com/campussathi/campussathi-go/internal/ctxutil"
)

// Config points the SDK at a Better Stack Errors application.
type Config struct {
	Token       string // application token, the DSN user
	Host        string // ingesting host, e.g. errors.betterstack.com
	Environment string
	Release     string
	SampleRate  float64 // out of range means 1
}

// dsn is https://TOKEN@HOST/1. Better Stack ignores the project ID but the
// SDK refuses a DSN without one.
func (c Config) dsn() string {
	return fmt.Sprintf("https://%s@%s/1", c.Token, c.Host)
}

// Init starts the SDK. An empty token leaves reporting off and is not an
// error.
func Init(cfg Config) error {
	if cfg.Token == "" {
		return nil
	}
	if cfg.Host == "" {
		return errors.New("sentry: host is required with a token")
	}
	rate := cfg.SampleRate
	if rate <= 0 || rate > 1 {
		rate = 1
	}
	return sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.dsn(),
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       rate,
		AttachStacktrace: true,
		BeforeSend:       dropCanceled,
	})
}

// dropCanceled discards errors caused by a client hanging up or a
// shutdown; they are logged but are not bugs.
func dropCanceled(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	if hint != nil && errors.Is(hint.OriginalException, context.Canceled) {
		return nil
	}
	return event
}

// Enabled reports whether Init configured a client.
func Enabled() bool {
	return sentry.CurrentHub().Client() != nil
}

// Flush blocks up to timeout for queued events.
func Flush(timeout time.Duration) {
	if Enabled() {
		sentry.Flush(timeout)
	}
}

// Middleware gives each request its own hub. Panics are re-raised so
// gin.Recovery still answers 500.
func Middleware() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{Repanic: true, Timeout: 2 * time.Second})
}

// Capture reports err tagged with module, the request trace in ctx and
// tags, given as key/value pairs.
func Capture(ctx context.Context, err error, module string, tags ...string) {
	if err == nil || !Enabled() {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}
	trace := ctxutil.From(ctx)
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("module", module)
		for i := 0; i+1 < len(tags); i += 2 {
			scope.SetTag(tags[i], tags[i+1])
		}
		for _, attr := range trace.Attrs() {
			scope.SetTag(attr.Key, attr.Value.String())
		}
		if trace.StudentUID != "" {
			scope.SetUser(sentry.User{ID: trace.StudentUID})
		}
		hub.CaptureException(err)
	})
}
