package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/campussathi/campussathi-go/internal/metrics"
)

// ErrNotConfigured is returned by chains that have no models.
var ErrNotConfigured = errors.New("no LLM provider configured")

// Operation labels for metrics.
const (
	opIntent = "intent"
	opAnswer = "answer"
)

// chain tries its models in order until one succeeds.
type chain struct {
	op      string
	models  []chatModel
	retry   RetryConfig
	metrics *metrics.Metrics
}

func (c *chain) len() int {
	if c == nil {
		return 0
	}
	return len(c.models)
}

// run calls fn on each model, retrying transient failures per model and
// moving to the next model on anything but a permanent error.
func run[T any](ctx context.Context, c *chain, fn func(m chatModel) (T, usage, error)) (T, error) {
	var zero T
	if c.len() == 0 {
		return zero, ErrNotConfigured
	}

	var lastErr error
	for i, m := range c.models {
		provider := m.Provider().String()
		start := time.Now()

		onRetry := func(attempt int, err error) {
			slog.DebugContext(ctx, "Retrying LLM call",
				"provider", provider,
				"model", m.Model(),
				"operation", c.op,
				"attempt", attempt,
				"error", err)
		}
		v, err := withRetry(ctx, c.retry, onRetry, func() (T, error) {
			v, u, err := fn(m)
			c.metrics.RecordLLMTokens(provider, c.op, u.input, u.output)
			return v, err
		})
		if err == nil {
			c.metrics.RecordLLMRequest(provider, c.op, "success", time.Since(start).Seconds())
			return v, nil
		}

		lastErr = err
		c.metrics.RecordLLMRequest(provider, c.op, errorStatus(err), time.Since(start).Seconds())
		action := ClassifyError(err)
		slog.WarnContext(ctx, "LLM call failed",
			"provider", provider,
			"model", m.Model(),
			"operation", c.op,
			"action", action.String(),
			"error", err)
		if action == ActionFail {
			return zero, err
		}
		if i+1 < len(c.models) {
			next := c.models[i+1]
			c.metrics.RecordLLMFallback(provider, next.Provider().String(), c.op)
		}
	}
	return zero, fmt.Errorf("all %d models failed: %w", len(c.models), lastErr)
}
