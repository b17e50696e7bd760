package maintenance

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campussathi/campussathi-go/internal/logger"
	"github.com/campussathi/campussathi-go/internal/metrics"
)

type refresherFunc func(ctx context.Context) (string, error)

func (f refresherFunc) RefreshIndexes(ctx context.Context) (string, error) { return f(ctx) }

type purgerFunc func(ctx context.Context, cutoff time.Time) (int64, error)

func (f purgerFunc) PurgeQueryLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return f(ctx, cutoff)
}

type counterFunc func(ctx context.Context) (int, error)

func (f counterFunc) CountPendingUnanswered(ctx context.Context) (int, error) { return f(ctx) }

func TestRefreshJob(t *testing.T) {
	t.Parallel()
	calls := 0
	job := RefreshJob("0 3 * * *", refresherFunc(func(context.Context) (string, error) {
		calls++
		return "Indexes reloaded.", nil
	}))
	assert.Equal(t, JobRefresh, job.Name)
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, calls)

	failing := RefreshJob("", refresherFunc(func(context.Context) (string, error) {
		return "", errors.New("no embedder")
	}))
	require.Error(t, failing.Run(context.Background()))
}

func TestRetentionJob(t *testing.T) {
	t.Parallel()
	log := logger.NewWithWriter("error", io.Discard)

	var cutoff time.Time
	job := RetentionJob("@daily", 30*24*time.Hour, purgerFunc(func(_ context.Context, c time.Time) (int64, error) {
		cutoff = c
		return 4, nil
	}), log)
	require.NoError(t, job.Run(context.Background()))
	assert.WithinDuration(t, time.Now().Add(-30*24*time.Hour), cutoff, time.Minute)

	disabled := RetentionJob("@daily", 0, purgerFunc(nil), log)
	assert.Empty(t, disabled.Spec)
}

func TestGaugeJob(t *testing.T) {
	t.Parallel()
	m := metrics.New(prometheus.NewRegistry())
	job := GaugeJob(counterFunc(func(context.Context) (int, error) { return 7, nil }), m)

	_, err := Parser.Parse(job.Spec)
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.PendingUnanswered))
}
