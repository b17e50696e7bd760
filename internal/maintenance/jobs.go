package maintenance

import (
	"context"
	"time"

	"github.com/campussathi/campussathi-go/internal/config"
	"github.com/campussathi/campussathi-go/internal/logger"
	"github.com/campussathi/campussathi-go/internal/metrics"
)

// Job names.
const (
	JobRefresh   = "refresh"
	JobRetention = "retention"
	JobGauges    = "gauges"
)

// Refresher rebuilds the knowledge base.
type Refresher interface {
	RefreshIndexes(ctx context.Context) (string, error)
}

// LogPurger deletes query logs older than a cutoff.
type LogPurger interface {
	PurgeQueryLogsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PendingCounter counts unanswered queries awaiting review.
type PendingCounter interface {
	CountPendingUnanswered(ctx context.Context) (int, error)
}

// RefreshJob rebuilds the knowledge base on spec.
func RefreshJob(spec string, r Refresher) Job {
	return Job{
		Name:    JobRefresh,
		Spec:    spec,
		Timeout: config.IndexBuild,
		Run: func(ctx context.Context) error {
			_, err := r.RefreshIndexes(ctx)
			return err
		},
	}
}

// RetentionJob purges query logs older than retention. A non-positive
// retention disables the job.
func RetentionJob(spec string, retention time.Duration, p LogPurger, log *logger.Logger) Job {
	if retention <= 0 {
		spec = ""
	}
	return Job{
		Name:    JobRetention,
		Spec:    spec,
		Timeout: time.Minute,
		Run: func(ctx context.Context) error {
			cutoff := time.Now().Add(-retention)
			n, err := p.PurgeQueryLogsBefore(ctx, cutoff)
			if err != nil {
				return err
			}
			log.WithFields(map[string]any{
				"deleted": n,
				"cutoff":  cutoff.UTC().Format(time.RFC3339),
			}).InfoContext(ctx, "Query logs purged")
			return nil
		},
	}
}

// GaugeJob refreshes the pending-queue gauge every MetricsUpdateInterval.
func GaugeJob(c PendingCounter, m *metrics.Metrics) Job {
	return Job{
		Name:    JobGauges,
		Spec:    "@every " + config.MetricsUpdateInterval.String(),
		Timeout: 10 * time.Second,
		Run: func(ctx context.Context) error {
			n, err := c.CountPendingUnanswered(ctx)
			if err != nil {
				return err
			}
			m.SetPendingUnanswered(n)
			return nil
		},
	}
}
