package warmup

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campussathi/campussathi-go/internal/logger"
	"github.com/campussathi/campussathi-go/internal/metrics"
)

type seederFunc func(ctx context.Context) (int, error)

func (f seederFunc) SeedSampleStudents(ctx context.Context) (int, error) { return f(ctx) }

type fakeRestorer struct {
	mu       sync.Mutex
	restored []string
	existing map[string]bool
	err      error
}

func (r *fakeRestorer) Restore(_ context.Context, name, _ string) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.existing[name] {
		return false, nil
	}
	r.restored = append(r.restored, name)
	return true, nil
}

type fakeRebuilder struct {
	force   []bool
	err     error
	restore *fakeRestorer
	seen    int
}

func (r *fakeRebuilder) Rebuild(_ context.Context, force bool) error {
	r.force = append(r.force, force)
	if r.restore != nil {
		r.restore.mu.Lock()
		r.seen = len(r.restore.restored)
		r.restore.mu.Unlock()
	}
	return r.err
}

func testLogger() *logger.Logger {
	return logger.NewWithWriter("error", io.Discard)
}

func TestRun(t *testing.T) {
	t.Parallel()
	files := []string{"/data/faq.pdf", "/data/timetable.pdf", "/data/timetable_structured.json"}

	t.Run("restores before building", func(t *testing.T) {
		t.Parallel()
		m := metrics.New(prometheus.NewRegistry())
		restorer := &fakeRestorer{existing: map[string]bool{"timetable.pdf": true}}
		rebuilder := &fakeRebuilder{restore: restorer}

		stats, err := Run(context.Background(), testLogger(), Options{
			Seeder:    seederFunc(func(context.Context) (int, error) { return 3, nil }),
			Restorer:  restorer,
			Knowledge: rebuilder,
			Files:     files,
			Metrics:   m,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), stats.StudentsSeeded.Load())
		assert.Equal(t, int64(2), stats.FilesRestored.Load())
		assert.True(t, stats.KnowledgeBuilt.Load())
		assert.ElementsMatch(t, []string{"faq.pdf", "timetable_structured.json"}, restorer.restored)
		assert.Equal(t, 2, rebuilder.seen)
		assert.Equal(t, []bool{false}, rebuilder.force)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.WarmupTasksTotal.WithLabelValues(TaskKnowledge, "success")))
	})

	t.Run("seed and restore failures do not stop the build", func(t *testing.T) {
		t.Parallel()
		m := metrics.New(prometheus.NewRegistry())
		rebuilder := &fakeRebuilder{}

		stats, err := Run(context.Background(), testLogger(), Options{
			Seeder:    seederFunc(func(context.Context) (int, error) { return 0, errors.New("locked") }),
			Restorer:  &fakeRestorer{err: errors.New("bucket unreachable")},
			Knowledge: rebuilder,
			Files:     files,
			Metrics:   m,
		})
		require.NoError(t, err)
		assert.True(t, stats.KnowledgeBuilt.Load())
		assert.Len(t, rebuilder.force, 1)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.WarmupTasksTotal.WithLabelValues(TaskSeed, "error")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.WarmupTasksTotal.WithLabelValues(TaskRestore, "error")))
	})

	t.Run("build failure is returned", func(t *testing.T) {
		t.Parallel()
		stats, err := Run(context.Background(), testLogger(), Options{
			Knowledge: &fakeRebuilder{err: errors.New("no embedder")},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no embedder")
		assert.False(t, stats.KnowledgeBuilt.Load())
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		rebuilder := &fakeRebuilder{}

		_, err := Run(ctx, testLogger(), Options{Knowledge: rebuilder})
		require.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, rebuilder.force)
	})
}
