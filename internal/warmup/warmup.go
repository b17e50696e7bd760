// Package warmup prepares a freshly started instance: it seeds sample
// students, restores mirrored knowledge files and builds the first
// knowledge base generation.
package warmup

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/campussathi/campussathi-go/internal/config"
	"github.com/campussathi/campussathi-go/internal/logger"
	"github.com/campussathi/campussathi-go/internal/metrics"
)

// Task names, also used as metric labels.
const (
	TaskSeed      = "seed"
	TaskRestore   = "restore"
	TaskKnowledge = "knowledge"
)

// Stats tracks warm-up results.
// All fields use atomic operations for concurrent access.
type Stats struct {
	StudentsSeeded atomic.Int64
	FilesRestored  atomic.Int64
	KnowledgeBuilt atomic.Bool
}

// Seeder inserts sample students into an empty table.
type Seeder interface {
	SeedSampleStudents(ctx context.Context) (int, error)
}

// Restorer copies a mirrored file to dstPath when it is missing locally.
type Restorer interface {
	Restore(ctx context.Context, name, dstPath string) (bool, error)
}

// Rebuilder builds and publishes a knowledge base generation.
type Rebuilder interface {
	Rebuild(ctx context.Context, force bool) error
}

// Options configures warm-up. Seeder and Restorer are optional.
type Options struct {
	Seeder    Seeder
	Restorer  Restorer
	Knowledge Rebuilder
	Files     []string // Local paths restored before the first build
	Metrics   *metrics.Metrics
}

// Run executes warm-up. Seeding and restoring run concurrently; the
// knowledge base is built once the files are in place.
//
// Seed and restore failures are logged and do not stop the build. A failed
// build is returned; the service keeps answering with the knowledge base
// unavailable until the next refresh.
func Run(ctx context.Context, log *logger.Logger, opts Options) (*Stats, error) {
	stats := &Stats{}
	start := time.Now()
	log = log.WithModule("warmup")

	// Neither task fails the group, so ctx stays alive for the build.
	var g errgroup.Group
	if opts.Seeder != nil {
		g.Go(func() error {
			runTask(ctx, log, opts.Metrics, TaskSeed, func() error {
				n, err := opts.Seeder.SeedSampleStudents(ctx)
				stats.StudentsSeeded.Add(int64(n))
				return err
			})
			return nil
		})
	}
	if opts.Restorer != nil {
		g.Go(func() error {
			runTask(ctx, log, opts.Metrics, TaskRestore, func() error {
				return restoreFiles(ctx, opts.Restorer, opts.Files, stats)
			})
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return stats, fmt.Errorf("warmup canceled: %w", ctx.Err())
	}

	var buildErr error
	if opts.Knowledge != nil {
		buildErr = runTask(ctx, log, opts.Metrics, TaskKnowledge, func() error {
			bctx, cancel := context.WithTimeout(ctx, config.IndexBuild)
			defer cancel()
			return opts.Knowledge.Rebuild(bctx, false)
		})
		stats.KnowledgeBuilt.Store(buildErr == nil)
	}

	duration := time.Since(start)
	opts.Metrics.RecordWarmupDuration(duration.Seconds())
	log.WithFields(map[string]any{
		"students_seeded": stats.StudentsSeeded.Load(),
		"files_restored":  stats.FilesRestored.Load(),
		"knowledge_built": stats.KnowledgeBuilt.Load(),
		"duration":        duration.String(),
	}).InfoContext(ctx, "Warmup finished")

	if buildErr != nil {
		return stats, fmt.Errorf("knowledge warmup: %w", buildErr)
	}
	return stats, nil
}

func runTask(ctx context.Context, log *logger.Logger, m *metrics.Metrics, task string, fn func() error) error {
	start := time.Now()
	err := fn()
	if err != nil {
		m.RecordWarmupTask(task, "error")
		log.WithError(err).WithField("task", task).ErrorContext(ctx, "Warmup task failed")
		return err
	}
	m.RecordWarmupTask(task, "success")
	log.WithFields(map[string]any{
		"task":     task,
		"duration": time.Since(start).String(),
	}).DebugContext(ctx, "Warmup task complete")
	return nil
}

func restoreFiles(ctx context.Context, r Restorer, files []string, stats *Stats) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, path := range files {
		g.Go(func() error {
			rctx, cancel := context.WithTimeout(gctx, config.MirrorTransfer)
			defer cancel()
			restored, err := r.Restore(rctx, filepath.Base(path), path)
			if err != nil {
				return fmt.Errorf("restore %s: %w", filepath.Base(path), err)
			}
			if restored {
				stats.FilesRestored.Add(1)
			}
			return nil
		})
	}
	return g.Wait()
}
