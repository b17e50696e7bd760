// Package main provides an offline tool that seeds the student table and
// pre-builds the persisted vector stores before a deploy.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/campussathi/campussathi-go/internal/config"
	"github.com/campussathi/campussathi-go/internal/genai"
	"github.com/campussathi/campussathi-go/internal/ingest"
	"github.com/campussathi/campussathi-go/internal/logger"
	"github.com/campussathi/campussathi-go/internal/rag"
	"github.com/campussathi/campussathi-go/internal/storage"
)

// CLI flags
var (
	seedFlag  = flag.Bool("seed", true, "Insert sample students when the table is empty")
	buildFlag = flag.Bool("build", true, "Build the knowledge base from the files in the data dir")
	forceFlag = flag.Bool("force", false, "Re-embed every document instead of reusing the persisted generation")
)

type options struct {
	seed  bool
	build bool
	force bool
}

type result struct {
	seeded int
	counts map[string]int
}

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel).WithModule("warmup")
	log.Info("Starting warmup tool")

	ctx, cancel := context.WithTimeout(context.Background(), config.IndexBuild)
	defer cancel()

	start := time.Now()
	res, err := run(ctx, cfg, options{seed: *seedFlag, build: *buildFlag, force: *forceFlag}, log)
	if err != nil {
		log.WithError(err).Error("Warmup failed")
		fmt.Fprintf(os.Stderr, "\n❌ Warmup failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n✅ Warmup complete: %d students seeded, indexes %v\n", res.seeded, res.counts)
	fmt.Printf("Total time: %v\n", time.Since(start).Round(time.Second))
}

// run performs the requested steps against the configured data dir.
func run(ctx context.Context, cfg *config.Config, opts options, log *logger.Logger) (*result, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	db, err := storage.New(ctx, cfg.SQLitePath())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	defer func() { _ = db.Close() }()

	res := &result{counts: map[string]int{}}
	if opts.seed {
		n, err := db.SeedSampleStudents(ctx)
		if err != nil {
			return nil, fmt.Errorf("seed students: %w", err)
		}
		res.seeded = n
		log.WithField("inserted", n).Info("Student table seeded")
	}

	if !opts.build {
		return res, nil
	}

	embedders, err := genai.NewEmbedders(genai.EmbedConfig{
		Provider:      cfg.EmbedProvider,
		GeminiAPIKey:  cfg.GeminiAPIKey,
		OllamaBaseURL: cfg.OllamaBaseURL,
		EnglishModel:  cfg.EmbedModelEnglish,
		IndicModel:    cfg.EmbedModelIndic,
	})
	if err != nil {
		return nil, fmt.Errorf("embedders: %w", err)
	}
	if embedders.English == nil {
		// Keyword indexes are rebuilt in memory at startup, there is nothing to persist.
		return nil, errors.New("no embedding provider configured")
	}

	builder := rag.NewBuilder(rag.BuildConfig{
		FAQPath:             cfg.FAQPath(),
		TimetablePath:       cfg.TimetablePDFPath(),
		VectorDir:           cfg.VectorDir(),
		ChunkSize:           cfg.ChunkSize,
		ChunkOverlap:        cfg.ChunkOverlap,
		K:                   cfg.RetrieverK,
		SimilarityThreshold: float32(cfg.SimilarityThreshold),
	}, embedders, ingest.NewPDFLoader(), db, log)

	kb, err := builder.Build(ctx, opts.force)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	if kb != nil {
		res.counts = kb.Indexes().Counts()
	}
	return res, nil
}
