package rag

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"golang.org/x/sync/errgroup"

	"github.com/campussathi/campussathi-go/internal/logger"
	"github.com/campussathi/campussathi-go/internal/storage"
)

// generationPrefix names persisted index generations under the vector directory.
const generationPrefix = "gen-"

// DocumentLoader extracts documents from a source file.
type DocumentLoader interface {
	Load(ctx context.Context, path, source string) ([]Document, error)
}

// CuratedSource lists the admin-curated content replayed into every new
// generation: approved answers and ingested web pages.
type CuratedSource interface {
	ListApprovedAnswers(ctx context.Context) ([]storage.UnansweredQuery, error)
	ListWebPages(ctx context.Context) ([]storage.WebPage, error)
}

// Embedders holds the embedding functions for the two vector indexes.
// A nil English embedder switches the builder to keyword-only mode.
// A nil Indic embedder reuses the English one.
type Embedders struct {
	English chromem.EmbeddingFunc
	Indic   chromem.EmbeddingFunc
}

// BuildConfig configures index builds.
type BuildConfig struct {
	FAQPath       string
	TimetablePath string
	// VectorDir persists chromem generations; empty keeps everything in memory.
	VectorDir           string
	ChunkSize           int
	ChunkOverlap        int
	K                   int
	SimilarityThreshold float32
}

// Builder assembles KnowledgeBase generations from the uploaded PDFs and
// the curated answers.
type Builder struct {
	cfg       BuildConfig
	embedders Embedders
	loader    DocumentLoader
	curated   CuratedSource
	splitter  *Splitter
	logger    *logger.Logger
}

// NewBuilder creates a builder. curated may be nil.
func NewBuilder(cfg BuildConfig, embedders Embedders, loader DocumentLoader, curated CuratedSource, log *logger.Logger) *Builder {
	if cfg.K <= 0 {
		cfg.K = 5
	}
	if embedders.Indic == nil {
		embedders.Indic = embedders.English
	}
	return &Builder{
		cfg:       cfg,
		embedders: embedders,
		loader:    loader,
		curated:   curated,
		splitter:  NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		logger:    log.WithModule("rag"),
	}
}

// Splitter returns the splitter used for source and curated documents.
func (b *Builder) Splitter() *Splitter {
	return b.splitter
}

type sourceChunks struct {
	faq       []Document
	timetable []Document
	approved  []Document
	web       []Document
}

func (s sourceChunks) general() []Document {
	return slices.Concat(s.faq, s.timetable, s.approved, s.web)
}

// Build assembles a knowledge base. It returns nil, nil when there is
// nothing to index. Unless force is set, a persisted generation with
// embedded documents is reused instead of re-embedding everything.
func (b *Builder) Build(ctx context.Context, force bool) (*KnowledgeBase, error) {
	start := time.Now()
	chunks, err := b.loadSources(ctx)
	if err != nil {
		return nil, err
	}

	var kb *KnowledgeBase
	if b.embedders.English == nil {
		kb, err = b.buildKeywordOnly(ctx, chunks)
	} else {
		kb, err = b.buildVector(ctx, chunks, force)
	}
	if err != nil {
		return nil, err
	}

	if kb == nil {
		b.logger.Warn("No knowledge documents available, knowledge base disabled")
		return nil, nil
	}
	b.logger.WithFields(map[string]any{
		"counts":   kb.Indexes().Counts(),
		"duration": time.Since(start).String(),
		"force":    force,
	}).Info("Knowledge base built")
	return kb, nil
}

func (b *Builder) loadSources(ctx context.Context) (sourceChunks, error) {
	var chunks sourceChunks
	chunks.faq = b.loadFile(ctx, b.cfg.FAQPath, SourceFAQ)
	chunks.timetable = b.loadFile(ctx, b.cfg.TimetablePath, SourceTimetable)

	if b.curated == nil {
		return chunks, nil
	}

	items, err := b.curated.ListApprovedAnswers(ctx)
	if err != nil {
		return chunks, fmt.Errorf("list approved answers: %w", err)
	}
	docs := make([]Document, 0, len(items))
	for _, q := range items {
		docs = append(docs, ApprovedDocument(q.ID, q.Query, q.Answer))
	}
	chunks.approved = b.splitter.SplitDocuments(docs)

	pages, err := b.curated.ListWebPages(ctx)
	if err != nil {
		return chunks, fmt.Errorf("list web pages: %w", err)
	}
	docs = make([]Document, 0, len(pages))
	for _, p := range pages {
		docs = append(docs, WebDocument(p.URL, p.Title, p.Content))
	}
	chunks.web = b.splitter.SplitDocuments(docs)
	return chunks, nil
}

// loadFile returns the chunks of one source file. Missing or unreadable
// files are logged and skipped so one broken upload does not take the
// whole knowledge base down.
func (b *Builder) loadFile(ctx context.Context, path, source string) []Document {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			b.logger.WithError(err).WithField("path", path).Warn("Cannot stat source file")
		}
		return nil
	}
	docs, err := b.loader.Load(ctx, path, source)
	if err != nil {
		b.logger.WithError(err).WithField("path", path).Error("Failed to load source file")
		return nil
	}
	return b.splitter.SplitDocuments(docs)
}

func (b *Builder) buildKeywordOnly(ctx context.Context, chunks sourceChunks) (*KnowledgeBase, error) {
	all := chunks.general()
	if len(all) == 0 {
		return nil, nil
	}
	keyword := NewKeywordIndex(KeywordCollection)
	if err := keyword.Insert(ctx, all); err != nil {
		return nil, err
	}

	var timetable Index
	if len(chunks.timetable) > 0 {
		tt := NewKeywordIndex(TimetableCollection)
		if err := tt.Insert(ctx, chunks.timetable); err != nil {
			return nil, err
		}
		timetable = tt
	}
	return NewKnowledgeBase(IndexRetriever{Index: keyword, K: b.cfg.K}, timetable, NewKnowledgeIndexSet(keyword)), nil
}

func (b *Builder) buildVector(ctx context.Context, chunks sourceChunks, force bool) (*KnowledgeBase, error) {
	db, dir, fresh, err := b.openDB(force)
	if err != nil {
		return nil, err
	}

	all := chunks.general()
	var english, indic, timetable *VectorIndex
	keyword := NewKeywordIndex(KeywordCollection)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		english, err = fillVectorIndex(gctx, db, EnglishCollection, b.embedders.English, all)
		return err
	})
	g.Go(func() error {
		var err error
		indic, err = fillVectorIndex(gctx, db, IndicCollection, b.embedders.Indic, all)
		return err
	})
	g.Go(func() error {
		var err error
		timetable, err = fillVectorIndex(gctx, db, TimetableCollection, b.embedders.English, chunks.timetable)
		return err
	})
	g.Go(func() error {
		return keyword.Insert(gctx, all)
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build indexes: %w", err)
	}

	if english.Count() == 0 {
		return nil, nil
	}
	if fresh && dir != "" {
		b.pruneGenerations(dir)
	}

	ensemble, err := NewEnsembleRetriever([]Retriever{
		IndexRetriever{Index: english, K: b.cfg.K},
		IndexRetriever{Index: indic, K: b.cfg.K},
	}, []float64{0.5, 0.5})
	if err != nil {
		return nil, err
	}
	retriever := FilteredRetriever{
		Base:   ensemble,
		Filter: NewEmbeddingsFilter(b.embedders.English, b.cfg.SimilarityThreshold),
	}

	var tt Index
	if timetable.Count() > 0 {
		tt = timetable
	}
	return NewKnowledgeBase(retriever, tt, NewKnowledgeIndexSet(english, indic, keyword)), nil
}

// fillVectorIndex inserts docs into the named collection unless it already
// holds embedded documents from a persisted generation.
func fillVectorIndex(ctx context.Context, db *chromem.DB, name string, embed chromem.EmbeddingFunc, docs []Document) (*VectorIndex, error) {
	idx, err := NewVectorIndex(db, name, embed)
	if err != nil {
		return nil, err
	}
	if idx.Count() > 0 {
		return idx, nil
	}
	if err := idx.Insert(ctx, docs); err != nil {
		return nil, err
	}
	return idx, nil
}

// openDB opens the chromem database for a build. fresh reports whether
// the database started empty.
func (b *Builder) openDB(force bool) (db *chromem.DB, dir string, fresh bool, err error) {
	if b.cfg.VectorDir == "" {
		return chromem.NewDB(), "", true, nil
	}
	if !force {
		if latest := b.latestGeneration(); latest != "" {
			db, err := chromem.NewPersistentDB(latest, false)
			if err == nil {
				return db, latest, false, nil
			}
			b.logger.WithError(err).WithField("dir", latest).Warn("Cannot open persisted generation, rebuilding")
		}
	}

	dir = filepath.Join(b.cfg.VectorDir, generationPrefix+time.Now().UTC().Format("20060102T150405.000000000"))
	db, err = chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, "", false, fmt.Errorf("create vector store %s: %w", dir, err)
	}
	return db, dir, true, nil
}

func (b *Builder) generations() []string {
	entries, err := os.ReadDir(b.cfg.VectorDir)
	if err != nil {
		return nil
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), generationPrefix) {
			dirs = append(dirs, filepath.Join(b.cfg.VectorDir, e.Name()))
		}
	}
	// os.ReadDir sorts by name and generation names sort by time.
	return dirs
}

func (b *Builder) latestGeneration() string {
	dirs := b.generations()
	if len(dirs) == 0 {
		return ""
	}
	return dirs[len(dirs)-1]
}

// pruneGenerations removes every generation except keep. Snapshots still
// referenced in memory keep serving queries from their loaded documents.
func (b *Builder) pruneGenerations(keep string) {
	for _, dir := range b.generations() {
		if dir == keep {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			b.logger.WithError(err).WithField("dir", dir).Warn("Failed to remove old index generation")
		}
	}
}
