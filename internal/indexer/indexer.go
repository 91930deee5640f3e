package indexer

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/telliott/codeatlas/internal/cache"
	"github.com/telliott/codeatlas/internal/config"
	"github.com/telliott/codeatlas/internal/embedding"
	"github.com/telliott/codeatlas/internal/language"
	"github.com/telliott/codeatlas/internal/metrics"
	"github.com/telliott/codeatlas/internal/parser"
	"github.com/telliott/codeatlas/internal/pipeline"
	"github.com/telliott/codeatlas/internal/security"
	"github.com/telliott/codeatlas/internal/store"
	"github.com/telliott/codeatlas/internal/structure"
)

// Indexer runs the per-file pipeline over a directory tree and ships the
// results to embedding and storage. Cache, metrics, embedder, and store
// are all optional; a nil dependency disables that stage.
type Indexer struct {
	cfg      *config.Config
	registry *language.Registry
	coord    *pipeline.Coordinator
	detector *security.Detector
	embedder *embedding.VoyageClient
	store    *store.QdrantStore
	cache    *cache.RedisCache
	metrics  *metrics.Logger
	logger   *slog.Logger
}

// Option customizes an Indexer.
type Option func(*Indexer)

// WithEmbedder attaches an embedding client.
func WithEmbedder(e *embedding.VoyageClient) Option {
	return func(idx *Indexer) { idx.embedder = e }
}

// WithStore attaches a vector store.
func WithStore(s *store.QdrantStore) Option {
	return func(idx *Indexer) { idx.store = s }
}

// WithCache attaches a change-tracking cache.
func WithCache(c *cache.RedisCache) Option {
	return func(idx *Indexer) { idx.cache = c }
}

// WithMetrics attaches a JSONL metrics logger.
func WithMetrics(m *metrics.Logger) Option {
	return func(idx *Indexer) { idx.metrics = m }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(idx *Indexer) { idx.logger = l }
}

// New wires the pipeline from configuration.
func New(cfg *config.Config, opts ...Option) (*Indexer, error) {
	registry := language.Default()

	selector, err := parser.NewSelector(registry,
		parser.WithPreferenceCache(parser.NewPreferenceCache()))
	if err != nil {
		return nil, fmt.Errorf("build selector: %w", err)
	}

	coord, err := pipeline.New(registry, selector, structure.NewExtractor(), cfg.Chunking)
	if err != nil {
		return nil, err
	}

	idx := &Indexer{
		cfg:      cfg,
		registry: registry,
		coord:    coord,
		detector: security.NewDetector(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx, nil
}

// Stats summarizes an indexing run.
type Stats struct {
	FilesProcessed int
	FilesSkipped   int
	ChunksCreated  int
	SymbolsFound   int
	Errors         []error
}

// Run indexes every matching file under root. Files are processed
// concurrently up to the configured limit; per-file failures are
// collected, not fatal.
func (idx *Indexer) Run(ctx context.Context, root string) (*Stats, error) {
	started := time.Now()
	stats := &Stats{}
	var mu sync.Mutex

	if idx.store != nil && idx.embedder != nil {
		if err := idx.store.EnsureCollection(ctx, idx.cfg.Storage.Collection, idx.embedder.Dimension()); err != nil {
			return nil, fmt.Errorf("ensure collection: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.cfg.Indexing.Concurrency)

	walker := NewWalker(idx.registry, idx.cfg.Indexing.Include, idx.cfg.Indexing.Exclude)
	walkErr := walker.Walk(root, func(path string) error {
		if gctx.Err() != nil {
			return gctx.Err()
		}
		g.Go(func() error {
			res := idx.indexFile(gctx, root, path)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case res.err != nil:
				stats.Errors = append(stats.Errors, res.err)
			case res.skipped:
				stats.FilesSkipped++
			default:
				stats.FilesProcessed++
				stats.ChunksCreated += res.chunks
				stats.SymbolsFound += res.symbols
			}
			return nil
		})
		return nil
	})

	if err := g.Wait(); err != nil {
		return stats, err
	}
	if walkErr != nil && !errors.Is(walkErr, context.Canceled) {
		return stats, fmt.Errorf("walk failed: %w", walkErr)
	}

	if idx.cache != nil {
		if _, err := idx.cache.BumpIndexVersion(ctx, idx.cfg.Storage.Collection); err != nil {
			idx.logger.Warn("failed to bump index version", "error", err)
		}
	}
	if idx.metrics != nil {
		idx.metrics.LogRunSummary(root, stats.FilesProcessed, stats.FilesSkipped,
			stats.ChunksCreated, len(stats.Errors), time.Since(started).Milliseconds())
	}

	return stats, nil
}

type fileResult struct {
	skipped bool
	chunks  int
	symbols int
	err     error
}

func (idx *Indexer) indexFile(ctx context.Context, root, path string) fileResult {
	started := time.Now()

	content, err := os.ReadFile(path)
	if err != nil {
		return fileResult{err: fmt.Errorf("read %s: %w", path, err)}
	}

	relPath, err := filepath.Rel(root, path)
	if err != nil {
		relPath = path
	}
	relPath = filepath.ToSlash(relPath)

	hash := cache.ContentHash(content)
	if idx.cache != nil {
		prev, err := idx.cache.FileHash(ctx, idx.cfg.Storage.Collection, relPath)
		if err != nil {
			idx.logger.Warn("cache lookup failed", "path", relPath, "error", err)
		} else if prev == hash {
			if idx.metrics != nil {
				idx.metrics.LogFileSkipped(relPath)
			}
			return fileResult{skipped: true}
		}
	}

	res, err := idx.coord.Index(ctx, relPath, content)
	if err != nil {
		if idx.metrics != nil {
			idx.metrics.LogError("index", err.Error())
		}
		return fileResult{err: err}
	}
	for _, w := range res.Warnings {
		idx.logger.Warn("pipeline warning", "path", relPath, "warning", w)
	}
	if res.Truncated {
		// Partial output; leave the cache entry stale so the next run
		// picks the file up again.
		return fileResult{chunks: len(res.Chunks), symbols: len(res.Symbols)}
	}

	if err := idx.persist(ctx, relPath, res); err != nil {
		return fileResult{err: err}
	}

	if idx.cache != nil {
		if err := idx.cache.SetFileHash(ctx, idx.cfg.Storage.Collection, relPath, hash, 0); err != nil {
			idx.logger.Warn("cache update failed", "path", relPath, "error", err)
		}
	}
	idx.emitResultMetrics(relPath, res, time.Since(started).Milliseconds())

	return fileResult{chunks: len(res.Chunks), symbols: len(res.Symbols)}
}

// emitResultMetrics writes the per-file metrics events for one pipeline
// result: a fallback event when a precise language ended up on the
// pattern backend, one event per degraded unit, and the indexed event.
func (idx *Indexer) emitResultMetrics(relPath string, res *pipeline.Result, latencyMs int64) {
	if idx.metrics == nil {
		return
	}

	if res.Backend == language.BackendPatterns {
		if ids, err := idx.registry.Backends(res.Language); err == nil && ids[0] != res.Backend {
			idx.metrics.LogBackendFallback(relPath, string(res.Language), ids[0], res.Backend)
		}
	}
	for _, unit := range res.DegradedUnits {
		idx.metrics.LogDegradedUnit(relPath, unit)
	}
	idx.metrics.LogFileIndexed(relPath, string(res.Language), res.Backend,
		len(res.Symbols), len(res.Chunks), latencyMs)
}

// persist embeds the chunks and upserts them, replacing any stale
// records for the same path first. Without an embedder and store this
// is a no-op, which keeps local runs self-contained.
func (idx *Indexer) persist(ctx context.Context, relPath string, res *pipeline.Result) error {
	if idx.embedder == nil || idx.store == nil || len(res.Chunks) == 0 {
		return nil
	}

	texts := make([]string, len(res.Chunks))
	for i, ch := range res.Chunks {
		texts[i] = idx.detector.Redact(ch.Text)
	}

	vectors, err := idx.embedder.EmbedBatched(ctx, texts, 0)
	if err != nil {
		return fmt.Errorf("embed %s: %w", relPath, err)
	}

	records := make([]store.Record, len(res.Chunks))
	for i, ch := range res.Chunks {
		records[i] = store.Record{
			ID:         recordID(idx.cfg.Storage.Collection, relPath, ch.Index),
			Path:       relPath,
			Language:   string(res.Language),
			Backend:    res.Backend,
			ChunkIndex: ch.Index,
			Text:       texts[i],
			TokenCount: ch.TokenCount,
			StartUnit:  ch.StartUnit,
			EndUnit:    ch.EndUnit,
			Oversized:  ch.Oversized,
			Degraded:   ch.Degraded,
			HasSecrets: idx.detector.HasSecrets(ch.Text),
			Vector:     vectors[i],
		}
	}

	if err := idx.store.DeleteByPath(ctx, idx.cfg.Storage.Collection, relPath); err != nil {
		return fmt.Errorf("delete stale records for %s: %w", relPath, err)
	}
	if err := idx.store.UpsertRecords(ctx, idx.cfg.Storage.Collection, records); err != nil {
		return fmt.Errorf("upsert %s: %w", relPath, err)
	}
	return nil
}

func recordID(collection, path string, chunkIndex int) string {
	data := fmt.Sprintf("%s:%s:%d", collection, path, chunkIndex)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash[:8])
}
