// Package pipeline composes language resolution, backend selection,
// symbol extraction, and chunking into one idempotent index operation
// per file.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/telliott/codeatlas/internal/chunk"
	"github.com/telliott/codeatlas/internal/language"
	"github.com/telliott/codeatlas/internal/parser"
)

// StructureExtractor supplies ordered document units. The coordinator
// treats its output as given; it never parses section boundaries itself.
type StructureExtractor interface {
	Units(content string) []chunk.StructuralUnit
}

// Result is the merged output of one Index call. The caller owns it
// exclusively; the coordinator retains no references.
type Result struct {
	Path      string            `json:"path"`
	Language  language.Language `json:"language,omitempty"`
	Backend   string            `json:"backend,omitempty"`
	Symbols   []parser.Symbol   `json:"symbols"`
	Chunks    []chunk.Chunk     `json:"chunks"`
	Truncated bool              `json:"truncated,omitempty"`
	Warnings  []string          `json:"warnings,omitempty"`

	// DegradedUnits lists the unit indices that were emitted as opaque
	// chunks, in document order.
	DegradedUnits []int `json:"degraded_units,omitempty"`
}

// Coordinator runs the per-file indexing pipeline. It holds no mutable
// state besides the selector's advisory preference cache, so concurrent
// Index calls are safe.
type Coordinator struct {
	registry  *language.Registry
	selector  *parser.Selector
	structure StructureExtractor
	base      chunk.Config
	est       chunk.TokenEstimator
	logger    *slog.Logger
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the pipeline logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithEstimator replaces the built-in token estimator.
func WithEstimator(est chunk.TokenEstimator) Option {
	return func(c *Coordinator) { c.est = est }
}

// New validates the base chunking config and wires the coordinator.
func New(reg *language.Registry, sel *parser.Selector, ext StructureExtractor, base chunk.Config, opts ...Option) (*Coordinator, error) {
	if err := base.Validate(); err != nil {
		return nil, fmt.Errorf("chunking config: %w", err)
	}
	c := &Coordinator{
		registry:  reg,
		selector:  sel,
		structure: ext,
		base:      base,
		est:       chunk.NewEstimator(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Index extracts symbols and chunks from one file's content. Files of
// unrecognized languages still chunk; they just carry no symbols.
// Cancellation yields a partial result with Truncated set, not an error.
func (c *Coordinator) Index(ctx context.Context, path string, content []byte) (*Result, error) {
	res := &Result{Path: path}

	if lang, known := c.registry.Resolve(path); known {
		symbols, backend, err := c.selector.SelectAndParse(ctx, lang, content)
		if err != nil {
			// Only a registry configuration error reaches here.
			return nil, fmt.Errorf("index %s: %w", path, err)
		}
		res.Language = lang
		res.Backend = backend
		res.Symbols = symbols
	}

	text := string(content)
	total := c.est.Count(text)
	eff := chunk.EffectiveConfig(total, c.base)

	chunker, err := chunk.NewChunker(eff, c.est)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", path, err)
	}

	units := c.structure.Units(text)
	chunks, truncated := chunker.Split(ctx, units)
	res.Chunks = chunks
	res.Truncated = truncated

	for _, ch := range chunks {
		switch {
		case ch.Degraded:
			res.DegradedUnits = append(res.DegradedUnits, ch.StartUnit)
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("unit %d failed structural processing; emitted as opaque chunk", ch.StartUnit))
		case ch.Oversized:
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("unit %d exceeds max_tokens (%d tokens); emitted oversized", ch.StartUnit, ch.TokenCount))
		}
	}
	if truncated {
		c.logger.Warn("indexing cancelled mid-document", "path", path, "chunks", len(chunks))
	}

	return res, nil
}
