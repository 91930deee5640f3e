package parser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/telliott/codeatlas/internal/language"
)

// Selector tries a language's backends in priority order and returns the
// first successful parse. Because every backend list ends with a pattern
// backend, SelectAndParse cannot fail for a registered language.
type Selector struct {
	registry *language.Registry
	backends map[language.Language][]Backend
	prefs    *PreferenceCache
	logger   *slog.Logger
}

// SelectorOption customizes a Selector.
type SelectorOption func(*Selector)

// WithPreferenceCache injects a shared preference cache. Sessions that
// must not influence each other pass separate caches.
func WithPreferenceCache(c *PreferenceCache) SelectorOption {
	return func(s *Selector) { s.prefs = c }
}

// WithLogger sets the logger used for recovered backend failures.
func WithLogger(l *slog.Logger) SelectorOption {
	return func(s *Selector) { s.logger = l }
}

// NewSelector instantiates backends for every registered language and
// validates the fallback totality guarantee: each list must end with a
// pattern backend. Violations are configuration errors.
func NewSelector(reg *language.Registry, opts ...SelectorOption) (*Selector, error) {
	s := &Selector{
		registry: reg,
		backends: make(map[language.Language][]Backend),
		prefs:    NewPreferenceCache(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, lang := range reg.Languages() {
		ids, err := reg.Backends(lang)
		if err != nil {
			return nil, err
		}

		list := make([]Backend, 0, len(ids))
		for _, id := range ids {
			switch id {
			case language.BackendTreeSitter:
				b, err := NewTreeSitterBackend(lang)
				if err != nil {
					return nil, fmt.Errorf("language %q: %w", lang, err)
				}
				list = append(list, b)
			case language.BackendPatterns:
				list = append(list, NewPatternBackend(lang))
			default:
				return nil, fmt.Errorf("language %q: unknown backend id %q", lang, id)
			}
		}

		if _, ok := list[len(list)-1].(*PatternBackend); !ok {
			return nil, fmt.Errorf("language %q: backend list must end with %q", lang, language.BackendPatterns)
		}
		s.backends[lang] = list
	}

	return s, nil
}

// SelectAndParse parses content with the highest-priority backend that
// succeeds and returns the symbols together with the backend id used.
// Precise-backend failures are logged and recovered, never surfaced.
func (s *Selector) SelectAndParse(ctx context.Context, lang language.Language, content []byte) ([]Symbol, string, error) {
	list, ok := s.backends[lang]
	if !ok || len(list) == 0 {
		return nil, "", fmt.Errorf("%w: %s", language.ErrNoBackends, lang)
	}

	order := list
	if pref, ok := s.prefs.Get(lang); ok && pref != order[0].ID() {
		order = reorderPreferred(list, pref)
	}

	var lastErr error
	for _, b := range order {
		symbols, err := b.Parse(ctx, content)
		if err != nil {
			s.logger.Debug("parse backend failed, trying next",
				"language", lang, "backend", b.ID(), "error", err)
			lastErr = err
			continue
		}
		// The terminal fallback cannot fail, so remembering it would
		// shadow the precise backend for every later file of this
		// language. Only precise successes are worth recording.
		if _, fallback := b.(*PatternBackend); !fallback {
			s.prefs.Put(lang, b.ID())
		}
		return symbols, b.ID(), nil
	}

	// Unreachable while the totality invariant holds; kept so a broken
	// custom backend surfaces loudly instead of silently.
	return nil, "", fmt.Errorf("all backends failed for %s: %w", lang, lastErr)
}

// reorderPreferred returns a copy of list with the preferred backend
// first. The rest keep their relative order so a failed preference still
// falls through the full priority list.
func reorderPreferred(list []Backend, pref string) []Backend {
	out := make([]Backend, 0, len(list))
	for _, b := range list {
		if b.ID() == pref {
			out = append(out, b)
			break
		}
	}
	if len(out) == 0 {
		return list
	}
	for _, b := range list {
		if b.ID() != pref {
			out = append(out, b)
		}
	}
	return out
}
