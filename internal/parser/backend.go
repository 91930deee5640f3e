package parser

import (
	"context"
	"sync"

	"github.com/telliott/codeatlas/internal/language"
)

// Backend turns raw file content into ordered symbols. Implementations
// must be safe for concurrent use; any per-parse state is created inside
// Parse.
type Backend interface {
	ID() string
	Parse(ctx context.Context, content []byte) ([]Symbol, error)
}

// PreferenceCache remembers the last backend that succeeded for a
// language. It is advisory only: a hit reorders the attempt list, it
// never shortens it, so a single bad file cannot downgrade later files.
type PreferenceCache struct {
	mu    sync.RWMutex
	prefs map[language.Language]string
}

// NewPreferenceCache creates an empty cache.
func NewPreferenceCache() *PreferenceCache {
	return &PreferenceCache{prefs: make(map[language.Language]string)}
}

// Get returns the preferred backend id for a language, if any.
func (c *PreferenceCache) Get(lang language.Language) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.prefs[lang]
	return id, ok
}

// Put records the backend that most recently succeeded for a language.
func (c *PreferenceCache) Put(lang language.Language, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prefs[lang] = id
}
