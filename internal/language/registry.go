// Package language maps file paths to languages and their extraction backends.
package language

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Language identifies a supported source language.
type Language string

const (
	Python     Language = "python"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	Go         Language = "go"
	Ruby       Language = "ruby"
	Java       Language = "java"
	Rust       Language = "rust"
	Bash       Language = "bash"
)

// Backend identifiers. A language's backend list is ordered highest
// priority first; the last entry must always be BackendPatterns.
const (
	BackendTreeSitter = "tree-sitter"
	BackendPatterns   = "patterns"
)

// ErrNoBackends is returned when a recognized language has an empty
// backend list. This is a registry configuration error, not a runtime one.
var ErrNoBackends = errors.New("no backends registered for language")

// Descriptor declares how files of one language are recognized and parsed.
type Descriptor struct {
	Language   Language
	Extensions []string // with leading dot, e.g. ".py"
	Filenames  []string // exact base names, e.g. "Rakefile"
	Backends   []string // priority high to low
}

// Registry resolves file paths to languages and backend lists.
// It is immutable after construction and safe for concurrent use.
type Registry struct {
	byExt  map[string]Language
	byName map[string]Language
	descs  map[Language]Descriptor
	order  []Language
}

// NewRegistry builds a registry from descriptors. Duplicate extension or
// filename claims are rejected.
func NewRegistry(descs []Descriptor) (*Registry, error) {
	r := &Registry{
		byExt:  make(map[string]Language),
		byName: make(map[string]Language),
		descs:  make(map[Language]Descriptor),
	}

	for _, d := range descs {
		if d.Language == "" {
			return nil, errors.New("descriptor with empty language id")
		}
		if _, dup := r.descs[d.Language]; dup {
			return nil, fmt.Errorf("duplicate descriptor for language %q", d.Language)
		}
		r.descs[d.Language] = d
		r.order = append(r.order, d.Language)

		for _, ext := range d.Extensions {
			if prev, dup := r.byExt[ext]; dup {
				return nil, fmt.Errorf("extension %q claimed by both %q and %q", ext, prev, d.Language)
			}
			r.byExt[ext] = d.Language
		}
		for _, name := range d.Filenames {
			if prev, dup := r.byName[name]; dup {
				return nil, fmt.Errorf("filename %q claimed by both %q and %q", name, prev, d.Language)
			}
			r.byName[name] = d.Language
		}
	}

	return r, nil
}

// Resolve maps a file path to a language. The second return value is
// false for unrecognized files.
func (r *Registry) Resolve(path string) (Language, bool) {
	base := filepath.Base(path)
	if lang, ok := r.byName[base]; ok {
		return lang, true
	}

	ext := strings.ToLower(filepath.Ext(base))
	if ext == "" {
		return "", false
	}
	lang, ok := r.byExt[ext]
	return lang, ok
}

// Backends returns the ordered backend ids for a language. It fails with
// ErrNoBackends only when the language is registered with an empty list.
func (r *Registry) Backends(lang Language) ([]string, error) {
	d, ok := r.descs[lang]
	if !ok {
		return nil, fmt.Errorf("language %q not registered", lang)
	}
	if len(d.Backends) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoBackends, lang)
	}

	out := make([]string, len(d.Backends))
	copy(out, d.Backends)
	return out, nil
}

// Languages returns all registered languages in registration order.
func (r *Registry) Languages() []Language {
	langs := make([]Language, len(r.order))
	copy(langs, r.order)
	return langs
}

// Descriptors returns all descriptors in registration order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, l := range r.order {
		out = append(out, r.descs[l])
	}
	return out
}

// Default returns the built-in registry table. Languages with a
// tree-sitter grammar try it first; every language ends with the
// pattern backend so extraction is total.
func Default() *Registry {
	r, err := NewRegistry([]Descriptor{
		{
			Language:   Python,
			Extensions: []string{".py", ".pyi"},
			Backends:   []string{BackendTreeSitter, BackendPatterns},
		},
		{
			Language:   JavaScript,
			Extensions: []string{".js", ".jsx", ".mjs", ".cjs"},
			Backends:   []string{BackendTreeSitter, BackendPatterns},
		},
		{
			Language:   TypeScript,
			Extensions: []string{".ts", ".tsx"},
			Backends:   []string{BackendTreeSitter, BackendPatterns},
		},
		{
			Language:   Go,
			Extensions: []string{".go"},
			Backends:   []string{BackendTreeSitter, BackendPatterns},
		},
		{
			Language:   Ruby,
			Extensions: []string{".rb", ".rake"},
			Filenames:  []string{"Rakefile", "Gemfile"},
			Backends:   []string{BackendTreeSitter, BackendPatterns},
		},
		{
			Language:   Java,
			Extensions: []string{".java"},
			Backends:   []string{BackendTreeSitter, BackendPatterns},
		},
		{
			Language:   Rust,
			Extensions: []string{".rs"},
			Backends:   []string{BackendPatterns},
		},
		{
			Language:   Bash,
			Extensions: []string{".sh", ".bash"},
			Backends:   []string{BackendPatterns},
		},
	})
	if err != nil {
		// The built-in table is static; a failure here is a programming error.
		panic(err)
	}
	return r
}
