// Package indexer provides the file walker and the concurrent indexing
// run that drives the pipeline over a directory tree.
package indexer

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/telliott/codeatlas/internal/language"
)

// Walker traverses directories respecting include/exclude patterns.
type Walker struct {
	includes []string
	excludes []string
}

// NewWalker creates a file walker. When no includes are given the
// defaults cover every registered language extension plus common
// documentation formats.
func NewWalker(registry *language.Registry, includes, excludes []string) *Walker {
	if len(includes) == 0 {
		includes = defaultIncludes(registry)
	}

	// Default excludes for common non-source directories
	defaultExcludes := []string{
		"**/.git/**",
		"**/__pycache__/**",
		"**/*.pyc",
		"**/node_modules/**",
		"**/venv/**",
		"**/.venv/**",
		"**/vendor/**",
		"**/dist/**",
		"**/build/**",
		"**/.idea/**",
		"**/.vscode/**",
		"**/*.min.js",
		"**/*.bundle.js",
	}
	excludes = append(defaultExcludes, excludes...)

	return &Walker{
		includes: includes,
		excludes: excludes,
	}
}

func defaultIncludes(registry *language.Registry) []string {
	var patterns []string
	for _, desc := range registry.Descriptors() {
		for _, ext := range desc.Extensions {
			patterns = append(patterns, "**/*"+ext)
		}
		for _, name := range desc.Filenames {
			patterns = append(patterns, "**/"+name)
		}
	}
	// Documentation goes through the chunker even without a language.
	patterns = append(patterns, "**/*.md", "**/*.rst", "**/*.txt")
	return patterns
}

// Walk traverses the directory tree rooted at root, calling fn for each
// file that matches the include patterns and does not match the exclude
// patterns.
func (w *Walker) Walk(root string, fn func(path string) error) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		// Normalize to forward slashes for pattern matching
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if w.shouldExcludeDir(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if w.isExcluded(relPath) {
			return nil
		}

		if w.isIncluded(relPath) {
			return fn(path)
		}

		return nil
	})
}

func (w *Walker) shouldExcludeDir(relPath string) bool {
	// Check directory exclusion patterns (with trailing slash)
	dirPath := relPath + "/"
	for _, pattern := range w.excludes {
		matched, _ := doublestar.Match(pattern, dirPath)
		if matched {
			return true
		}
		// "**/.git/**" should also match ".git" itself
		matched, _ = doublestar.Match(pattern, relPath)
		if matched {
			return true
		}
	}
	return false
}

func (w *Walker) isExcluded(relPath string) bool {
	for _, pattern := range w.excludes {
		matched, _ := doublestar.Match(pattern, relPath)
		if matched {
			return true
		}
	}
	return false
}

func (w *Walker) isIncluded(relPath string) bool {
	for _, pattern := range w.includes {
		matched, _ := doublestar.Match(pattern, relPath)
		if matched {
			return true
		}
	}
	return false
}
