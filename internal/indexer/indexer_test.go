package indexer

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telliott/codeatlas/internal/config"
	"github.com/telliott/codeatlas/internal/language"
	"github.com/telliott/codeatlas/internal/metrics"
	"github.com/telliott/codeatlas/internal/pipeline"
)

func writeSource(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestRunWithoutExternalServices(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "main.go", "package main\n\nfunc Main() {}\n")
	writeSource(t, root, "lib/util.py", "def helper():\n    return 1\n")
	writeSource(t, root, "README.md", "# Title\n\nSome documentation text.\n")

	idx, err := New(config.DefaultConfig())
	require.NoError(t, err)

	stats, err := idx.Run(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.FilesProcessed)
	assert.Equal(t, 0, stats.FilesSkipped)
	assert.GreaterOrEqual(t, stats.SymbolsFound, 2)
	assert.GreaterOrEqual(t, stats.ChunksCreated, 3)
	assert.Empty(t, stats.Errors)
}

func TestRunCollectsPerFileErrors(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}

	root := t.TempDir()
	writeSource(t, root, "ok.go", "package main\n")
	writeSource(t, root, "locked.go", "package main\n")
	require.NoError(t, os.Chmod(filepath.Join(root, "locked.go"), 0000))
	t.Cleanup(func() { os.Chmod(filepath.Join(root, "locked.go"), 0644) })

	idx, err := New(config.DefaultConfig())
	require.NoError(t, err)

	stats, err := idx.Run(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FilesProcessed)
	require.Len(t, stats.Errors, 1)
	assert.Contains(t, stats.Errors[0].Error(), "locked.go")
}

func readMetricsEvents(t *testing.T, path string) []map[string]interface{} {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var events []map[string]interface{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e map[string]interface{}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		events = append(events, e)
	}
	require.NoError(t, sc.Err())
	return events
}

func eventsOfType(events []map[string]interface{}, kind string) []map[string]interface{} {
	var out []map[string]interface{}
	for _, e := range events {
		if e["event"] == kind {
			out = append(out, e)
		}
	}
	return out
}

func TestRunEmitsBackendFallbackEvent(t *testing.T) {
	root := t.TempDir()
	// Garbage the precise backend rejects; the pattern backend takes it.
	writeSource(t, root, "broken.py", "$$$ %%% @@@\n!!!\n")

	metricsPath := filepath.Join(t.TempDir(), "metrics.jsonl")
	m, err := metrics.NewLogger(metricsPath)
	require.NoError(t, err)

	idx, err := New(config.DefaultConfig(), WithMetrics(m))
	require.NoError(t, err)

	stats, err := idx.Run(context.Background(), root)
	require.NoError(t, err)
	require.Equal(t, 1, stats.FilesProcessed)
	require.NoError(t, m.Close())

	events := readMetricsEvents(t, metricsPath)
	fallbacks := eventsOfType(events, "backend_fallback")
	require.Len(t, fallbacks, 1)
	assert.Equal(t, "broken.py", fallbacks[0]["file"])
	assert.Equal(t, "python", fallbacks[0]["language"])
	assert.Equal(t, language.BackendTreeSitter, fallbacks[0]["failed"])
	assert.Equal(t, language.BackendPatterns, fallbacks[0]["used"])

	// The same file still produces its indexed event.
	indexed := eventsOfType(events, "file_indexed")
	require.Len(t, indexed, 1)
	assert.Equal(t, "broken.py", indexed[0]["file"])
}

func TestEmitResultMetrics(t *testing.T) {
	metricsPath := filepath.Join(t.TempDir(), "metrics.jsonl")
	m, err := metrics.NewLogger(metricsPath)
	require.NoError(t, err)

	idx, err := New(config.DefaultConfig(), WithMetrics(m))
	require.NoError(t, err)

	idx.emitResultMetrics("src/app.py", &pipeline.Result{
		Path:          "src/app.py",
		Language:      language.Python,
		Backend:       language.BackendPatterns,
		DegradedUnits: []int{2, 7},
	}, 5)
	require.NoError(t, m.Close())

	events := readMetricsEvents(t, metricsPath)
	require.Len(t, events, 4)

	require.Len(t, eventsOfType(events, "backend_fallback"), 1)
	require.Len(t, eventsOfType(events, "file_indexed"), 1)

	degraded := eventsOfType(events, "degraded_unit")
	require.Len(t, degraded, 2)
	assert.Equal(t, "src/app.py", degraded[0]["file"])
	assert.Equal(t, float64(2), degraded[0]["unit"])
	assert.Equal(t, float64(7), degraded[1]["unit"])
}

func TestEmitResultMetricsNoFallbackForPatternOnlyLanguage(t *testing.T) {
	metricsPath := filepath.Join(t.TempDir(), "metrics.jsonl")
	m, err := metrics.NewLogger(metricsPath)
	require.NoError(t, err)

	idx, err := New(config.DefaultConfig(), WithMetrics(m))
	require.NoError(t, err)

	// Rust has no precise backend, so landing on patterns is not a
	// fallback.
	idx.emitResultMetrics("src/lib.rs", &pipeline.Result{
		Path:     "src/lib.rs",
		Language: language.Rust,
		Backend:  language.BackendPatterns,
	}, 3)
	require.NoError(t, m.Close())

	events := readMetricsEvents(t, metricsPath)
	assert.Empty(t, eventsOfType(events, "backend_fallback"))
	require.Len(t, eventsOfType(events, "file_indexed"), 1)
}

func TestRecordIDDeterministic(t *testing.T) {
	a := recordID("chunks", "src/main.go", 0)
	b := recordID("chunks", "src/main.go", 0)
	c := recordID("chunks", "src/main.go", 1)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 16)
}
