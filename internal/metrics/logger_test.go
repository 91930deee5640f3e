package metrics

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readEvents(t *testing.T, path string) []map[string]interface{} {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var events []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		events = append(events, e)
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestLoggerWritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.jsonl")

	l, err := NewLogger(path)
	require.NoError(t, err)

	l.LogFileIndexed("src/main.go", "go", "tree-sitter", 4, 2, 12)
	l.LogFileSkipped("src/util.go")
	l.LogBackendFallback("src/broken.py", "python", "tree-sitter", "patterns")
	l.LogRunSummary("/repo", 10, 3, 42, 1, 1500)
	require.NoError(t, l.Close())

	events := readEvents(t, path)
	require.Len(t, events, 4)

	assert.Equal(t, "file_indexed", events[0]["event"])
	assert.Equal(t, "src/main.go", events[0]["file"])
	assert.Equal(t, "tree-sitter", events[0]["backend"])
	assert.NotEmpty(t, events[0]["ts"])

	assert.Equal(t, "file_skipped", events[1]["event"])

	assert.Equal(t, "backend_fallback", events[2]["event"])
	assert.Equal(t, "patterns", events[2]["used"])

	assert.Equal(t, "run_summary", events[3]["event"])
	assert.Equal(t, float64(42), events[3]["chunks"])
}

func TestLoggerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.jsonl")

	l, err := NewLogger(path)
	require.NoError(t, err)
	l.LogError("index", "boom")
	require.NoError(t, l.Close())

	l, err = NewLogger(path)
	require.NoError(t, err)
	l.LogError("index", "again")
	require.NoError(t, l.Close())

	events := readEvents(t, path)
	require.Len(t, events, 2)
	assert.Equal(t, "boom", events[0]["message"])
	assert.Equal(t, "again", events[1]["message"])
}
