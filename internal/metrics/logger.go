// Package metrics provides JSONL event logging for analytics.
package metrics

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// Logger writes metrics events to a JSONL file.
type Logger struct {
	file *os.File
	mu   sync.Mutex
}

// NewLogger creates a new metrics logger appending to path.
func NewLogger(path string) (*Logger, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	return &Logger{file: file}, nil
}

// Close closes the log file.
func (l *Logger) Close() error {
	return l.file.Close()
}

func (l *Logger) log(event string, data map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := map[string]interface{}{
		"ts":    time.Now().UTC().Format(time.RFC3339),
		"event": event,
	}
	for k, v := range data {
		e[k] = v
	}

	line, _ := json.Marshal(e)
	l.file.Write(line)
	l.file.Write([]byte("\n"))
}

// LogFileIndexed logs a successfully processed file.
func (l *Logger) LogFileIndexed(path, language, backend string, symbols, chunks int, latencyMs int64) {
	l.log("file_indexed", map[string]interface{}{
		"file":       path,
		"language":   language,
		"backend":    backend,
		"symbols":    symbols,
		"chunks":     chunks,
		"latency_ms": latencyMs,
	})
}

// LogFileSkipped logs a file skipped because its content is unchanged.
func (l *Logger) LogFileSkipped(path string) {
	l.log("file_skipped", map[string]interface{}{
		"file": path,
	})
}

// LogBackendFallback logs a parse that fell through to a lower-priority
// backend.
func (l *Logger) LogBackendFallback(path, language, failed, used string) {
	l.log("backend_fallback", map[string]interface{}{
		"file":     path,
		"language": language,
		"failed":   failed,
		"used":     used,
	})
}

// LogDegradedUnit logs a structural unit that could not be processed and
// was emitted as an opaque chunk.
func (l *Logger) LogDegradedUnit(path string, unit int) {
	l.log("degraded_unit", map[string]interface{}{
		"file": path,
		"unit": unit,
	})
}

// LogRunSummary logs totals for a complete indexing run.
func (l *Logger) LogRunSummary(root string, files, skipped, chunks, errors int, durationMs int64) {
	l.log("run_summary", map[string]interface{}{
		"root":        root,
		"files":       files,
		"skipped":     skipped,
		"chunks":      chunks,
		"errors":      errors,
		"duration_ms": durationMs,
	})
}

// LogError logs an error event.
func (l *Logger) LogError(operation, message string) {
	l.log("error", map[string]interface{}{
		"operation": operation,
		"message":   message,
	})
}
