// Package memory persists assistant interactions as append-only JSON lines
// and reads back the most recent ones as conversation context.
package memory

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// maxLineBytes bounds a single stored record. Records carry generated code,
// so lines are far longer than the scanner default.
const maxLineBytes = 16 * 1024 * 1024

// Log is an append-only JSON-lines file of records of type T.
// Writes are not locked; concurrent writers may interleave whole lines.
type Log[T any] struct {
	path string
}

// NewLog returns a Log backed by the file at path. The file is created on
// the first Append.
func NewLog[T any](path string) *Log[T] {
	return &Log[T]{path: path}
}

// Path returns the backing file path.
func (l *Log[T]) Path() string { return l.path }

// Append writes rec as one JSON line, creating the file if absent.
func (l *Log[T]) Append(rec T) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	// One write per record keeps each line intact under O_APPEND.
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("append record: %w", err)
	}
	return f.Close()
}

// Recent returns the last limit records, oldest first. A missing file yields
// an empty slice. Lines that fail to decode are skipped with a warning and
// the window is filled from earlier lines instead.
func (l *Log[T]) Recent(limit int) ([]T, error) {
	if limit <= 0 {
		return []T{}, nil
	}

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	// Ring of the last limit decoded records.
	ring := make([]T, limit)
	count := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec T
		if err := json.Unmarshal(line, &rec); err != nil {
			slog.Warn("skipping unreadable memory line", "path", l.path, "line", lineNo, "error", err)
			continue
		}
		ring[count%limit] = rec
		count++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	n := min(count, limit)
	out := make([]T, 0, n)
	start := count - n
	for i := start; i < count; i++ {
		out = append(out, ring[i%limit])
	}
	return out, nil
}
