// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

package recovery

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"

	"github.com/parkir-ops/parkir-ops/internal/model"
)

// LogEntry is one line of the append-only recovery log.
type LogEntry struct {
	Timestamp string            `json:"timestamp"`
	Action    string            `json:"action"`
	From      State             `json:"from,omitempty"`
	To        State             `json:"to,omitempty"`
	Inputs    map[string]string `json:"inputs,omitempty"`
	Outcome   string            `json:"outcome"`
	Error     string            `json:"error,omitempty"`
}

// Log appends recovery events to a JSON-lines file. Lines are never
// rewritten; a truncated trailing line from a crash does not corrupt
// earlier entries.
type Log struct {
	path string
}

// NewLog returns a log writer for path. The parent directory is created
// on the first append.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Append writes one entry as a single JSON line, fsynced before close.
func (l *Log) Append(entry LogEntry) error {
	if l == nil || l.path == "" {
		return nil
	}
	if entry.Timestamp == "" {
		entry.Timestamp = model.Timestamp(time.Now())
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("recovery: log directory: %w", err)
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("recovery: marshal log entry: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("recovery: open log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("recovery: append log: %w", err)
	}
	return f.Sync()
}

// Read returns every entry currently in the log, oldest first. A trailing
// partial line is skipped rather than failing the whole read.
func (l *Log) Read() ([]LogEntry, error) {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("recovery: read log: %w", err)
	}

	var entries []LogEntry
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i != len(raw) && raw[i] != '\n' {
			continue
		}
		line := raw[start:i]
		start = i + 1
		if len(line) == 0 {
			continue
		}
		var e LogEntry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
