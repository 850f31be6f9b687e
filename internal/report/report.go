// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

// Package report writes the dated per-routine reports consumed by the
// external dashboards and the CI collaborator.
//
// Every routine emits one JSON report per run under the reports directory,
// named <routine>-report-<date>.json; the fixer and the consistency checker
// additionally emit a human-readable text digest. The core never reads
// reports back.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/parkir-ops/parkir-ops/internal/model"
)

// Envelope is the shared shape of every routine report.
type Envelope struct {
	ID         string   `json:"id"`
	Routine    string   `json:"routine"`
	StartedAt  string   `json:"started_at"`
	FinishedAt string   `json:"finished_at,omitempty"`
	OK         bool     `json:"ok"`
	Issues     []string `json:"issues,omitempty"`
	Fixes      []string `json:"fixes,omitempty"`
	Summary    string   `json:"summary,omitempty"`

	// Details carries the routine-specific payload (before/after
	// statistics, per-check results, quarantine counts).
	Details any `json:"details,omitempty"`
}

// New starts a report envelope for the named routine.
func New(routine string, started time.Time) *Envelope {
	return &Envelope{
		ID:        uuid.NewString(),
		Routine:   routine,
		StartedAt: model.Timestamp(started),
	}
}

// Finish stamps the outcome and end time.
func (e *Envelope) Finish(ok bool, now time.Time) {
	e.OK = ok
	e.FinishedAt = model.Timestamp(now)
}

// Writer writes reports into one directory, creating it on first use.
type Writer struct {
	dir string
}

// NewWriter returns a report writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Write stores the envelope as <routine>-report-<date>.json and returns the
// file path. A second run on the same day overwrites the earlier report;
// the report ID disambiguates runs for consumers that archive them.
func (w *Writer) Write(e *Envelope) (string, error) {
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}

	date := datePart(e.StartedAt)
	path := filepath.Join(w.dir, fmt.Sprintf("%s-report-%s.json", e.Routine, date))
	if err := model.WriteDocument(path, e); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// WriteDigest stores a human-readable text digest next to the JSON report.
func (w *Writer) WriteDigest(e *Envelope, text string) (string, error) {
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}

	date := datePart(e.StartedAt)
	path := filepath.Join(w.dir, fmt.Sprintf("%s-report-%s.txt", e.Routine, date))
	if err := os.WriteFile(path, []byte(text), 0o640); err != nil {
		return "", fmt.Errorf("write digest: %w", err)
	}
	return path, nil
}

// datePart extracts the YYYY-MM-DD portion of an RFC3339 stamp.
func datePart(stamp string) string {
	if i := strings.IndexByte(stamp, 'T'); i > 0 {
		return stamp[:i]
	}
	return stamp
}
