// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

// Package updates consumes the pending-updates queue written by the
// external submission channel. Each entry is validated against the live
// data document; valid entries update availability counts, invalid ones
// are quarantined to a dated archive, and the queue is cleared either way.
package updates

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"

	"github.com/parkir-ops/parkir-ops/internal/logging"
	"github.com/parkir-ops/parkir-ops/internal/metrics"
	"github.com/parkir-ops/parkir-ops/internal/model"
	"github.com/parkir-ops/parkir-ops/internal/stats"
)

// recalculatedBy stamps statistics recomputed by this routine.
const recalculatedBy = "updates-processor"

// Rejected pairs a quarantined entry with the reasons it was rejected.
type Rejected struct {
	Entry   model.PendingUpdate `json:"entry"`
	Reasons []string            `json:"reasons"`
}

// Applied records one accepted entry and what it changed.
type Applied struct {
	Location string   `json:"location"`
	Petugas  string   `json:"petugas"`
	Changes  []string `json:"changes"`
}

// Result summarizes one processing run.
type Result struct {
	Processed   int        `json:"processed"`
	AppliedN    int        `json:"applied"`
	Quarantined int        `json:"quarantined"`
	Applied     []Applied  `json:"applied_entries,omitempty"`
	Rejected    []Rejected `json:"rejected_entries,omitempty"`
	ArchiveFile string     `json:"archive_file,omitempty"`
}

// Processor applies pending updates to a data document.
type Processor struct {
	invalidDir string
}

// NewProcessor returns a processor that quarantines rejects under
// invalidDir.
func NewProcessor(invalidDir string) *Processor {
	return &Processor{invalidDir: invalidDir}
}

// Run validates and applies queue against doc. The document is cloned;
// the original is never mutated. Invalid entries are written to a dated
// archive under the invalid directory. Statistics are recomputed when
// anything was applied.
func (p *Processor) Run(doc *model.DataDocument, queue []model.PendingUpdate, now time.Time) (*Result, *model.DataDocument, error) {
	next, err := doc.Clone()
	if err != nil {
		return nil, nil, fmt.Errorf("updates: clone document: %w", err)
	}
	next.Normalize()

	byID := make(map[int]*model.LocationState, len(next.Locations))
	for i := range next.Locations {
		byID[next.Locations[i].ID] = &next.Locations[i]
	}

	result := &Result{Processed: len(queue)}
	for _, entry := range queue {
		loc, reasons := p.validateEntry(entry, byID)
		if len(reasons) > 0 {
			result.Rejected = append(result.Rejected, Rejected{Entry: entry, Reasons: reasons})
			metrics.PendingUpdatesProcessed.WithLabelValues("quarantined").Inc()
			continue
		}
		applied := applyEntry(loc, entry)
		result.Applied = append(result.Applied, applied)
		metrics.PendingUpdatesProcessed.WithLabelValues("applied").Inc()
	}
	result.AppliedN = len(result.Applied)
	result.Quarantined = len(result.Rejected)

	if result.AppliedN > 0 {
		stats.Calculate(next.Locations).Apply(&next.Statistics, recalculatedBy, now)
		next.Metadata.LastUpdated = model.Timestamp(now)
	}

	if result.Quarantined > 0 {
		archive, err := p.quarantine(result.Rejected, now)
		if err != nil {
			return nil, nil, err
		}
		result.ArchiveFile = archive
	}

	logging.Info().
		Int("processed", result.Processed).
		Int("applied", result.AppliedN).
		Int("quarantined", result.Quarantined).
		Msg("pending updates processed")
	return result, next, nil
}

// validateEntry checks one queue entry. All problems are collected so the
// quarantine record explains every defect at once.
func (p *Processor) validateEntry(entry model.PendingUpdate, byID map[int]*model.LocationState) (*model.LocationState, []string) {
	var reasons []string

	loc, ok := byID[entry.LocationID]
	if !ok {
		reasons = append(reasons, fmt.Sprintf("unknown location_id %d", entry.LocationID))
	}
	if entry.PetugasName == "" {
		reasons = append(reasons, "petugas_name is empty")
	}
	if entry.Timestamp == "" {
		reasons = append(reasons, "timestamp is empty")
	} else if _, err := time.Parse(time.RFC3339, entry.Timestamp); err != nil {
		reasons = append(reasons, fmt.Sprintf("timestamp %q is not RFC3339", entry.Timestamp))
	}

	if loc != nil {
		for _, vt := range model.VehicleTypes() {
			count := entry.Count(vt)
			if count == nil {
				continue
			}
			if *count < 0 {
				reasons = append(reasons, fmt.Sprintf("%s count %d is negative", vt, *count))
				continue
			}
			if vs := loc.Vehicle(vt); vs != nil && *count > vs.Total {
				reasons = append(reasons, fmt.Sprintf("%s count %d exceeds capacity %d at %s", vt, *count, vs.Total, loc.Nama))
			}
		}
	}
	if len(reasons) > 0 {
		return nil, reasons
	}
	return loc, nil
}

func applyEntry(loc *model.LocationState, entry model.PendingUpdate) Applied {
	applied := Applied{Location: loc.Nama, Petugas: entry.PetugasName}
	for _, vt := range model.VehicleTypes() {
		count := entry.Count(vt)
		if count == nil {
			continue
		}
		vs := loc.Vehicle(vt)
		if vs.Available != *count {
			applied.Changes = append(applied.Changes,
				fmt.Sprintf("%s.available %d -> %d", vt, vs.Available, *count))
		}
		vs.Available = *count
		vs.Status = model.DeriveStatus(vs.Available, vs.Total)
		vs.LastUpdate = entry.Timestamp
		vs.UpdatedBy = entry.PetugasName
	}
	return applied
}

// quarantine appends the rejects to the dated archive, merging with any
// rejects already archived today.
func (p *Processor) quarantine(rejects []Rejected, now time.Time) (string, error) {
	name := fmt.Sprintf("pending-updates-invalid-%s.json", now.UTC().Format("2006-01-02"))
	path := filepath.Join(p.invalidDir, name)

	if err := os.MkdirAll(p.invalidDir, 0o755); err != nil {
		return "", fmt.Errorf("updates: create invalid directory: %w", err)
	}
	existing, err := loadArchive(path)
	if err != nil {
		return "", err
	}
	existing = append(existing, rejects...)
	if err := model.WriteDocument(path, existing); err != nil {
		return "", fmt.Errorf("updates: write quarantine archive: %w", err)
	}
	return name, nil
}

func loadArchive(path string) ([]Rejected, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("updates: read quarantine archive: %w", err)
	}
	var existing []Rejected
	if err := json.Unmarshal(raw, &existing); err != nil {
		// A damaged archive must not block quarantine of new rejects.
		return nil, nil
	}
	return existing, nil
}
