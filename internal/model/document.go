// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
)

// Sentinel errors for document loading and indexing.
var (
	// ErrDuplicateName is returned when two locations share the same join
	// key. The engine refuses to guess which one is meant.
	ErrDuplicateName = errors.New("duplicate location name")

	// ErrEmptyDocument is returned for a zero-byte file, the typical
	// footprint of a process killed mid-write.
	ErrEmptyDocument = errors.New("document file is empty")
)

// Timestamp returns the canonical stamp the engine writes into documents.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// LoadDataDocument reads, parses, and normalizes the data document at path.
// It returns the normalization warnings (one per materialized vehicle block)
// alongside the document.
func LoadDataDocument(path string) (*DataDocument, []string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read data document: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil, fmt.Errorf("data document %s: %w", path, ErrEmptyDocument)
	}

	var doc DataDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("parse data document %s: %w", path, err)
	}

	warnings := doc.Normalize()
	return &doc, warnings, nil
}

// LoadConfigDocument reads and parses the configuration document at path.
func LoadConfigDocument(path string) (*ConfigDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config document: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("config document %s: %w", path, ErrEmptyDocument)
	}

	var doc ConfigDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse config document %s: %w", path, err)
	}
	return &doc, nil
}

// LoadPendingUpdates reads the pending-updates queue at path. A missing file
// is an empty queue, not an error: producers create the file on first write.
func LoadPendingUpdates(path string) ([]PendingUpdate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read pending updates: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var updates []PendingUpdate
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, fmt.Errorf("parse pending updates %s: %w", path, err)
	}
	return updates, nil
}

// WriteDocument marshals v and atomically replaces the file at path.
// The temp file lives in the target directory so the rename stays on one
// filesystem. This protects against partial writes within one process; it
// does not protect against a second concurrent writer.
func WriteDocument(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()           //nolint:errcheck // cleanup path
		os.Remove(tmpName)    //nolint:errcheck // cleanup path
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()        //nolint:errcheck // cleanup path
		os.Remove(tmpName) //nolint:errcheck // cleanup path
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck // cleanup path
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName) //nolint:errcheck // cleanup path
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// Normalize applies the tolerant-parsing policy: every location gets all
// three vehicle blocks, a missing one is materialized zeroed with status
// not_available. Returns one warning per repair so callers can report them.
// Normalize is idempotent.
func (d *DataDocument) Normalize() []string {
	var warnings []string
	for i := range d.Locations {
		loc := &d.Locations[i]
		for _, v := range VehicleTypes() {
			if loc.Vehicle(v) != nil {
				continue
			}
			loc.setVehicle(v, &VehicleState{Status: StatusNotAvailable})
			warnings = append(warnings,
				fmt.Sprintf("location %q: missing %s block, defaulted to zero capacity", loc.Nama, v))
		}
	}
	return warnings
}

// Clone deep-copies the document via a JSON round trip. Used by routines
// that need a before/after diff of the same document.
func (d *DataDocument) Clone() (*DataDocument, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("clone data document: %w", err)
	}
	var out DataDocument
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("clone data document: %w", err)
	}
	return &out, nil
}
