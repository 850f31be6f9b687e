// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

package backup

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/parkir-ops/parkir-ops/internal/logging"
	"github.com/parkir-ops/parkir-ops/internal/model"
)

// RestoreResult reports what a restore did.
type RestoreResult struct {
	RestoredFrom    string `json:"restored_from"`
	RestoredAt      string `json:"restored_at"`
	PreRestoreFile  string `json:"pre_restore_file,omitempty"`
	LocationCount   int    `json:"location_count"`
	BackupCreatedAt string `json:"backup_created_at,omitempty"`
}

// Restore replaces the data document at targetPath with the content of a
// backup. The name may be a backup filename, an absolute path, or the
// literal "latest". When the target currently holds a parseable document a
// pre-restore snapshot is taken first so the restore itself is reversible.
// The restored document is stamped with provenance metadata.
func (m *Manager) Restore(name, targetPath string) (*RestoreResult, error) {
	src, err := m.resolve(name)
	if err != nil {
		return nil, err
	}

	doc, meta, err := m.readWrapper(src)
	if err != nil {
		return nil, err
	}

	result := &RestoreResult{
		RestoredFrom:    filepath.Base(src),
		RestoredAt:      model.Timestamp(time.Now()),
		LocationCount:   len(doc.Locations),
		BackupCreatedAt: meta.CreatedAt,
	}

	// Self-protection: snapshot whatever is at the target before we
	// overwrite it, but never let a corrupt target block the restore.
	if _, statErr := os.Stat(targetPath); statErr == nil {
		pre, preErr := m.Create(targetPath, TypePreRestore, "automatic snapshot before restore from "+result.RestoredFrom)
		if preErr != nil {
			logging.Warn().Err(preErr).Str("target", targetPath).Msg("pre-restore snapshot skipped")
		} else {
			result.PreRestoreFile = pre.BackupFile
		}
	}

	doc.Metadata.RestoredFrom = result.RestoredFrom
	doc.Metadata.RestoredAt = result.RestoredAt
	doc.Metadata.LastUpdated = result.RestoredAt

	if err := model.WriteDocument(targetPath, doc); err != nil {
		return nil, fmt.Errorf("backup: write restored document: %w", err)
	}

	logging.Info().
		Str("from", result.RestoredFrom).
		Str("target", targetPath).
		Int("locations", result.LocationCount).
		Msg("data document restored")
	return result, nil
}

// resolve maps a user-supplied name to a backup file path.
func (m *Manager) resolve(name string) (string, error) {
	if name == "" || name == "latest" {
		return m.Latest()
	}
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err != nil {
			return "", fmt.Errorf("backup: %w", err)
		}
		return name, nil
	}
	full := filepath.Join(m.cfg.Dir, name)
	if _, err := os.Stat(full); err != nil {
		return "", fmt.Errorf("backup: %q not found in %s", name, m.cfg.Dir)
	}
	return full, nil
}

// readWrapper loads a backup file, transparently gunzipping .gz artifacts,
// and returns the embedded data document plus the wrapper metadata.
func (m *Manager) readWrapper(path string) (*model.DataDocument, *wrapperMeta, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("backup: read %s: %w", filepath.Base(path), err)
	}
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, nil, fmt.Errorf("backup: gunzip %s: %w", filepath.Base(path), err)
		}
		raw, err = io.ReadAll(zr)
		if cerr := zr.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, nil, fmt.Errorf("backup: gunzip %s: %w", filepath.Base(path), err)
		}
	}

	// Both wrapper fields are required; a backup without its metadata
	// block is as invalid as one without data.
	var wrapper struct {
		Metadata *wrapperMeta        `json:"metadata"`
		Data     *model.DataDocument `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, nil, fmt.Errorf("backup: parse %s: %w", filepath.Base(path), err)
	}
	if wrapper.Metadata == nil {
		return nil, nil, fmt.Errorf("backup: %s has no metadata block", filepath.Base(path))
	}
	if wrapper.Data == nil {
		return nil, nil, fmt.Errorf("backup: %s has no data block", filepath.Base(path))
	}
	if len(wrapper.Data.Locations) == 0 {
		return nil, nil, fmt.Errorf("backup: %s contains no locations", filepath.Base(path))
	}
	warnings := wrapper.Data.Normalize()
	for _, w := range warnings {
		logging.Warn().Str("backup", filepath.Base(path)).Str("warning", w).Msg("backup document normalized")
	}
	return wrapper.Data, wrapper.Metadata, nil
}
