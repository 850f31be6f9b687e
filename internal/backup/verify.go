// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

package backup

import (
	"os"
	"path/filepath"
)

// Verify checks a single backup artifact: the file must exist with a
// non-zero size, decompress if gzipped, parse as a wrapper, and contain
// both metadata and at least one location.
func (m *Manager) Verify(name string) VerifyResult {
	path, err := m.resolve(name)
	if err != nil {
		return VerifyResult{File: name, Valid: false, Reason: err.Error()}
	}

	result := VerifyResult{File: filepath.Base(path)}
	st, err := os.Stat(path)
	if err != nil {
		result.Reason = err.Error()
		return result
	}
	result.Size = st.Size()
	if st.Size() == 0 {
		result.Reason = "file is empty"
		return result
	}

	if _, _, err := m.readWrapper(path); err != nil {
		result.Reason = err.Error()
		return result
	}
	result.Valid = true
	return result
}

// VerifyAll verifies every raw backup in the directory, oldest first.
func (m *Manager) VerifyAll() ([]VerifyResult, error) {
	backups, err := m.listBackups()
	if err != nil {
		return nil, err
	}
	results := make([]VerifyResult, 0, len(backups))
	for _, b := range backups {
		results = append(results, m.Verify(b.name))
	}
	return results, nil
}
