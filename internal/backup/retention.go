// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/parkir-ops/parkir-ops/internal/logging"
)

// CleanupOld prunes backups beyond Config.MaxCount, oldest first. Each
// pruned backup takes its grouped artifacts with it: the raw wrapper, the
// gzip copy, and the info sidecar. Returns the number of backups removed.
func (m *Manager) CleanupOld() (int, error) {
	backups, err := m.listBackups()
	if err != nil {
		return 0, err
	}
	if len(backups) <= m.cfg.MaxCount {
		return 0, nil
	}

	excess := backups[:len(backups)-m.cfg.MaxCount]
	removed := 0
	for _, b := range excess {
		stamp := strings.TrimSuffix(strings.TrimPrefix(b.name, m.cfg.Prefix+"-"), ".json")
		group := []string{
			b.name,
			b.name + ".gz",
			fmt.Sprintf("%s-info-%s.json", m.cfg.Prefix, stamp),
		}
		failed := false
		for _, name := range group {
			path := filepath.Join(m.cfg.Dir, name)
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				logging.Warn().Err(err).Str("file", name).Msg("cleanup could not remove backup artifact")
				failed = true
			}
		}
		if !failed {
			removed++
		}
	}

	if removed > 0 {
		logging.Info().
			Int("removed", removed).
			Int("retained", m.cfg.MaxCount).
			Msg("old backups pruned")
	}
	return removed, nil
}
