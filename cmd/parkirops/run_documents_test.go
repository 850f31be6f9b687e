// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/parkir-ops/parkir-ops/internal/config"
	"github.com/parkir-ops/parkir-ops/internal/model"
)

const fixData = `{
  "metadata": {"last_updated": "2026-08-30T10:00:00Z", "version": "1.2.0", "total_locations": 1},
  "statistics": {
    "total_bus_capacity": 62, "total_mobil_capacity": 200, "total_motor_capacity": 100,
    "total_available_bus": 999, "total_available_mobil": 150, "total_available_motor": 100
  },
  "locations": [
    {
      "id": 1,
      "nama": "SENOPATI",
      "koordinat": {"lat": -6.23, "lng": 106.81},
      "bus": {"total": 62, "available": 30, "status": "available"},
      "mobil": {"total": 200, "available": 150, "status": "available"},
      "motor": {"total": 100, "available": 100, "status": "empty"}
    }
  ]
}`

func setupFixEnv(t *testing.T, data string) string {
	t.Helper()
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "parking-data.json")
	if err := os.WriteFile(dataPath, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	engineCfg = &config.Config{
		Paths: config.PathsConfig{
			ConfigFile: filepath.Join(dir, "locations-config.json"),
			DataFile:   dataPath,
			BackupDir:  filepath.Join(dir, "backups"),
			ReportsDir: filepath.Join(dir, "reports"),
		},
	}
	t.Cleanup(func() {
		engineCfg = nil
		fixDryRun, fixStrict = false, false
	})
	return dataPath
}

// Valid pools, stale aggregate cache: the run produces no pool fixes, but
// the recomputed statistics must still land on disk.
func TestFixPersistsRecomputedStatistics(t *testing.T) {
	dataPath := setupFixEnv(t, fixData)

	if err := runFix(nil, nil); err != nil {
		t.Fatalf("runFix: %v", err)
	}

	doc, _, err := model.LoadDataDocument(dataPath)
	if err != nil {
		t.Fatal(err)
	}
	if got := doc.Statistics.TotalAvailableBus; got != 30 {
		t.Errorf("persisted total_available_bus = %d, want 30", got)
	}
}

// A dry run must leave the file untouched and exit non-zero while repairs
// are still pending.
func TestFixDryRunLeavesFileAndSignals(t *testing.T) {
	dataPath := setupFixEnv(t, fixData)
	fixDryRun = true

	if err := runFix(nil, nil); err != errUnresolved {
		t.Fatalf("runFix dry-run err = %v, want errUnresolved", err)
	}

	doc, _, err := model.LoadDataDocument(dataPath)
	if err != nil {
		t.Fatal(err)
	}
	if got := doc.Statistics.TotalAvailableBus; got != 999 {
		t.Errorf("dry run rewrote statistics: total_available_bus = %d, want 999", got)
	}
}
