// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

package consistency

import (
	"strings"
	"testing"
	"time"

	"github.com/parkir-ops/parkir-ops/internal/model"
	"github.com/parkir-ops/parkir-ops/internal/stats"
)

// fixture returns a config/data pair that passes every check.
func fixture() (*model.ConfigDocument, *model.DataDocument) {
	cfg := &model.ConfigDocument{
		Version: "2.0.0",
		Locations: []model.LocationConfig{
			{
				ID: 1, Name: "SENOPATI", Address: "Jl. Senopati 1",
				Coordinates: model.Coordinates{Lat: -6.23, Lng: 106.81},
				Capacity:    model.CapacityConfig{Bus: 62, Mobil: 200, Motor: 100},
			},
			{
				ID: 2, Name: "MONAS", Address: "Jl. Medan Merdeka",
				Coordinates: model.Coordinates{Lat: -6.17, Lng: 106.82},
				Capacity:    model.CapacityConfig{Bus: 10, Mobil: 400, Motor: 250},
			},
		},
	}
	cfg.RecalculateTotalCapacity()

	data := &model.DataDocument{
		Metadata: model.Metadata{
			LastUpdated:    "2026-08-30T08:00:00Z",
			Version:        "1.4.0",
			TotalLocations: 2,
		},
		Locations: []model.LocationState{
			{
				ID: 1, Nama: "SENOPATI", Alamat: "Jl. Senopati 1",
				Koordinat: model.Coordinates{Lat: -6.23, Lng: 106.81},
				Bus:       &model.VehicleState{Total: 62, Available: 30, Status: model.StatusAvailable},
				Mobil:     &model.VehicleState{Total: 200, Available: 150, Status: model.StatusAvailable},
				Motor:     &model.VehicleState{Total: 100, Available: 100, Status: model.StatusEmpty},
			},
			{
				ID: 2, Nama: "MONAS", Alamat: "Jl. Medan Merdeka",
				Koordinat: model.Coordinates{Lat: -6.17, Lng: 106.82},
				Bus:       &model.VehicleState{Total: 10, Available: 0, Status: model.StatusFull},
				Mobil:     &model.VehicleState{Total: 400, Available: 275, Status: model.StatusAvailable},
				Motor:     &model.VehicleState{Total: 250, Available: 40, Status: model.StatusAvailable},
			},
		},
	}
	stats.Calculate(data.Locations).Apply(&data.Statistics, "test", time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC))
	return cfg, data
}

func TestCheckAllPass(t *testing.T) {
	cfg, data := fixture()
	rep := NewChecker(cfg, data).Check()

	if !rep.Passed {
		t.Fatalf("expected clean pass, issues: %v", rep.Issues)
	}
	if len(rep.Checks) != 5 {
		t.Errorf("expected 5 checks, got %d", len(rep.Checks))
	}
	for _, c := range rep.Checks {
		if !c.Passed {
			t.Errorf("check %s failed: %v", c.Name, c.Issues)
		}
	}
}

// Config declares bus.total=62 but data has 50: default mode reports the
// mismatch and must not mutate either document.
func TestCapacityMismatchReportedNotMutated(t *testing.T) {
	cfg, data := fixture()
	data.Locations[0].Bus.Total = 50
	stats.Calculate(data.Locations).Apply(&data.Statistics, "test", time.Now())

	rep := NewChecker(cfg, data).Check()

	if rep.Passed {
		t.Fatal("capacity mismatch not detected")
	}
	found := false
	for _, issue := range rep.Issues {
		if strings.Contains(issue, "SENOPATI") && strings.Contains(issue, "bus capacity mismatch") {
			found = true
		}
	}
	if !found {
		t.Errorf("bus capacity mismatch not in issues: %v", rep.Issues)
	}

	if data.Locations[0].Bus.Total != 50 {
		t.Error("checker mutated data document")
	}
	if cfg.Locations[0].Capacity.Bus != 62 {
		t.Error("checker mutated config document")
	}
}

func TestAllChecksRunWithoutShortCircuit(t *testing.T) {
	cfg, data := fixture()
	// Break several layers at once.
	data.Locations = data.Locations[:1]               // count mismatch + configured-but-absent
	data.Metadata.TotalLocations = 9                  // metadata bookkeeping
	data.Statistics.TotalAvailableMobil += 5          // aggregate drift
	cfg.TotalCapacity.Bus += 1                        // declared drift

	rep := NewChecker(cfg, data).Check()

	if rep.Passed {
		t.Fatal("broken fixture passed")
	}
	if len(rep.Checks) != 5 {
		t.Fatalf("short-circuit detected: only %d checks ran", len(rep.Checks))
	}

	failed := map[string]bool{}
	for _, c := range rep.Checks {
		if !c.Passed {
			failed[c.Name] = true
		}
	}
	for _, name := range []string{CheckLocationCount, CheckLocations, CheckStatistics, CheckMetadata} {
		if !failed[name] {
			t.Errorf("check %s should have failed", name)
		}
	}
}

func TestQuickModeRunsTwoChecks(t *testing.T) {
	cfg, data := fixture()
	rep := NewChecker(cfg, data).Quick()

	if len(rep.Checks) != 2 {
		t.Fatalf("quick mode ran %d checks, want 2", len(rep.Checks))
	}
	if rep.Checks[0].Name != CheckLocationCount || rep.Checks[1].Name != CheckStatistics {
		t.Errorf("quick mode ran %s/%s", rep.Checks[0].Name, rep.Checks[1].Name)
	}
}

func TestSpecialLocationCapacitySkipped(t *testing.T) {
	cfg, data := fixture()
	// KOTA TUA style: capacity frozen at zero while config still declares it.
	cfg.Locations[1].Status = model.LocationStatusSpecial
	data.Locations[1].Status = model.LocationStatusSpecial
	for _, v := range model.VehicleTypes() {
		vs := data.Locations[1].Vehicle(v)
		vs.Total = 0
		vs.Available = 0
		vs.Status = model.StatusNotAvailable
	}
	stats.Calculate(data.Locations).Apply(&data.Statistics, "test", time.Now())
	// Statistics check will flag declared-vs-stored drift; only the
	// locations check matters here.
	rep := NewChecker(cfg, data).Check()

	for _, c := range rep.Checks {
		if c.Name != CheckLocations {
			continue
		}
		for _, issue := range c.Issues {
			if strings.Contains(issue, "capacity mismatch") {
				t.Errorf("special location capacity was compared: %v", issue)
			}
		}
	}
}

func TestUnconfiguredDataLocationReported(t *testing.T) {
	cfg, data := fixture()
	data.Locations = append(data.Locations, model.LocationState{ID: 3, Nama: "BARU"})
	data.Normalize()
	data.Metadata.TotalLocations = 3

	rep := NewChecker(cfg, data).Check()
	found := false
	for _, issue := range rep.Issues {
		if strings.Contains(issue, `"BARU"`) && strings.Contains(issue, "not configured") {
			found = true
		}
	}
	if !found {
		t.Errorf("unconfigured location not reported: %v", rep.Issues)
	}
}
