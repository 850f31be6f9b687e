// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

package syncer

import (
	"strings"
	"testing"
	"time"

	"github.com/parkir-ops/parkir-ops/internal/model"
	"github.com/parkir-ops/parkir-ops/internal/stats"
)

var now = time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)

func fixture() (*model.ConfigDocument, *model.DataDocument) {
	cfg := &model.ConfigDocument{
		Version: "2.0.0",
		Locations: []model.LocationConfig{
			{
				ID: 1, Name: "SENOPATI", Address: "Jl. Senopati 1",
				Coordinates: model.Coordinates{Lat: -6.23, Lng: 106.81},
				Capacity:    model.CapacityConfig{Bus: 62, Mobil: 200, Motor: 100},
			},
		},
	}
	cfg.RecalculateTotalCapacity()

	data := &model.DataDocument{
		Metadata: model.Metadata{Version: "1.0.0", TotalLocations: 1, LastUpdated: "2026-08-29T00:00:00Z"},
		Locations: []model.LocationState{
			{
				ID: 1, Nama: "SENOPATI", Alamat: "Jl. Senopati 1",
				Koordinat: model.Coordinates{Lat: -6.23, Lng: 106.81},
				Bus:       &model.VehicleState{Total: 62, Available: 30, Status: model.StatusAvailable},
				Mobil:     &model.VehicleState{Total: 200, Available: 150, Status: model.StatusAvailable},
				Motor:     &model.VehicleState{Total: 100, Available: 100, Status: model.StatusEmpty},
			},
		},
	}
	stats.Calculate(data.Locations).Apply(&data.Statistics, "test", now)
	return cfg, data
}

func TestConfigToDataNoDrift(t *testing.T) {
	cfg, data := fixture()
	res, out, err := ConfigToData(cfg, data, now)
	if err != nil {
		t.Fatalf("ConfigToData failed: %v", err)
	}
	if len(res.Changes) != 0 {
		t.Errorf("no drift expected, got changes: %v", res.Changes)
	}
	if out.Metadata.LastUpdated != "2026-08-30T14:00:00Z" {
		t.Errorf("last_updated = %q", out.Metadata.LastUpdated)
	}
}

func TestConfigToDataOverwritesAndClamps(t *testing.T) {
	cfg, data := fixture()
	cfg.Locations[0].Capacity.Mobil = 120 // capacity reduced below current availability
	cfg.Locations[0].Address = "Jl. Senopati 1A"
	cfg.RecalculateTotalCapacity()

	res, out, err := ConfigToData(cfg, data, now)
	if err != nil {
		t.Fatal(err)
	}

	loc := out.Locations[0]
	if loc.Mobil.Total != 120 {
		t.Errorf("mobil.total = %d, want 120", loc.Mobil.Total)
	}
	if loc.Mobil.Available != 120 {
		t.Errorf("mobil.available = %d, want clamped 120", loc.Mobil.Available)
	}
	if loc.Mobil.Status != model.StatusEmpty {
		t.Errorf("mobil.status = %q, want empty after clamp", loc.Mobil.Status)
	}
	if loc.Alamat != "Jl. Senopati 1A" {
		t.Errorf("alamat = %q", loc.Alamat)
	}

	if len(res.Adjustments) != 1 || !strings.Contains(res.Adjustments[0], "clamped 150 -> 120") {
		t.Errorf("clamp not recorded: %v", res.Adjustments)
	}

	// Statistics recomputed against the new totals.
	if out.Statistics.TotalMobilCapacity != 120 || out.Statistics.TotalAvailableMobil != 120 {
		t.Errorf("statistics not recomputed: %+v", out.Statistics)
	}

	// Input untouched.
	if data.Locations[0].Mobil.Total != 200 {
		t.Error("input data document mutated")
	}
}

// Negative availability must not survive the pass: the output is written
// to the data file, so ordering has to hold in it unconditionally.
func TestConfigToDataClampsNegativeAvailable(t *testing.T) {
	cfg, data := fixture()
	data.Locations[0].Bus.Available = -5

	res, out, err := ConfigToData(cfg, data, now)
	if err != nil {
		t.Fatalf("ConfigToData failed: %v", err)
	}

	bus := out.Locations[0].Bus
	if bus.Available != 0 {
		t.Errorf("bus.available = %d, want 0", bus.Available)
	}
	if bus.Status != model.StatusFull {
		t.Errorf("bus.status = %q, want full", bus.Status)
	}
	if len(res.Adjustments) != 1 || !strings.Contains(res.Adjustments[0], "negative") {
		t.Errorf("adjustments = %v, want one negative-availability record", res.Adjustments)
	}
}

func TestConfigToDataStatusDerivation(t *testing.T) {
	cfg, data := fixture()
	cfg.Locations[0].Capacity.Bus = 0 // pool decommissioned
	data.Locations[0].Motor.Available = 0

	_, out, err := ConfigToData(cfg, data, now)
	if err != nil {
		t.Fatal(err)
	}
	if out.Locations[0].Bus.Status != model.StatusNotAvailable {
		t.Errorf("bus.status = %q, want not_available for zero total", out.Locations[0].Bus.Status)
	}
	if out.Locations[0].Motor.Status != model.StatusFull {
		t.Errorf("motor.status = %q, want full", out.Locations[0].Motor.Status)
	}
}

func TestConfigToDataMissingLocationIsError(t *testing.T) {
	cfg, data := fixture()
	cfg.Locations = append(cfg.Locations, model.LocationConfig{ID: 2, Name: "MONAS"})

	res, _, err := ConfigToData(cfg, data, now)
	if err != nil {
		t.Fatal(err)
	}
	if res.OK() {
		t.Fatal("missing data location not reported")
	}
	if !strings.Contains(res.Errors[0], `"MONAS"`) {
		t.Errorf("errors = %v", res.Errors)
	}
}

func TestDataToConfigPropagatesCapacity(t *testing.T) {
	cfg, data := fixture()
	data.Locations[0].Bus.Total = 70 // operators expanded the bus lot

	res, out, err := DataToConfig(cfg, data)
	if err != nil {
		t.Fatal(err)
	}

	if out.Locations[0].Capacity.Bus != 70 {
		t.Errorf("config capacity.bus = %d, want 70", out.Locations[0].Capacity.Bus)
	}
	if out.TotalCapacity.Bus != 70 || out.TotalCapacity.Total != 370 {
		t.Errorf("total_capacity not recomputed: %+v", out.TotalCapacity)
	}
	if len(res.Changes) != 1 {
		t.Errorf("changes = %v", res.Changes)
	}
	if cfg.Locations[0].Capacity.Bus != 62 {
		t.Error("input config document mutated")
	}
}

func TestDataToConfigNeverCreatesEntries(t *testing.T) {
	cfg, data := fixture()
	data.Locations = append(data.Locations, model.LocationState{ID: 2, Nama: "BARU"})
	data.Normalize()

	res, out, err := DataToConfig(cfg, data)
	if err != nil {
		t.Fatal(err)
	}
	if res.OK() {
		t.Fatal("unconfigured data location must be an error")
	}
	if len(out.Locations) != 1 {
		t.Errorf("config entry was auto-created: %d entries", len(out.Locations))
	}
}

// After Config->Data then Data->Config, the sync audit reports no
// capacity inconsistencies for matched locations.
func TestSyncSymmetry(t *testing.T) {
	cfg, data := fixture()
	cfg.Locations[0].Capacity.Bus = 70   // forward pass moves data to 70
	data.Locations[0].Mobil.Total = 180  // will be overwritten forward

	all, newData, newCfg, err := All(cfg, data, now)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if !all.OK() {
		t.Fatalf("sync errors: %+v", all)
	}

	rep := Validate(newCfg, newData)
	for _, issue := range rep.Issues {
		if strings.Contains(issue, "capacity mismatch") {
			t.Errorf("capacity inconsistency after full sync: %s", issue)
		}
	}
}

func TestAllFailsOnEitherPassError(t *testing.T) {
	cfg, data := fixture()
	data.Locations = append(data.Locations, model.LocationState{ID: 2, Nama: "BARU"})
	data.Normalize()

	res, _, _, err := All(cfg, data, now)
	if err == nil {
		t.Fatal("expected whole-operation failure")
	}
	if res == nil || res.ToConfig.OK() {
		t.Error("reverse pass error not surfaced in result")
	}
}

func TestSpecialLocationCapacityFrozen(t *testing.T) {
	cfg, data := fixture()
	cfg.Locations[0].Status = model.LocationStatusSpecial
	data.Locations[0].Status = model.LocationStatusSpecial
	for _, v := range model.VehicleTypes() {
		vs := data.Locations[0].Vehicle(v)
		vs.Total, vs.Available = 0, 0
		vs.Status = model.StatusNotAvailable
	}

	res, out, err := ConfigToData(cfg, data, now)
	if err != nil {
		t.Fatal(err)
	}
	if out.Locations[0].Bus.Total != 0 {
		t.Errorf("special location capacity was overwritten: %d", out.Locations[0].Bus.Total)
	}
	for _, c := range res.Changes {
		if strings.Contains(c.Field, ".total") {
			t.Errorf("capacity change recorded for special location: %v", c)
		}
	}
}
