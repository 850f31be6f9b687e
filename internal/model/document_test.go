// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

package model

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name      string
		available int
		total     int
		want      VehicleStatus
	}{
		{"zero capacity", 0, 0, StatusNotAvailable},
		{"untouched lot", 80, 80, StatusEmpty},
		{"no slot left", 0, 80, StatusFull},
		{"partially used", 30, 80, StatusAvailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveStatus(tt.available, tt.total); got != tt.want {
				t.Errorf("DeriveStatus(%d, %d) = %q, want %q", tt.available, tt.total, got, tt.want)
			}
		})
	}
}

func TestNormalizeMaterializesMissingVehicleBlocks(t *testing.T) {
	doc := &DataDocument{
		Locations: []LocationState{
			{Nama: "SENOPATI", Mobil: &VehicleState{Total: 200, Available: 150, Status: StatusAvailable}},
		},
	}

	warnings := doc.Normalize()
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings (bus, motor), got %d: %v", len(warnings), warnings)
	}

	loc := &doc.Locations[0]
	for _, v := range VehicleTypes() {
		vs := loc.Vehicle(v)
		if vs == nil {
			t.Fatalf("vehicle %s still nil after Normalize", v)
		}
	}
	if loc.Bus.Total != 0 || loc.Bus.Status != StatusNotAvailable {
		t.Errorf("materialized bus block = %+v, want zeroed not_available", loc.Bus)
	}
	if loc.Mobil.Total != 200 {
		t.Errorf("existing mobil block was touched: %+v", loc.Mobil)
	}

	// Idempotent: a second pass repairs nothing.
	if again := doc.Normalize(); len(again) != 0 {
		t.Errorf("second Normalize produced warnings: %v", again)
	}
}

func TestIndexRejectsDuplicateNames(t *testing.T) {
	doc := &DataDocument{
		Locations: []LocationState{
			{Nama: "MONAS"},
			{Nama: "MONAS"},
		},
	}

	_, err := doc.Index()
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}

	cfg := &ConfigDocument{
		Locations: []LocationConfig{{Name: "MONAS"}, {Name: "MONAS"}},
	}
	if _, err := cfg.Index(); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName for config, got %v", err)
	}
}

func TestWriteDocumentRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")

	doc := &DataDocument{
		Metadata: Metadata{Version: "1.0.0", TotalLocations: 1},
		Locations: []LocationState{
			{
				ID:   1,
				Nama: "SENOPATI",
				Bus:  &VehicleState{Total: 62, Available: 62, Status: StatusEmpty},
			},
		},
	}
	doc.Normalize()

	if err := WriteDocument(path, doc); err != nil {
		t.Fatalf("WriteDocument failed: %v", err)
	}

	loaded, warnings, err := LoadDataDocument(path)
	if err != nil {
		t.Fatalf("LoadDataDocument failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected normalization warnings on reload: %v", warnings)
	}
	if loaded.Metadata.Version != "1.0.0" {
		t.Errorf("metadata.version = %q, want 1.0.0", loaded.Metadata.Version)
	}
	if loaded.Locations[0].Bus.Total != 62 {
		t.Errorf("bus.total = %d, want 62", loaded.Locations[0].Bus.Total)
	}

	// No temp-file leftovers after a successful replace.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only data.json in dir, found %d entries", len(entries))
	}
}

func TestLoadDataDocumentEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, err := LoadDataDocument(path)
	if !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument for truncated file, got %v", err)
	}
}

func TestLoadPendingUpdatesMissingFileIsEmptyQueue(t *testing.T) {
	updates, err := LoadPendingUpdates(filepath.Join(t.TempDir(), "pending.json"))
	if err != nil {
		t.Fatalf("missing queue file should not error: %v", err)
	}
	if len(updates) != 0 {
		t.Errorf("expected empty queue, got %d entries", len(updates))
	}
}

func TestRecalculateTotalCapacity(t *testing.T) {
	cfg := &ConfigDocument{
		Locations: []LocationConfig{
			{Name: "A", Capacity: CapacityConfig{Bus: 10, Mobil: 100, Motor: 50}},
			{Name: "B", Capacity: CapacityConfig{Bus: 5, Mobil: 40, Motor: 20}},
		},
	}

	cfg.RecalculateTotalCapacity()

	want := TotalCapacity{Bus: 15, Mobil: 140, Motor: 70, Total: 225}
	if cfg.TotalCapacity != want {
		t.Errorf("TotalCapacity = %+v, want %+v", cfg.TotalCapacity, want)
	}
}

func TestIsSpecial(t *testing.T) {
	ls := &LocationState{Nama: "KOTA TUA", Status: LocationStatusSpecial}
	if !ls.IsSpecial() {
		t.Error("status=special location not detected as special")
	}

	ls = &LocationState{Nama: "KOTA TUA", SpecialOperation: &SpecialOperation{Enabled: true}}
	if !ls.IsSpecial() {
		t.Error("enabled special_operation not detected as special")
	}

	ls = &LocationState{Nama: "KOTA TUA", SpecialOperation: &SpecialOperation{Enabled: false}}
	if ls.IsSpecial() {
		t.Error("disabled special_operation wrongly detected as special")
	}
}
