// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

package stats

import (
	"testing"
	"time"

	"github.com/parkir-ops/parkir-ops/internal/model"
)

func vs(total, available int) *model.VehicleState {
	return &model.VehicleState{Total: total, Available: available}
}

func TestCalculate(t *testing.T) {
	locations := []model.LocationState{
		{Nama: "SENOPATI", Bus: vs(62, 30), Mobil: vs(200, 150), Motor: vs(100, 100)},
		{Nama: "MONAS", Bus: vs(10, 0), Mobil: vs(400, 275), Motor: vs(250, 40)},
		{Nama: "KOTA TUA"}, // no vehicle blocks at all
	}

	got := Calculate(locations)
	want := Totals{
		CapacityBus: 72, CapacityMobil: 600, CapacityMotor: 350,
		AvailableBus: 30, AvailableMobil: 425, AvailableMotor: 140,
	}
	if got != want {
		t.Errorf("Calculate = %+v, want %+v", got, want)
	}
}

func TestCalculateEmpty(t *testing.T) {
	if got := Calculate(nil); got != (Totals{}) {
		t.Errorf("Calculate(nil) = %+v, want zero totals", got)
	}
}

func TestUtilization(t *testing.T) {
	tests := []struct {
		name      string
		available int
		total     int
		want      float64
	}{
		{"empty lot", 80, 80, 0},
		{"full lot", 0, 80, 100},
		{"half used", 40, 80, 50},
		{"rounded to two decimals", 1, 3, 66.67},
		{"zero capacity", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Utilization(tt.available, tt.total); got != tt.want {
				t.Errorf("Utilization(%d, %d) = %v, want %v", tt.available, tt.total, got, tt.want)
			}
		})
	}
}

func TestApplyAndMatches(t *testing.T) {
	locations := []model.LocationState{
		{Nama: "SENOPATI", Bus: vs(62, 31), Mobil: vs(200, 50), Motor: vs(100, 0)},
	}
	totals := Calculate(locations)

	var s model.Statistics
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	totals.Apply(&s, "fixer", now)

	if s.TotalBusCapacity != 62 || s.TotalAvailableBus != 31 {
		t.Errorf("bus stats = cap %d avail %d, want 62/31", s.TotalBusCapacity, s.TotalAvailableBus)
	}
	if s.UtilizationBus != 50 {
		t.Errorf("utilization_bus = %v, want 50", s.UtilizationBus)
	}
	if s.UtilizationMotor != 100 {
		t.Errorf("utilization_motor = %v, want 100", s.UtilizationMotor)
	}
	if s.LastRecalculated != "2026-08-30T12:00:00Z" {
		t.Errorf("last_recalculated = %q", s.LastRecalculated)
	}
	if s.RecalculatedBy != "fixer" {
		t.Errorf("recalculated_by = %q, want fixer", s.RecalculatedBy)
	}

	if !totals.Matches(s) {
		t.Error("Matches = false immediately after Apply")
	}

	s.TotalAvailableMobil++
	if totals.Matches(s) {
		t.Error("Matches = true after statistics drifted")
	}
}

// Applying the same totals twice must be a no-op on the numeric fields.
func TestApplyIdempotent(t *testing.T) {
	locations := []model.LocationState{
		{Nama: "MONAS", Mobil: vs(400, 123)},
	}
	totals := Calculate(locations)

	var a, b model.Statistics
	now := time.Now()
	totals.Apply(&a, "fixer", now)
	totals.Apply(&b, "fixer", now)
	if a != b {
		t.Errorf("double Apply diverged: %+v vs %+v", a, b)
	}
}
