// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

// Package stats is the shared pure statistics calculator.
//
// Every component that touches aggregate numbers (fixer, syncer, updates
// processor, monitor, recovery) goes through Calculate so the derived
// statistics cache is recomputed identically everywhere. That shared path is
// what makes the recompute idempotent and the aggregate invariants hold.
package stats

import (
	"math"
	"time"

	"github.com/parkir-ops/parkir-ops/internal/model"
)

// Totals is the aggregate of per-location capacity and availability across
// all locations, one pool per vehicle type.
type Totals struct {
	CapacityBus   int
	CapacityMobil int
	CapacityMotor int

	AvailableBus   int
	AvailableMobil int
	AvailableMotor int
}

// Calculate sums capacity and availability per vehicle type over all
// locations. A missing vehicle block counts as zero. Pure: no side effects,
// no clock, no I/O.
func Calculate(locations []model.LocationState) Totals {
	var t Totals
	for i := range locations {
		loc := &locations[i]
		if vs := loc.Bus; vs != nil {
			t.CapacityBus += vs.Total
			t.AvailableBus += vs.Available
		}
		if vs := loc.Mobil; vs != nil {
			t.CapacityMobil += vs.Total
			t.AvailableMobil += vs.Available
		}
		if vs := loc.Motor; vs != nil {
			t.CapacityMotor += vs.Total
			t.AvailableMotor += vs.Available
		}
	}
	return t
}

// Utilization returns (total-available)/total as a percentage, rounded to
// two decimals. Zero capacity yields zero utilization, not a division error.
func Utilization(available, total int) float64 {
	if total <= 0 {
		return 0
	}
	pct := float64(total-available) / float64(total) * 100
	return math.Round(pct*100) / 100
}

// Capacity returns the aggregate capacity for the given vehicle type.
func (t Totals) Capacity(v model.VehicleType) int {
	switch v {
	case model.VehicleBus:
		return t.CapacityBus
	case model.VehicleMobil:
		return t.CapacityMobil
	case model.VehicleMotor:
		return t.CapacityMotor
	}
	return 0
}

// Available returns the aggregate availability for the given vehicle type.
func (t Totals) Available(v model.VehicleType) int {
	switch v {
	case model.VehicleBus:
		return t.AvailableBus
	case model.VehicleMobil:
		return t.AvailableMobil
	case model.VehicleMotor:
		return t.AvailableMotor
	}
	return 0
}

// Apply writes the totals into the document's statistics cache and stamps
// the recalculation provenance.
func (t Totals) Apply(s *model.Statistics, by string, now time.Time) {
	s.TotalBusCapacity = t.CapacityBus
	s.TotalMobilCapacity = t.CapacityMobil
	s.TotalMotorCapacity = t.CapacityMotor

	s.TotalAvailableBus = t.AvailableBus
	s.TotalAvailableMobil = t.AvailableMobil
	s.TotalAvailableMotor = t.AvailableMotor

	s.UtilizationBus = Utilization(t.AvailableBus, t.CapacityBus)
	s.UtilizationMobil = Utilization(t.AvailableMobil, t.CapacityMobil)
	s.UtilizationMotor = Utilization(t.AvailableMotor, t.CapacityMotor)

	s.LastRecalculated = model.Timestamp(now)
	s.RecalculatedBy = by
}

// Matches reports whether the stored statistics cache agrees with the
// computed totals. Provenance stamps are not compared.
func (t Totals) Matches(s model.Statistics) bool {
	return s.TotalBusCapacity == t.CapacityBus &&
		s.TotalMobilCapacity == t.CapacityMobil &&
		s.TotalMotorCapacity == t.CapacityMotor &&
		s.TotalAvailableBus == t.AvailableBus &&
		s.TotalAvailableMobil == t.AvailableMobil &&
		s.TotalAvailableMotor == t.AvailableMotor
}
