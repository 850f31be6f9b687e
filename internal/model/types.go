// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

package model

import (
	"fmt"
)

// VehicleType identifies one of the three independently tracked capacity pools.
type VehicleType string

const (
	VehicleBus   VehicleType = "bus"
	VehicleMobil VehicleType = "mobil"
	VehicleMotor VehicleType = "motor"
)

// VehicleTypes returns all vehicle types in canonical order.
// Every loop over vehicle pools uses this so reports stay deterministic.
func VehicleTypes() []VehicleType {
	return []VehicleType{VehicleBus, VehicleMobil, VehicleMotor}
}

// VehicleStatus is the availability classification of one vehicle pool at
// one location.
type VehicleStatus string

const (
	// StatusEmpty means the lot is empty: every slot is still available.
	StatusEmpty VehicleStatus = "empty"

	// StatusAvailable means some slots are taken, some remain.
	StatusAvailable VehicleStatus = "available"

	// StatusFull means no slot remains.
	StatusFull VehicleStatus = "full"

	// StatusNotAvailable means the pool is not operating (total == 0),
	// typically a special-operation location.
	StatusNotAvailable VehicleStatus = "not_available"
)

// DeriveStatus computes the vehicle status from the available/total counts.
// The ordering of the checks matters: a zero-capacity pool is not_available
// even though available == total also holds.
func DeriveStatus(available, total int) VehicleStatus {
	switch {
	case total == 0:
		return StatusNotAvailable
	case available == total:
		return StatusEmpty
	case available == 0:
		return StatusFull
	default:
		return StatusAvailable
	}
}

// LocationStatusSpecial marks a location whose normal capacity is suspended
// (frozen at zero) for an alternate use. The fixer and syncer skip capacity
// reconciliation for special locations.
const LocationStatusSpecial = "special"

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

// CapacityConfig holds the declared total capacity per vehicle type for one
// configured location.
type CapacityConfig struct {
	Bus   int `json:"bus" validate:"gte=0"`
	Mobil int `json:"mobil" validate:"gte=0"`
	Motor int `json:"motor" validate:"gte=0"`
}

// For returns the declared capacity for the given vehicle type.
func (c CapacityConfig) For(v VehicleType) int {
	switch v {
	case VehicleBus:
		return c.Bus
	case VehicleMobil:
		return c.Mobil
	case VehicleMotor:
		return c.Motor
	}
	return 0
}

// Set overwrites the declared capacity for the given vehicle type.
func (c *CapacityConfig) Set(v VehicleType, total int) {
	switch v {
	case VehicleBus:
		c.Bus = total
	case VehicleMobil:
		c.Mobil = total
	case VehicleMotor:
		c.Motor = total
	}
}

// LocationConfig is one entry of the configuration document.
type LocationConfig struct {
	ID               int            `json:"id"`
	Code             string         `json:"code,omitempty"`
	Name             string         `json:"name" validate:"required"`
	Address          string         `json:"address,omitempty"`
	Coordinates      Coordinates    `json:"coordinates"`
	Capacity         CapacityConfig `json:"capacity"`
	OperationalHours string         `json:"operational_hours,omitempty"`
	Status           string         `json:"status,omitempty"`
}

// IsSpecial reports whether the location is under a special operation, i.e.
// its capacity is intentionally frozen at zero.
func (lc *LocationConfig) IsSpecial() bool {
	return lc.Status == LocationStatusSpecial
}

// TotalCapacity is the config document's derived system-wide capacity.
type TotalCapacity struct {
	Bus   int `json:"bus"`
	Mobil int `json:"mobil"`
	Motor int `json:"motor"`
	Total int `json:"total"`
}

// ConfigDocument is the declarative location configuration. Read-mostly;
// only the reverse sync pass ever writes it.
type ConfigDocument struct {
	Version       string           `json:"version" validate:"required"`
	Locations     []LocationConfig `json:"locations" validate:"required,dive"`
	TotalCapacity TotalCapacity    `json:"total_capacity"`
}

// RecalculateTotalCapacity recomputes the derived total_capacity block from
// the per-location declared capacities.
func (c *ConfigDocument) RecalculateTotalCapacity() {
	var tc TotalCapacity
	for i := range c.Locations {
		tc.Bus += c.Locations[i].Capacity.Bus
		tc.Mobil += c.Locations[i].Capacity.Mobil
		tc.Motor += c.Locations[i].Capacity.Motor
	}
	tc.Total = tc.Bus + tc.Mobil + tc.Motor
	c.TotalCapacity = tc
}

// Index builds a name-keyed lookup over the configured locations.
// A duplicate name is a structural error: the name is the cross-document
// join key and must be unique.
func (c *ConfigDocument) Index() (map[string]*LocationConfig, error) {
	idx := make(map[string]*LocationConfig, len(c.Locations))
	for i := range c.Locations {
		name := c.Locations[i].Name
		if _, dup := idx[name]; dup {
			return nil, fmt.Errorf("%w: config location %q", ErrDuplicateName, name)
		}
		idx[name] = &c.Locations[i]
	}
	return idx, nil
}

// VehicleState is the live state of one vehicle pool at one location.
type VehicleState struct {
	Total      int           `json:"total" validate:"gte=0"`
	Available  int           `json:"available" validate:"gte=0"`
	LastUpdate string        `json:"last_update,omitempty"`
	UpdatedBy  string        `json:"updated_by,omitempty"`
	Status     VehicleStatus `json:"status,omitempty" validate:"vehicle_status"`
}

// SpecialPeriod is one date-bounded operating window of a special operation.
type SpecialPeriod struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// SpecialOperation overrides a location's normal capacity rules: capacity is
// forced to zero during the listed periods.
type SpecialOperation struct {
	Enabled     bool            `json:"enabled"`
	Description string          `json:"description,omitempty"`
	Periods     []SpecialPeriod `json:"periods,omitempty"`
}

// LocationState is one entry of the data document. The `nama` field is the
// stable join key against LocationConfig.Name.
type LocationState struct {
	ID               int               `json:"id"`
	Nama             string            `json:"nama" validate:"required"`
	Alamat           string            `json:"alamat,omitempty"`
	Koordinat        Coordinates       `json:"koordinat"`
	Bus              *VehicleState     `json:"bus,omitempty"`
	Mobil            *VehicleState     `json:"mobil,omitempty"`
	Motor            *VehicleState     `json:"motor,omitempty"`
	OperationalHours string            `json:"operational_hours,omitempty"`
	Status           string            `json:"status,omitempty"`
	SpecialOperation *SpecialOperation `json:"special_operation,omitempty"`
}

// Vehicle returns the state for the given vehicle type, or nil when the
// block is absent (only possible before Normalize has run).
func (ls *LocationState) Vehicle(v VehicleType) *VehicleState {
	switch v {
	case VehicleBus:
		return ls.Bus
	case VehicleMobil:
		return ls.Mobil
	case VehicleMotor:
		return ls.Motor
	}
	return nil
}

// setVehicle installs a vehicle block for the given type.
func (ls *LocationState) setVehicle(v VehicleType, vs *VehicleState) {
	switch v {
	case VehicleBus:
		ls.Bus = vs
	case VehicleMobil:
		ls.Mobil = vs
	case VehicleMotor:
		ls.Motor = vs
	}
}

// IsSpecial reports whether the location is under a special operation.
func (ls *LocationState) IsSpecial() bool {
	if ls.Status == LocationStatusSpecial {
		return true
	}
	return ls.SpecialOperation != nil && ls.SpecialOperation.Enabled
}

// Metadata is the data document's header block.
type Metadata struct {
	LastUpdated    string `json:"last_updated"`
	Version        string `json:"version" validate:"required,semver"`
	TotalLocations int    `json:"total_locations"`
	OperationName  string `json:"operation_name,omitempty"`

	// EmergencyCreated marks a document fabricated by the recovery ladder's
	// last rung, so downstream consumers can detect degraded provenance.
	EmergencyCreated bool `json:"emergency_created,omitempty"`

	// Restore provenance, stamped by the backup manager on restore.
	RestoredFrom string `json:"restored_from,omitempty"`
	RestoredAt   string `json:"restored_at,omitempty"`
}

// Statistics is the derived aggregate cache inside the data document.
// It is recomputed after every mutating operation and never trusted as
// a source of truth.
type Statistics struct {
	TotalBusCapacity   int `json:"total_bus_capacity"`
	TotalMobilCapacity int `json:"total_mobil_capacity"`
	TotalMotorCapacity int `json:"total_motor_capacity"`

	TotalAvailableBus   int `json:"total_available_bus"`
	TotalAvailableMobil int `json:"total_available_mobil"`
	TotalAvailableMotor int `json:"total_available_motor"`

	UtilizationBus   float64 `json:"utilization_bus"`
	UtilizationMobil float64 `json:"utilization_mobil"`
	UtilizationMotor float64 `json:"utilization_motor"`

	LastRecalculated string `json:"last_recalculated,omitempty"`
	RecalculatedBy   string `json:"recalculated_by,omitempty"`
}

// DataDocument is the live availability state for all locations.
type DataDocument struct {
	Metadata   Metadata        `json:"metadata"`
	Statistics Statistics      `json:"statistics"`
	Locations  []LocationState `json:"locations" validate:"dive"`
}

// Index builds a name-keyed lookup over the live locations. Duplicate names
// are a structural error.
func (d *DataDocument) Index() (map[string]*LocationState, error) {
	idx := make(map[string]*LocationState, len(d.Locations))
	for i := range d.Locations {
		name := d.Locations[i].Nama
		if _, dup := idx[name]; dup {
			return nil, fmt.Errorf("%w: data location %q", ErrDuplicateName, name)
		}
		idx[name] = &d.Locations[i]
	}
	return idx, nil
}

// PendingUpdate is one raw field report from the external submission
// channel. Vehicle counts are pointers so "not reported" is distinguishable
// from "reported zero".
type PendingUpdate struct {
	LocationID  int    `json:"location_id"`
	PetugasName string `json:"petugas_name" validate:"required"`
	Timestamp   string `json:"timestamp" validate:"required"`
	Bus         *int   `json:"bus,omitempty"`
	Mobil       *int   `json:"mobil,omitempty"`
	Motor       *int   `json:"motor,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// Count returns the reported count for the given vehicle type, or nil
// when that pool was not reported.
func (u PendingUpdate) Count(v VehicleType) *int {
	switch v {
	case VehicleBus:
		return u.Bus
	case VehicleMobil:
		return u.Mobil
	case VehicleMotor:
		return u.Motor
	}
	return nil
}
