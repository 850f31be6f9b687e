// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

// Package syncer reconciles the configuration and data documents in two
// independently invocable directional passes.
//
// Config->Data pushes the declarative fields (capacity totals, address,
// coordinates, status, operational hours) into the live document, clamping
// availability when a reduced total would otherwise break the ordering
// invariant. Data->Config reflects capacity totals back into the
// configuration for operator-driven reconciliation; it never creates
// config entries.
//
// Both passes work on deep copies and return the new document; inputs stay
// untouched. Per-field differences are recorded as Change entries so the
// report shows exactly what moved.
package syncer

import (
	"fmt"
	"time"

	"github.com/parkir-ops/parkir-ops/internal/consistency"
	"github.com/parkir-ops/parkir-ops/internal/logging"
	"github.com/parkir-ops/parkir-ops/internal/model"
	"github.com/parkir-ops/parkir-ops/internal/stats"
)

// RecalculatedBy is the provenance stamp the syncer writes into statistics.
const RecalculatedBy = "config-syncer"

// Change records one field the sync pass overwrote.
type Change struct {
	Location string `json:"location"`
	Field    string `json:"field"`
	From     any    `json:"from"`
	To       any    `json:"to"`
}

func (c Change) String() string {
	return fmt.Sprintf("location %q: %s %v -> %v", c.Location, c.Field, c.From, c.To)
}

// Result is the outcome of one directional pass.
type Result struct {
	Direction   string   `json:"direction"`
	Changes     []Change `json:"changes"`
	Adjustments []string `json:"adjustments,omitempty"`
	Errors      []string `json:"errors,omitempty"`
}

// OK reports whether the pass completed without per-location errors.
func (r *Result) OK() bool { return len(r.Errors) == 0 }

// ConfigToData pushes configuration fields into a copy of the data
// document and recomputes its aggregate statistics.
func ConfigToData(cfg *model.ConfigDocument, data *model.DataDocument, now time.Time) (*Result, *model.DataDocument, error) {
	out, err := data.Clone()
	if err != nil {
		return nil, nil, err
	}
	out.Normalize()

	res := &Result{Direction: "config-to-data", Changes: []Change{}}

	idx, err := out.Index()
	if err != nil {
		return nil, nil, err
	}

	for i := range cfg.Locations {
		lc := &cfg.Locations[i]
		ls, ok := idx[lc.Name]
		if !ok {
			res.Errors = append(res.Errors,
				fmt.Sprintf("location %q configured but absent from data", lc.Name))
			continue
		}
		syncLocation(res, lc, ls)
	}

	stats.Calculate(out.Locations).Apply(&out.Statistics, RecalculatedBy, now)
	out.Metadata.LastUpdated = model.Timestamp(now)
	out.Metadata.TotalLocations = len(out.Locations)

	logging.Info().
		Str("direction", res.Direction).
		Int("changes", len(res.Changes)).
		Int("errors", len(res.Errors)).
		Msg("Sync pass complete")
	return res, out, nil
}

// syncLocation overwrites one data location's declarative fields from its
// config entry, with per-field diff records.
func syncLocation(res *Result, lc *model.LocationConfig, ls *model.LocationState) {
	record := func(field string, from, to any) {
		res.Changes = append(res.Changes, Change{Location: lc.Name, Field: field, From: from, To: to})
	}

	if lc.Address != "" && ls.Alamat != lc.Address {
		record("alamat", ls.Alamat, lc.Address)
		ls.Alamat = lc.Address
	}
	if ls.Koordinat != lc.Coordinates {
		record("koordinat", ls.Koordinat, lc.Coordinates)
		ls.Koordinat = lc.Coordinates
	}
	if lc.Status != "" && ls.Status != lc.Status {
		record("status", ls.Status, lc.Status)
		ls.Status = lc.Status
	}
	if lc.OperationalHours != "" && ls.OperationalHours != lc.OperationalHours {
		record("operational_hours", ls.OperationalHours, lc.OperationalHours)
		ls.OperationalHours = lc.OperationalHours
	}

	// Capacity is frozen for special locations.
	if lc.IsSpecial() || ls.IsSpecial() {
		return
	}

	for _, v := range model.VehicleTypes() {
		vs := ls.Vehicle(v)
		want := lc.Capacity.For(v)
		if vs.Total != want {
			record(string(v)+".total", vs.Total, want)
			vs.Total = want
		}
		// Ordering invariant holds after every write: 0 <= available <= total.
		if vs.Available < 0 {
			res.Adjustments = append(res.Adjustments, fmt.Sprintf(
				"location %q: %s.available raised %d -> 0, negative availability",
				lc.Name, v, vs.Available))
			vs.Available = 0
		}
		if vs.Available > vs.Total {
			res.Adjustments = append(res.Adjustments, fmt.Sprintf(
				"location %q: %s.available clamped %d -> %d after capacity change",
				lc.Name, v, vs.Available, vs.Total))
			vs.Available = vs.Total
		}
		vs.Status = model.DeriveStatus(vs.Available, vs.Total)
	}
}

// DataToConfig reflects data capacity totals into a copy of the
// configuration document and recomputes its declared total_capacity.
// A data location with no config entry is an error; the pass never creates
// config entries.
func DataToConfig(cfg *model.ConfigDocument, data *model.DataDocument) (*Result, *model.ConfigDocument, error) {
	raw := cloneConfig(cfg)
	res := &Result{Direction: "data-to-config", Changes: []Change{}}

	idx, err := raw.Index()
	if err != nil {
		return nil, nil, err
	}

	for i := range data.Locations {
		ls := &data.Locations[i]
		lc, ok := idx[ls.Nama]
		if !ok {
			res.Errors = append(res.Errors,
				fmt.Sprintf("location %q present in data but not configured", ls.Nama))
			continue
		}
		if lc.IsSpecial() || ls.IsSpecial() {
			continue
		}

		for _, v := range model.VehicleTypes() {
			vs := ls.Vehicle(v)
			if vs == nil {
				continue
			}
			if have := lc.Capacity.For(v); have != vs.Total {
				res.Changes = append(res.Changes, Change{
					Location: ls.Nama, Field: "capacity." + string(v), From: have, To: vs.Total,
				})
				lc.Capacity.Set(v, vs.Total)
			}
		}
	}

	raw.RecalculateTotalCapacity()

	logging.Info().
		Str("direction", res.Direction).
		Int("changes", len(res.Changes)).
		Int("errors", len(res.Errors)).
		Msg("Sync pass complete")
	return res, raw, nil
}

// AllResult bundles the two passes of a full sync.
type AllResult struct {
	ToData   *Result `json:"config_to_data"`
	ToConfig *Result `json:"data_to_config"`
}

// OK reports whether both passes completed cleanly.
func (r *AllResult) OK() bool { return r.ToData.OK() && r.ToConfig.OK() }

// All runs Config->Data then Data->Config. Either pass failing (hard error
// or per-location errors) fails the whole operation; the partial results
// are still returned for reporting.
func All(cfg *model.ConfigDocument, data *model.DataDocument, now time.Time) (*AllResult, *model.DataDocument, *model.ConfigDocument, error) {
	toData, newData, err := ConfigToData(cfg, data, now)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("config-to-data pass: %w", err)
	}

	toConfig, newCfg, err := DataToConfig(cfg, newData)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("data-to-config pass: %w", err)
	}

	res := &AllResult{ToData: toData, ToConfig: toConfig}
	if !res.OK() {
		return res, newData, newCfg, fmt.Errorf("sync finished with %d unresolved errors",
			len(toData.Errors)+len(toConfig.Errors))
	}
	return res, newData, newCfg, nil
}

// Validate is the non-mutating audit: it reports the same discrepancy
// classes as the consistency checker without touching either document.
func Validate(cfg *model.ConfigDocument, data *model.DataDocument) *consistency.Report {
	return consistency.NewChecker(cfg, data).Check()
}

// cloneConfig deep-copies a configuration document. LocationConfig holds
// only value fields, so a slice copy is a full copy.
func cloneConfig(cfg *model.ConfigDocument) *model.ConfigDocument {
	out := &model.ConfigDocument{
		Version:       cfg.Version,
		Locations:     make([]model.LocationConfig, len(cfg.Locations)),
		TotalCapacity: cfg.TotalCapacity,
	}
	copy(out.Locations, cfg.Locations)
	return out
}
