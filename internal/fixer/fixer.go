// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

// Package fixer applies corrective writes when a location's counts break
// the physical invariants or drift from the configured capacity.
//
// Rules, per location and vehicle type:
//
//   - available is clamped into [0, total] unconditionally: a negative or
//     over-capacity count is an impossible physical state
//     (CapacityViolation), repaired in every mode.
//   - total is clamped to the configured capacity unless running strict,
//     the location is special, or the location is not configured at all
//     (then its own total stands, flagged as an issue).
//
// The fixer never touches the caller's document: Run fixes a deep copy and
// returns it, so dry-run and mutating mode share one code path and the
// component stays pure-testable. Aggregate statistics are recomputed through
// internal/stats at the end, which makes a second run a no-op (the
// idempotence property the CI pipeline relies on).
package fixer

import (
	"fmt"
	"strings"
	"time"

	"github.com/parkir-ops/parkir-ops/internal/model"
	"github.com/parkir-ops/parkir-ops/internal/stats"
)

// RecalculatedBy is the provenance stamp the fixer writes into statistics.
const RecalculatedBy = "statistics-fixer"

// Options select the operating mode.
type Options struct {
	// Strict leaves totals alone and only repairs available/total ordering.
	Strict bool
}

// Fix records one corrective write.
type Fix struct {
	Location string            `json:"location"`
	Vehicle  model.VehicleType `json:"vehicle"`
	Field    string            `json:"field"`
	Before   int               `json:"before"`
	After    int               `json:"after"`
	Reason   string            `json:"reason"`
}

func (f Fix) String() string {
	return fmt.Sprintf("location %q: %s.%s %d -> %d (%s)",
		f.Location, f.Vehicle, f.Field, f.Before, f.After, f.Reason)
}

// Result is the structured fixer report.
type Result struct {
	IssuesFound  int              `json:"issues_found"`
	FixesApplied int              `json:"fixes_applied"`

	// Changed reports whether the returned document differs from the
	// input. True when pool fixes were applied, and also when only the
	// aggregate statistics were stale and got recomputed; callers decide
	// whether to persist based on this, not on FixesApplied.
	Changed bool `json:"changed"`

	Issues []string         `json:"issues"`
	Fixes  []Fix            `json:"fixes"`
	Before model.Statistics `json:"statistics_before"`
	After  model.Statistics `json:"statistics_after"`
}

// Fixer repairs a data document against an optional configuration document.
type Fixer struct {
	cfg  *model.ConfigDocument // nil when the config document is unavailable
	opts Options
}

// New builds a fixer. cfg may be nil; then capacity reconciliation is
// skipped entirely and only ordering violations are repaired.
func New(cfg *model.ConfigDocument, opts Options) *Fixer {
	return &Fixer{cfg: cfg, opts: opts}
}

// Run fixes a copy of doc and returns the result plus the fixed document.
// The input document is never mutated; the caller decides whether to write
// the returned one (mutating mode) or only report (dry run).
func (f *Fixer) Run(doc *model.DataDocument, now time.Time) (*Result, *model.DataDocument, error) {
	fixed, err := doc.Clone()
	if err != nil {
		return nil, nil, err
	}
	fixed.Normalize()

	res := &Result{Before: doc.Statistics, Issues: []string{}, Fixes: []Fix{}}

	var cfgIdx map[string]*model.LocationConfig
	if f.cfg != nil {
		if cfgIdx, err = f.cfg.Index(); err != nil {
			return nil, nil, err
		}
	}

	for i := range fixed.Locations {
		loc := &fixed.Locations[i]

		var lc *model.LocationConfig
		if cfgIdx != nil {
			var ok bool
			if lc, ok = cfgIdx[loc.Nama]; !ok {
				res.Issues = append(res.Issues,
					fmt.Sprintf("location %q not present in configuration, keeping its own capacity", loc.Nama))
			}
		}

		for _, v := range model.VehicleTypes() {
			f.fixVehicle(res, loc, lc, v)
		}
	}

	stats.Calculate(fixed.Locations).Apply(&fixed.Statistics, RecalculatedBy, now)
	if !statsEqualIgnoringStamps(doc.Statistics, fixed.Statistics) {
		res.Issues = append(res.Issues, "aggregate statistics were stale and have been recomputed")
		res.Changed = true
	}
	fixed.Metadata.LastUpdated = model.Timestamp(now)

	res.After = fixed.Statistics
	res.IssuesFound = len(res.Issues)
	res.FixesApplied = len(res.Fixes)
	if res.FixesApplied > 0 {
		res.Changed = true
	}
	return res, fixed, nil
}

// fixVehicle repairs one vehicle pool in place, recording issues and fixes.
func (f *Fixer) fixVehicle(res *Result, loc *model.LocationState, lc *model.LocationConfig, v model.VehicleType) {
	vs := loc.Vehicle(v)
	changed := false

	// Capacity reconciliation: config is authoritative for totals, except
	// in strict mode and for special locations (capacity frozen at zero).
	if lc != nil && !f.opts.Strict && !lc.IsSpecial() && !loc.IsSpecial() {
		if want := lc.Capacity.For(v); vs.Total != want {
			res.Issues = append(res.Issues, fmt.Sprintf(
				"location %q: %s.total %d differs from configured capacity %d",
				loc.Nama, v, vs.Total, want))
			res.Fixes = append(res.Fixes, Fix{
				Location: loc.Nama, Vehicle: v, Field: "total",
				Before: vs.Total, After: want, Reason: "aligned to configured capacity",
			})
			vs.Total = want
			changed = true
		}
	}

	// Ordering invariant: 0 <= available <= total, enforced in every mode.
	if vs.Available < 0 {
		res.Issues = append(res.Issues, fmt.Sprintf(
			"location %q: %s.available is negative (%d)", loc.Nama, v, vs.Available))
		res.Fixes = append(res.Fixes, Fix{
			Location: loc.Nama, Vehicle: v, Field: "available",
			Before: vs.Available, After: 0, Reason: "negative availability",
		})
		vs.Available = 0
		changed = true
	}
	if vs.Available > vs.Total {
		res.Issues = append(res.Issues, fmt.Sprintf(
			"location %q: %s.available %d exceeds total %d", loc.Nama, v, vs.Available, vs.Total))
		res.Fixes = append(res.Fixes, Fix{
			Location: loc.Nama, Vehicle: v, Field: "available",
			Before: vs.Available, After: vs.Total, Reason: "availability above capacity",
		})
		vs.Available = vs.Total
		changed = true
	}

	if changed {
		vs.Status = model.DeriveStatus(vs.Available, vs.Total)
	}
}

// statsEqualIgnoringStamps compares the numeric statistics fields.
func statsEqualIgnoringStamps(a, b model.Statistics) bool {
	a.LastRecalculated, b.LastRecalculated = "", ""
	a.RecalculatedBy, b.RecalculatedBy = "", ""
	return a == b
}

// Digest renders the human-readable text summary written next to the JSON
// report.
func (r *Result) Digest() string {
	var b strings.Builder
	fmt.Fprintf(&b, "STATISTICS FIXER\n")
	fmt.Fprintf(&b, "issues found:  %d\n", r.IssuesFound)
	fmt.Fprintf(&b, "fixes applied: %d\n", r.FixesApplied)

	if len(r.Fixes) > 0 {
		b.WriteString("\nfixes:\n")
		for _, f := range r.Fixes {
			fmt.Fprintf(&b, "  - %s\n", f)
		}
	}
	if len(r.Issues) > 0 {
		b.WriteString("\nissues:\n")
		for _, issue := range r.Issues {
			fmt.Fprintf(&b, "  - %s\n", issue)
		}
	}

	fmt.Fprintf(&b, "\navailability (bus/mobil/motor): before %d/%d/%d, after %d/%d/%d\n",
		r.Before.TotalAvailableBus, r.Before.TotalAvailableMobil, r.Before.TotalAvailableMotor,
		r.After.TotalAvailableBus, r.After.TotalAvailableMobil, r.After.TotalAvailableMotor)
	return b.String()
}
