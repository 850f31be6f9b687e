// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

// Package consistency cross-validates the configuration document against
// the data document.
//
// Five independent checks run unconditionally, no short-circuit, so a single
// run surfaces the complete defect list:
//
//	structure       gross shape of both documents
//	location_count  data count == config count
//	locations       per-location capacity/address/coordinates, joined by name
//	statistics      stored aggregates vs config's declared total_capacity
//	metadata        version format, total_locations bookkeeping
//
// The checker never mutates its inputs; it only describes. The quick mode
// runs location_count and statistics only, for low-latency polling.
package consistency

import (
	"fmt"
	"strings"

	"github.com/parkir-ops/parkir-ops/internal/model"
	"github.com/parkir-ops/parkir-ops/internal/stats"
	"github.com/parkir-ops/parkir-ops/internal/validate"
)

// Check names, stable identifiers in reports.
const (
	CheckStructure     = "structure"
	CheckLocationCount = "location_count"
	CheckLocations     = "locations"
	CheckStatistics    = "statistics"
	CheckMetadata      = "metadata"
)

// CheckResult is the outcome of one named check.
type CheckResult struct {
	Name   string   `json:"name"`
	Passed bool     `json:"passed"`
	Issues []string `json:"issues,omitempty"`
}

// Report is the full checker output: pass/fail per check plus the flattened
// issue list.
type Report struct {
	Passed bool          `json:"passed"`
	Checks []CheckResult `json:"checks"`
	Issues []string      `json:"issues"`
}

// Checker holds the two documents under comparison. Inputs are treated as
// read-only.
type Checker struct {
	cfg  *model.ConfigDocument
	data *model.DataDocument
}

// NewChecker builds a checker over already-loaded documents.
func NewChecker(cfg *model.ConfigDocument, data *model.DataDocument) *Checker {
	return &Checker{cfg: cfg, data: data}
}

// Check runs all five checks.
func (c *Checker) Check() *Report {
	return c.run([]func() CheckResult{
		c.checkStructure,
		c.checkLocationCount,
		c.checkLocations,
		c.checkStatistics,
		c.checkMetadata,
	})
}

// Quick runs only the two cheap checks (location count, statistics).
func (c *Checker) Quick() *Report {
	return c.run([]func() CheckResult{
		c.checkLocationCount,
		c.checkStatistics,
	})
}

func (c *Checker) run(checks []func() CheckResult) *Report {
	rep := &Report{Passed: true, Issues: []string{}}
	for _, check := range checks {
		res := check()
		rep.Checks = append(rep.Checks, res)
		rep.Issues = append(rep.Issues, res.Issues...)
		if !res.Passed {
			rep.Passed = false
		}
	}
	return rep
}

// checkStructure validates the gross structure of both documents.
func (c *Checker) checkStructure() CheckResult {
	var issues []string
	for _, v := range validate.ConfigViolations(c.cfg) {
		issues = append(issues, "config: "+v)
	}
	for _, v := range validate.DataViolations(c.data) {
		issues = append(issues, "data: "+v)
	}
	return result(CheckStructure, issues)
}

// checkLocationCount verifies the data document tracks exactly the
// configured locations.
func (c *Checker) checkLocationCount() CheckResult {
	var issues []string
	if got, want := len(c.data.Locations), len(c.cfg.Locations); got != want {
		issues = append(issues,
			fmt.Sprintf("location count mismatch: data has %d, config declares %d", got, want))
	}
	return result(CheckLocationCount, issues)
}

// checkLocations compares every configured location against its data
// counterpart, joined by name. Capacity comparison is skipped for special
// locations, whose capacity is frozen at zero.
func (c *Checker) checkLocations() CheckResult {
	var issues []string

	idx, err := c.data.Index()
	if err != nil {
		// Duplicate names make a name-keyed join meaningless.
		return result(CheckLocations, []string{err.Error()})
	}

	for i := range c.cfg.Locations {
		lc := &c.cfg.Locations[i]
		ls, ok := idx[lc.Name]
		if !ok {
			issues = append(issues, fmt.Sprintf("location %q configured but absent from data", lc.Name))
			continue
		}

		if !lc.IsSpecial() && !ls.IsSpecial() {
			for _, v := range model.VehicleTypes() {
				vs := ls.Vehicle(v)
				if vs == nil {
					continue
				}
				if want := lc.Capacity.For(v); vs.Total != want {
					issues = append(issues, fmt.Sprintf(
						"location %q: %s capacity mismatch: data has %d, config declares %d",
						lc.Name, v, vs.Total, want))
				}
			}
		}

		if lc.Address != "" && ls.Alamat != lc.Address {
			issues = append(issues, fmt.Sprintf(
				"location %q: address mismatch: data %q, config %q", lc.Name, ls.Alamat, lc.Address))
		}
		if ls.Koordinat != lc.Coordinates {
			issues = append(issues, fmt.Sprintf(
				"location %q: coordinates mismatch: data %v, config %v",
				lc.Name, ls.Koordinat, lc.Coordinates))
		}
	}

	for i := range c.data.Locations {
		name := c.data.Locations[i].Nama
		if !configHasName(c.cfg, name) {
			issues = append(issues, fmt.Sprintf("location %q present in data but not configured", name))
		}
	}

	return result(CheckLocations, issues)
}

// checkStatistics compares the stored aggregate capacity against the
// config's declared total_capacity, and the declared total_capacity against
// its own locations.
func (c *Checker) checkStatistics() CheckResult {
	var issues []string

	s := c.data.Statistics
	declared := c.cfg.TotalCapacity
	for _, cmp := range []struct {
		vehicle  model.VehicleType
		stored   int
		declared int
	}{
		{model.VehicleBus, s.TotalBusCapacity, declared.Bus},
		{model.VehicleMobil, s.TotalMobilCapacity, declared.Mobil},
		{model.VehicleMotor, s.TotalMotorCapacity, declared.Motor},
	} {
		if cmp.stored != cmp.declared {
			issues = append(issues, fmt.Sprintf(
				"statistics: total_%s_capacity %d does not match config total_capacity.%s %d",
				cmp.vehicle, cmp.stored, cmp.vehicle, cmp.declared))
		}
	}

	// The declared block is itself derived; flag drift from its own
	// locations too.
	derived := c.cfg
	var sum model.TotalCapacity
	for i := range derived.Locations {
		sum.Bus += derived.Locations[i].Capacity.Bus
		sum.Mobil += derived.Locations[i].Capacity.Mobil
		sum.Motor += derived.Locations[i].Capacity.Motor
	}
	sum.Total = sum.Bus + sum.Mobil + sum.Motor
	if declared != sum {
		issues = append(issues, fmt.Sprintf(
			"config: declared total_capacity %+v does not match per-location sum %+v", declared, sum))
	}

	// Availability aggregates are checked against the live locations, the
	// same sums the fixer would recompute.
	totals := stats.Calculate(c.data.Locations)
	if !totals.Matches(s) {
		issues = append(issues, fmt.Sprintf(
			"statistics: stored aggregates diverge from per-location sums (stored avail bus/mobil/motor %d/%d/%d, computed %d/%d/%d)",
			s.TotalAvailableBus, s.TotalAvailableMobil, s.TotalAvailableMotor,
			totals.AvailableBus, totals.AvailableMobil, totals.AvailableMotor))
	}

	return result(CheckStatistics, issues)
}

// checkMetadata verifies metadata completeness and format.
func (c *Checker) checkMetadata() CheckResult {
	var issues []string

	md := c.data.Metadata
	if violations := validate.Struct(&md); len(violations) > 0 {
		issues = append(issues, violations...)
	}
	if md.LastUpdated == "" {
		issues = append(issues, "metadata.last_updated is empty")
	}
	if md.TotalLocations != len(c.data.Locations) {
		issues = append(issues, fmt.Sprintf(
			"metadata.total_locations %d does not match actual location count %d",
			md.TotalLocations, len(c.data.Locations)))
	}

	return result(CheckMetadata, issues)
}

func configHasName(cfg *model.ConfigDocument, name string) bool {
	for i := range cfg.Locations {
		if cfg.Locations[i].Name == name {
			return true
		}
	}
	return false
}

func result(name string, issues []string) CheckResult {
	return CheckResult{Name: name, Passed: len(issues) == 0, Issues: issues}
}

// Digest renders the human-readable text summary written next to the JSON
// report.
func (r *Report) Digest() string {
	var b strings.Builder
	b.WriteString("CONSISTENCY CHECK\n")
	for _, c := range r.Checks {
		mark := "PASS"
		if !c.Passed {
			mark = "FAIL"
		}
		fmt.Fprintf(&b, "%-6s %s\n", mark, c.Name)
	}
	if len(r.Issues) > 0 {
		b.WriteString("\nissues:\n")
		for _, issue := range r.Issues {
			fmt.Fprintf(&b, "  - %s\n", issue)
		}
	}
	return b.String()
}
