// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

package recovery

import (
	"time"

	"github.com/parkir-ops/parkir-ops/internal/model"
	"github.com/parkir-ops/parkir-ops/internal/stats"
)

// statsRecalculatedBy stamps statistics written by the recovery ladder.
const statsRecalculatedBy = "emergency-recovery"

// ResetCapacity sets every vehicle pool back to full availability
// (available = total), re-derives statuses, and recomputes the statistics
// cache. Special locations keep their frozen zero capacity but are reset
// like everything else, which is a no-op for them. The document is
// modified in place; callers own persistence.
func ResetCapacity(doc *model.DataDocument, now time.Time) int {
	reset := 0
	for i := range doc.Locations {
		loc := &doc.Locations[i]
		for _, vt := range model.VehicleTypes() {
			vs := loc.Vehicle(vt)
			if vs == nil {
				continue
			}
			if vs.Available != vs.Total {
				reset++
			}
			vs.Available = vs.Total
			vs.Status = model.DeriveStatus(vs.Available, vs.Total)
			vs.LastUpdate = model.Timestamp(now)
			vs.UpdatedBy = statsRecalculatedBy
		}
	}
	stats.Calculate(doc.Locations).Apply(&doc.Statistics, statsRecalculatedBy, now)
	doc.Metadata.LastUpdated = model.Timestamp(now)
	doc.Metadata.TotalLocations = len(doc.Locations)
	return reset
}
