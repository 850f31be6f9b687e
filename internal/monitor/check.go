// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

// Package monitor watches document health. It offers a one-shot check for
// CI invocations and a long-running serve mode exposing health, status and
// metrics endpoints for the dashboards.
package monitor

import (
	"time"

	"github.com/parkir-ops/parkir-ops/internal/consistency"
	"github.com/parkir-ops/parkir-ops/internal/logging"
	"github.com/parkir-ops/parkir-ops/internal/metrics"
	"github.com/parkir-ops/parkir-ops/internal/model"
	"github.com/parkir-ops/parkir-ops/internal/recovery"
)

// HealthReport is the combined outcome of one health check.
type HealthReport struct {
	CheckedAt   string               `json:"checked_at"`
	Healthy     bool                 `json:"healthy"`
	Probe       recovery.ProbeResult `json:"probe"`
	Consistency *consistency.Report  `json:"consistency,omitempty"`
	Problems    []string             `json:"problems,omitempty"`
}

// Check probes the data file and, when it is readable, runs the quick
// consistency checks against the configuration. Structural failure of the
// data file makes the overall check unhealthy without attempting the
// consistency pass.
func Check(configPath, dataPath string) *HealthReport {
	rep := &HealthReport{
		CheckedAt: model.Timestamp(time.Now()),
		Probe:     recovery.Probe(dataPath),
	}
	if !rep.Probe.Healthy() {
		rep.Problems = append(rep.Problems, rep.Probe.Problems...)
		setHealthGauge(false)
		return rep
	}

	cfg, err := model.LoadConfigDocument(configPath)
	if err != nil {
		rep.Problems = append(rep.Problems, "configuration unreadable: "+err.Error())
		setHealthGauge(false)
		return rep
	}
	data, warnings, err := model.LoadDataDocument(dataPath)
	if err != nil {
		rep.Problems = append(rep.Problems, "data document unreadable: "+err.Error())
		setHealthGauge(false)
		return rep
	}
	for _, w := range warnings {
		logging.Warn().Str("warning", w).Msg("data document normalized during health check")
	}

	rep.Consistency = consistency.NewChecker(cfg, data).Quick()
	rep.Problems = append(rep.Problems, rep.Consistency.Issues...)
	rep.Healthy = rep.Consistency.Passed
	setHealthGauge(rep.Healthy)
	return rep
}

func setHealthGauge(healthy bool) {
	if healthy {
		metrics.HealthCheckStatus.Set(1)
	} else {
		metrics.HealthCheckStatus.Set(0)
	}
}
