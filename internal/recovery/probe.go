// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

// Package recovery restores a usable data document when the live one is
// missing or corrupt. It runs a strictly ordered ladder of increasingly
// destructive strategies, each attempted at most once, stopping at the
// first success: backup restore, remote pull, capacity reset, synthetic
// emergency data. The ladder is an explicit state machine and every
// transition is appended to a JSON-lines recovery log.
package recovery

import (
	"os"

	json "github.com/goccy/go-json"

	"github.com/parkir-ops/parkir-ops/internal/model"
)

// Probe severities.
const (
	SeverityOK       = "ok"
	SeverityCritical = "critical"
)

// ProbeResult is the outcome of the data-file health probe.
type ProbeResult struct {
	Path          string   `json:"path"`
	Exists        bool     `json:"exists"`
	Size          int64    `json:"size"`
	Parses        bool     `json:"parses"`
	LocationCount int      `json:"location_count"`
	Severity      string   `json:"severity"`
	Problems      []string `json:"problems,omitempty"`
}

// Healthy reports whether the probed file is usable as-is.
func (p ProbeResult) Healthy() bool {
	return p.Severity == SeverityOK
}

// Probe checks the data file at path: it must exist, be non-empty, parse
// as JSON, and contain a non-empty locations array. Any failure is
// critical; the probe never mutates the file.
func Probe(path string) ProbeResult {
	res := ProbeResult{Path: path, Severity: SeverityCritical}

	st, err := os.Stat(path)
	if err != nil {
		res.Problems = append(res.Problems, "file does not exist")
		return res
	}
	res.Exists = true
	res.Size = st.Size()
	if st.Size() == 0 {
		res.Problems = append(res.Problems, "file is empty")
		return res
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		res.Problems = append(res.Problems, "file unreadable: "+err.Error())
		return res
	}

	var doc model.DataDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		res.Problems = append(res.Problems, "not parseable as a data document: "+err.Error())
		return res
	}
	res.Parses = true
	res.LocationCount = len(doc.Locations)
	if len(doc.Locations) == 0 {
		res.Problems = append(res.Problems, "locations array is missing or empty")
		return res
	}

	res.Severity = SeverityOK
	return res
}
