// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

package validate

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/parkir-ops/parkir-ops/internal/model"
)

// StructureError reports that a document fails its required-shape checks.
// It carries every violation found, not just the first, and is fatal for
// the operation that raised it.
type StructureError struct {
	Document   string
	Violations []string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("%s document structure invalid (%d violations): %s",
		e.Document, len(e.Violations), strings.Join(e.Violations, "; "))
}

// DataResult is the outcome of a structural check of the data document.
type DataResult struct {
	Doc *model.DataDocument

	// Warnings are the tolerated repairs (materialized vehicle blocks).
	Warnings []string
}

// CheckData structurally validates raw data-document bytes.
//
// Hard failures (StructureError): unparseable JSON, `locations` absent or
// not an ordered sequence, `statistics` absent or not a mapping, `metadata`
// absent, per-location identity fields missing, numeric ranges broken,
// duplicate location names. Missing vehicle blocks are repaired and
// returned as warnings.
func CheckData(raw []byte) (*DataResult, error) {
	var violations []string

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, &StructureError{Document: "data", Violations: []string{
			fmt.Sprintf("not a JSON object: %v", err),
		}}
	}

	violations = append(violations, checkShape(top, "locations", jsonArray)...)
	violations = append(violations, checkShape(top, "statistics", jsonObject)...)
	violations = append(violations, checkShape(top, "metadata", jsonObject)...)
	if len(violations) > 0 {
		// The typed unmarshal below would mask the shape problems with
		// zero values, so stop at the shape layer.
		return nil, &StructureError{Document: "data", Violations: violations}
	}

	var doc model.DataDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &StructureError{Document: "data", Violations: []string{
			fmt.Sprintf("field types invalid: %v", err),
		}}
	}

	warnings := doc.Normalize()
	violations = append(violations, DataViolations(&doc)...)

	if len(violations) > 0 {
		return nil, &StructureError{Document: "data", Violations: violations}
	}
	return &DataResult{Doc: &doc, Warnings: warnings}, nil
}

// DataViolations collects structural violations of an already-loaded data
// document: struct-tag failures, duplicate names, broken vehicle ranges.
func DataViolations(doc *model.DataDocument) []string {
	var out []string
	out = append(out, Struct(doc)...)
	if _, err := doc.Index(); err != nil {
		out = append(out, err.Error())
	}
	for i := range doc.Locations {
		out = append(out, vehicleRangeViolations(&doc.Locations[i])...)
	}
	return out
}

// ConfigViolations collects structural violations of an already-loaded
// configuration document.
func ConfigViolations(doc *model.ConfigDocument) []string {
	var out []string
	out = append(out, Struct(doc)...)
	if _, err := doc.Index(); err != nil {
		out = append(out, err.Error())
	}
	return out
}

// CheckConfig structurally validates raw configuration-document bytes.
func CheckConfig(raw []byte) (*model.ConfigDocument, error) {
	var violations []string

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, &StructureError{Document: "config", Violations: []string{
			fmt.Sprintf("not a JSON object: %v", err),
		}}
	}

	violations = append(violations, checkShape(top, "locations", jsonArray)...)
	violations = append(violations, checkShape(top, "version", jsonAny)...)
	if len(violations) > 0 {
		return nil, &StructureError{Document: "config", Violations: violations}
	}

	var doc model.ConfigDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &StructureError{Document: "config", Violations: []string{
			fmt.Sprintf("field types invalid: %v", err),
		}}
	}

	violations = append(violations, ConfigViolations(&doc)...)

	if len(violations) > 0 {
		return nil, &StructureError{Document: "config", Violations: violations}
	}
	return &doc, nil
}

// vehicleRangeViolations checks one location: counts non-negative
// and available not above total. These surface as violations at validation
// time; the fixer is the component that repairs them.
func vehicleRangeViolations(loc *model.LocationState) []string {
	var out []string
	for _, v := range model.VehicleTypes() {
		vs := loc.Vehicle(v)
		if vs == nil {
			continue
		}
		if vs.Total < 0 {
			out = append(out, fmt.Sprintf("location %q: %s.total is negative (%d)", loc.Nama, v, vs.Total))
		}
		if vs.Available < 0 {
			out = append(out, fmt.Sprintf("location %q: %s.available is negative (%d)", loc.Nama, v, vs.Available))
		}
		if vs.Available > vs.Total {
			out = append(out, fmt.Sprintf("location %q: %s.available %d exceeds total %d",
				loc.Nama, v, vs.Available, vs.Total))
		}
	}
	return out
}

// JSON shape kinds for top-level field checks.
const (
	jsonArray  = "array"
	jsonObject = "object"
	jsonAny    = "any"
)

// checkShape verifies a top-level field is present and has the expected
// JSON kind.
func checkShape(top map[string]json.RawMessage, field, kind string) []string {
	raw, ok := top[field]
	if !ok {
		return []string{fmt.Sprintf("missing required field %q", field)}
	}

	trimmed := strings.TrimLeft(string(raw), " \t\r\n")
	if trimmed == "" || trimmed == "null" {
		return []string{fmt.Sprintf("required field %q is null", field)}
	}

	switch kind {
	case jsonArray:
		if trimmed[0] != '[' {
			return []string{fmt.Sprintf("field %q must be an ordered sequence", field)}
		}
	case jsonObject:
		if trimmed[0] != '{' {
			return []string{fmt.Sprintf("field %q must be a mapping", field)}
		}
	}
	return nil
}
