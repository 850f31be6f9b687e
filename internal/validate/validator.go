// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

// Package validate implements the structural validator for the engine's
// documents.
//
// The contract is batch reporting: a structural check accumulates every
// violation it finds and returns them all at once, never just the first.
// Missing nested vehicle blocks are NOT violations: tolerant parsing
// materializes them as zeroed defaults and reports a warning instead
// (that repair lives in model.DataDocument.Normalize).
//
// Struct-level rules (required fields, numeric ranges, coordinate bounds)
// run through a go-playground/validator singleton with custom validators;
// shape-of-JSON rules (locations must be an array, statistics must be an
// object) run on the raw bytes before typed unmarshaling.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/parkir-ops/parkir-ops/internal/model"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// semverPattern matches the semantic version format required in
// metadata.version.
var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// getValidator returns the singleton validator with custom rules
// registered. The singleton caches struct metadata, so construction cost is
// paid once.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// semver: `\d+\.\d+\.\d+`
		_ = validate.RegisterValidation("semver", func(fl validator.FieldLevel) bool {
			return semverPattern.MatchString(fl.Field().String())
		})

		// vehicle_status: one of the four pool states (empty string allowed,
		// status is derived on write)
		_ = validate.RegisterValidation("vehicle_status", func(fl validator.FieldLevel) bool {
			switch model.VehicleStatus(fl.Field().String()) {
			case "", model.StatusEmpty, model.StatusAvailable, model.StatusFull, model.StatusNotAvailable:
				return true
			}
			return false
		})
	})
	return validate
}

// Struct validates a single struct with the singleton validator, returning
// one readable violation string per failed field.
func Struct(v any) []string {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}

	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, describeFieldError(fe))
	}
	return out
}

// describeFieldError renders one field error in the report vocabulary.
func describeFieldError(fe validator.FieldError) string {
	// Strip the root struct name: "DataDocument.Metadata.Version" reads
	// better as "metadata.version" in a report consumed by operators.
	path := fe.Namespace()
	if i := strings.Index(path, "."); i >= 0 {
		path = path[i+1:]
	}
	path = strings.ToLower(path)

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s: required field is missing or empty", path)
	case "semver":
		return fmt.Sprintf("%s: %q does not match the required version format d.d.d", path, fe.Value())
	case "vehicle_status":
		return fmt.Sprintf("%s: %q is not a valid vehicle status", path, fe.Value())
	case "gte":
		return fmt.Sprintf("%s: value %v is below the minimum %s", path, fe.Value(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s: value %v is above the maximum %s", path, fe.Value(), fe.Param())
	default:
		return fmt.Sprintf("%s: failed %s validation", path, fe.Tag())
	}
}
