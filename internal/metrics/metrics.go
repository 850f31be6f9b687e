// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

// Package metrics exposes Prometheus instrumentation for the engine:
// routine outcomes, issue and fix volumes, backup sizes, recovery ladder
// attempts, and the remote circuit breaker state. Collectors are registered
// on the default registry via promauto and served by the monitor.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Routine Metrics
	RoutineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parkirops_routine_runs_total",
			Help: "Total routine executions by routine name and outcome",
		},
		[]string{"routine", "outcome"}, // outcome: "ok", "issues", "error"
	)

	RoutineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parkirops_routine_duration_seconds",
			Help:    "Routine execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"routine"},
	)

	IssuesFound = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parkirops_issues_found_total",
			Help: "Total consistency issues detected, by routine",
		},
		[]string{"routine"},
	)

	FixesApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parkirops_fixes_applied_total",
			Help: "Total corrections written back, by routine",
		},
		[]string{"routine"},
	)

	// Backup Metrics
	BackupsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parkirops_backups_created_total",
			Help: "Total backups created, by backup type",
		},
		[]string{"type"},
	)

	BackupRawBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "parkirops_backup_raw_bytes",
			Help: "Uncompressed size of the most recent backup in bytes",
		},
	)

	BackupCompressedBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "parkirops_backup_compressed_bytes",
			Help: "Compressed size of the most recent backup in bytes",
		},
	)

	BackupsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parkirops_backups_pruned_total",
			Help: "Total backups removed by retention cleanup",
		},
	)

	// Recovery Metrics
	RecoveryRungAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parkirops_recovery_rung_attempts_total",
			Help: "Recovery ladder rung attempts by rung and outcome",
		},
		[]string{"rung", "outcome"}, // outcome: "success", "failure"
	)

	RecoveryRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parkirops_recovery_runs_total",
			Help: "Full recovery ladder executions by final state",
		},
		[]string{"state"}, // "recovered", "failed"
	)

	// Circuit Breaker Metrics (remote pull)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "parkirops_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parkirops_circuit_breaker_requests_total",
			Help: "Circuit breaker request outcomes",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	// Monitor Metrics
	HealthCheckStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "parkirops_health_check_status",
			Help: "Last periodic health check result (1=healthy, 0=unhealthy)",
		},
	)

	PendingUpdatesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parkirops_pending_updates_processed_total",
			Help: "Pending field updates processed, by disposition",
		},
		[]string{"disposition"}, // "applied", "quarantined"
	)
)

// RecordRoutine records one routine execution with its outcome and duration.
func RecordRoutine(routine string, duration time.Duration, issues, fixes int, err error) {
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case issues > 0:
		outcome = "issues"
	}
	RoutineRuns.WithLabelValues(routine, outcome).Inc()
	RoutineDuration.WithLabelValues(routine).Observe(duration.Seconds())
	if issues > 0 {
		IssuesFound.WithLabelValues(routine).Add(float64(issues))
	}
	if fixes > 0 {
		FixesApplied.WithLabelValues(routine).Add(float64(fixes))
	}
}

// RecordBackup records a completed backup and its sizes.
func RecordBackup(backupType string, rawBytes, compressedBytes int64) {
	BackupsCreated.WithLabelValues(backupType).Inc()
	BackupRawBytes.Set(float64(rawBytes))
	BackupCompressedBytes.Set(float64(compressedBytes))
}

// RecordRecoveryRung records one ladder rung attempt.
func RecordRecoveryRung(rung string, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	RecoveryRungAttempts.WithLabelValues(rung, outcome).Inc()
}
