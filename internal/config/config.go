// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

// Package config holds the engine's runtime settings: where the documents
// live, backup retention, recovery endpoints, and the monitor server.
//
// This is NOT the domain "Configuration document" (the declarative location
// list); that one is data, loaded by internal/model. Settings here are
// loaded once per invocation via Koanf v2 with layered sources:
// defaults < YAML file < environment variables.
package config

import (
	"fmt"
	"time"
)

// Config is the root engine configuration.
type Config struct {
	Paths    PathsConfig    `koanf:"paths"`
	Backup   BackupConfig   `koanf:"backup"`
	Recovery RecoveryConfig `koanf:"recovery"`
	Monitor  MonitorConfig  `koanf:"monitor"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// PathsConfig locates the flat-file state on disk.
type PathsConfig struct {
	// ConfigFile is the declarative location configuration document.
	ConfigFile string `koanf:"config_file"`

	// DataFile is the live availability document.
	DataFile string `koanf:"data_file"`

	// PendingUpdatesFile is the queue written by the submission channel.
	PendingUpdatesFile string `koanf:"pending_updates_file"`

	// InvalidDir receives quarantined pending updates.
	InvalidDir string `koanf:"invalid_dir"`

	// BackupDir holds backup artifacts and the latest-backup pointer.
	BackupDir string `koanf:"backup_dir"`

	// ReportsDir receives per-routine JSON reports and text digests.
	ReportsDir string `koanf:"reports_dir"`

	// RecoveryLog is the append-only recovery transition log (JSON lines).
	RecoveryLog string `koanf:"recovery_log"`
}

// BackupConfig controls snapshot creation and retention.
type BackupConfig struct {
	// Prefix names backup artifacts: <prefix>-<timestamp>.json[.gz].
	Prefix string `koanf:"prefix"`

	// MaxCount is the number of most recent backup artifacts retained by
	// cleanup. Older artifacts are deleted.
	MaxCount int `koanf:"max_count"`

	// CompressionLevel is the gzip level (1-9).
	CompressionLevel int `koanf:"compression_level"`
}

// RecoveryConfig controls the remote-recovery rung of the ladder.
type RecoveryConfig struct {
	// RemoteURL is the raw URL of the last committed data document in the
	// upstream repository. Empty disables the remote rung.
	RemoteURL string `koanf:"remote_url"`

	// RemoteTimeout bounds one remote pull attempt.
	RemoteTimeout time.Duration `koanf:"remote_timeout"`

	// RetryAttempts is the number of pull attempts within one rung.
	RetryAttempts int `koanf:"retry_attempts"`

	// RetryInterval paces the pull attempts.
	RetryInterval time.Duration `koanf:"retry_interval"`
}

// MonitorConfig controls the optional long-running monitor server.
type MonitorConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// CheckInterval is how often the serve mode re-probes document health.
	CheckInterval time.Duration `koanf:"check_interval"`

	// RateLimitReqs / RateLimitWindow throttle the HTTP endpoints.
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	// CORSOrigins lists origins allowed to read the status endpoints
	// (the external dashboards).
	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig mirrors internal/logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// defaultConfig returns the built-in defaults, sized for the single-event
// deployment the engine was written for.
func defaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			ConfigFile:         "data/locations-config.json",
			DataFile:           "data/parking-data.json",
			PendingUpdatesFile: "data/pending-updates.json",
			InvalidDir:         "data/invalid",
			BackupDir:          "backups",
			ReportsDir:         "reports",
			RecoveryLog:        "reports/recovery-log.jsonl",
		},
		Backup: BackupConfig{
			Prefix:           "parking-data-backup",
			MaxCount:         10,
			CompressionLevel: 6,
		},
		Recovery: RecoveryConfig{
			RemoteURL:     "",
			RemoteTimeout: 15 * time.Second,
			RetryAttempts: 3,
			RetryInterval: 2 * time.Second,
		},
		Monitor: MonitorConfig{
			Host:            "127.0.0.1",
			Port:            8787,
			CheckInterval:   time.Minute,
			RateLimitReqs:   60,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Paths.ConfigFile == "" {
		return fmt.Errorf("paths.config_file must not be empty")
	}
	if c.Paths.DataFile == "" {
		return fmt.Errorf("paths.data_file must not be empty")
	}
	if c.Paths.BackupDir == "" {
		return fmt.Errorf("paths.backup_dir must not be empty")
	}
	if c.Paths.ReportsDir == "" {
		return fmt.Errorf("paths.reports_dir must not be empty")
	}
	if c.Backup.MaxCount < 1 {
		return fmt.Errorf("backup.max_count must be >= 1, got %d", c.Backup.MaxCount)
	}
	if c.Backup.CompressionLevel < 1 || c.Backup.CompressionLevel > 9 {
		return fmt.Errorf("backup.compression_level must be 1-9, got %d", c.Backup.CompressionLevel)
	}
	if c.Recovery.RemoteTimeout <= 0 {
		return fmt.Errorf("recovery.remote_timeout must be positive")
	}
	if c.Recovery.RetryAttempts < 1 {
		return fmt.Errorf("recovery.retry_attempts must be >= 1, got %d", c.Recovery.RetryAttempts)
	}
	if c.Monitor.Port < 1 || c.Monitor.Port > 65535 {
		return fmt.Errorf("monitor.port must be 1-65535, got %d", c.Monitor.Port)
	}
	if c.Monitor.RateLimitReqs < 1 {
		return fmt.Errorf("monitor.rate_limit_reqs must be >= 1, got %d", c.Monitor.RateLimitReqs)
	}
	return nil
}
