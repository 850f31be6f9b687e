// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

// Command parkirops is the consistency engine's CLI. Each subcommand maps
// to one core routine; the scheduler and the CI pipeline invoke them one
// at a time. Exit code 0 means full success, 1 means unresolved failures.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/parkir-ops/parkir-ops/internal/config"
	"github.com/parkir-ops/parkir-ops/internal/logging"
)

// errUnresolved signals that a routine ran to completion but left problems
// behind. It maps to exit code 1 without an extra error dump; the report
// already holds the details.
var errUnresolved = errors.New("unresolved failures, see report")

var engineCfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errUnresolved) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		engineCfg = cfg
		logging.Init(logging.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
		})
		return nil
	}
}
