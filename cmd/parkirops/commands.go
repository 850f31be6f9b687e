// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

package main

import (
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "parkirops",
		Short: "Parking availability data-consistency engine",
		Long: `parkirops keeps the flat-file parking availability state consistent:
it validates, reconciles, repairs, backs up, and recovers the data and
configuration documents the dashboards and CI pipeline depend on.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Structurally validate the configuration and data documents",
		RunE:  runValidate,
	}

	quickCheck bool
	checkCmd   = &cobra.Command{
		Use:   "check",
		Short: "Run the cross-document consistency checks",
		RunE:  runCheck,
	}

	fixDryRun bool
	fixStrict bool
	fixCmd    = &cobra.Command{
		Use:   "fix",
		Short: "Repair statistics and capacity violations in the data document",
		RunE:  runFix,
	}

	syncToData   bool
	syncToConfig bool
	syncValidate bool
	syncCmd      = &cobra.Command{
		Use:   "sync",
		Short: "Synchronize the configuration and data documents",
		Long: `Without flags both directional passes run (config-to-data then
data-to-config). --to-data or --to-config runs a single pass;
--validate audits without writing anything.`,
		RunE: runSync,
	}

	updatesCmd = &cobra.Command{
		Use:   "updates",
		Short: "Process the pending field-update queue",
		RunE:  runUpdates,
	}

	backupCmd = &cobra.Command{
		Use:   "backup",
		Short: "Manage data document backups",
	}
	backupReason    string
	backupType      string
	backupCreateCmd = &cobra.Command{
		Use:   "create",
		Short: "Snapshot the current data document",
		RunE:  runBackupCreate,
	}
	backupCleanupCmd = &cobra.Command{
		Use:   "cleanup",
		Short: "Prune backups beyond the retention limit",
		RunE:  runBackupCleanup,
	}
	backupVerifyCmd = &cobra.Command{
		Use:   "verify [file]",
		Short: "Verify one backup, or all backups when no file is given",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runBackupVerify,
	}

	restoreForce bool
	restoreCmd   = &cobra.Command{
		Use:   "restore <file|latest>",
		Short: "Restore the data document from a backup",
		Args:  cobra.ExactArgs(1),
		RunE:  runRestore,
	}

	recoverEmergency bool
	recoverReset     bool
	recoverCmd       = &cobra.Command{
		Use:   "recover",
		Short: "Probe data health and run the recovery ladder when needed",
		Long: `Probes the data document and, when it is missing or corrupt, walks
the recovery ladder: backup restore, remote pull, capacity reset,
synthetic emergency data. --reset instead resets every pool of a
healthy document to full capacity. --emergency runs the ladder even
when the probe passes.`,
		RunE: runRecover,
	}

	monitorServe bool
	monitorCmd   = &cobra.Command{
		Use:   "monitor",
		Short: "One-shot health check, or --serve for the monitoring server",
		RunE:  runMonitor,
	}
)

func init() {
	checkCmd.Flags().BoolVar(&quickCheck, "quick", false, "run only the cheap checks (location count, statistics)")

	fixCmd.Flags().BoolVar(&fixDryRun, "dry-run", false, "report what would change without writing")
	fixCmd.Flags().BoolVar(&fixStrict, "strict", false, "never touch declared totals, only repair ordering violations")

	syncCmd.Flags().BoolVar(&syncToData, "to-data", false, "run only the config-to-data pass")
	syncCmd.Flags().BoolVar(&syncToConfig, "to-config", false, "run only the data-to-config pass")
	syncCmd.Flags().BoolVar(&syncValidate, "validate", false, "audit sync state without writing")
	syncCmd.MarkFlagsMutuallyExclusive("to-data", "to-config", "validate")

	backupCreateCmd.Flags().StringVar(&backupType, "type", "manual", "backup type label")
	backupCreateCmd.Flags().StringVar(&backupReason, "reason", "", "free-form reason recorded with the backup")
	backupCmd.AddCommand(backupCreateCmd, backupCleanupCmd, backupVerifyCmd)

	restoreCmd.Flags().BoolVar(&restoreForce, "force", false, "overwrite a healthy data document")

	recoverCmd.Flags().BoolVar(&recoverEmergency, "emergency", false, "run the ladder even when the probe passes")
	recoverCmd.Flags().BoolVar(&recoverReset, "reset", false, "reset all pools to full capacity instead of running the ladder")
	recoverCmd.MarkFlagsMutuallyExclusive("emergency", "reset")

	monitorCmd.Flags().BoolVar(&monitorServe, "serve", false, "run the long-lived monitoring server")

	rootCmd.AddCommand(
		validateCmd,
		checkCmd,
		fixCmd,
		syncCmd,
		updatesCmd,
		backupCmd,
		restoreCmd,
		recoverCmd,
		monitorCmd,
	)
}
