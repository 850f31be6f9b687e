// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/parkir-ops/parkir-ops/internal/backup"
	"github.com/parkir-ops/parkir-ops/internal/logging"
	"github.com/parkir-ops/parkir-ops/internal/metrics"
	"github.com/parkir-ops/parkir-ops/internal/model"
	"github.com/parkir-ops/parkir-ops/internal/monitor"
	"github.com/parkir-ops/parkir-ops/internal/recovery"
	"github.com/parkir-ops/parkir-ops/internal/report"
)

func runBackupCreate(_ *cobra.Command, _ []string) error {
	mgr, err := newBackupManager()
	if err != nil {
		return err
	}
	info, err := mgr.Create(engineCfg.Paths.DataFile, backupType, backupReason)
	if err != nil {
		return err
	}
	metrics.RecordBackup(info.Type, info.RawSize, info.CompressedSize)
	logging.Info().
		Str("file", info.BackupFile).
		Str("type", info.Type).
		Int64("raw_bytes", info.RawSize).
		Int64("compressed_bytes", info.CompressedSize).
		Msg("backup created")
	return nil
}

func runBackupCleanup(_ *cobra.Command, _ []string) error {
	mgr, err := newBackupManager()
	if err != nil {
		return err
	}
	removed, err := mgr.CleanupOld()
	if err != nil {
		return err
	}
	metrics.BackupsPruned.Add(float64(removed))
	logging.Info().Int("removed", removed).Msg("backup retention pass complete")
	return nil
}

func runBackupVerify(_ *cobra.Command, args []string) error {
	mgr, err := newBackupManager()
	if err != nil {
		return err
	}

	var results []backup.VerifyResult
	if len(args) == 1 {
		results = append(results, mgr.Verify(args[0]))
	} else {
		results, err = mgr.VerifyAll()
		if err != nil {
			return err
		}
	}

	invalid := 0
	for _, r := range results {
		if r.Valid {
			logging.Info().Str("file", r.File).Int64("size", r.Size).Msg("backup valid")
		} else {
			invalid++
			logging.Error().Str("file", r.File).Str("reason", r.Reason).Msg("backup invalid")
		}
	}
	if invalid > 0 {
		return errUnresolved
	}
	return nil
}

func runRestore(_ *cobra.Command, args []string) error {
	// Refuse to clobber a healthy document unless forced; the pre-restore
	// snapshot still guards the forced path.
	if !restoreForce {
		if probe := recovery.Probe(engineCfg.Paths.DataFile); probe.Healthy() {
			return fmt.Errorf("data document is healthy (%d locations), pass --force to restore anyway",
				probe.LocationCount)
		}
	}

	mgr, err := newBackupManager()
	if err != nil {
		return err
	}
	res, err := mgr.Restore(args[0], engineCfg.Paths.DataFile)
	if err != nil {
		return err
	}
	logging.Info().
		Str("restored_from", res.RestoredFrom).
		Int("locations", res.LocationCount).
		Str("pre_restore", res.PreRestoreFile).
		Msg("data document restored")
	return nil
}

func runRecover(_ *cobra.Command, _ []string) error {
	if recoverReset {
		return runCapacityReset()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if !recoverEmergency {
		if probe := recovery.Probe(engineCfg.Paths.DataFile); probe.Healthy() {
			logging.Info().Int("locations", probe.LocationCount).Msg("data document healthy, nothing to recover")
			return nil
		}
	}

	mgr, err := newBackupManager()
	if err != nil {
		return err
	}
	puller := recovery.NewRemotePuller(recovery.RemoteConfig{
		URL:      engineCfg.Recovery.RemoteURL,
		Timeout:  engineCfg.Recovery.RemoteTimeout,
		Attempts: engineCfg.Recovery.RetryAttempts,
		Interval: engineCfg.Recovery.RetryInterval,
	})
	ladder := recovery.NewLadder(
		engineCfg.Paths.DataFile,
		engineCfg.Paths.ConfigFile,
		mgr,
		puller,
		recovery.NewLog(engineCfg.Paths.RecoveryLog),
	)

	started := time.Now()
	outcome, err := ladder.Run(ctx)
	env := report.New("recovery", started)
	if outcome != nil {
		env.Details = outcome
		env.Summary = fmt.Sprintf("final state %s after %d rung(s)", outcome.FinalState, len(outcome.Rungs))
		for _, r := range outcome.Rungs {
			if !r.Success {
				env.Issues = append(env.Issues, fmt.Sprintf("%s: %s", r.Rung, r.Detail))
			}
		}
	}
	recovered := outcome != nil && outcome.Recovered()
	env.Finish(recovered, time.Now())
	metrics.RecordRoutine("recovery", time.Since(started), len(env.Issues), 0, err)
	if _, werr := reporter().Write(env); werr != nil {
		return werr
	}
	if err != nil {
		return err
	}
	if !recovered {
		return errUnresolved
	}
	logging.Info().Str("state", string(outcome.FinalState)).Msg("recovery complete")
	return nil
}

// runCapacityReset is recover --reset: every pool of a healthy document
// back to full availability, with a snapshot first.
func runCapacityReset() error {
	started := time.Now()

	data, warnings, err := model.LoadDataDocument(engineCfg.Paths.DataFile)
	if err != nil {
		return fmt.Errorf("capacity reset needs a readable data document: %w", err)
	}
	for _, w := range warnings {
		logging.Warn().Str("warning", w).Msg("data document normalized on load")
	}

	mgr, err := newBackupManager()
	if err != nil {
		return err
	}
	if _, err := mgr.Create(engineCfg.Paths.DataFile, backup.TypeEmergency, "snapshot before capacity reset"); err != nil {
		return fmt.Errorf("pre-reset backup: %w", err)
	}

	changed := recovery.ResetCapacity(data, time.Now())
	if err := model.WriteDocument(engineCfg.Paths.DataFile, data); err != nil {
		return err
	}

	env := report.New("recovery", started)
	env.Summary = fmt.Sprintf("capacity reset, %d pool(s) changed", changed)
	env.Finish(true, time.Now())
	metrics.RecordRoutine("recovery", time.Since(started), 0, changed, nil)
	if _, err := reporter().Write(env); err != nil {
		return err
	}
	logging.Info().Int("pools_changed", changed).Msg("capacity reset complete")
	return nil
}

func runMonitor(_ *cobra.Command, _ []string) error {
	if monitorServe {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		srv := monitor.NewServer(engineCfg.Monitor, engineCfg.Paths.ConfigFile, engineCfg.Paths.DataFile)
		return srv.Run(ctx)
	}

	started := time.Now()
	hr := monitor.Check(engineCfg.Paths.ConfigFile, engineCfg.Paths.DataFile)

	env := report.New("monitor", started)
	env.Issues = hr.Problems
	env.Details = hr
	env.Summary = fmt.Sprintf("healthy=%t problems=%d", hr.Healthy, len(hr.Problems))
	env.Finish(hr.Healthy, time.Now())
	metrics.RecordRoutine("monitor", time.Since(started), len(hr.Problems), 0, nil)
	if _, err := reporter().Write(env); err != nil {
		return err
	}
	if !hr.Healthy {
		logging.Error().Int("problems", len(hr.Problems)).Msg("health check failed")
		return errUnresolved
	}
	logging.Info().Msg("health check passed")
	return nil
}
