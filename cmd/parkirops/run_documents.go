// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/parkir-ops/parkir-ops/internal/backup"
	"github.com/parkir-ops/parkir-ops/internal/consistency"
	"github.com/parkir-ops/parkir-ops/internal/fixer"
	"github.com/parkir-ops/parkir-ops/internal/logging"
	"github.com/parkir-ops/parkir-ops/internal/metrics"
	"github.com/parkir-ops/parkir-ops/internal/model"
	"github.com/parkir-ops/parkir-ops/internal/report"
	"github.com/parkir-ops/parkir-ops/internal/syncer"
	"github.com/parkir-ops/parkir-ops/internal/updates"
	"github.com/parkir-ops/parkir-ops/internal/validate"
)

func reporter() *report.Writer {
	return report.NewWriter(engineCfg.Paths.ReportsDir)
}

func newBackupManager() (*backup.Manager, error) {
	return backup.NewManager(backup.Config{
		Dir:              engineCfg.Paths.BackupDir,
		Prefix:           engineCfg.Backup.Prefix,
		MaxCount:         engineCfg.Backup.MaxCount,
		CompressionLevel: engineCfg.Backup.CompressionLevel,
	})
}

// loadDocuments loads both documents for the routines that need the pair.
func loadDocuments() (*model.ConfigDocument, *model.DataDocument, error) {
	cfg, err := model.LoadConfigDocument(engineCfg.Paths.ConfigFile)
	if err != nil {
		return nil, nil, err
	}
	data, warnings, err := model.LoadDataDocument(engineCfg.Paths.DataFile)
	if err != nil {
		return nil, nil, err
	}
	for _, w := range warnings {
		logging.Warn().Str("warning", w).Msg("data document normalized on load")
	}
	return cfg, data, nil
}

// runValidate structurally validates both documents. All violations from
// both documents are reported together.
func runValidate(_ *cobra.Command, _ []string) error {
	started := time.Now()
	env := report.New("validator", started)

	for _, doc := range []struct {
		name string
		path string
	}{
		{"config", engineCfg.Paths.ConfigFile},
		{"data", engineCfg.Paths.DataFile},
	} {
		raw, err := os.ReadFile(doc.path)
		if err != nil {
			env.Issues = append(env.Issues, fmt.Sprintf("%s: %v", doc.name, err))
			continue
		}
		switch doc.name {
		case "config":
			_, err = validate.CheckConfig(raw)
		case "data":
			var res *validate.DataResult
			res, err = validate.CheckData(raw)
			if err == nil {
				for _, w := range res.Warnings {
					logging.Warn().Str("warning", w).Msg("tolerated structural repair")
				}
			}
		}
		var structErr *validate.StructureError
		if errors.As(err, &structErr) {
			for _, v := range structErr.Violations {
				env.Issues = append(env.Issues, doc.name+": "+v)
			}
		} else if err != nil {
			env.Issues = append(env.Issues, fmt.Sprintf("%s: %v", doc.name, err))
		}
	}

	ok := len(env.Issues) == 0
	env.Finish(ok, time.Now())
	env.Summary = fmt.Sprintf("%d structural violations", len(env.Issues))
	metrics.RecordRoutine("validator", time.Since(started), len(env.Issues), 0, nil)
	if _, err := reporter().Write(env); err != nil {
		return err
	}
	if !ok {
		logging.Error().Int("violations", len(env.Issues)).Msg("structural validation failed")
		return errUnresolved
	}
	logging.Info().Msg("both documents structurally valid")
	return nil
}

// runCheck runs the consistency checker, full or quick.
func runCheck(_ *cobra.Command, _ []string) error {
	started := time.Now()
	cfg, data, err := loadDocuments()
	if err != nil {
		return err
	}

	checker := consistency.NewChecker(cfg, data)
	var rep *consistency.Report
	if quickCheck {
		rep = checker.Quick()
	} else {
		rep = checker.Check()
	}

	env := report.New("consistency", started)
	env.Issues = rep.Issues
	env.Details = rep
	env.Summary = fmt.Sprintf("%d/%d checks passed", passedCount(rep), len(rep.Checks))
	env.Finish(rep.Passed, time.Now())
	metrics.RecordRoutine("consistency", time.Since(started), len(rep.Issues), 0, nil)

	w := reporter()
	if _, err := w.Write(env); err != nil {
		return err
	}
	if _, err := w.WriteDigest(env, rep.Digest()); err != nil {
		return err
	}
	if !rep.Passed {
		logging.Error().Int("issues", len(rep.Issues)).Msg("consistency check failed")
		return errUnresolved
	}
	logging.Info().Int("checks", len(rep.Checks)).Msg("consistency check passed")
	return nil
}

func passedCount(rep *consistency.Report) int {
	n := 0
	for _, c := range rep.Checks {
		if c.Passed {
			n++
		}
	}
	return n
}

// runFix repairs the data document. A snapshot is taken before any write;
// dry-run reports without writing.
func runFix(_ *cobra.Command, _ []string) error {
	started := time.Now()

	data, warnings, err := model.LoadDataDocument(engineCfg.Paths.DataFile)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		logging.Warn().Str("warning", w).Msg("data document normalized on load")
	}

	// The fixer runs without a configuration document when it is
	// unreadable; only ordering violations get repaired then.
	cfg, err := model.LoadConfigDocument(engineCfg.Paths.ConfigFile)
	if err != nil {
		logging.Warn().Err(err).Msg("configuration unavailable, capacity reconciliation skipped")
		cfg = nil
	}

	res, fixed, err := fixer.New(cfg, fixer.Options{Strict: fixStrict}).Run(data, time.Now())
	if err != nil {
		return err
	}

	if !fixDryRun && res.Changed {
		mgr, err := newBackupManager()
		if err != nil {
			return err
		}
		if _, err := mgr.Create(engineCfg.Paths.DataFile, backup.TypePreFix, "automatic snapshot before fixer write"); err != nil {
			return fmt.Errorf("pre-fix backup: %w", err)
		}
		if err := model.WriteDocument(engineCfg.Paths.DataFile, fixed); err != nil {
			return err
		}
	}

	env := report.New("fixer", started)
	env.Issues = res.Issues
	for _, f := range res.Fixes {
		env.Fixes = append(env.Fixes, f.String())
	}
	env.Details = res
	mode := "fix"
	if fixDryRun {
		mode = "dry-run"
	}
	env.Summary = fmt.Sprintf("mode=%s issues=%d fixes=%d", mode, res.IssuesFound, res.FixesApplied)
	env.Finish(true, time.Now())
	metrics.RecordRoutine("fixer", time.Since(started), res.IssuesFound, res.FixesApplied, nil)

	w := reporter()
	if _, err := w.Write(env); err != nil {
		return err
	}
	if _, err := w.WriteDigest(env, res.Digest()); err != nil {
		return err
	}
	logging.Info().
		Str("mode", mode).
		Int("issues", res.IssuesFound).
		Int("fixes", res.FixesApplied).
		Msg("fixer run complete")
	// A dry run that found repairs leaves the problems on disk.
	if fixDryRun && res.Changed {
		return errUnresolved
	}
	return nil
}

// runSync runs the requested sync pass(es).
func runSync(_ *cobra.Command, _ []string) error {
	started := time.Now()
	cfg, data, err := loadDocuments()
	if err != nil {
		return err
	}

	env := report.New("sync", started)
	w := reporter()
	now := time.Now()

	switch {
	case syncValidate:
		rep := syncer.Validate(cfg, data)
		env.Issues = rep.Issues
		env.Details = rep
		env.Summary = fmt.Sprintf("audit: %d issues", len(rep.Issues))
		env.Finish(rep.Passed, time.Now())
		metrics.RecordRoutine("sync", time.Since(started), len(rep.Issues), 0, nil)
		if _, err := w.Write(env); err != nil {
			return err
		}
		if !rep.Passed {
			return errUnresolved
		}
		return nil

	case syncToData:
		res, newData, err := syncer.ConfigToData(cfg, data, now)
		if err != nil {
			return err
		}
		if err := model.WriteDocument(engineCfg.Paths.DataFile, newData); err != nil {
			return err
		}
		return finishSync(env, w, started, res.Errors, len(res.Changes), res)

	case syncToConfig:
		res, newCfg, err := syncer.DataToConfig(cfg, data)
		if err != nil {
			return err
		}
		if err := model.WriteDocument(engineCfg.Paths.ConfigFile, newCfg); err != nil {
			return err
		}
		return finishSync(env, w, started, res.Errors, len(res.Changes), res)

	default:
		res, newData, newCfg, syncErr := syncer.All(cfg, data, now)
		if res == nil {
			return syncErr
		}
		if err := model.WriteDocument(engineCfg.Paths.DataFile, newData); err != nil {
			return err
		}
		if err := model.WriteDocument(engineCfg.Paths.ConfigFile, newCfg); err != nil {
			return err
		}
		errs := append(append([]string{}, res.ToData.Errors...), res.ToConfig.Errors...)
		return finishSync(env, w, started, errs, len(res.ToData.Changes)+len(res.ToConfig.Changes), res)
	}
}

func finishSync(env *report.Envelope, w *report.Writer, started time.Time, errs []string, changes int, details any) error {
	env.Issues = errs
	env.Details = details
	env.Summary = fmt.Sprintf("%d changes, %d errors", changes, len(errs))
	env.Finish(len(errs) == 0, time.Now())
	metrics.RecordRoutine("sync", time.Since(started), len(errs), changes, nil)
	if _, err := w.Write(env); err != nil {
		return err
	}
	if len(errs) > 0 {
		logging.Error().Int("errors", len(errs)).Msg("sync finished with unresolved errors")
		return errUnresolved
	}
	logging.Info().Int("changes", changes).Msg("sync complete")
	return nil
}

// runUpdates consumes the pending-updates queue.
func runUpdates(_ *cobra.Command, _ []string) error {
	started := time.Now()

	data, warnings, err := model.LoadDataDocument(engineCfg.Paths.DataFile)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		logging.Warn().Str("warning", w).Msg("data document normalized on load")
	}
	queue, err := model.LoadPendingUpdates(engineCfg.Paths.PendingUpdatesFile)
	if err != nil {
		return err
	}

	proc := updates.NewProcessor(engineCfg.Paths.InvalidDir)
	res, next, err := proc.Run(data, queue, time.Now())
	if err != nil {
		return err
	}

	if res.AppliedN > 0 {
		if err := model.WriteDocument(engineCfg.Paths.DataFile, next); err != nil {
			return err
		}
	}
	// The queue is consumed either way: applied entries are in the data
	// document, invalid ones in the quarantine archive.
	if len(queue) > 0 {
		if err := model.WriteDocument(engineCfg.Paths.PendingUpdatesFile, []model.PendingUpdate{}); err != nil {
			return fmt.Errorf("clear pending queue: %w", err)
		}
	}

	env := report.New("updates", started)
	env.Details = res
	for _, r := range res.Rejected {
		env.Issues = append(env.Issues, fmt.Sprintf("location_id %d: %v", r.Entry.LocationID, r.Reasons))
	}
	env.Summary = fmt.Sprintf("processed=%d applied=%d quarantined=%d", res.Processed, res.AppliedN, res.Quarantined)
	env.Finish(true, time.Now())
	metrics.RecordRoutine("updates", time.Since(started), res.Quarantined, res.AppliedN, nil)
	if _, err := reporter().Write(env); err != nil {
		return err
	}
	return nil
}
