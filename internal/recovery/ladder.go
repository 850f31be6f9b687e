// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

package recovery

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/parkir-ops/parkir-ops/internal/backup"
	"github.com/parkir-ops/parkir-ops/internal/logging"
	"github.com/parkir-ops/parkir-ops/internal/metrics"
	"github.com/parkir-ops/parkir-ops/internal/model"
	"github.com/parkir-ops/parkir-ops/internal/validate"
)

// RungResult records one ladder rung attempt.
type RungResult struct {
	Rung    State  `json:"rung"`
	Success bool   `json:"success"`
	Detail  string `json:"detail,omitempty"`
}

// Outcome is the result of one full ladder invocation.
type Outcome struct {
	Probe       ProbeResult  `json:"probe"`
	FinalState  State        `json:"final_state"`
	Rungs       []RungResult `json:"rungs,omitempty"`
	Transitions []Transition `json:"transitions,omitempty"`
}

// Recovered reports whether the ladder ended with a usable data file.
func (o *Outcome) Recovered() bool {
	return o.FinalState == StateRecovered
}

// Ladder runs the ordered recovery strategies against the data file.
type Ladder struct {
	dataPath   string
	configPath string
	backups    *backup.Manager
	remote     *RemotePuller
	log        *Log
}

// NewLadder wires a ladder. backups and remote may be nil; the matching
// rungs then fail immediately and the ladder escalates past them.
func NewLadder(dataPath, configPath string, backups *backup.Manager, remote *RemotePuller, log *Log) *Ladder {
	return &Ladder{
		dataPath:   dataPath,
		configPath: configPath,
		backups:    backups,
		remote:     remote,
		log:        log,
	}
}

// Run probes the data file and, when it is unusable, walks the rungs in
// order until one produces a file that passes the probe. Each rung runs
// at most once. The returned error is non-nil only when every rung failed.
func (l *Ladder) Run(ctx context.Context) (*Outcome, error) {
	machine := NewMachine()
	out := &Outcome{Probe: Probe(l.dataPath)}

	l.logEvent("probe", machine.Current(), machine.Current(), map[string]string{
		"path": l.dataPath,
	}, probeOutcome(out.Probe), nil)

	if out.Probe.Healthy() {
		l.transition(machine, StateRecovered, "data file healthy, no recovery needed")
		out.FinalState = machine.Current()
		out.Transitions = machine.History()
		return out, nil
	}

	logging.Warn().
		Str("path", l.dataPath).
		Strs("problems", out.Probe.Problems).
		Msg("data file failed health probe, starting recovery ladder")

	rungs := []struct {
		state State
		run   func(context.Context) (string, error)
	}{
		{StateRestoringBackup, l.restoreBackup},
		{StatePullingRemote, l.pullRemote},
		{StateResettingCapacity, l.resetCapacity},
		{StateFabricating, l.fabricate},
	}

	for _, rung := range rungs {
		l.transition(machine, rung.state, "")

		detail, err := rung.run(ctx)
		success := err == nil
		if success {
			// The rung claims success; trust only the probe.
			if re := Probe(l.dataPath); !re.Healthy() {
				success = false
				err = fmt.Errorf("post-rung probe still unhealthy: %v", re.Problems)
			}
		}

		metrics.RecordRecoveryRung(string(rung.state), success)
		out.Rungs = append(out.Rungs, RungResult{Rung: rung.state, Success: success, Detail: detail})
		l.logEvent(string(rung.state), rung.state, rung.state, map[string]string{
			"data_file": l.dataPath,
		}, rungOutcome(success), err)

		if success {
			l.transition(machine, StateRecovered, detail)
			break
		}
		logging.Warn().Err(err).Str("rung", string(rung.state)).Msg("recovery rung failed, escalating")
	}

	if !machine.Terminal() {
		l.transition(machine, StateFailed, "all rungs exhausted")
	}

	out.FinalState = machine.Current()
	out.Transitions = machine.History()
	metrics.RecoveryRuns.WithLabelValues(string(out.FinalState)).Inc()

	if out.FinalState == StateFailed {
		return out, fmt.Errorf("recovery: every rung failed for %s", l.dataPath)
	}
	logging.Info().
		Str("final_state", string(out.FinalState)).
		Int("rungs_attempted", len(out.Rungs)).
		Msg("recovery ladder finished")
	return out, nil
}

// restoreBackup is rung 1: restore the newest backup over the data file.
func (l *Ladder) restoreBackup(context.Context) (string, error) {
	if l.backups == nil {
		return "", fmt.Errorf("backup manager not configured")
	}
	res, err := l.backups.Restore("latest", l.dataPath)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("restored %d locations from %s", res.LocationCount, res.RestoredFrom), nil
}

// pullRemote is rung 2: fetch the upstream committed copy.
func (l *Ladder) pullRemote(ctx context.Context) (string, error) {
	if !l.remote.Enabled() {
		return "", fmt.Errorf("remote url not configured")
	}
	doc, err := l.remote.Pull(ctx)
	if err != nil {
		return "", err
	}
	if err := model.WriteDocument(l.dataPath, doc); err != nil {
		return "", fmt.Errorf("write pulled document: %w", err)
	}
	return fmt.Sprintf("pulled %d locations from upstream", len(doc.Locations)), nil
}

// resetCapacity is rung 3: if the file still parses, rebuild availability
// at full capacity. Only applicable when the document is structurally
// readable; an absent or garbled file escalates to fabrication.
func (l *Ladder) resetCapacity(context.Context) (string, error) {
	doc, warnings, err := model.LoadDataDocument(l.dataPath)
	if err != nil {
		return "", fmt.Errorf("document not resettable: %w", err)
	}
	if len(doc.Locations) == 0 {
		return "", fmt.Errorf("document has no locations to reset")
	}
	for _, w := range warnings {
		logging.Warn().Str("warning", w).Msg("reset source normalized")
	}
	n := ResetCapacity(doc, time.Now())
	if err := model.WriteDocument(l.dataPath, doc); err != nil {
		return "", err
	}
	return fmt.Sprintf("reset %d vehicle pools to full capacity", n), nil
}

// fabricate is rung 4: synthesize an emergency document from the
// configuration, or from the hardcoded fallback when that is gone too.
func (l *Ladder) fabricate(context.Context) (string, error) {
	var cfg *model.ConfigDocument
	if raw, err := os.ReadFile(l.configPath); err == nil {
		if parsed, cerr := validate.CheckConfig(raw); cerr == nil {
			cfg = parsed
		} else {
			logging.Warn().Err(cerr).Msg("configuration unusable for fabrication, using fallback location")
		}
	}

	doc := Fabricate(cfg, time.Now())
	if err := model.WriteDocument(l.dataPath, doc); err != nil {
		return "", err
	}
	source := "configuration"
	if cfg == nil {
		source = "hardcoded fallback"
	}
	return fmt.Sprintf("fabricated %d locations from %s", len(doc.Locations), source), nil
}

func (l *Ladder) transition(m *Machine, to State, detail string) {
	if err := m.TransitionTo(to, detail); err != nil {
		// The rung tables and the matrix are maintained together; a
		// mismatch is a programming error worth surfacing loudly.
		logging.Error().Err(err).Msg("recovery state machine rejected transition")
		return
	}
	l.logEvent("transition", m.History()[len(m.History())-1].From, to, nil, "ok", nil)
}

func (l *Ladder) logEvent(action string, from, to State, inputs map[string]string, outcome string, err error) {
	entry := LogEntry{
		Action:  action,
		From:    from,
		To:      to,
		Inputs:  inputs,
		Outcome: outcome,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if lerr := l.log.Append(entry); lerr != nil {
		logging.Warn().Err(lerr).Msg("recovery log append failed")
	}
}

func probeOutcome(p ProbeResult) string {
	if p.Healthy() {
		return "healthy"
	}
	return "unhealthy"
}

func rungOutcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
