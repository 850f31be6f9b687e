// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

package recovery

import (
	"fmt"
	"time"
)

// State is one phase of the recovery ladder.
type State string

const (
	StateProbing           State = "probing"
	StateRestoringBackup   State = "restoring_backup"
	StatePullingRemote     State = "pulling_remote"
	StateResettingCapacity State = "resetting_capacity"
	StateFabricating       State = "fabricating"
	StateRecovered         State = "recovered"
	StateFailed            State = "failed"
)

// validTransitions is the ladder's transition matrix. Rungs are strictly
// ordered and forward-only: a rung may be skipped but never revisited, so
// the ladder cannot loop. Recovered and failed are terminal.
var validTransitions = map[State]map[State]bool{
	StateProbing: {
		StateRestoringBackup: true,
		StateRecovered:       true, // file was healthy, nothing to do
	},
	StateRestoringBackup: {
		StateRecovered:     true,
		StatePullingRemote: true,
	},
	StatePullingRemote: {
		StateRecovered:         true,
		StateResettingCapacity: true,
	},
	StateResettingCapacity: {
		StateRecovered:   true,
		StateFabricating: true,
	},
	StateFabricating: {
		StateRecovered: true,
		StateFailed:    true,
	},
	StateRecovered: {},
	StateFailed:    {},
}

// Transition is one recorded state change.
type Transition struct {
	From      State     `json:"from"`
	To        State     `json:"to"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Machine tracks the ladder's current state and transition history. Not
// safe for concurrent use; a ladder run is single-threaded.
type Machine struct {
	current State
	history []Transition
}

// NewMachine returns a machine in the probing state.
func NewMachine() *Machine {
	return &Machine{current: StateProbing}
}

// Current returns the machine's current state.
func (m *Machine) Current() State {
	return m.current
}

// Terminal reports whether the machine has reached a final state.
func (m *Machine) Terminal() bool {
	return m.current == StateRecovered || m.current == StateFailed
}

// TransitionTo moves the machine to target, rejecting anything the matrix
// does not allow. The detail string is carried into the history record.
func (m *Machine) TransitionTo(target State, detail string) error {
	allowed, ok := validTransitions[m.current]
	if !ok || !allowed[target] {
		return fmt.Errorf("recovery: transition %s -> %s is not allowed", m.current, target)
	}
	m.history = append(m.history, Transition{
		From:      m.current,
		To:        target,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	})
	m.current = target
	return nil
}

// History returns a copy of the transitions taken so far.
func (m *Machine) History() []Transition {
	out := make([]Transition, len(m.history))
	copy(out, m.history)
	return out
}
