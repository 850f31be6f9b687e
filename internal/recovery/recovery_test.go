// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

package recovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parkir-ops/parkir-ops/internal/backup"
	"github.com/parkir-ops/parkir-ops/internal/model"
)

const sampleData = `{
  "metadata": {"last_updated": "2026-08-30T10:00:00Z", "version": "1.2.0", "total_locations": 1},
  "statistics": {"total_bus_capacity": 62, "total_available_bus": 30},
  "locations": [
    {
      "id": 1,
      "nama": "SENOPATI",
      "koordinat": {"lat": -6.23, "lng": 106.81},
      "bus": {"total": 62, "available": 30, "status": "available"},
      "mobil": {"total": 200, "available": 150, "status": "available"},
      "motor": {"total": 100, "available": 100, "status": "empty"}
    }
  ]
}`

const sampleConfig = `{
  "version": "1.0.0",
  "locations": [
    {
      "id": 1,
      "name": "SENOPATI",
      "coordinates": {"lat": -6.23, "lng": 106.81},
      "capacity": {"bus": 62, "mobil": 200, "motor": 100}
    },
    {
      "id": 2,
      "name": "MONAS",
      "coordinates": {"lat": -6.17, "lng": 106.82},
      "capacity": {"bus": 50, "mobil": 400, "motor": 300}
    }
  ],
  "total_capacity": {"bus": 112, "mobil": 600, "motor": 400, "total": 1112}
}`

func TestProbe(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		setup   func(path string)
		exists  bool
		healthy bool
	}{
		{"missing file", func(string) {}, false, false},
		{"empty file", func(p string) { os.WriteFile(p, nil, 0o644) }, true, false},
		{"garbage", func(p string) { os.WriteFile(p, []byte("not json"), 0o644) }, true, false},
		{"no locations", func(p string) { os.WriteFile(p, []byte(`{"locations": []}`), 0o644) }, true, false},
		{"healthy", func(p string) { os.WriteFile(p, []byte(sampleData), 0o644) }, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			tt.setup(path)
			res := Probe(path)
			if res.Exists != tt.exists {
				t.Errorf("exists = %v, want %v", res.Exists, tt.exists)
			}
			if res.Healthy() != tt.healthy {
				t.Errorf("healthy = %v, want %v (problems: %v)", res.Healthy(), tt.healthy, res.Problems)
			}
		})
	}
}

func TestProbeTruncatedFileSeverity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	res := Probe(path)
	if !res.Exists || res.Size != 0 || res.Severity != SeverityCritical {
		t.Errorf("truncated file probe = %+v, want exists:true size:0 severity:critical", res)
	}
}

func TestMachineEnforcesOrder(t *testing.T) {
	m := NewMachine()
	if m.Current() != StateProbing {
		t.Fatalf("initial state = %s", m.Current())
	}
	if err := m.TransitionTo(StateFabricating, ""); err == nil {
		t.Error("probing -> fabricating must be rejected")
	}
	if err := m.TransitionTo(StateRestoringBackup, ""); err != nil {
		t.Fatalf("probing -> restoring_backup rejected: %v", err)
	}
	if err := m.TransitionTo(StateProbing, ""); err == nil {
		t.Error("backward transition must be rejected")
	}
	if err := m.TransitionTo(StateRecovered, "done"); err != nil {
		t.Fatalf("restoring_backup -> recovered rejected: %v", err)
	}
	if !m.Terminal() {
		t.Error("recovered must be terminal")
	}
	if err := m.TransitionTo(StateFailed, ""); err == nil {
		t.Error("transitions out of a terminal state must be rejected")
	}
	if got := len(m.History()); got != 2 {
		t.Errorf("history length = %d, want 2", got)
	}
}

func TestResetCapacity(t *testing.T) {
	doc := &model.DataDocument{
		Locations: []model.LocationState{{
			ID:    1,
			Nama:  "SENOPATI",
			Bus:   &model.VehicleState{Total: 62, Available: 10, Status: model.StatusAvailable},
			Mobil: &model.VehicleState{Total: 200, Available: 200, Status: model.StatusEmpty},
			Motor: &model.VehicleState{Total: 0, Available: 0, Status: model.StatusNotAvailable},
		}},
	}
	n := ResetCapacity(doc, time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	if n != 1 {
		t.Errorf("reset count = %d, want 1 (only bus was below capacity)", n)
	}
	bus := doc.Locations[0].Bus
	if bus.Available != 62 || bus.Status != model.StatusEmpty {
		t.Errorf("bus after reset = %+v", bus)
	}
	if doc.Locations[0].Motor.Status != model.StatusNotAvailable {
		t.Error("zero-capacity pool must stay not_available")
	}
	if doc.Statistics.TotalAvailableBus != 62 {
		t.Errorf("statistics not recomputed: %+v", doc.Statistics)
	}
}

func TestFabricateFromConfig(t *testing.T) {
	cfg := &model.ConfigDocument{
		Version: "1.0.0",
		Locations: []model.LocationConfig{
			{ID: 1, Name: "SENOPATI", Capacity: model.CapacityConfig{Bus: 62, Mobil: 200, Motor: 100}},
			{ID: 2, Name: "MONAS", Capacity: model.CapacityConfig{Bus: 50, Mobil: 400, Motor: 300}},
		},
	}
	doc := Fabricate(cfg, time.Now())
	if !doc.Metadata.EmergencyCreated {
		t.Error("fabricated document must carry emergency_created")
	}
	if len(doc.Locations) != 2 {
		t.Fatalf("fabricated %d locations, want 2", len(doc.Locations))
	}
	if doc.Locations[0].Bus.Available != 62 || doc.Locations[0].Bus.Status != model.StatusEmpty {
		t.Errorf("pools must start at full availability: %+v", doc.Locations[0].Bus)
	}
	if doc.Statistics.TotalBusCapacity != 112 {
		t.Errorf("statistics capacity = %d, want 112", doc.Statistics.TotalBusCapacity)
	}
}

func TestFabricateFallbackWithoutConfig(t *testing.T) {
	doc := Fabricate(nil, time.Now())
	if len(doc.Locations) != 1 {
		t.Fatalf("fallback must contain exactly one location, got %d", len(doc.Locations))
	}
	if !doc.Metadata.EmergencyCreated {
		t.Error("fallback document must carry emergency_created")
	}
	if doc.Locations[0].Nama == "" {
		t.Error("fallback location must be named")
	}
}

func TestLogAppendAndRead(t *testing.T) {
	log := NewLog(filepath.Join(t.TempDir(), "logs", "recovery.jsonl"))
	entries := []LogEntry{
		{Action: "probe", Outcome: "unhealthy"},
		{Action: "restoring_backup", From: StateRestoringBackup, To: StateRestoringBackup, Outcome: "failure", Error: "no backups"},
		{Action: "transition", From: StateFabricating, To: StateRecovered, Outcome: "ok"},
	}
	for _, e := range entries {
		if err := log.Append(e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	got, err := log.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("read %d entries, want 3", len(got))
	}
	if got[1].Error != "no backups" {
		t.Errorf("entry[1] = %+v", got[1])
	}
	if got[0].Timestamp == "" {
		t.Error("timestamps must be stamped on append")
	}
}

func newLadderEnv(t *testing.T) (dataPath, configPath string, backups *backup.Manager, log *Log) {
	t.Helper()
	dir := t.TempDir()
	dataPath = filepath.Join(dir, "parking-data.json")
	configPath = filepath.Join(dir, "parking-config.json")
	if err := os.WriteFile(configPath, []byte(sampleConfig), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := backup.NewManager(backup.Config{Dir: filepath.Join(dir, "backups"), MaxCount: 5, CompressionLevel: 6})
	if err != nil {
		t.Fatal(err)
	}
	return dataPath, configPath, m, NewLog(filepath.Join(dir, "recovery.jsonl"))
}

func TestLadderHealthyFileIsNoop(t *testing.T) {
	dataPath, configPath, backups, log := newLadderEnv(t)
	if err := os.WriteFile(dataPath, []byte(sampleData), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := NewLadder(dataPath, configPath, backups, nil, log).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.Recovered() {
		t.Errorf("final state = %s, want recovered", out.FinalState)
	}
	if len(out.Rungs) != 0 {
		t.Errorf("healthy file must not trigger any rung, got %v", out.Rungs)
	}
}

func TestLadderStopsAtBackupRestore(t *testing.T) {
	dataPath, configPath, backups, log := newLadderEnv(t)

	// Seed a valid backup, then lose the data file entirely.
	if err := os.WriteFile(dataPath, []byte(sampleData), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := backups.Create(dataPath, backup.TypeManual, "seed"); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(dataPath); err != nil {
		t.Fatal(err)
	}

	out, err := NewLadder(dataPath, configPath, backups, nil, log).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.Recovered() {
		t.Fatalf("final state = %s, want recovered", out.FinalState)
	}
	if len(out.Rungs) != 1 || out.Rungs[0].Rung != StateRestoringBackup || !out.Rungs[0].Success {
		t.Fatalf("ladder must terminate at the first rung, got %v", out.Rungs)
	}
	if re := Probe(dataPath); !re.Healthy() {
		t.Errorf("restored file fails probe: %v", re.Problems)
	}
}

func TestLadderFallsThroughToFabrication(t *testing.T) {
	dataPath, configPath, _, log := newLadderEnv(t)
	// Garbage data file, no backups, no remote: only rung 4 can succeed.
	if err := os.WriteFile(dataPath, []byte("corrupted!!"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := NewLadder(dataPath, configPath, nil, nil, log).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.Recovered() {
		t.Fatalf("final state = %s, want recovered", out.FinalState)
	}
	if len(out.Rungs) != 4 {
		t.Fatalf("expected all 4 rungs attempted, got %d", len(out.Rungs))
	}
	last := out.Rungs[3]
	if last.Rung != StateFabricating || !last.Success {
		t.Fatalf("final rung = %+v, want successful fabrication", last)
	}

	doc, _, err := model.LoadDataDocument(dataPath)
	if err != nil {
		t.Fatalf("fabricated document unreadable: %v", err)
	}
	if !doc.Metadata.EmergencyCreated {
		t.Error("fabricated document must carry emergency_created")
	}
	if len(doc.Locations) != 2 {
		t.Errorf("fabricated %d locations from config, want 2", len(doc.Locations))
	}

	// The ladder's decisions must be on the recovery log.
	entries, err := log.Read()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) == 0 {
		t.Fatal("recovery log is empty")
	}
}

func TestLadderEachRungAtMostOnce(t *testing.T) {
	dataPath, configPath, _, log := newLadderEnv(t)
	// Remove the config too: fabrication must fall back to the hardcoded
	// location and still succeed, with no rung repeated.
	if err := os.Remove(configPath); err != nil {
		t.Fatal(err)
	}

	out, err := NewLadder(dataPath, configPath, nil, nil, log).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	seen := make(map[State]int)
	for _, r := range out.Rungs {
		seen[r.Rung]++
	}
	for rung, n := range seen {
		if n > 1 {
			t.Errorf("rung %s attempted %d times", rung, n)
		}
	}
	if !out.Recovered() {
		t.Errorf("final state = %s, want recovered via fallback fabrication", out.FinalState)
	}
}
