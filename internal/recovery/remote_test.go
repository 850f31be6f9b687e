// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

package recovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestRemotePullerSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleData))
	}))
	defer srv.Close()

	p := NewRemotePuller(RemoteConfig{URL: srv.URL, Timeout: 2 * time.Second, Attempts: 2, Interval: 10 * time.Millisecond})
	doc, err := p.Pull(context.Background())
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if len(doc.Locations) != 1 || doc.Locations[0].Nama != "SENOPATI" {
		t.Errorf("pulled document = %+v", doc.Locations)
	}
}

func TestRemotePullerRetriesThenFails(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewRemotePuller(RemoteConfig{URL: srv.URL, Timeout: 2 * time.Second, Attempts: 3, Interval: 10 * time.Millisecond})
	if _, err := p.Pull(context.Background()); err == nil {
		t.Fatal("expected error from a failing upstream")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("upstream called %d times, want 3", got)
	}
}

func TestRemotePullerRejectsInvalidDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"locations": "not an array"}`))
	}))
	defer srv.Close()

	p := NewRemotePuller(RemoteConfig{URL: srv.URL, Timeout: 2 * time.Second, Attempts: 1, Interval: 10 * time.Millisecond})
	if _, err := p.Pull(context.Background()); err == nil {
		t.Fatal("structurally invalid upstream document must be rejected")
	}
}

func TestRemotePullerDisabled(t *testing.T) {
	var p *RemotePuller
	if p.Enabled() {
		t.Error("nil puller must report disabled")
	}
	p = NewRemotePuller(RemoteConfig{})
	if p.Enabled() {
		t.Error("puller without a url must report disabled")
	}
	if _, err := p.Pull(context.Background()); err == nil {
		t.Error("Pull without a url must fail")
	}
}
