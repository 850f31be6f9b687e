// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

// Package model defines the three documents the engine operates on and the
// file I/O shell around them.
//
// Documents:
//
//   - ConfigDocument: the declarative location configuration, edited by
//     operators out-of-band. Authoritative source for capacity.
//   - DataDocument: the live availability state. Its statistics block is a
//     derived cache, never a source of truth.
//   - Pending updates: an ordered queue of raw field reports produced by the
//     external submission channel.
//
// All state lives in flat JSON files; no component holds state between
// invocations. Loading normalizes tolerantly (a missing vehicle block
// becomes a zeroed default), writing is always a whole-document atomic
// replace (temp file + rename). Duplicate location names are a structural
// error and surface at index construction, never silently resolved.
package model
