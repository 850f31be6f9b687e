// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

// Package backup provides snapshot, retention, verification, and restore
// for the data document.
//
// Artifacts per backup, all in one directory:
//
//	<prefix>-<timestamp>.json      uncompressed wrapper {metadata, data}
//	<prefix>-<timestamp>.json.gz   gzip-compressed copy of the wrapper
//	<prefix>-info-<timestamp>.json sizes, ratio, reason
//	latest-backup.json             singleton pointer to the newest backup
//
// The timestamp is ISO8601 with colons replaced by dashes so the names stay
// filesystem-safe everywhere. The pointer file gives O(1) newest-backup
// lookup; the restore path falls back to a filename-timestamp scan when the
// pointer is missing or stale.
//
// Restore is self-protecting: before overwriting the data document it
// snapshots the current state, so a bad restore is itself recoverable.
package backup

// Backup types, recorded in the wrapper metadata and the pointer file.
const (
	TypeManual     = "manual"
	TypeScheduled  = "scheduled"
	TypePreFix     = "pre_fix"
	TypePreRestore = "pre_restore"
	TypeEmergency  = "emergency"
)

// wrapperMeta is the metadata block of a backup wrapper file.
type wrapperMeta struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Reason     string `json:"reason"`
	CreatedAt  string `json:"created_at"`
	SourceFile string `json:"source_file"`
}

// Info is the per-backup sidecar content, also returned from Create.
type Info struct {
	ID               string  `json:"id"`
	Type             string  `json:"type"`
	Reason           string  `json:"reason"`
	CreatedAt        string  `json:"created_at"`
	BackupFile       string  `json:"backup_file"`
	CompressedFile   string  `json:"compressed_file"`
	InfoFile         string  `json:"info_file"`
	RawSize          int64   `json:"raw_size"`
	CompressedSize   int64   `json:"compressed_size"`
	CompressionRatio float64 `json:"compression_ratio"`
}

// LatestPointer is the content of latest-backup.json.
type LatestPointer struct {
	Timestamp  string `json:"timestamp"`
	BackupFile string `json:"backup_file"`
	InfoFile   string `json:"info_file"`
	Type       string `json:"type"`
	Reason     string `json:"reason"`
}

// VerifyResult is the outcome of checking one backup artifact.
type VerifyResult struct {
	File   string `json:"file"`
	Valid  bool   `json:"valid"`
	Size   int64  `json:"size"`
	Reason string `json:"reason,omitempty"`
}
