// Parkir-Ops - Parking Availability Consistency Engine
// Copyright 2026 Parkir-Ops Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkir-ops/parkir-ops

package backup

import (
	"compress/gzip"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/parkir-ops/parkir-ops/internal/logging"
	"github.com/parkir-ops/parkir-ops/internal/model"
)

// tsLayout is the filename-safe timestamp: ISO8601 with colons replaced.
const tsLayout = "2006-01-02T15-04-05Z"

const latestPointerName = "latest-backup.json"

var errNoBackups = errors.New("backup: no backups found")

// Config holds backup manager settings.
type Config struct {
	// Dir is the backup directory, created on demand.
	Dir string
	// Prefix names the backup artifacts, e.g. "parking-data-backup".
	Prefix string
	// MaxCount is how many backups CleanupOld retains.
	MaxCount int
	// CompressionLevel is the gzip level for the .gz copy.
	CompressionLevel int
}

// Manager creates, prunes, verifies, and restores data document backups.
type Manager struct {
	cfg Config
}

// NewManager validates cfg and returns a Manager. The backup directory is
// created lazily on the first Create call.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Dir == "" {
		return nil, errors.New("backup: directory is required")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "parking-data-backup"
	}
	if cfg.MaxCount <= 0 {
		cfg.MaxCount = 10
	}
	if cfg.CompressionLevel < gzip.HuffmanOnly || cfg.CompressionLevel > gzip.BestCompression {
		return nil, fmt.Errorf("backup: invalid compression level %d", cfg.CompressionLevel)
	}
	if cfg.CompressionLevel == 0 {
		cfg.CompressionLevel = gzip.DefaultCompression
	}
	return &Manager{cfg: cfg}, nil
}

// Create snapshots the data document at sourcePath. It writes the raw
// wrapper, a gzip copy, an info sidecar, and updates the latest pointer.
// The source must parse as a data document before anything is written.
func (m *Manager) Create(sourcePath, backupType, reason string) (*Info, error) {
	doc, warnings, err := model.LoadDataDocument(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("backup: source unreadable: %w", err)
	}
	for _, w := range warnings {
		logging.Warn().Str("source", sourcePath).Str("warning", w).Msg("backup source has structural warnings")
	}

	if err := os.MkdirAll(m.cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("backup: create directory: %w", err)
	}

	now := time.Now().UTC()
	ts := now.Format(tsLayout)
	info := &Info{
		ID:             uuid.NewString(),
		Type:           backupType,
		Reason:         reason,
		CreatedAt:      model.Timestamp(now),
		BackupFile:     fmt.Sprintf("%s-%s.json", m.cfg.Prefix, ts),
		CompressedFile: fmt.Sprintf("%s-%s.json.gz", m.cfg.Prefix, ts),
		InfoFile:       fmt.Sprintf("%s-info-%s.json", m.cfg.Prefix, ts),
	}

	wrapper := struct {
		Metadata wrapperMeta         `json:"metadata"`
		Data     *model.DataDocument `json:"data"`
	}{
		Metadata: wrapperMeta{
			ID:         info.ID,
			Type:       backupType,
			Reason:     reason,
			CreatedAt:  info.CreatedAt,
			SourceFile: filepath.Base(sourcePath),
		},
		Data: doc,
	}

	rawPath := filepath.Join(m.cfg.Dir, info.BackupFile)
	// Artifact names have one-second resolution; refuse rather than
	// silently overwrite an earlier backup from the same second.
	if _, err := os.Stat(rawPath); err == nil {
		return nil, fmt.Errorf("backup: %s already exists", info.BackupFile)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("backup: stat %s: %w", info.BackupFile, err)
	}
	if err := model.WriteDocument(rawPath, &wrapper); err != nil {
		return nil, fmt.Errorf("backup: write raw: %w", err)
	}

	raw, err := os.ReadFile(rawPath)
	if err != nil {
		return nil, fmt.Errorf("backup: reread raw: %w", err)
	}
	info.RawSize = int64(len(raw))

	gzPath := filepath.Join(m.cfg.Dir, info.CompressedFile)
	if err := m.writeGzip(gzPath, raw); err != nil {
		return nil, fmt.Errorf("backup: write compressed: %w", err)
	}
	if st, err := os.Stat(gzPath); err == nil {
		info.CompressedSize = st.Size()
	}
	if info.RawSize > 0 {
		info.CompressionRatio = float64(info.CompressedSize) / float64(info.RawSize)
	}

	infoPath := filepath.Join(m.cfg.Dir, info.InfoFile)
	if err := model.WriteDocument(infoPath, info); err != nil {
		return nil, fmt.Errorf("backup: write info: %w", err)
	}

	pointer := LatestPointer{
		Timestamp:  info.CreatedAt,
		BackupFile: info.BackupFile,
		InfoFile:   info.InfoFile,
		Type:       backupType,
		Reason:     reason,
	}
	if err := model.WriteDocument(filepath.Join(m.cfg.Dir, latestPointerName), &pointer); err != nil {
		return nil, fmt.Errorf("backup: write latest pointer: %w", err)
	}

	logging.Info().
		Str("backup", info.BackupFile).
		Str("type", backupType).
		Int64("raw_size", info.RawSize).
		Int64("compressed_size", info.CompressedSize).
		Msg("backup created")
	return info, nil
}

func (m *Manager) writeGzip(path string, raw []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	zw, err := gzip.NewWriterLevel(f, m.cfg.CompressionLevel)
	if err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if _, err := zw.Write(raw); err != nil {
		zw.Close()
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := zw.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// Latest resolves the newest backup. It prefers the pointer file and falls
// back to scanning filename timestamps when the pointer is missing or the
// file it names is gone.
func (m *Manager) Latest() (string, error) {
	ptrPath := filepath.Join(m.cfg.Dir, latestPointerName)
	if raw, err := os.ReadFile(ptrPath); err == nil {
		var ptr LatestPointer
		if err := json.Unmarshal(raw, &ptr); err == nil && ptr.BackupFile != "" {
			full := filepath.Join(m.cfg.Dir, ptr.BackupFile)
			if _, err := os.Stat(full); err == nil {
				return full, nil
			}
			logging.Warn().Str("pointer", ptr.BackupFile).Msg("latest pointer names a missing backup, scanning")
		}
	}

	backups, err := m.listBackups()
	if err != nil {
		return "", err
	}
	if len(backups) == 0 {
		return "", errNoBackups
	}
	return filepath.Join(m.cfg.Dir, backups[len(backups)-1].name), nil
}

type backupEntry struct {
	name string
	ts   time.Time
}

// listBackups returns raw wrapper files sorted oldest-first by the
// timestamp embedded in the filename.
func (m *Manager) listBackups() ([]backupEntry, error) {
	entries, err := os.ReadDir(m.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("backup: read directory: %w", err)
	}

	infoPrefix := m.cfg.Prefix + "-info-"
	var out []backupEntry
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, m.cfg.Prefix+"-") || strings.HasPrefix(name, infoPrefix) {
			continue
		}
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		ts, ok := parseNameTimestamp(m.cfg.Prefix, name)
		if !ok {
			continue
		}
		out = append(out, backupEntry{name: name, ts: ts})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ts.Before(out[j].ts) })
	return out, nil
}

func parseNameTimestamp(prefix, name string) (time.Time, bool) {
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, prefix+"-"), ".json")
	ts, err := time.Parse(tsLayout, stamp)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
