// Package storage implements local failover and snapshot persistence
// (C6). All operations are best-effort: read-on-miss is silent, and
// write failures are logged, never propagated.
package storage

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ccccccmd/nacos-config-sdk/config"
)

// Store resolves failover/snapshot paths under a root directory and
// performs best-effort reads/writes against them.
type Store struct {
	root    string
	enabled bool
	logger  *zap.SugaredLogger
}

// New builds a Store. When enabled is false, every operation is a no-op.
func New(root string, enabled bool, logger *zap.SugaredLogger) *Store {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Store{root: root, enabled: enabled, logger: logger}
}

func (s *Store) failoverPath(key config.ConfigKey) string {
	return filepath.Join(s.root, "data", "config-data", key.TenantOrPublic(), key.Group, key.DataID)
}

func (s *Store) snapshotPath(key config.ConfigKey) string {
	return filepath.Join(s.root, "snapshot", key.TenantOrPublic(), key.Group, key.DataID)
}

// ReadFailover reads the manually placed override file for key, if any.
func (s *Store) ReadFailover(key config.ConfigKey) (config.LocalConfigData, bool) {
	return s.read(s.failoverPath(key))
}

// ReadSnapshot reads the last known-good server value for key, if any.
func (s *Store) ReadSnapshot(key config.ConfigKey) (config.LocalConfigData, bool) {
	return s.read(s.snapshotPath(key))
}

// WriteSnapshot persists content as the last known-good value for key.
// Failures are logged, never returned.
func (s *Store) WriteSnapshot(key config.ConfigKey, content string) {
	s.write(s.snapshotPath(key), content)
}

func (s *Store) read(path string) (config.LocalConfigData, bool) {
	if !s.enabled {
		return config.LocalConfigData{}, false
	}
	info, err := os.Stat(path)
	if err != nil {
		return config.LocalConfigData{}, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warnw("failed to read local config file", "path", path, "err", err)
		return config.LocalConfigData{}, false
	}
	return config.LocalConfigData{Content: string(data), LastModified: info.ModTime()}, true
}

func (s *Store) write(path, content string) {
	if !s.enabled {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		s.logger.Warnw("failed to create snapshot directory", "path", filepath.Dir(path), "err", err)
		return
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		s.logger.Warnw("failed to write snapshot file", "path", path, "err", err)
	}
}

// EnsureRoot creates the storage root directory. The per-key
// subdirectories below it are created lazily, on the first write.
func (s *Store) EnsureRoot() {
	if !s.enabled {
		return
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		s.logger.Warnw("failed to create snapshot root", "path", s.root, "err", err)
	}
}
