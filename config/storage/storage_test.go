package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ccccccmd/nacos-config-sdk/config"
)

func TestWriteThenReadSnapshot(t *testing.T) {
	root := t.TempDir()
	s := New(root, true, nil)
	key := config.ConfigKey{DataID: "app.yaml", Group: "DEFAULT_GROUP"}

	s.WriteSnapshot(key, "hello")
	data, ok := s.ReadSnapshot(key)
	assert.True(t, ok)
	assert.Equal(t, "hello", data.Content)
}

func TestReadMiss_Silent(t *testing.T) {
	root := t.TempDir()
	s := New(root, true, nil)
	key := config.ConfigKey{DataID: "missing", Group: "DEFAULT_GROUP"}

	_, ok := s.ReadFailover(key)
	assert.False(t, ok)
}

func TestDisabled_IsNoOp(t *testing.T) {
	root := t.TempDir()
	s := New(root, false, nil)
	key := config.ConfigKey{DataID: "app.yaml", Group: "DEFAULT_GROUP"}

	s.WriteSnapshot(key, "hello")
	_, ok := s.ReadSnapshot(key)
	assert.False(t, ok)
}

func TestRemoveOverwritesWithEmptyString(t *testing.T) {
	root := t.TempDir()
	s := New(root, true, nil)
	key := config.ConfigKey{DataID: "app.yaml", Group: "DEFAULT_GROUP", Tenant: "t1"}

	s.WriteSnapshot(key, "v1")
	s.WriteSnapshot(key, "")

	data, ok := s.ReadSnapshot(key)
	assert.True(t, ok)
	assert.True(t, data.IsEmpty())
}

func TestPathLayout(t *testing.T) {
	root := t.TempDir()
	s := New(root, true, nil)
	key := config.ConfigKey{DataID: "app.yaml", Group: "DEFAULT_GROUP"}

	assert.Equal(t, filepath.Join(root, "snapshot", "public", "DEFAULT_GROUP", "app.yaml"), s.snapshotPath(key))
	assert.Equal(t, filepath.Join(root, "data", "config-data", "public", "DEFAULT_GROUP", "app.yaml"), s.failoverPath(key))
}
