package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "development", c.Env)
	assert.Equal(t, "memory", c.Store.Backend)
	assert.Equal(t, "sqlite", c.Auth.Driver)
	assert.Equal(t, 6, c.Auth.MinPasswordLen)
	assert.Equal(t, 2*time.Minute, c.Presence.StaleAfter)
	assert.True(t, c.IsDevelopment())
}

func TestFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("addr: \":4000\"\nstore:\n  backend: pebble\n  pebble_path: /tmp/rt\npresence:\n  stale_after: 90s\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	t.Setenv("BEARBOO_LOG_LEVEL", "debug")
	t.Setenv("BEARBOO_AUTH_MIN_PASSWORD_LEN", "8")

	c, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, ":4000", c.Addr)
	assert.Equal(t, "pebble", c.Store.Backend)
	assert.Equal(t, "/tmp/rt", c.Store.PebblePath)
	assert.Equal(t, 90*time.Second, c.Presence.StaleAfter)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, 8, c.Auth.MinPasswordLen)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Env:   "development",
			Store: StoreConfig{Backend: "memory"},
			Auth:  AuthConfig{Driver: "sqlite", MinPasswordLen: 6},
		}
	}

	c := base()
	assert.NoError(t, c.Validate())

	c = base()
	c.Store.Backend = "redis"
	assert.Error(t, c.Validate())

	c = base()
	c.Auth.Driver = "postgres"
	assert.Error(t, c.Validate())

	c = base()
	c.Env = "production"
	assert.Error(t, c.Validate())

	c = base()
	c.Store.Backend = "etcd"
	assert.Error(t, c.Validate())
}
