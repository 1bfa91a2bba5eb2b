package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeTempConfig(t, `
server:
  port: 9090
  mode: debug
engine:
  default_offspring: 50
  default_top_n: 10
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, 50, cfg.Engine.DefaultOffspring)
	assert.Equal(t, 10, cfg.Engine.DefaultTopN)
	// Untouched sections fall back to defaults.
	assert.Equal(t, DefaultDBHost, cfg.Database.Host)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := writeTempConfig(t, `
engine:
  default_offspring: 9000
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_offspring")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ULTRATHINK_SERVER_PORT", "7070")
	t.Setenv("ULTRATHINK_DATABASE_HOST", "db.internal")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
}

func TestMustLoadPanics(t *testing.T) {
	assert.Panics(t, func() { MustLoad("/does/not/exist.yaml") })
}
