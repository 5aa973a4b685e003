package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "minidb", cfg.AppName)
	assert.Equal(t, "./data", cfg.Storage.DataDir)
	assert.Equal(t, "127.0.0.1:8642", cfg.Server.Addr)
	assert.False(t, cfg.Auth.Enabled)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app_name: testdb
storage:
  data_dir: /tmp/testdb
server:
  addr: 0.0.0.0:9000
  debug: true
auth:
  enabled: true
  jwt_secret: sekrit
  issuer: testdb
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "testdb", cfg.AppName)
	assert.Equal(t, "/tmp/testdb", cfg.Storage.DataDir)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.True(t, cfg.Server.Debug)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, "sekrit", cfg.Auth.JWTSecret)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
