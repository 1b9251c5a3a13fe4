package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
gateway:
  key: k
  secret: s
  passphrase: p
  sessions: 5
  server: SANDBOX
  proxy_host: 127.0.0.1
  proxy_port: 8080
  symbols:
    - BTC-USD
    - ETH-USD
monitor:
  enabled: true
  addr: ":9999"
log:
  level: debug
  pretty: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "k", cfg.Gateway.Key)
	assert.Equal(t, 5, cfg.Gateway.Sessions)
	assert.Equal(t, "SANDBOX", cfg.Gateway.Server)
	assert.Equal(t, []string{"BTC-USD", "ETH-USD"}, cfg.Gateway.Symbols)
	assert.Equal(t, ":9999", cfg.Monitor.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
gateway:
  key: k
  secret: s
  passphrase: p
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Gateway.Sessions)
	assert.Equal(t, "REAL", cfg.Gateway.Server)
	assert.True(t, cfg.Monitor.Enabled)
	assert.Equal(t, ":9180", cfg.Monitor.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadRejectsBadServer(t *testing.T) {
	path := writeConfig(t, `
gateway:
  server: STAGING
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
