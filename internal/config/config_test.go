package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cairn.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
ledger:
  endpoint: http://ledger.local:8545
  call_timeout: 3s
reconcile:
  page_size: 20
  concurrency: 2
`), 0o600))

	t.Setenv("CAIRN_CONFIG_PATH", path)
	t.Setenv("CAIRN_RECONCILE_CONCURRENCY", "6")
	t.Setenv("CAIRN_TRANSPORT_MODE", "stdio")
	t.Setenv("CAIRN_CONTENT_TIMEOUT", "750ms")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9000, cfg.Server.Port)
	require.Equal(t, "http://ledger.local:8545", cfg.Ledger.Endpoint)
	require.Equal(t, 3*time.Second, cfg.Ledger.CallTimeout)
	require.Equal(t, 20, cfg.Reconcile.PageSize)
	require.Equal(t, 6, cfg.Reconcile.Concurrency, "env overrides file")
	require.Equal(t, "stdio", cfg.Transport.Mode)
	require.Equal(t, 750*time.Millisecond, cfg.Content.Timeout)
	require.Equal(t, 50, cfg.Reconcile.MaxPages, "unset values keep defaults")
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("CAIRN_SERVER_PORT", "eighty")
	_, err := Load()
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("CAIRN_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	require.ErrorContains(t, err, "read config file")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Reconcile.PageSize = 500
	cfg.Transport.Mode = "carrier-pigeon"
	cfg.Ledger.Endpoint = "not a url"

	err := cfg.Validate()
	require.ErrorContains(t, err, "page_size")
	require.ErrorContains(t, err, "transport.mode")
	require.ErrorContains(t, err, "ledger.endpoint")
}
