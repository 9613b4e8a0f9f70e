package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 15*time.Second, cfg.Gateway.RequestTimeout)
	assert.Equal(t, "mockpay", cfg.Routing.DefaultConnector)
	assert.False(t, cfg.Gateway.UCS.Enabled)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  addr: ":9090"
log:
  level: debug
storage:
  driver: sqlite
  dsn: /tmp/trackers.db
redis:
  addr: localhost:6379
gateway:
  request_timeout: 5s
  ucs:
    enabled: true
    url: http://ucs.internal
    rollout_percent: 25
    merchant_allowlist: [m1, m2]
    shadow_enabled: true
routing:
  default_connector: voltbank
  rules:
    - name: eur to volt
      expression: currency == "EUR"
      connector: voltbank
  blocklist:
    - name: bad bin
      expression: card_bin == "424242"
accounts:
  m1:
    voltbank:
      merchant_connector_id: mca_1
      auth_type: signature_key
      api_key: vk_live
      key1: merchant_42
      api_secret: whsec
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "/tmp/trackers.db", cfg.Storage.DSN)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 5*time.Second, cfg.Gateway.RequestTimeout)

	assert.True(t, cfg.Gateway.UCS.Enabled)
	assert.Equal(t, "http://ucs.internal", cfg.Gateway.UCS.URL)
	assert.Equal(t, 25, cfg.Gateway.UCS.RolloutPercent)
	assert.Equal(t, []string{"m1", "m2"}, cfg.Gateway.UCS.MerchantAllowlist)
	assert.True(t, cfg.Gateway.UCS.ShadowEnabled)

	assert.Equal(t, "voltbank", cfg.Routing.DefaultConnector)
	require.Len(t, cfg.Routing.Rules, 1)
	assert.Equal(t, `currency == "EUR"`, cfg.Routing.Rules[0].Expression)
	require.Len(t, cfg.Routing.Blocklist, 1)
	assert.Equal(t, "bad bin", cfg.Routing.Blocklist[0].Name)

	account := cfg.Accounts["m1"]["voltbank"]
	assert.Equal(t, "mca_1", account.MerchantConnectorID)
	assert.Equal(t, "signature_key", account.AuthType)
	assert.Equal(t, "vk_live", account.APIKey)
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown storage driver",
			yaml:    "storage:\n  driver: postgres\n",
			wantErr: "unknown storage driver",
		},
		{
			name:    "sqlite without dsn",
			yaml:    "storage:\n  driver: sqlite\n",
			wantErr: "storage.dsn is required",
		},
		{
			name:    "rollout percent out of range",
			yaml:    "gateway:\n  ucs:\n    rollout_percent: 150\n",
			wantErr: "rollout_percent must be within 0..100",
		},
		{
			name:    "ucs enabled without url",
			yaml:    "gateway:\n  ucs:\n    enabled: true\n",
			wantErr: "gateway.ucs.url is required",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfigFile(t, tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
