package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "taxtrail", cfg.App.Name)
	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Equal(t, time.Hour, cfg.Exchange.TTL)
	assert.Equal(t, 5*time.Second, cfg.WorldBank.Timeout)
	assert.Equal(t, "LKR", cfg.Exchange.BaseCurrency)
	assert.Equal(t, "LKA", cfg.WorldBank.BenchmarkCountry)
	assert.Equal(t, 10000, cfg.Export.MaxRows)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Empty(t, cfg.Auth.AdminEmails)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte(`
server:
  addr: ":8080"
exchange:
  base_currency: usd
  ttl: 30m
worldbank:
  requests_per_minute: 30
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))
	t.Setenv("TAXTRAIL_AUTH_JWT_SECRET", "an-env-provided-secret")
	t.Setenv("TAXTRAIL_AUTH_ADMIN_EMAILS", "ops@gov.lk,treasury@gov.lk")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "USD", cfg.Exchange.BaseCurrency)
	assert.Equal(t, 30*time.Minute, cfg.Exchange.TTL)
	assert.Equal(t, 30, cfg.WorldBank.RequestsPerMinute)
	assert.Equal(t, "an-env-provided-secret", cfg.Auth.JWTSecret)
	assert.NoError(t, cfg.RequireJWTSecret())
	assert.Equal(t, []string{"ops@gov.lk", "treasury@gov.lk"}, cfg.Auth.AdminEmails)
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	bad := *cfg
	bad.Exchange.TTL = 0
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Exchange.BaseCurrency = "RUPEE"
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Alerting.Telegram.Enabled = true
	assert.Error(t, bad.Validate(), "telegram 启用时必须配置 token")

	assert.Error(t, cfg.RequireJWTSecret())
}

func TestResolveMaxRows(t *testing.T) {
	cfg := &Config{Export: ExportConfig{MaxRows: 50}}
	assert.Equal(t, 50, cfg.ResolveMaxRows(0))
	assert.Equal(t, 7, cfg.ResolveMaxRows(7))
}
