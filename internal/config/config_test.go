package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const sampleYAML = `
dry_run: true
engine:
  base_asset: USDC
  scan_interval_ms: 100
risk:
  cooldown_ms: 5000
binance:
  taker_fee_bps: 8
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	assert.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad_ParsesAndBackfillsDefaults(t *testing.T) {
	cfg, err := Load(writeTemp(t, sampleYAML))
	assert.NoError(t, err)

	assert.True(t, cfg.DryRun)
	assert.Equal(t, "USDC", cfg.Engine.BaseAsset)
	assert.Equal(t, 100*time.Millisecond, cfg.ScanInterval())
	assert.Equal(t, 5*time.Second, cfg.Cooldown())
	assert.InDelta(t, 0.0008, cfg.TakerFee(), 1e-12)

	// untouched sections fall back to defaults
	assert.Equal(t, 5*time.Second, cfg.MaxStaleness())
	assert.Equal(t, 1e-9, cfg.Engine.RelaxationEps)
	assert.Equal(t, 5, cfg.Engine.MaxCycleLen)
	assert.Equal(t, 1, cfg.Risk.TopK)
	assert.Equal(t, "rate:stream", cfg.Redis.Stream)
	assert.Equal(t, "USDT", cfg.Discovery.QuoteAsset)
	assert.Equal(t, "https://api.binance.com", cfg.Binance.RestURL)
}

func TestLoad_SecretsFromEnv(t *testing.T) {
	t.Setenv("BINANCE_API_KEY", "env-key")
	t.Setenv("BINANCE_API_SECRET", "env-secret")

	cfg, err := Load(writeTemp(t, sampleYAML))
	assert.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Binance.ApiKey)
	assert.Equal(t, "env-secret", cfg.Binance.ApiSecret)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeTemp(t, "engine: [not a map"))
	assert.Error(t, err)
}
