package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const baseYAML = `
env: test
trading:
  symbol: ETHUSDC
  orderNotional: 50
  maxLayers: 5
  sMinPercent: 0.02
  sMaxPercent: 0.15
  dryRun: true
risk:
  maxLongQtyPercent: 30
  stopDayPercent: 2.0
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, baseYAML))
	require.NoError(t, err)

	require.Equal(t, "ETHUSDC", cfg.Trading.Symbol)
	require.Equal(t, 2.0, cfg.Trading.Ksig)
	require.Equal(t, 1.0, cfg.Trading.TpMultiplier)
	require.Equal(t, 2.0, cfg.Trading.SlMultiplier)
	require.Equal(t, 60, cfg.Trading.TTLSeconds)
	require.Equal(t, 30, cfg.Trading.CooldownSeconds)
	require.Equal(t, 500, cfg.Engine.UpdateIntervalMs)
	require.Equal(t, 7, cfg.Risk.MaxConsecutiveLosses)
	require.Equal(t, "info", cfg.Logger.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PM_SYMBOL", "btcusdc")
	t.Setenv("PM_ORDER_NOTIONAL", "120.5")
	t.Setenv("PM_MAX_LAYERS", "9")
	t.Setenv("PM_DRY_RUN", "true")

	cfg, err := LoadWithEnvOverrides(writeConfig(t, baseYAML))
	require.NoError(t, err)
	require.Equal(t, "BTCUSDC", cfg.Trading.Symbol)
	require.Equal(t, 120.5, cfg.Trading.OrderNotional)
	require.Equal(t, 9, cfg.Trading.MaxLayers)
	require.True(t, cfg.Trading.DryRun)
}

func TestEnvOverrideParseError(t *testing.T) {
	t.Setenv("PM_MAX_LAYERS", "many")
	_, err := LoadWithEnvOverrides(writeConfig(t, baseYAML))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"missing env", func(c *AppConfig) { c.Env = "" }},
		{"missing symbol", func(c *AppConfig) { c.Trading.Symbol = "" }},
		{"zero notional", func(c *AppConfig) { c.Trading.OrderNotional = 0 }},
		{"zero layers", func(c *AppConfig) { c.Trading.MaxLayers = 0 }},
		{"zero stop day", func(c *AppConfig) { c.Risk.StopDayPercent = 0 }},
		{"bad long pct", func(c *AppConfig) { c.Risk.MaxLongQtyPercent = 120 }},
		{"live without creds", func(c *AppConfig) { c.Trading.DryRun = false }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, baseYAML))
			require.NoError(t, err)
			tc.mutate(&cfg)
			require.Error(t, Validate(cfg))
		})
	}
}

func TestValidateAllowsInvertedOffsetBounds(t *testing.T) {
	cfg, err := Load(writeConfig(t, baseYAML))
	require.NoError(t, err)
	// 宽盘口场景：下限百分比大于上限百分比是被允许的
	cfg.Trading.SMinPercent = 0.5
	cfg.Trading.SMaxPercent = 0.1
	require.NoError(t, Validate(cfg))
}
