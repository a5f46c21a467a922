package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Trading.DryRun {
		t.Error("dry-run must default to true")
	}
	if cfg.Trading.QuoteAsset != "KRW" {
		t.Errorf("quote asset = %q", cfg.Trading.QuoteAsset)
	}
	if cfg.Trading.MinOrderNotional != 5000 {
		t.Errorf("min order notional = %v", cfg.Trading.MinOrderNotional)
	}
	if cfg.Discovery.MaxWorkingSet != 3 {
		t.Errorf("max working set = %d", cfg.Discovery.MaxWorkingSet)
	}
	if cfg.Discovery.SpikeMin != 3.0 {
		t.Errorf("spike min = %v", cfg.Discovery.SpikeMin)
	}
	if cfg.Discovery.DecayRatio != 0.1 {
		t.Errorf("decay ratio = %v", cfg.Discovery.DecayRatio)
	}
	if cfg.Strategy.StopLossRate != -0.03 {
		t.Errorf("stop loss rate = %v", cfg.Strategy.StopLossRate)
	}
	if cfg.Strategy.CooldownSec != 5 {
		t.Errorf("cooldown = %d", cfg.Strategy.CooldownSec)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
	if cfg.FixedList() {
		t.Error("empty markets list must enable discovery")
	}
	if cfg.HasCredentials() {
		t.Error("no credentials configured")
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
trading:
  markets: ["KRW-BTC", "KRW-ETH"]
  dry_run: false
discovery:
  max_working_set: 5
strategy:
  stop_loss_rate: -0.05
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Trading.DryRun {
		t.Error("explicit dry_run: false not honored")
	}
	if len(cfg.Trading.Markets) != 2 {
		t.Errorf("markets = %v", cfg.Trading.Markets)
	}
	if !cfg.FixedList() {
		t.Error("configured markets must enable fixed-list mode")
	}
	if cfg.Discovery.MaxWorkingSet != 5 {
		t.Errorf("max working set = %d", cfg.Discovery.MaxWorkingSet)
	}
	if cfg.Strategy.StopLossRate != -0.05 {
		t.Errorf("stop loss rate = %v", cfg.Strategy.StopLossRate)
	}
	// Untouched fields still get defaults.
	if cfg.Strategy.BuyFraction != 0.1 {
		t.Errorf("buy fraction = %v", cfg.Strategy.BuyFraction)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("UPBIT_ACCESS_KEY", "ak")
	t.Setenv("UPBIT_SECRET_KEY", "sk")
	t.Setenv("MARKETS", "KRW-BTC,KRW-XRP")
	t.Setenv("DRY_RUN", "false")
	t.Setenv("MAX_WORKING_SET", "7")
	t.Setenv("MIN_ORDER_NOTIONAL", "6000")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.HasCredentials() {
		t.Error("env credentials not applied")
	}
	if len(cfg.Trading.Markets) != 2 || cfg.Trading.Markets[1] != "KRW-XRP" {
		t.Errorf("markets = %v", cfg.Trading.Markets)
	}
	if cfg.Trading.DryRun {
		t.Error("DRY_RUN=false not applied")
	}
	if cfg.Discovery.MaxWorkingSet != 7 {
		t.Errorf("max working set = %d", cfg.Discovery.MaxWorkingSet)
	}
	if cfg.Trading.MinOrderNotional != 6000 {
		t.Errorf("min order notional = %v", cfg.Trading.MinOrderNotional)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"candle count below spike windows", func(c *Config) { c.Trading.CandleCount = 60; c.Strategy.SpikePriorN = 90 }},
		{"malformed market", func(c *Config) { c.Trading.Markets = []string{"KRWBTC"} }},
		{"positive stop loss", func(c *Config) { c.Strategy.StopLossRate = 0.03 }},
		{"buy fraction above one", func(c *Config) { c.Strategy.BuyFraction = 1.5 }},
		{"bad rank mode", func(c *Config) { c.Discovery.RankBy = "alphabetical" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}
