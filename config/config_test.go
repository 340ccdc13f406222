package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := &Config{}
	applyEnvOverrides(cfg)

	if len(cfg.TradingConfig.Symbols) != 3 || cfg.TradingConfig.Symbols[0] != "AAPL" {
		t.Errorf("unexpected default symbols: %v", cfg.TradingConfig.Symbols)
	}
	if cfg.TradingConfig.PositionSize != 1 {
		t.Errorf("unexpected default position size: %d", cfg.TradingConfig.PositionSize)
	}
	if cfg.TradingConfig.StopLossPercent != 0.02 || cfg.TradingConfig.TakeProfitPercent != 0.04 {
		t.Errorf("unexpected default risk params: %v / %v",
			cfg.TradingConfig.StopLossPercent, cfg.TradingConfig.TakeProfitPercent)
	}
	if cfg.TradingConfig.CycleIntervalSecs != 60 {
		t.Errorf("unexpected default cycle interval: %d", cfg.TradingConfig.CycleIntervalSecs)
	}
	if cfg.ServerConfig.Port != 8080 {
		t.Errorf("unexpected default port: %d", cfg.ServerConfig.Port)
	}
	if cfg.AlpacaConfig.TradingURL != "https://paper-api.alpaca.markets" {
		t.Errorf("unexpected default trading URL: %s", cfg.AlpacaConfig.TradingURL)
	}
	if cfg.AuthConfig.Enabled {
		t.Error("auth should default to disabled")
	}
	if !cfg.MetricsConfig.Enabled {
		t.Error("metrics should default to enabled")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TRADING_SYMBOLS", "nvda, msft")
	t.Setenv("TRADING_POSITION_SIZE", "4")
	t.Setenv("TRADING_STOP_LOSS_PERCENT", "0.05")
	t.Setenv("WEB_PORT", "9090")
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("AUTH_TOKEN_DURATION", "2h")

	cfg := &Config{}
	applyEnvOverrides(cfg)

	want := []string{"NVDA", "MSFT"}
	if len(cfg.TradingConfig.Symbols) != 2 ||
		cfg.TradingConfig.Symbols[0] != want[0] || cfg.TradingConfig.Symbols[1] != want[1] {
		t.Errorf("expected %v, got %v", want, cfg.TradingConfig.Symbols)
	}
	if cfg.TradingConfig.PositionSize != 4 {
		t.Errorf("position size override not applied: %d", cfg.TradingConfig.PositionSize)
	}
	if cfg.TradingConfig.StopLossPercent != 0.05 {
		t.Errorf("stop loss override not applied: %v", cfg.TradingConfig.StopLossPercent)
	}
	if cfg.ServerConfig.Port != 9090 {
		t.Errorf("port override not applied: %d", cfg.ServerConfig.Port)
	}
	if !cfg.AuthConfig.Enabled {
		t.Error("auth enable override not applied")
	}
	if cfg.AuthConfig.TokenDuration != 2*time.Hour {
		t.Errorf("token duration override not applied: %v", cfg.AuthConfig.TokenDuration)
	}
}

func TestEnvOverridesBeatFileValues(t *testing.T) {
	t.Setenv("TRADING_POSITION_SIZE", "7")

	cfg := &Config{TradingConfig: TradingConfig{PositionSize: 2}}
	applyEnvOverrides(cfg)

	if cfg.TradingConfig.PositionSize != 7 {
		t.Errorf("environment must win over file value, got %d", cfg.TradingConfig.PositionSize)
	}
}

func TestSplitSymbols(t *testing.T) {
	got := splitSymbols(" aapl ,,TSLA, amd ")
	want := []string{"AAPL", "TSLA", "AMD"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestGenerateSampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	if err := GenerateSampleConfig(path); err != nil {
		t.Fatalf("failed to write sample config: %v", err)
	}

	cfg, err := loadFromFile(path)
	if err != nil {
		t.Fatalf("sample config must be loadable: %v", err)
	}
	if len(cfg.TradingConfig.Symbols) != 3 {
		t.Errorf("unexpected sample symbols: %v", cfg.TradingConfig.Symbols)
	}
	if cfg.TradingConfig.StopLossPercent != 0.02 || cfg.TradingConfig.TakeProfitPercent != 0.04 {
		t.Errorf("unexpected sample risk params: %v / %v",
			cfg.TradingConfig.StopLossPercent, cfg.TradingConfig.TakeProfitPercent)
	}
	if cfg.ServerConfig.Port != 8080 {
		t.Errorf("unexpected sample port: %d", cfg.ServerConfig.Port)
	}
}

func TestMalformedNumericEnvFallsBack(t *testing.T) {
	t.Setenv("TRADING_POSITION_SIZE", "not-a-number")
	t.Setenv("TRADING_STOP_LOSS_PERCENT", "abc")

	cfg := &Config{}
	applyEnvOverrides(cfg)

	if cfg.TradingConfig.PositionSize != 1 {
		t.Errorf("expected fallback 1, got %d", cfg.TradingConfig.PositionSize)
	}
	if cfg.TradingConfig.StopLossPercent != 0.02 {
		t.Errorf("expected fallback 0.02, got %v", cfg.TradingConfig.StopLossPercent)
	}
}
