package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
symbols:
  - BTCUSDT
  - ETHUSDT
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Expected minimal config to load, got %v", err)
	}

	if cfg.DataSource != "LIVE" {
		t.Errorf("Expected default data_source LIVE, got %s", cfg.DataSource)
	}
	if cfg.PollSeconds != 60 {
		t.Errorf("Expected default poll_seconds 60, got %d", cfg.PollSeconds)
	}
	if cfg.Interval != "1m" {
		t.Errorf("Expected default interval 1m, got %s", cfg.Interval)
	}
	if cfg.FetchLimit != 1400 {
		t.Errorf("Expected default fetch_limit 1400, got %d", cfg.FetchLimit)
	}
	if cfg.Strategy.Variant != "hybrid" {
		t.Errorf("Expected default variant hybrid, got %s", cfg.Strategy.Variant)
	}
	if cfg.Exit.Policy != "threshold" || cfg.Exit.ProfitRatio != 0.15 {
		t.Errorf("Expected threshold/0.15 exit defaults, got %s/%f", cfg.Exit.Policy, cfg.Exit.ProfitRatio)
	}
	if cfg.Indicators.RSIPeriod != 7 || cfg.Indicators.BBWindow != 20 || cfg.Indicators.BBStdDev != 2.0 {
		t.Errorf("Unexpected indicator defaults: %+v", cfg.Indicators)
	}
	if cfg.Notify.Channel != "log" || cfg.Notify.Timezone != "UTC" {
		t.Errorf("Unexpected notify defaults: %+v", cfg.Notify)
	}
	if cfg.APIAddr != ":8000" || cfg.MetricsAddr != ":9090" {
		t.Errorf("Unexpected server defaults: %s / %s", cfg.APIAddr, cfg.MetricsAddr)
	}
	if len(cfg.Symbols) != 2 {
		t.Errorf("Expected 2 symbols, got %v", cfg.Symbols)
	}
}

func TestLoadConfigFull(t *testing.T) {
	path := writeConfig(t, `
data_source: STATIC
poll_seconds: 30
interval: 5m
fetch_limit: 500
symbols: [BTCUSDT]
strategy:
  variant: enhanced
exit:
  policy: any-profit
indicators:
  rsi_period: 14
stream:
  enabled: true
notify:
  channel: webhook
  webhook_url: http://localhost:9000/hook
  timezone: Asia/Kolkata
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Expected config to load, got %v", err)
	}
	if cfg.DataSource != "STATIC" || cfg.PollSeconds != 30 || cfg.Interval != "5m" {
		t.Errorf("Unexpected top-level values: %+v", cfg)
	}
	if cfg.Strategy.Variant != "enhanced" {
		t.Errorf("Expected enhanced variant, got %s", cfg.Strategy.Variant)
	}
	if cfg.Exit.Policy != "any-profit" {
		t.Errorf("Expected any-profit policy, got %s", cfg.Exit.Policy)
	}
	if cfg.Indicators.RSIPeriod != 14 {
		t.Errorf("Expected rsi_period 14, got %d", cfg.Indicators.RSIPeriod)
	}
	// Unset indicator fields still get their defaults.
	if cfg.Indicators.MACDSlow != 26 {
		t.Errorf("Expected default macd_slow 26, got %d", cfg.Indicators.MACDSlow)
	}
	if !cfg.Stream.Enabled {
		t.Error("Expected stream enabled")
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "no symbols",
			yaml:    "data_source: LIVE\n",
			wantErr: "symbols",
		},
		{
			name:    "bad data source",
			yaml:    "data_source: PAPER\nsymbols: [BTCUSDT]\n",
			wantErr: "data_source",
		},
		{
			name:    "bad variant",
			yaml:    "symbols: [BTCUSDT]\nstrategy:\n  variant: momentum\n",
			wantErr: "strategy.variant",
		},
		{
			name:    "bad exit policy",
			yaml:    "symbols: [BTCUSDT]\nexit:\n  policy: trailing\n",
			wantErr: "exit.policy",
		},
		{
			name:    "profit ratio out of range",
			yaml:    "symbols: [BTCUSDT]\nexit:\n  policy: threshold\n  profit_ratio: 1.5\n",
			wantErr: "profit_ratio",
		},
		{
			name:    "macd fast above slow",
			yaml:    "symbols: [BTCUSDT]\nindicators:\n  macd_fast: 30\n  macd_slow: 26\n",
			wantErr: "macd_fast",
		},
		{
			name:    "webhook without url",
			yaml:    "symbols: [BTCUSDT]\nnotify:\n  channel: webhook\n",
			wantErr: "webhook_url",
		},
		{
			name:    "bad notify channel",
			yaml:    "symbols: [BTCUSDT]\nnotify:\n  channel: carrier-pigeon\n",
			wantErr: "notify.channel",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.yaml))
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Expected error mentioning %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
