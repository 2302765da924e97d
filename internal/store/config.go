package store

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DataSource  string   `yaml:"data_source"` // LIVE or STATIC
	PollSeconds int      `yaml:"poll_seconds"`
	Interval    string   `yaml:"interval"`
	FetchLimit  int      `yaml:"fetch_limit"`
	Symbols     []string `yaml:"symbols"`
	Strategy    struct {
		Variant string `yaml:"variant"` // rsi, bollinger, volume, hybrid, enhanced
	} `yaml:"strategy"`
	Exit struct {
		Policy      string  `yaml:"policy"` // threshold or any-profit
		ProfitRatio float64 `yaml:"profit_ratio"`
	} `yaml:"exit"`
	Indicators struct {
		RSIPeriod  int     `yaml:"rsi_period"`
		BBWindow   int     `yaml:"bb_window"`
		BBStdDev   float64 `yaml:"bb_stddev"`
		MAFast     int     `yaml:"ma_fast"`
		MASlow     int     `yaml:"ma_slow"`
		EMAFast    int     `yaml:"ema_fast"`
		EMASlow    int     `yaml:"ema_slow"`
		MACDFast   int     `yaml:"macd_fast"`
		MACDSlow   int     `yaml:"macd_slow"`
		MACDSignal int     `yaml:"macd_signal"`
	} `yaml:"indicators"`
	Stream struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"stream"`
	Notify struct {
		Channel    string `yaml:"channel"` // telegram, webhook, or log
		WebhookURL string `yaml:"webhook_url"`
		Timezone   string `yaml:"timezone"`
	} `yaml:"notify"`
	APIAddr     string `yaml:"api_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

func (c *Config) Validate() error {
	if c.DataSource != "LIVE" && c.DataSource != "STATIC" {
		return fmt.Errorf("invalid data_source '%s': must be 'LIVE' or 'STATIC'", c.DataSource)
	}
	if len(c.Symbols) == 0 {
		return errors.New("symbols cannot be empty")
	}
	switch c.Strategy.Variant {
	case "rsi", "bollinger", "volume", "hybrid", "enhanced":
	default:
		return fmt.Errorf("invalid strategy.variant '%s'", c.Strategy.Variant)
	}
	switch c.Exit.Policy {
	case "threshold", "any-profit":
	default:
		return fmt.Errorf("invalid exit.policy '%s': must be 'threshold' or 'any-profit'", c.Exit.Policy)
	}
	if c.Exit.Policy == "threshold" && (c.Exit.ProfitRatio <= 0 || c.Exit.ProfitRatio >= 1) {
		return fmt.Errorf("exit.profit_ratio must be in (0, 1), got %.4f", c.Exit.ProfitRatio)
	}
	if c.Indicators.RSIPeriod < 2 {
		return fmt.Errorf("indicators.rsi_period must be >= 2, got %d", c.Indicators.RSIPeriod)
	}
	if c.Indicators.BBWindow < 2 {
		return fmt.Errorf("indicators.bb_window must be >= 2, got %d", c.Indicators.BBWindow)
	}
	if c.Indicators.MACDFast >= c.Indicators.MACDSlow {
		return fmt.Errorf("indicators.macd_fast (%d) must be below macd_slow (%d)",
			c.Indicators.MACDFast, c.Indicators.MACDSlow)
	}
	switch c.Notify.Channel {
	case "telegram", "webhook", "log":
	default:
		return fmt.Errorf("invalid notify.channel '%s'", c.Notify.Channel)
	}
	if c.Notify.Channel == "webhook" && c.Notify.WebhookURL == "" {
		return errors.New("notify.webhook_url required when notify.channel is 'webhook'")
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	applyDefaults(&c)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}

func applyDefaults(c *Config) {
	if c.DataSource == "" {
		c.DataSource = "LIVE"
	}
	if c.PollSeconds == 0 {
		c.PollSeconds = 60
	}
	if c.Interval == "" {
		c.Interval = "1m"
	}
	if c.FetchLimit == 0 {
		c.FetchLimit = 1400
	}
	if c.Strategy.Variant == "" {
		c.Strategy.Variant = "hybrid"
	}
	if c.Exit.Policy == "" {
		c.Exit.Policy = "threshold"
	}
	if c.Exit.ProfitRatio == 0 {
		c.Exit.ProfitRatio = 0.15
	}
	ind := &c.Indicators
	if ind.RSIPeriod == 0 {
		ind.RSIPeriod = 7
	}
	if ind.BBWindow == 0 {
		ind.BBWindow = 20
	}
	if ind.BBStdDev == 0 {
		ind.BBStdDev = 2.0
	}
	if ind.MAFast == 0 {
		ind.MAFast = 10
	}
	if ind.MASlow == 0 {
		ind.MASlow = 50
	}
	if ind.EMAFast == 0 {
		ind.EMAFast = 9
	}
	if ind.EMASlow == 0 {
		ind.EMASlow = 21
	}
	if ind.MACDFast == 0 {
		ind.MACDFast = 12
	}
	if ind.MACDSlow == 0 {
		ind.MACDSlow = 26
	}
	if ind.MACDSignal == 0 {
		ind.MACDSignal = 9
	}
	if c.Notify.Channel == "" {
		c.Notify.Channel = "log"
	}
	if c.Notify.Timezone == "" {
		c.Notify.Timezone = "UTC"
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = ":9090"
	}
	if c.APIAddr == "" {
		c.APIAddr = ":8000"
	}
}
