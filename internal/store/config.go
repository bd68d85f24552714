package store

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// InstrumentConfig is one instrument to monitor at boot.
type InstrumentConfig struct {
	Symbol   string `yaml:"symbol"`
	Quantity int    `yaml:"quantity"`
}

type Config struct {
	Mode     string `yaml:"mode"` // DRY_RUN or LIVE
	Exchange string `yaml:"exchange"`
	WebAddr  string `yaml:"web_addr"`

	Instruments []InstrumentConfig `yaml:"instruments"`

	// Kite instrument token per trading symbol. The ticker subscribes by
	// token; symbols without an entry cannot be monitored live.
	InstrumentTokens map[string]uint32 `yaml:"instrument_tokens"`

	Aggregation struct {
		SpanMinutes int `yaml:"span_minutes"`
	} `yaml:"aggregation"`

	Indicators struct {
		EMAPeriods []int `yaml:"ema_periods"`
		VWAP       bool  `yaml:"vwap"`
	} `yaml:"indicators"`

	Levels struct {
		Count       int     `yaml:"count"`
		PercentStep float64 `yaml:"percent_step"`
	} `yaml:"levels"`

	Orders struct {
		DefaultQuantity int     `yaml:"default_quantity"`
		TierRatios      []int   `yaml:"tier_ratios"` // percent per profit tier
		TickSize        float64 `yaml:"tick_size"`
		RateLimitMs     int     `yaml:"rate_limit_ms"`
		PollIntervalMs  int     `yaml:"poll_interval_ms"`
		MaxPollAttempts int     `yaml:"max_poll_attempts"`
	} `yaml:"orders"`

	Feed struct {
		ReconnectDelaySeconds int `yaml:"reconnect_delay_seconds"`
	} `yaml:"feed"`
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if c.Aggregation.SpanMinutes < 2 || c.Aggregation.SpanMinutes > 60 {
		return fmt.Errorf("aggregation.span_minutes must be between 2 and 60, got %d", c.Aggregation.SpanMinutes)
	}
	if 60%c.Aggregation.SpanMinutes != 0 {
		return fmt.Errorf("aggregation.span_minutes must divide 60 evenly, got %d", c.Aggregation.SpanMinutes)
	}
	if c.Orders.DefaultQuantity < 1 {
		return fmt.Errorf("orders.default_quantity must be at least 1, got %d", c.Orders.DefaultQuantity)
	}
	if len(c.Orders.TierRatios) == 0 {
		return fmt.Errorf("orders.tier_ratios cannot be empty")
	}
	sum := 0
	for _, r := range c.Orders.TierRatios {
		if r <= 0 {
			return fmt.Errorf("orders.tier_ratios entries must be positive, got %d", r)
		}
		sum += r
	}
	if sum != 100 {
		return fmt.Errorf("orders.tier_ratios must sum to 100, got %d", sum)
	}
	if c.Orders.TickSize <= 0 {
		return fmt.Errorf("orders.tick_size must be positive, got %.4f", c.Orders.TickSize)
	}
	for _, p := range c.Indicators.EMAPeriods {
		if p < 1 {
			return fmt.Errorf("indicators.ema_periods entries must be >= 1, got %d", p)
		}
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

	if c.Exchange == "" {
		c.Exchange = "NSE"
	}
	if c.WebAddr == "" {
		c.WebAddr = ":8080"
	}
	if c.Aggregation.SpanMinutes == 0 {
		c.Aggregation.SpanMinutes = 5
	}
	if len(c.Indicators.EMAPeriods) == 0 {
		c.Indicators.EMAPeriods = []int{9, 20}
		c.Indicators.VWAP = true
	}
	if c.Levels.Count == 0 {
		c.Levels.Count = 5
	}
	if c.Levels.PercentStep == 0 {
		c.Levels.PercentStep = 1.0
	}
	if c.Orders.DefaultQuantity == 0 {
		c.Orders.DefaultQuantity = 20
	}
	if len(c.Orders.TierRatios) == 0 {
		c.Orders.TierRatios = []int{50, 10, 15, 25}
	}
	if c.Orders.TickSize == 0 {
		c.Orders.TickSize = 0.05
	}
	if c.Orders.RateLimitMs == 0 {
		c.Orders.RateLimitMs = 250
	}
	if c.Orders.PollIntervalMs == 0 {
		c.Orders.PollIntervalMs = 300
	}
	if c.Orders.MaxPollAttempts == 0 {
		c.Orders.MaxPollAttempts = 600
	}
	if c.Feed.ReconnectDelaySeconds == 0 {
		c.Feed.ReconnectDelaySeconds = 5
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}

// RateLimitDelay returns the minimum inter-submission delay for the
// order gateway.
func (c *Config) RateLimitDelay() time.Duration {
	return time.Duration(c.Orders.RateLimitMs) * time.Millisecond
}

// PollInterval returns the order-status poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Orders.PollIntervalMs) * time.Millisecond
}

// ReconnectDelay returns the live-feed reconnect backoff.
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.Feed.ReconnectDelaySeconds) * time.Second
}
