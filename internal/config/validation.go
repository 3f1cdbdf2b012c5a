package config

import (
	"fmt"
	"strings"

	"fxbot/internal/backtest"
	"fxbot/internal/logger"
	"fxbot/internal/market"
	"fxbot/internal/strategy"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if _, ok := logger.ParseLevel(c.App.LogLevel); !ok {
		return fmt.Errorf("app.log_level unsupported: %s", c.App.LogLevel)
	}
	if err := c.Broker.validate(); err != nil {
		return err
	}
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.Strategy.validate(); err != nil {
		return err
	}
	if err := c.Backtest.validate(); err != nil {
		return err
	}
	if err := c.Live.validate(); err != nil {
		return err
	}
	if c.Journal.Enabled && strings.TrimSpace(c.Journal.Path) == "" {
		return fmt.Errorf("journal.path cannot be empty when journal is enabled")
	}
	return nil
}

func (b *BrokerConfig) validate() error {
	if !strings.EqualFold(strings.TrimSpace(b.Name), "oanda") {
		return fmt.Errorf("broker.name unsupported: %s (only oanda)", b.Name)
	}
	if strings.TrimSpace(b.BaseURL) == "" {
		return fmt.Errorf("broker.base_url cannot be empty")
	}
	if b.TimeoutSeconds <= 0 {
		return fmt.Errorf("broker.timeout_seconds must be > 0")
	}
	if b.RateLimitPerSec <= 0 {
		return fmt.Errorf("broker.rate_limit_per_sec must be > 0")
	}
	return nil
}

func (m *MarketConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(m.Source)) {
	case "oanda", "binance":
	default:
		return fmt.Errorf("market.source unsupported: %s", m.Source)
	}
	if m.CacheEnabled && strings.TrimSpace(m.CachePath) == "" {
		return fmt.Errorf("market.cache_path cannot be empty when cache is enabled")
	}
	return nil
}

func (s *StrategyConfig) validate() error {
	if _, err := strategy.ParseKind(s.Kind); err != nil {
		return fmt.Errorf("strategy.kind: %w", err)
	}
	if strings.TrimSpace(s.Instrument) == "" {
		return fmt.Errorf("strategy.instrument cannot be empty")
	}
	if _, err := market.ParseGranularity(s.Granularity); err != nil {
		return fmt.Errorf("strategy.granularity: %w", err)
	}
	if _, err := market.ParsePriceView(s.View); err != nil {
		return fmt.Errorf("strategy.view: %w", err)
	}
	if s.Margin <= 0 || s.Margin > 1 {
		return fmt.Errorf("strategy.margin must be in (0,1], got %v", s.Margin)
	}
	if s.FastWindow < 1 || s.SlowWindow <= s.FastWindow {
		return fmt.Errorf("strategy windows require 1 <= fast_window < slow_window, got %d/%d", s.FastWindow, s.SlowWindow)
	}
	if s.Lookback < 0 {
		return fmt.Errorf("strategy.lookback must be >= 0")
	}
	return nil
}

func (b *BacktestConfig) validate() error {
	if _, err := backtest.ParseConvention(b.Convention); err != nil {
		return err
	}
	if _, err := backtest.ParseFormat(b.Format); err != nil {
		return fmt.Errorf("backtest.format: %w", err)
	}
	if b.InitialBalance < 0 {
		return fmt.Errorf("backtest.initial_balance must be >= 0")
	}
	for key, raw := range map[string]string{"backtest.start": b.Start, "backtest.end": b.End} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if _, err := ParseTime(raw); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

func (l *LiveConfig) validate() error {
	if strings.TrimSpace(l.CloseAt) != "" {
		if _, err := ParseTime(l.CloseAt); err != nil {
			return fmt.Errorf("live.close_at: %w", err)
		}
	}
	if l.CloseAfterMinutes < 0 {
		return fmt.Errorf("live.close_after_minutes must be >= 0")
	}
	if l.CallTimeoutSeconds <= 0 {
		return fmt.Errorf("live.call_timeout_seconds must be > 0")
	}
	return nil
}
