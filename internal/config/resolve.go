package config

import (
	"fmt"
	"strings"
	"time"

	"fxbot/internal/market"
	"fxbot/internal/signal"
	"fxbot/internal/strategy"
)

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime 接受 "2006-01-02 15:04:05"、RFC3339 与纯日期，不带时区时按本地时间解析。
func ParseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", raw)
}

// BacktestRange 返回回测区间；未配置时取 now 之前的一天。
func (c *Config) BacktestRange(now time.Time) (market.TimeRange, error) {
	rng := market.TimeRange{From: now.Add(-24 * time.Hour), To: now}
	if strings.TrimSpace(c.Backtest.Start) != "" {
		t, err := ParseTime(c.Backtest.Start)
		if err != nil {
			return market.TimeRange{}, err
		}
		rng.From = t
	}
	if strings.TrimSpace(c.Backtest.End) != "" {
		t, err := ParseTime(c.Backtest.End)
		if err != nil {
			return market.TimeRange{}, err
		}
		rng.To = t
	}
	if !rng.From.Before(rng.To) {
		return market.TimeRange{}, fmt.Errorf("backtest range start %s is not before end %s",
			rng.From.Format(time.RFC3339), rng.To.Format(time.RFC3339))
	}
	return rng, nil
}

// CloseDeadline 返回实盘截止时间；未配置 close_at 时取 now + close_after_minutes。
func (c *Config) CloseDeadline(now time.Time) (time.Time, error) {
	if strings.TrimSpace(c.Live.CloseAt) != "" {
		return ParseTime(c.Live.CloseAt)
	}
	return now.Add(time.Duration(c.Live.CloseAfterMinutes) * time.Minute), nil
}

// StrategyConfig 组装不可变的 strategy.Config。
func (c *Config) StrategyConfig(deadline time.Time) (strategy.Config, error) {
	kind, err := strategy.ParseKind(c.Strategy.Kind)
	if err != nil {
		return strategy.Config{}, err
	}
	gran, err := market.ParseGranularity(c.Strategy.Granularity)
	if err != nil {
		return strategy.Config{}, err
	}
	view, err := market.ParsePriceView(c.Strategy.View)
	if err != nil {
		return strategy.Config{}, err
	}
	return strategy.NewConfig(strategy.Config{
		Kind:        kind,
		Instrument:  c.Strategy.Instrument,
		Granularity: gran,
		View:        view,
		Deadline:    deadline,
		Margin:      c.Strategy.Margin,
		Lookback:    c.Strategy.Lookback,
		CallTimeout: time.Duration(c.Live.CallTimeoutSeconds) * time.Second,
		Signals:     signal.Generator{Fast: c.Strategy.FastWindow, Slow: c.Strategy.SlowWindow},
	})
}
