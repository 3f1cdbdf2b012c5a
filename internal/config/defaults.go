package config

import (
	"strings"
)

// 默认值常量
const (
	defaultAppEnv           = "dev"
	defaultAppLogLevel      = "info"
	defaultAppHTTPAddr      = ":9991"
	defaultBrokerName       = "oanda"
	defaultBrokerBaseURL    = "https://api-fxpractice.oanda.com/v3"
	defaultBrokerTimeout    = 15
	defaultBrokerRateLimit  = 20
	defaultBreakerThreshold = 5
	defaultBreakerCooldown  = 30
	defaultMarketSource     = "oanda"
	defaultBinanceREST      = "https://fapi.binance.com"
	defaultCachePath        = "data/candles.db"
	defaultStrategyKind     = "crossover"
	defaultInstrument       = "GBP_USD"
	defaultGranularity      = "M1"
	defaultView             = "M"
	defaultFastWindow       = 3
	defaultSlowWindow       = 15
	defaultMargin           = 0.01
	defaultLookback         = 30
	defaultConvention       = "compounding"
	defaultReportFormat     = "text"
	defaultCloseAfter       = 10
	defaultCallTimeout      = 15
	defaultJournalPath      = "data/journal.db"
)

type keySet map[string]struct{}

func (k keySet) mark(key string) {
	if k == nil {
		return
	}
	k[strings.ToLower(strings.TrimSpace(key))] = struct{}{}
}

func (k keySet) isSet(key string) bool {
	if k == nil {
		return false
	}
	_, ok := k[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Broker.applyDefaults(keys)
	c.Market.applyDefaults(keys)
	c.Strategy.applyDefaults(keys)
	c.Backtest.applyDefaults(keys)
	c.Live.applyDefaults(keys)
	c.Journal.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
}

func (b *BrokerConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("broker.name", &b.Name, defaultBrokerName),
		stringFieldDefault("broker.base_url", &b.BaseURL, defaultBrokerBaseURL),
		intFieldDefault("broker.timeout_seconds", &b.TimeoutSeconds, defaultBrokerTimeout),
		fieldDefault{
			key:   "broker.rate_limit_per_sec",
			need:  func() bool { return b.RateLimitPerSec <= 0 },
			apply: func() { b.RateLimitPerSec = defaultBrokerRateLimit },
		},
		intFieldDefault("broker.breaker_threshold", &b.BreakerThreshold, defaultBreakerThreshold),
		intFieldDefault("broker.breaker_cooldown_seconds", &b.BreakerCooldownSeconds, defaultBreakerCooldown),
	)
}

func (m *MarketConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("market.source", &m.Source, defaultMarketSource),
		stringFieldDefault("market.binance_rest_url", &m.BinanceRESTURL, defaultBinanceREST),
		stringFieldDefault("market.cache_path", &m.CachePath, defaultCachePath),
	)
}

func (s *StrategyConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("strategy.kind", &s.Kind, defaultStrategyKind),
		stringFieldDefault("strategy.instrument", &s.Instrument, defaultInstrument),
		stringFieldDefault("strategy.granularity", &s.Granularity, defaultGranularity),
		stringFieldDefault("strategy.view", &s.View, defaultView),
		intFieldDefault("strategy.fast_window", &s.FastWindow, defaultFastWindow),
		intFieldDefault("strategy.slow_window", &s.SlowWindow, defaultSlowWindow),
		intFieldDefault("strategy.lookback", &s.Lookback, defaultLookback),
		fieldDefault{
			key:   "strategy.margin",
			need:  func() bool { return s.Margin == 0 },
			apply: func() { s.Margin = defaultMargin },
		},
	)
}

func (b *BacktestConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("backtest.convention", &b.Convention, defaultConvention),
		stringFieldDefault("backtest.format", &b.Format, defaultReportFormat),
	)
}

func (l *LiveConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		intFieldDefault("live.close_after_minutes", &l.CloseAfterMinutes, defaultCloseAfter),
		intFieldDefault("live.call_timeout_seconds", &l.CallTimeoutSeconds, defaultCallTimeout),
		boolFieldDefault("live.require_favorable", &l.RequireFavorable, true),
	)
}

func (j *JournalConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("journal.path", &j.Path, defaultJournalPath),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
