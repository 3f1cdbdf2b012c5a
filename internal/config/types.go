package config

// Config 是 fxbot 的主配置载体。
type Config struct {
	App      AppConfig      `toml:"app"`
	Broker   BrokerConfig   `toml:"broker"`
	Market   MarketConfig   `toml:"market"`
	Strategy StrategyConfig `toml:"strategy"`
	Backtest BacktestConfig `toml:"backtest"`
	Live     LiveConfig     `toml:"live"`
	Journal  JournalConfig  `toml:"journal"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
	HTTPAddr string `toml:"http_addr"`
}

// BrokerConfig 描述经纪商 REST 接入。api_key 与 account_id 通常来自环境变量。
type BrokerConfig struct {
	Name                   string  `toml:"name"`
	BaseURL                string  `toml:"base_url"`
	APIKey                 string  `toml:"api_key"`
	AccountID              string  `toml:"account_id"`
	TimeoutSeconds         int     `toml:"timeout_seconds"`
	RateLimitPerSec        float64 `toml:"rate_limit_per_sec"`
	BreakerThreshold       int     `toml:"breaker_threshold"`
	BreakerCooldownSeconds int     `toml:"breaker_cooldown_seconds"`
}

// MarketConfig 决定回测历史数据从哪里来。
type MarketConfig struct {
	Source         string `toml:"source"`
	BinanceRESTURL string `toml:"binance_rest_url"`
	CacheEnabled   bool   `toml:"cache_enabled"`
	CachePath      string `toml:"cache_path"`
}

type StrategyConfig struct {
	Kind        string  `toml:"kind"`
	Instrument  string  `toml:"instrument"`
	Granularity string  `toml:"granularity"`
	View        string  `toml:"view"`
	FastWindow  int     `toml:"fast_window"`
	SlowWindow  int     `toml:"slow_window"`
	Margin      float64 `toml:"margin"`
	Lookback    int     `toml:"lookback"`
}

type BacktestConfig struct {
	Start          string  `toml:"start"`
	End            string  `toml:"end"`
	Convention     string  `toml:"convention"`
	InitialBalance float64 `toml:"initial_balance"`
	Format         string  `toml:"format"`
	ChartPath      string  `toml:"chart_path"`
}

type LiveConfig struct {
	CloseAt            string `toml:"close_at"`
	CloseAfterMinutes  int    `toml:"close_after_minutes"`
	CallTimeoutSeconds int    `toml:"call_timeout_seconds"`
	RequireFavorable   bool   `toml:"require_favorable"`
}

// JournalConfig 控制实盘下单流水是否写入 sqlite。
type JournalConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}
