package app

import (
	"context"
	"fmt"
	"time"

	brcfg "fxbot/internal/config"
	"fxbot/internal/gateway"
	"fxbot/internal/gateway/exchange"
	"fxbot/internal/logger"
	"fxbot/internal/market"
	"fxbot/internal/store/gormstore"
	"fxbot/internal/store/sqlite"
)

// AppBuilder 负责按配置组装依赖，各构造函数可在测试中替换。
type AppBuilder struct {
	cfg *brcfg.Config

	brokerFn  func(*brcfg.Config) (exchange.Broker, error)
	sourceFn  func(*brcfg.Config, exchange.Broker) (market.Source, error)
	cacheFn   func(path string, inner market.Source) (*sqlite.CandleCache, error)
	journalFn func(path string) (*gormstore.Journal, error)
	nowFn     func() time.Time
}

type AppBuilderOption func(*AppBuilder)

// WithBroker 直接注入经纪商实现，跳过凭证检查。
func WithBroker(b exchange.Broker) AppBuilderOption {
	return func(ab *AppBuilder) {
		ab.brokerFn = func(*brcfg.Config) (exchange.Broker, error) { return b, nil }
	}
}

// WithSource 注入历史行情源。
func WithSource(src market.Source) AppBuilderOption {
	return func(ab *AppBuilder) {
		ab.sourceFn = func(*brcfg.Config, exchange.Broker) (market.Source, error) { return src, nil }
	}
}

func WithClock(now func() time.Time) AppBuilderOption {
	return func(ab *AppBuilder) {
		if now != nil {
			ab.nowFn = now
		}
	}
}

func NewAppBuilder(cfg *brcfg.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:       cfg,
		brokerFn:  buildBroker,
		sourceFn:  gateway.NewSourceFromConfig,
		cacheFn:   sqlite.NewCandleCache,
		journalFn: gormstore.NewJournal,
		nowFn:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func buildBroker(cfg *brcfg.Config) (exchange.Broker, error) {
	if !gateway.HasBrokerCredentials(cfg) {
		logger.Warnf("broker credentials missing; live trading disabled, backtests need backtest.initial_balance")
		return nil, nil
	}
	return gateway.NewBrokerFromConfig(cfg)
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	app := &App{
		cfg:     cfg,
		reports: newLastReportCache(),
		views:   gateway.SourceViews(cfg),
		nowFn:   b.nowFn,
	}
	success := false
	defer func() {
		if !success {
			app.Close()
		}
	}()

	broker, err := b.brokerFn(cfg)
	if err != nil {
		return nil, fmt.Errorf("初始化经纪商失败: %w", err)
	}
	app.broker = broker

	src, err := b.sourceFn(cfg, broker)
	if err != nil {
		return nil, fmt.Errorf("初始化行情源失败: %w", err)
	}
	if cfg.Market.CacheEnabled {
		cache, err := b.cacheFn(cfg.Market.CachePath, src)
		if err != nil {
			return nil, fmt.Errorf("初始化蜡烛缓存失败: %w", err)
		}
		app.closers = append(app.closers, cache.Close)
		src = cache
		logger.Infof("✓ 蜡烛缓存已启用: %s", cfg.Market.CachePath)
	}
	app.source = src

	if cfg.Journal.Enabled {
		journal, err := b.journalFn(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("初始化下单流水失败: %w", err)
		}
		app.journal = journal
		app.closers = append(app.closers, journal.Close)
		logger.Infof("✓ 下单流水写入 %s", cfg.Journal.Path)
	}

	app.Summary = newStartupSummary(cfg, broker != nil)
	success = true
	return app, nil
}
