package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	brcfg "fxbot/internal/config"
	"fxbot/internal/gateway/exchange"
	"fxbot/internal/logger"
	"fxbot/internal/market"
	"fxbot/internal/store/gormstore"
)

// ErrUnfavorable 表示实盘前的回测结果不理想，调度器未启动。
var ErrUnfavorable = errors.New("backtest result is not favorable")

// App 负责应用级编排：回测流水线与实盘流水线共用同一套依赖。
type App struct {
	cfg     *brcfg.Config
	broker  exchange.Broker
	source  market.Source
	journal *gormstore.Journal
	reports *lastReportCache
	views   []market.PriceView
	nowFn   func() time.Time
	closers []func() error

	levelMu  sync.Mutex
	logLevel string

	Summary *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *brcfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	return buildAppWithWire(context.Background(), cfg)
}

// Config 返回当前生效的配置。
func (a *App) Config() *brcfg.Config {
	return a.cfg
}

// Close 释放缓存和流水库连接。
func (a *App) Close() {
	if a == nil {
		return
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warnf("close resource failed: %v", err)
		}
	}
	a.closers = nil
}
