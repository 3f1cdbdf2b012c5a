package app

import (
	"fmt"
	"io"
	"strings"

	brcfg "fxbot/internal/config"
)

type StartupSummary struct {
	Strategy StrategySummary
	Market   MarketSummary
	Live     LiveSummary
}

type StrategySummary struct {
	Kind        string
	Instrument  string
	Granularity string
	Windows     string
	Margin      float64
	Convention  string
}

type MarketSummary struct {
	Source    string
	Cache     string
	Broker    string
	BrokerURL string
}

type LiveSummary struct {
	CloseAt          string
	RequireFavorable bool
	Journal          string
	HTTPAddr         string
}

func newStartupSummary(cfg *brcfg.Config, brokerReady bool) *StartupSummary {
	s := &StartupSummary{
		Strategy: StrategySummary{
			Kind:        cfg.Strategy.Kind,
			Instrument:  strings.ToUpper(cfg.Strategy.Instrument),
			Granularity: strings.ToUpper(cfg.Strategy.Granularity),
			Windows:     fmt.Sprintf("%d/%d", cfg.Strategy.FastWindow, cfg.Strategy.SlowWindow),
			Margin:      cfg.Strategy.Margin,
			Convention:  cfg.Backtest.Convention,
		},
		Market: MarketSummary{
			Source:    cfg.Market.Source,
			Cache:     "disabled",
			Broker:    "not configured",
			BrokerURL: cfg.Broker.BaseURL,
		},
		Live: LiveSummary{
			CloseAt:          cfg.Live.CloseAt,
			RequireFavorable: cfg.Live.RequireFavorable,
			Journal:          "disabled",
			HTTPAddr:         cfg.App.HTTPAddr,
		},
	}
	if cfg.Market.CacheEnabled {
		s.Market.Cache = cfg.Market.CachePath
	}
	if brokerReady {
		s.Market.Broker = cfg.Broker.Name
	}
	if s.Live.CloseAt == "" {
		s.Live.CloseAt = fmt.Sprintf("+%dm", cfg.Live.CloseAfterMinutes)
	}
	if cfg.Journal.Enabled {
		s.Live.Journal = cfg.Journal.Path
	}
	return s
}

// Print 输出启动配置摘要。
func (s *StartupSummary) Print(w io.Writer) {
	if s == nil || w == nil {
		return
	}
	title := "启动配置摘要 (STARTUP SUMMARY)"
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "%*s\n", 40+len(title)/2, title)
	fmt.Fprintln(w, strings.Repeat("=", 80))

	fmt.Fprintln(w, "[策略 (STRATEGY)]")
	fmt.Fprintf(w, "  类型: %s\n", s.Strategy.Kind)
	fmt.Fprintf(w, "  品种: %s @ %s\n", s.Strategy.Instrument, s.Strategy.Granularity)
	fmt.Fprintf(w, "  均线: %s\n", s.Strategy.Windows)
	fmt.Fprintf(w, "  仓位比例: %g (%s)\n", s.Strategy.Margin, s.Strategy.Convention)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[行情 (MARKET)]")
	fmt.Fprintf(w, "  数据源: %s\n", s.Market.Source)
	fmt.Fprintf(w, "  缓存: %s\n", s.Market.Cache)
	fmt.Fprintf(w, "  经纪商: %s %s\n", s.Market.Broker, s.Market.BrokerURL)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[实盘 (LIVE)]")
	fmt.Fprintf(w, "  截止: %s\n", s.Live.CloseAt)
	fmt.Fprintf(w, "  要求回测盈利: %v\n", s.Live.RequireFavorable)
	fmt.Fprintf(w, "  流水: %s\n", s.Live.Journal)
	fmt.Fprintf(w, "  状态接口: %s\n", s.Live.HTTPAddr)
	fmt.Fprintln(w, strings.Repeat("=", 80))
}
