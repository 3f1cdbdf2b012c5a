package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"fxbot/internal/backtest"
	"fxbot/internal/logger"
	"fxbot/internal/market"
	"fxbot/internal/signal"
	"fxbot/internal/strategy"
)

// BacktestOptions 是命令行对配置的临时覆盖，空值表示沿用配置。
type BacktestOptions struct {
	Instrument string
	Start      string
	End        string
	Format     string
	ChartPath  string
	Out        io.Writer
}

// RunBacktest 拉取历史行情，按配置的策略生成指令并模拟，输出报告。
func (a *App) RunBacktest(ctx context.Context, opts BacktestOptions) (backtest.Report, error) {
	cfg := *a.cfg
	if v := strings.TrimSpace(opts.Instrument); v != "" {
		cfg.Strategy.Instrument = v
	}
	if v := strings.TrimSpace(opts.Start); v != "" {
		cfg.Backtest.Start = v
	}
	if v := strings.TrimSpace(opts.End); v != "" {
		cfg.Backtest.End = v
	}
	if v := strings.TrimSpace(opts.Format); v != "" {
		cfg.Backtest.Format = v
	}
	if v := strings.TrimSpace(opts.ChartPath); v != "" {
		cfg.Backtest.ChartPath = v
	}
	instrument := strings.ToUpper(strings.TrimSpace(cfg.Strategy.Instrument))

	kind, err := strategy.ParseKind(cfg.Strategy.Kind)
	if err != nil {
		return backtest.Report{}, err
	}
	gran, err := market.ParseGranularity(cfg.Strategy.Granularity)
	if err != nil {
		return backtest.Report{}, err
	}
	gen, err := signal.NewGenerator(cfg.Strategy.FastWindow, cfg.Strategy.SlowWindow)
	if err != nil {
		return backtest.Report{}, err
	}
	conv, err := backtest.ParseConvention(cfg.Backtest.Convention)
	if err != nil {
		return backtest.Report{}, err
	}
	format, err := backtest.ParseFormat(cfg.Backtest.Format)
	if err != nil {
		return backtest.Report{}, err
	}
	rng, err := cfg.BacktestRange(a.nowFn())
	if err != nil {
		return backtest.Report{}, err
	}

	balance, currency, err := a.startingBalance(ctx, cfg.Backtest.InitialBalance)
	if err != nil {
		return backtest.Report{}, err
	}

	prices, err := a.fetchPrices(ctx, instrument, gran, rng)
	if err != nil {
		return backtest.Report{}, err
	}
	logger.Infof("backtest %s %s %s: %d candles from %s to %s",
		instrument, kind, gran, prices.Len(), rng.From.Format("2006-01-02 15:04"), rng.To.Format("2006-01-02 15:04"))

	plan, err := strategy.BuildPlan(strategy.PlanInput{
		Kind:            kind,
		Signals:         gen,
		Instrument:      instrument,
		Prices:          prices,
		Balance:         balance,
		AccountCurrency: currency,
	})
	if err != nil {
		return backtest.Report{}, err
	}
	bt, err := backtest.New(plan.Input(cfg.Strategy.Margin, conv, instrument))
	if err != nil {
		return backtest.Report{}, err
	}
	report, err := bt.Run()
	if err != nil {
		return report, err
	}
	a.reports.Set(report)
	logger.Infof("backtest %s done: %d steps, %.6f -> %.6f (favorable=%v)",
		report.ID, len(report.Steps), report.InitialBalance, report.Result, report.Favorable())

	if opts.Out != nil {
		if err := backtest.Encode(opts.Out, report, format); err != nil {
			return report, fmt.Errorf("encode report: %w", err)
		}
	}
	if path := strings.TrimSpace(cfg.Backtest.ChartPath); path != "" {
		if err := writeChart(path, report); err != nil {
			return report, err
		}
		logger.Infof("backtest chart written to %s", path)
	}
	return report, nil
}

// startingBalance 优先使用配置的初始余额；否则读取经纪商账户。账户货币用于判断是否需要换算价格。
func (a *App) startingBalance(ctx context.Context, configured float64) (float64, string, error) {
	if a.broker == nil {
		if configured <= 0 {
			return 0, "", fmt.Errorf("backtest.initial_balance is required without broker credentials")
		}
		return configured, "", nil
	}
	acct, err := a.broker.Account(ctx)
	if err != nil {
		if configured > 0 {
			logger.Warnf("read account failed, using configured balance %.2f: %v", configured, err)
			return configured, "", nil
		}
		return 0, "", fmt.Errorf("read account: %w", err)
	}
	if configured > 0 {
		return configured, acct.Currency, nil
	}
	return acct.Balance, acct.Currency, nil
}

// fetchPrices 并发拉取各报价视图，再按 mid 的时间轴合并。
func (a *App) fetchPrices(ctx context.Context, instrument string, gran market.Granularity, rng market.TimeRange) (market.PriceSet, error) {
	results := make(map[market.PriceView][]market.Candle, len(a.views))
	slots := make([][]market.Candle, len(a.views))
	g, gctx := errgroup.WithContext(ctx)
	for i, view := range a.views {
		i, view := i, view
		g.Go(func() error {
			candles, err := a.source.Candles(gctx, market.CandleRequest{
				Instrument:  instrument,
				Granularity: gran,
				View:        view,
				Range:       &market.TimeRange{From: rng.From, To: rng.To},
			})
			if err != nil {
				return fmt.Errorf("fetch %s candles for %s: %w", view, instrument, err)
			}
			slots[i] = candles
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return market.PriceSet{}, err
	}
	for i, view := range a.views {
		results[view] = slots[i]
	}
	merged := market.MergeViews(results[market.ViewMid], results[market.ViewBid], results[market.ViewAsk])
	if len(merged) == 0 {
		return market.PriceSet{}, fmt.Errorf("no candles for %s between %s and %s", instrument, rng.From, rng.To)
	}
	return market.ExtractSeries(merged), nil
}

func writeChart(path string, r backtest.Report) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := backtest.RenderChart(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("render chart: %w", err)
	}
	return f.Close()
}
