package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	brcfg "fxbot/internal/config"
	"fxbot/internal/logger"
	"fxbot/internal/scheduler"
	livehttp "fxbot/internal/transport/http/live"
)

// LiveOptions 覆盖实盘运行参数。
type LiveOptions struct {
	// CloseAt 覆盖 live.close_at。
	CloseAt string
	// Force 跳过回测结果检查。
	Force bool
	Out   io.Writer
	// SchedulerOptions 透传给调度器，测试里用来替换时钟。
	SchedulerOptions []scheduler.Option
}

// RunLive 先回测，结果理想（或 Force）时启动调度器和状态 HTTP 服务，阻塞直到调度器结束。
func (a *App) RunLive(ctx context.Context, opts LiveOptions) error {
	if a.broker == nil {
		return fmt.Errorf("live trading requires broker credentials (broker.api_key, broker.account_id)")
	}
	report, err := a.RunBacktest(ctx, BacktestOptions{Out: opts.Out})
	if err != nil {
		return fmt.Errorf("pre-live backtest: %w", err)
	}
	if !report.Favorable() {
		if a.cfg.Live.RequireFavorable && !opts.Force {
			logger.Warnf("backtest %s unfavorable (%.6f -> %.6f), live run skipped",
				report.ID, report.InitialBalance, report.Result)
			return ErrUnfavorable
		}
		logger.Warnf("backtest %s unfavorable, continuing to live run", report.ID)
	}

	live := *a.cfg
	if v := strings.TrimSpace(opts.CloseAt); v != "" {
		live.Live.CloseAt = v
	}
	deadline, err := live.CloseDeadline(a.nowFn())
	if err != nil {
		return err
	}
	sc, err := live.StrategyConfig(deadline)
	if err != nil {
		return err
	}

	schedOpts := append([]scheduler.Option(nil), opts.SchedulerOptions...)
	if a.journal != nil {
		schedOpts = append(schedOpts, scheduler.WithRecorder(a.journal))
	}
	sched, err := scheduler.New(sc, a.broker, schedOpts...)
	if err != nil {
		return err
	}

	srv, err := a.liveServer(sched)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	group, gctx := errgroup.WithContext(runCtx)
	if srv != nil {
		group.Go(func() error {
			logger.Infof("live status API listening on %s", srv.Addr())
			if err := srv.Start(gctx); err != nil {
				return fmt.Errorf("live http server error: %w", err)
			}
			return nil
		})
	}
	group.Go(func() error {
		// 调度器结束后关闭 HTTP 服务
		defer cancel()
		return sched.Run(gctx)
	})
	return group.Wait()
}

func (a *App) liveServer(sched *scheduler.Scheduler) (*livehttp.Server, error) {
	addr := strings.TrimSpace(a.cfg.App.HTTPAddr)
	if addr == "" || addr == "-" {
		return nil, nil
	}
	cfg := livehttp.ServerConfig{Addr: addr, Status: sched, Reports: a.reports}
	if a.journal != nil {
		cfg.Journal = a.journal
	}
	return livehttp.NewServer(cfg)
}

// ApplyConfig 处理配置热更新；目前只有日志级别可以在运行中调整。
func (a *App) ApplyConfig(next *brcfg.Config) {
	if next == nil {
		return
	}
	a.levelMu.Lock()
	defer a.levelMu.Unlock()
	prev := a.logLevel
	if prev == "" {
		prev = a.cfg.App.LogLevel
	}
	if next.App.LogLevel != prev {
		logger.Infof("log level %s -> %s", prev, next.App.LogLevel)
	}
	logger.SetLevel(next.App.LogLevel)
	a.logLevel = next.App.LogLevel
}

// LogLevel 返回当前生效的日志级别。
func (a *App) LogLevel() string {
	a.levelMu.Lock()
	defer a.levelMu.Unlock()
	if a.logLevel == "" {
		return a.cfg.App.LogLevel
	}
	return a.logLevel
}
