package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"fxbot/internal/app"
	brcfg "fxbot/internal/config"
	"fxbot/internal/logger"
)

// 由 -ldflags "-X main.version=..." 注入
var version = "dev"

func main() {
	// .env 不存在时忽略
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, app.ErrUnfavorable) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:          "fxbot",
		Short:        "FX backtesting and time-boxed live trading with SMA signals",
		SilenceUsage: true,
	}
	defaultPath := os.Getenv("FXBOT_CONFIG")
	if defaultPath == "" {
		defaultPath = "configs/config.yaml"
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultPath, "config file (env FXBOT_CONFIG)")

	root.AddCommand(backtestCmd(&cfgPath), liveCmd(&cfgPath), versionCmd())
	return root
}

func backtestCmd(cfgPath *string) *cobra.Command {
	var opts app.BacktestOptions
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Simulate the configured strategy over historical candles",
		Example: `  fxbot backtest
  fxbot backtest --instrument EUR_USD --start "2024-03-01" --end "2024-03-02" --format yaml
  fxbot backtest --chart out/backtest.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, cleanup, err := bootstrap(*cfgPath)
			if err != nil {
				return err
			}
			defer cleanup()
			opts.Out = cmd.OutOrStdout()
			_, err = a.RunBacktest(cmd.Context(), opts)
			return err
		},
	}
	cmd.Flags().StringVar(&opts.Instrument, "instrument", "", "instrument, e.g. EUR_USD (default from config)")
	cmd.Flags().StringVar(&opts.Start, "start", "", "range start, e.g. \"2024-03-01 00:00:00\"")
	cmd.Flags().StringVar(&opts.End, "end", "", "range end")
	cmd.Flags().StringVar(&opts.Format, "format", "", "report format: text|json|yaml")
	cmd.Flags().StringVar(&opts.ChartPath, "chart", "", "write an HTML balance chart to this path")
	return cmd
}

func liveCmd(cfgPath *string) *cobra.Command {
	var opts app.LiveOptions
	cmd := &cobra.Command{
		Use:   "live",
		Short: "Backtest, then trade live until the close deadline if the result is favorable",
		Example: `  fxbot live --close "2024-03-04 16:30:00"
  fxbot live --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, cleanup, err := bootstrap(*cfgPath)
			if err != nil {
				return err
			}
			defer cleanup()
			if a.Summary != nil {
				a.Summary.Print(cmd.OutOrStdout())
			}
			brcfg.Watch(cmd.Context(), *cfgPath, a.ApplyConfig)
			opts.Out = cmd.OutOrStdout()
			return a.RunLive(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.CloseAt, "close", "", "close deadline (default live.close_at or now + live.close_after_minutes)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "trade even when the backtest is not favorable")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fxbot %s\n", version)
		},
	}
}

// bootstrap 读取配置、接好日志输出并构建 App；返回的 cleanup 关闭所有资源。
func bootstrap(cfgPath string) (*app.App, func(), error) {
	cfg, err := brcfg.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置失败: %w", err)
	}
	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		return nil, nil, fmt.Errorf("初始化日志文件失败: %w", err)
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.Infof("✓ 配置加载成功（环境=%s，品种=%s，策略=%s）", cfg.App.Env, cfg.Strategy.Instrument, cfg.Strategy.Kind)

	a, err := app.NewApp(cfg)
	if err != nil {
		if logFile != nil {
			_ = logFile.Close()
		}
		return nil, nil, fmt.Errorf("初始化应用失败: %w", err)
	}
	cleanup := func() {
		a.Close()
		if logFile != nil {
			_ = logFile.Close()
		}
	}
	return a, cleanup, nil
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}
