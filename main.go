// Package main 是 stockdash 的入口：启动 Web 看板（可选托管本地 AKTools 网关与定时快照），
// 或在终端查看日 K、行情列表与均线扫描结果。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"stockDash/internal/api"
	"stockDash/internal/chart"
	"stockDash/internal/config"
	"stockDash/internal/display"
	"stockDash/internal/trace"
)

// version 构建时通过 -ldflags "-X main.version=..." 注入
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = trace.WithTraceID(ctx, trace.NewTraceID())
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		trace.Error(ctx, err, "main: exit")
		stop()
		os.Exit(1)
	}
}

// app 各子命令共享的配置与依赖，在 PersistentPreRunE 中初始化。
type app struct {
	configPath string
	cfg        *config.Config
	client     *api.Client
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "stockdash",
		Short:         "A 股行情看板与日 K 分析工具",
		Long:          "stockdash 通过 AKTools 网关获取 A 股行情，提供 Web 看板（列表页、详情页 K 线）以及终端查询命令。",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "配置文件路径（默认 $STOCKDASH_CONFIG 或 "+config.DefaultPath+"）")

	root.AddCommand(
		newServeCmd(a),
		newKlineCmd(a),
		newSpotCmd(a),
		newQuoteCmd(a),
		newScanCmd(a),
		newSnapshotCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) init() error {
	path := a.configPath
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}
	if err := trace.Setup(cfg.Log.Level, cfg.Log.JSON); err != nil {
		return err
	}
	a.cfg = cfg
	a.client = api.NewClient(api.Options{
		BaseURL:        cfg.Gateway.BaseURL,
		Timeout:        cfg.Gateway.Timeout,
		RequestsPerSec: cfg.Gateway.RequestsPerSec,
		MaxRetries:     uint64(cfg.Gateway.MaxRetries),
	})
	return nil
}

func (a *app) theme() chart.Theme {
	return chart.Theme{Up: a.cfg.Chart.UpColor, Down: a.cfg.Chart.DownColor}
}

func (a *app) printer() *display.Printer {
	return display.NewPrinter(os.Stdout, a.theme())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本",
		// 不需要加载配置
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "stockdash %s\n", version)
		},
	}
}
