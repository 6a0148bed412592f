package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"stockDash/internal/api"
	"stockDash/internal/chart"
	"stockDash/internal/filter"
	"stockDash/internal/launcher"
	"stockDash/internal/mail"
	"stockDash/internal/model"
	"stockDash/internal/recorder"
	"stockDash/internal/scheduler"
	"stockDash/internal/series"
	"stockDash/internal/table"
	"stockDash/internal/trace"
	"stockDash/internal/web"
	"stockDash/internal/worker"
)

// 终端命令超时
const (
	queryTimeout = 30 * time.Second
	scanTimeout  = 10 * time.Minute
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 Web 看板（默认命令）",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

// serve 按配置依次拉起网关子进程、快照调度与 Web 服务，ctx 取消后逆序回收。
func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Launcher.Enabled {
		gw := &launcher.Launcher{
			Python:       cfg.Launcher.Python,
			Port:         cfg.Launcher.Port,
			BaseURL:      cfg.Gateway.BaseURL,
			ReadyTimeout: cfg.Launcher.ReadyTimeout,
			Stdout:       os.Stdout,
			Stderr:       os.Stderr,
		}
		if err := gw.Start(ctx); err != nil {
			return err
		}
		defer func() {
			if err := gw.Stop(); err != nil {
				trace.Warn(ctx, "main: stop gateway: %v", err)
			}
		}()
		if err := gw.WaitReady(ctx); err != nil {
			return fmt.Errorf("wait for gateway: %w", err)
		}
		go func() {
			select {
			case <-gw.Done():
				trace.Warn(ctx, "main: gateway process exited, shutting down")
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	if cfg.Snapshot.Cron != "" {
		rec, err := recorder.NewSQLiteRecorder(cfg.Snapshot.SQLitePath)
		if err != nil {
			return err
		}
		defer rec.Close()
		sched := scheduler.New(ctx, a.client, rec)
		if err := sched.Register(cfg.Snapshot.Cron); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	srv, err := web.NewServer(a.client, web.Options{
		Windows: cfg.Chart.Windows,
		Chart: chart.Options{
			Theme:    a.theme(),
			ZoomBars: cfg.Chart.ZoomBars,
		},
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return err
	}
	return srv.Run(ctx, cfg.Server.Addr)
}

func newKlineCmd(a *app) *cobra.Command {
	var (
		rangeKey string
		start    string
		end      string
		adjust   string
		windows  []int
		tail     int
	)
	cmd := &cobra.Command{
		Use:   "kline SYMBOL",
		Short: "输出日 K 尾部与均线",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), queryTimeout)
			defer cancel()
			if len(windows) == 0 {
				windows = a.cfg.Chart.Windows
			}
			q := api.HistQuery{Symbol: args[0], Adjust: adjust, Start: start, End: end}
			if q.Start == "" {
				s, err := api.RangeStart(rangeKey, time.Now())
				if err != nil {
					return err
				}
				q.Start = s
			}
			raw, err := a.client.DailyBars(ctx, q)
			if err != nil {
				return err
			}
			res, err := series.Build(raw, windows)
			if errors.Is(err, series.ErrNoData) {
				return fmt.Errorf("%s: no usable daily bars", q.Symbol)
			}
			if err != nil {
				return err
			}
			p := a.printer()
			p.Title("%s 日K（%d 根）", q.Symbol, res.Series.Len())
			if res.Dropped > 0 {
				p.Note("已丢弃 %d 条异常记录", res.Dropped)
			}
			p.Kline(res, tail)
			return nil
		},
	}
	cmd.Flags().StringVar(&rangeKey, "range", "1y", "时间范围：1m|3m|1y|3y|all")
	cmd.Flags().StringVar(&start, "start", "", "开始日期 YYYYMMDD，优先于 --range")
	cmd.Flags().StringVar(&end, "end", "", "结束日期 YYYYMMDD，默认今天")
	cmd.Flags().StringVar(&adjust, "adjust", api.AdjustQFQ, "复权：qfq|hfq|none")
	cmd.Flags().IntSliceVar(&windows, "windows", nil, "均线窗口，默认取配置 chart.windows")
	cmd.Flags().IntVar(&tail, "tail", 20, "只输出最后 N 根，0 为全部")
	return cmd
}

func newSpotCmd(a *app) *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "spot",
		Short: "输出实时行情列表",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), queryTimeout)
			defer cancel()
			recs, err := a.client.Spot(ctx)
			if err != nil {
				return err
			}
			if len(recs) > 0 {
				if missing := table.SpotList.Validate(recs[0]); len(missing) > 0 {
					trace.Warn(ctx, "main: spot list missing fields %v", missing)
				}
			}
			p := a.printer()
			p.Title("A股实时行情（共 %d 只）", len(recs))
			p.Note("最后更新时间：%s", time.Now().Format("2006-01-02 15:04:05"))
			p.Table(table.SpotList.Render(recs), top)
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", 20, "只输出前 N 行，0 为全部")
	return cmd
}

func newQuoteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "quote SYMBOL",
		Short: "输出个股实时报价与资金流向",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), queryTimeout)
			defer cancel()
			symbol := args[0]
			if !api.ValidSymbol(symbol) {
				return fmt.Errorf("%w: %q", api.ErrInvalidSymbol, symbol)
			}
			p := a.printer()
			items, err := a.client.CompanyInfo(ctx, symbol)
			if err != nil {
				trace.Warn(ctx, "main: company info %s: %v", symbol, err)
			}
			p.Title("%s（%s）", table.CompanyTitle(items, symbol), symbol)

			rec, err := a.client.SpotBySymbol(ctx, symbol)
			if err != nil {
				return err
			}
			p.Pairs(table.Quote.Pairs(rec))

			flows, err := a.client.FundFlow(ctx, symbol)
			if err != nil {
				trace.Warn(ctx, "main: fund flow %s: %v", symbol, err)
				return nil
			}
			if t, ok := table.FundFlow(flows); ok {
				p.Title("资金流向 %s", t.Caption)
				p.Table(t, 0)
			}
			return nil
		},
	}
}

func newScanCmd(a *app) *cobra.Command {
	var (
		opts        filter.ScanOptions
		trend       []int
		minCapYi    float64
		turnover    []float64
		change      []float64
		pe          []float64
		limit       int
		concurrency int
		sendMail    bool
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "按均线条件扫描全市场",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.AboveMA <= 0 {
				return fmt.Errorf("--above-ma must be positive, got %d", opts.AboveMA)
			}
			if cmd.Flags().Changed("trend") {
				if len(trend) != 2 || trend[0] <= 0 || trend[1] <= 0 {
					return fmt.Errorf("--trend expects two positive windows, got %v", trend)
				}
				opts.ShortMA, opts.LongMA = trend[0], trend[1]
			}
			opts.MinMarketCap = minCapYi * 1e8
			var err error
			if opts.Turnover, err = rangeFlag(cmd, "turnover", turnover); err != nil {
				return err
			}
			if opts.ChangePct, err = rangeFlag(cmd, "change", change); err != nil {
				return err
			}
			if opts.PE, err = rangeFlag(cmd, "pe", pe); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), scanTimeout)
			defer cancel()
			quotes, err := a.client.SpotQuotes(ctx)
			if err != nil {
				return err
			}
			pre := filter.QuotePreFilter(opts.MainBoard)
			candidates := make([]model.StockQuote, 0, len(quotes)/4)
			for i := range quotes {
				if pre(&quotes[i]) {
					candidates = append(candidates, quotes[i])
				}
			}
			trace.Log(ctx, "main: scan quotes=%d candidates=%d opts=%+v", len(quotes), len(candidates), opts)

			windows := slices.Concat(a.cfg.Chart.Windows, opts.Windows())
			slices.Sort(windows)
			windows = slices.Compact(windows)
			wcfg := worker.DefaultConfig()
			wcfg.Concurrency = a.cfg.Scan.Concurrency
			if concurrency > 0 {
				wcfg.Concurrency = concurrency
			}
			wcfg.Windows = windows
			wcfg.Filter = worker.Filter(filter.ScanStrategy(opts))
			selected := worker.Scan(ctx, wcfg, a.client, candidates, limit)

			title := fmt.Sprintf("收盘站上 MA%d：%d 只（候选 %d）", opts.AboveMA, len(selected), len(candidates))
			p := a.printer()
			p.Title("%s", title)
			p.Stocks(selected, windows)
			if err := ctx.Err(); err != nil {
				return err
			}
			if sendMail {
				report := mail.Report{Title: title, Taken: time.Now(), Windows: windows, Stocks: selected}
				if err := mail.SendReport(cmd.Context(), a.smtpConfig(), report); err != nil {
					return fmt.Errorf("send report: %w", err)
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.AboveMA, "above-ma", 20, "收盘价需高于该窗口均线")
	f.IntSliceVar(&trend, "trend", nil, "短,长 两个窗口，要求短均线在长均线之上，如 5,20")
	f.BoolVar(&opts.MainBoard, "main-board", false, "仅沪深主板（60/00 开头）")
	f.Float64Var(&minCapYi, "min-cap", 0, "最小总市值（亿元），0 不限")
	f.Float64SliceVar(&turnover, "turnover", nil, "换手率区间 %，如 3,10")
	f.Float64SliceVar(&change, "change", nil, "涨跌幅区间 %，如 0,9.5")
	f.Float64SliceVar(&pe, "pe", nil, "市盈率区间，如 0,60（亏损股不通过）")
	f.IntVar(&limit, "limit", 50, "按涨跌幅取前 N 只，0 为全部")
	f.IntVar(&concurrency, "concurrency", 0, "并发拉取日 K 的 worker 数，默认取配置 scan.concurrency")
	f.BoolVar(&sendMail, "mail", false, "按 mail 配置把结果发邮件")
	return cmd
}

// rangeFlag 解析 "min,max" 区间参数，未设置时返回 nil。
func rangeFlag(cmd *cobra.Command, name string, v []float64) (*filter.Range, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	if len(v) != 2 || v[0] > v[1] {
		return nil, fmt.Errorf("--%s expects min,max, got %v", name, v)
	}
	return &filter.Range{Min: v[0], Max: v[1]}, nil
}

func newSnapshotCmd(a *app) *cobra.Command {
	var (
		show bool
		top  int
	)
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "抓取一次全市场快照写入 SQLite，或查看最近一次",
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := recorder.NewSQLiteRecorder(a.cfg.Snapshot.SQLitePath)
			if err != nil {
				return err
			}
			defer rec.Close()

			p := a.printer()
			var snap *recorder.SpotSnapshot
			if show {
				snap, err = rec.LatestSpot()
				if err != nil {
					return err
				}
				if snap == nil {
					p.Note("%s 中还没有快照", a.cfg.Snapshot.SQLitePath)
					return nil
				}
			} else {
				snap, err = scheduler.New(cmd.Context(), a.client, rec).RunNow(cmd.Context())
				if err != nil {
					return err
				}
			}
			p.Title("快照 #%d %s（%d 只）", snap.ID, snap.Taken.Format("2006-01-02 15:04:05"), len(snap.Quotes))
			p.Quotes(snap.Quotes, top)
			return nil
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "只查看最近一次快照，不抓取")
	cmd.Flags().IntVar(&top, "top", 20, "只输出前 N 条，0 为全部")
	return cmd
}

func (a *app) smtpConfig() *mail.SMTPConfig {
	m := a.cfg.Mail
	return &mail.SMTPConfig{
		Server:   m.Server,
		Port:     m.Port,
		User:     m.User,
		Password: m.Password,
		From:     m.From,
		To:       m.To,
	}
}
