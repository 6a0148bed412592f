// Package worker 提供扫描任务池：消费行情列表、拉日 K 算均线、按条件过滤后输出。
package worker

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"stockDash/internal/api"
	"stockDash/internal/model"
	"stockDash/internal/series"
	"stockDash/internal/trace"
)

const (
	defaultConcurrency = 4
	jobChannelBuffer   = 50
	// 日历天 / 交易日 的保守系数，再加若干天覆盖长假
	calendarDaysPerBar = 2
	lookbackPadDays    = 30
)

// BarSource 日 K 来源，*api.Client 满足。
type BarSource interface {
	DailyBars(ctx context.Context, q api.HistQuery) ([]model.RawBar, error)
}

// Filter 对合并后的 Stock 做是否入选判断。
type Filter func(*model.Stock) bool

// Config 控制并发数、均线窗口与筛选逻辑。
type Config struct {
	Concurrency int
	Windows     []int
	Filter      Filter
}

func DefaultConfig() Config {
	return Config{Concurrency: defaultConcurrency, Windows: series.DefaultWindows}
}

// Pool 从 jobs 取行情，拉日 K 合并为 Stock，经 Filter 通过后写入 results。
type Pool struct {
	cfg  Config
	src  BarSource
	jobs <-chan model.StockQuote
	out  chan<- *model.Stock
	now  func() time.Time
}

func NewPool(cfg Config, src BarSource, jobs <-chan model.StockQuote, results chan<- *model.Stock) *Pool {
	if src == nil {
		panic("worker: bar source must not be nil")
	}
	if jobs == nil || results == nil {
		panic("worker: jobs and results channels must not be nil")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if len(cfg.Windows) == 0 {
		cfg.Windows = series.DefaultWindows
	}
	if cfg.Filter == nil {
		cfg.Filter = func(*model.Stock) bool { return true }
	}
	return &Pool{cfg: cfg, src: src, jobs: jobs, out: results, now: time.Now}
}

// Run 启动 Concurrency 个 worker，jobs 关闭且全部处理完后关闭 results。
func (p *Pool) Run(ctx context.Context) {
	trace.Log(ctx, "worker: Pool.Run start concurrency=%d windows=%v", p.cfg.Concurrency, p.cfg.Windows)
	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.runWorker(ctx)
		}()
	}
	wg.Wait()
	close(p.out)
	trace.Log(ctx, "worker: Pool.Run done")
}

func (p *Pool) runWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case q, ok := <-p.jobs:
			if !ok {
				return
			}
			stock := p.fetchAndMerge(ctx, &q)
			if stock == nil || !p.cfg.Filter(stock) {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case p.out <- stock:
			}
		}
	}
}

// lookbackStart 覆盖最大窗口所需的起始日期。
func (p *Pool) lookbackStart() string {
	maxW := 0
	for _, w := range p.cfg.Windows {
		if w > maxW {
			maxW = w
		}
	}
	days := maxW*calendarDaysPerBar + lookbackPadDays
	return p.now().AddDate(0, 0, -days).Format("20060102")
}

func (p *Pool) fetchAndMerge(ctx context.Context, q *model.StockQuote) *model.Stock {
	raw, err := p.src.DailyBars(ctx, api.HistQuery{Symbol: q.Code, Start: p.lookbackStart()})
	if err != nil {
		trace.Warn(ctx, "worker: DailyBars code=%s err=%v", q.Code, err)
		return nil
	}
	res, err := series.Build(raw, p.cfg.Windows)
	if err != nil {
		if !errors.Is(err, series.ErrNoData) {
			trace.Warn(ctx, "worker: build code=%s err=%v", q.Code, err)
		}
		return nil
	}
	n := res.Series.Len()
	stock := &model.Stock{
		Code:         q.Code,
		Name:         q.Name,
		Price:        q.Price,
		ChangePct:    q.ChangePct,
		TurnoverRate: q.TurnoverRate,
		MarketCap:    q.MarketCap,
		PE:           q.PE,
		Bars:         n,
		LastDate:     res.Series.Dates[n-1],
		LastClose:    res.Series.OHLC[n-1].Close(),
		MA:           make(map[int]float64, len(res.MAs)),
	}
	for _, m := range res.MAs {
		if last := m.Last(); last.Valid {
			stock.MA[m.Window] = last.Value
		}
	}
	return stock
}

// Scan 把 quotes 投入任务池，收集通过的结果，按涨跌幅降序取前 limit（<=0 不截断）。
func Scan(ctx context.Context, cfg Config, src BarSource, quotes []model.StockQuote, limit int) []*model.Stock {
	jobs := make(chan model.StockQuote, jobChannelBuffer)
	results := make(chan *model.Stock, jobChannelBuffer)
	pool := NewPool(cfg, src, jobs, results)

	var selected []*model.Stock
	done := make(chan struct{})
	go func() {
		for s := range results {
			selected = append(selected, s)
		}
		close(done)
	}()

	go pool.Run(ctx)

produce:
	for i := range quotes {
		select {
		case <-ctx.Done():
			trace.Log(ctx, "worker: ctx done, produced %d jobs", i)
			break produce
		case jobs <- quotes[i]:
		}
	}
	close(jobs)
	<-done

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].ChangePct > selected[j].ChangePct
	})
	if limit > 0 && len(selected) > limit {
		selected = selected[:limit]
	}
	trace.Log(ctx, "worker: scan done candidates=%d selected=%d", len(quotes), len(selected))
	return selected
}
