// Package chart 为 ECharts K 线图构建配置。图表实例由调用方显式持有（Handle），
// 每个请求或每个页面各自一份，不存在全局实例。
package chart

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"stockDash/internal/series"
)

var (
	ErrDestroyed      = errors.New("chart: handle destroyed")
	ErrLengthMismatch = errors.New("chart: moving average length differs from series")
)

// 默认主题：红涨绿跌
const (
	DefaultUpColor   = "#FD1050"
	DefaultDownColor = "#0CF49B"
	DefaultZoomBars  = 365
	DefaultContainer = "kline-chart"
)

type Theme struct {
	Up   string `json:"up" yaml:"up"`
	Down string `json:"down" yaml:"down"`
}

// Options NewHandle 参数，零值字段取默认。
type Options struct {
	Container string
	Theme     Theme
	ZoomBars  int
}

type Handle struct {
	mu        sync.Mutex
	opts      Options
	option    *Option
	destroyed bool
}

func NewHandle(opts Options) *Handle {
	if opts.Container == "" {
		opts.Container = DefaultContainer
	}
	if opts.Theme.Up == "" {
		opts.Theme.Up = DefaultUpColor
	}
	if opts.Theme.Down == "" {
		opts.Theme.Down = DefaultDownColor
	}
	if opts.ZoomBars <= 0 {
		opts.ZoomBars = DefaultZoomBars
	}
	return &Handle{opts: opts}
}

func (h *Handle) Container() string { return h.opts.Container }

func (h *Handle) Theme() Theme { return h.opts.Theme }

// Render 用新数据替换上一次的配置。空序列返回 series.ErrNoData，均线长度必须与序列一致。
func (h *Handle) Render(s *series.Normalized, mas []series.MA) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return ErrDestroyed
	}
	if s.Empty() {
		return series.ErrNoData
	}
	for _, m := range mas {
		if len(m.Values) != s.Len() {
			return fmt.Errorf("%w: %s has %d points, series has %d", ErrLengthMismatch, m.Name(), len(m.Values), s.Len())
		}
	}
	h.option = buildOption(s, mas, h.opts.Theme, h.opts.ZoomBars)
	return nil
}

// Clear 丢弃当前配置，句柄可继续 Render。
func (h *Handle) Clear() {
	h.mu.Lock()
	h.option = nil
	h.mu.Unlock()
}

// Destroy 结束生命周期，之后 Render 返回 ErrDestroyed。
func (h *Handle) Destroy() {
	h.mu.Lock()
	h.option = nil
	h.destroyed = true
	h.mu.Unlock()
}

// Option 最近一次 Render 的配置，未渲染或已清除时为 nil。
func (h *Handle) Option() *Option {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.option
}

func (h *Handle) MarshalJSON() ([]byte, error) {
	opt := h.Option()
	if opt == nil {
		return []byte("null"), nil
	}
	return json.Marshal(opt)
}
