package series

import (
	"fmt"

	"stockDash/internal/model"
)

// DefaultWindows K 线图默认均线窗口
var DefaultWindows = []int{5, 10, 20}

// Result 一次加载的全部图表数据；每次拉取都从头计算，不跨请求复用。
type Result struct {
	Series  *Normalized
	MAs     []MA
	Dropped int // 被丢弃的无效记录数
}

// Build 归一化并按每个窗口独立计算均线。归一化后为空返回 ErrNoData；
// 窗口 <=0 返回 ErrInvalidWindow；窗口大于序列长度时该均线全为占位。
func Build(raw []model.RawBar, windows []int) (*Result, error) {
	for _, w := range windows {
		if w <= 0 {
			return nil, fmt.Errorf("%w: window=%d", ErrInvalidWindow, w)
		}
	}
	n := Normalize(raw)
	if n.Empty() {
		return nil, ErrNoData
	}
	closes := n.Closes()
	mas := make([]MA, 0, len(windows))
	for _, w := range windows {
		if w > len(closes) {
			mas = append(mas, MA{Window: w, Values: Blank(len(closes))})
			continue
		}
		vals, err := MovingAverage(closes, w)
		if err != nil {
			return nil, err
		}
		mas = append(mas, MA{Window: w, Values: vals})
	}
	return &Result{Series: n, MAs: mas, Dropped: len(raw) - n.Len()}, nil
}
