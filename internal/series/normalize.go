// Package series 把网关日 K 原文整理为 K 线图所需的三组平行序列，并计算收盘价均线。
package series

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"stockDash/internal/model"
)

// ErrNoData 归一化后没有任何有效日 K；与拉取失败区分，调用方按“无数据”处理。
var ErrNoData = errors.New("series: no usable bars")

// 量柱方向
const (
	SignUp   = 1
	SignDown = -1
)

// OHLC 单根 K：开、收、低、高（ECharts candlestick 顺序）。
type OHLC [4]float64

func (o OHLC) Open() float64  { return o[0] }
func (o OHLC) Close() float64 { return o[1] }
func (o OHLC) Low() float64   { return o[2] }
func (o OHLC) High() float64  { return o[3] }

// VolumeBar 量柱：输出序号、成交量、方向（收盘低于开盘为 -1，否则 +1）。
type VolumeBar struct {
	Index  int
	Volume float64
	Sign   int
}

// MarshalJSON 编码为 [index, volume, sign]。
func (v VolumeBar) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{float64(v.Index), v.Volume, float64(v.Sign)})
}

// Normalized 三组等长平行序列：日期、OHLC、量柱。
type Normalized struct {
	Dates   []string
	OHLC    []OHLC
	Volumes []VolumeBar
}

func (n *Normalized) Len() int {
	if n == nil {
		return 0
	}
	return len(n.Dates)
}

func (n *Normalized) Empty() bool { return n.Len() == 0 }

// Closes 按顺序返回收盘价。
func (n *Normalized) Closes() []float64 {
	out := make([]float64, n.Len())
	for i := range out {
		out[i] = n.OHLC[i].Close()
	}
	return out
}

// Normalize 逐条校验：日期为空或任一价格/成交量不是有限数字的记录直接跳过，不补位；
// 保留输入顺序（不排序），量柱序号取输出序号。
func Normalize(raw []model.RawBar) *Normalized {
	n := &Normalized{
		Dates:   make([]string, 0, len(raw)),
		OHLC:    make([]OHLC, 0, len(raw)),
		Volumes: make([]VolumeBar, 0, len(raw)),
	}
	for i := range raw {
		r := &raw[i]
		date := normalizeDate(r.Date)
		if date == "" {
			continue
		}
		open, ok1 := parseFinite(r.Open)
		closeVal, ok2 := parseFinite(r.Close)
		low, ok3 := parseFinite(r.Low)
		high, ok4 := parseFinite(r.High)
		vol, ok5 := parseFinite(r.Volume)
		if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
			continue
		}
		sign := SignUp
		if open > closeVal {
			sign = SignDown
		}
		n.Volumes = append(n.Volumes, VolumeBar{Index: len(n.Dates), Volume: vol, Sign: sign})
		n.Dates = append(n.Dates, date)
		n.OHLC = append(n.OHLC, OHLC{open, closeVal, low, high})
	}
	return n
}

func parseFinite(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// normalizeDate 网关日期可能带时间部分（2024-01-02T00:00:00.000），只保留日期。
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if d, _, ok := strings.Cut(s, "T"); ok {
		return d
	}
	return s
}
