package series

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidWindow 窗口 <=0 或大于序列长度。
var ErrInvalidWindow = errors.New("series: invalid moving-average window")

// 均线保留小数位
const maDecimals = 2

// MAValue 单点均线；Valid=false 为历史不足的占位（JSON 编码为 "-"）。
type MAValue struct {
	Value float64
	Valid bool
}

var undefinedJSON = []byte(`"-"`)

func (v MAValue) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return undefinedJSON, nil
	}
	return json.Marshal(v.Value)
}

func (v MAValue) String() string {
	if !v.Valid {
		return "-"
	}
	return decimal.NewFromFloat(v.Value).StringFixed(maDecimals)
}

// MA 一条均线：窗口 + 与 K 线等长的数值。
type MA struct {
	Window int
	Values []MAValue
}

func (m MA) Name() string { return fmt.Sprintf("MA%d", m.Window) }

// Last 返回最后一个点。
func (m MA) Last() MAValue {
	if len(m.Values) == 0 {
		return MAValue{}
	}
	return m.Values[len(m.Values)-1]
}

// MovingAverage 简单均线：i < window-1 为占位，其余为 closes[i-window+1..i] 直接求和 / window，
// 四舍五入（远离零）到 2 位小数。每个点独立求和，不做滑动累加，结果与直接公式逐位一致。
func MovingAverage(closes []float64, window int) ([]MAValue, error) {
	if window <= 0 || window > len(closes) {
		return nil, fmt.Errorf("%w: window=%d len=%d", ErrInvalidWindow, window, len(closes))
	}
	out := make([]MAValue, len(closes))
	for i := window - 1; i < len(closes); i++ {
		var sum float64
		for j := i - window + 1; j <= i; j++ {
			sum += closes[j]
		}
		out[i] = MAValue{Value: round(sum/float64(window), maDecimals), Valid: true}
	}
	return out, nil
}

// Blank 返回 n 个占位点，用于窗口大于序列长度时仍画出（空）均线。
func Blank(n int) []MAValue {
	return make([]MAValue, n)
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
