// Package filter 定义扫描条件（Criterion）及其组合，ScanStrategy 按 ScanOptions 组装 scan 命令的条件。
package filter

import (
	"slices"
	"strings"

	"stockDash/internal/model"
)

// 名称关键词（剔除用）
const (
	nameKeywordST     = "ST"
	nameKeywordDelist = "退"
)

// 证券代码前缀：上海主板 60，深圳主板 00
const (
	codePrefixShanghai     = '6'
	codeSecondShanghaiMain = '0'
	codePrefixShenzhen     = '0'
	codeSecondShenzhenMain = '0'
)

// Criterion 单条条件：入参为合并后的 Stock，返回是否通过。
type Criterion func(*model.Stock) bool

func And(cs ...Criterion) Criterion {
	return func(s *model.Stock) bool {
		if s == nil {
			return false
		}
		for _, c := range cs {
			if c == nil {
				continue
			}
			if !c(s) {
				return false
			}
		}
		return true
	}
}

// MainBoard 仅主板：上海 60 开头，深圳 00 开头。
func MainBoard(s *model.Stock) bool {
	return mainBoardCode(s.Code)
}

func mainBoardCode(code string) bool {
	code = strings.TrimSpace(code)
	if len(code) < 2 {
		return false
	}
	switch code[0] {
	case codePrefixShanghai:
		return code[1] == codeSecondShanghaiMain
	case codePrefixShenzhen:
		return code[1] == codeSecondShenzhenMain
	default:
		return false
	}
}

func ExcludeST(s *model.Stock) bool {
	return !strings.Contains(strings.ToUpper(s.Name), nameKeywordST)
}

func ExcludeDelisted(s *model.Stock) bool {
	return !strings.Contains(s.Name, nameKeywordDelist)
}

func TurnoverRateRange(min, max float64) Criterion {
	return func(s *model.Stock) bool { return s.TurnoverRate >= min && s.TurnoverRate <= max }
}

func ChangePctRange(min, max float64) Criterion {
	return func(s *model.Stock) bool { return s.ChangePct >= min && s.ChangePct <= max }
}

func MarketCapMin(min float64) Criterion {
	return func(s *model.Stock) bool { return s.MarketCap >= min }
}

// PERange PE 为 0（亏损或无效）时不通过。
func PERange(min, max float64) Criterion {
	return func(s *model.Stock) bool {
		if s.PE <= 0 {
			return false
		}
		return s.PE >= min && s.PE <= max
	}
}

// CloseAboveMA 最新收盘价高于 w 日均线；历史不足 w 根时不通过。
func CloseAboveMA(w int) Criterion {
	return func(s *model.Stock) bool {
		ma, ok := s.MAOf(w)
		return ok && s.LastClose > ma
	}
}

// MAAbove 短均线在长均线之上（多头排列的一段）。
func MAAbove(short, long int) Criterion {
	return func(s *model.Stock) bool {
		a, ok1 := s.MAOf(short)
		b, ok2 := s.MAOf(long)
		return ok1 && ok2 && a > b
	}
}

// QuotePreFilter 仅用行情列表做初选：剔除 ST/退市与停牌（现价为 0），可选仅主板。
// 通过后再请求日 K，避免对全量股票拉 K 线。
func QuotePreFilter(mainBoardOnly bool) func(*model.StockQuote) bool {
	return func(q *model.StockQuote) bool {
		if q == nil || q.Price <= 0 {
			return false
		}
		if strings.Contains(strings.ToUpper(q.Name), nameKeywordST) || strings.Contains(q.Name, nameKeywordDelist) {
			return false
		}
		return !mainBoardOnly || mainBoardCode(q.Code)
	}
}

// Range 闭区间。
type Range struct {
	Min float64
	Max float64
}

// ScanOptions scan 条件。AboveMA 必填，其余为 nil/零值时不参与筛选。
type ScanOptions struct {
	AboveMA      int
	ShortMA      int // 与 LongMA 同时 >0 时要求 MA(short) > MA(long)
	LongMA       int
	MainBoard    bool
	MinMarketCap float64 // 元
	Turnover     *Range  // 换手率 %
	ChangePct    *Range  // 涨跌幅 %
	PE           *Range  // 市盈率-动态，亏损股不通过
}

// Windows 条件用到的均线窗口，升序去重。
func (o ScanOptions) Windows() []int {
	ws := []int{o.AboveMA}
	if o.ShortMA > 0 && o.LongMA > 0 {
		ws = append(ws, o.ShortMA, o.LongMA)
	}
	slices.Sort(ws)
	return slices.Compact(ws)
}

// ScanStrategy 剔除 ST/退市，收盘站上 AboveMA 日均线，再叠加 ScanOptions 中设置的条件。
func ScanStrategy(o ScanOptions) Criterion {
	cs := []Criterion{ExcludeST, ExcludeDelisted, CloseAboveMA(o.AboveMA)}
	if o.MainBoard {
		cs = append(cs, MainBoard)
	}
	if o.ShortMA > 0 && o.LongMA > 0 {
		cs = append(cs, MAAbove(o.ShortMA, o.LongMA))
	}
	if o.MinMarketCap > 0 {
		cs = append(cs, MarketCapMin(o.MinMarketCap))
	}
	if o.Turnover != nil {
		cs = append(cs, TurnoverRateRange(o.Turnover.Min, o.Turnover.Max))
	}
	if o.ChangePct != nil {
		cs = append(cs, ChangePctRange(o.ChangePct.Min, o.ChangePct.Max))
	}
	if o.PE != nil {
		cs = append(cs, PERange(o.PE.Min, o.PE.Max))
	}
	return And(cs...)
}
