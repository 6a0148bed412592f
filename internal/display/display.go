// Package display 用 lipgloss 在终端输出 K 线尾部、行情列表与扫描结果。
package display

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"

	"stockDash/internal/chart"
	"stockDash/internal/model"
	"stockDash/internal/series"
	"stockDash/internal/table"
)

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED")).
		Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#3B82F6")).
		Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

// Printer 绑定输出与涨跌配色。
type Printer struct {
	w    io.Writer
	up   lipgloss.Style
	down lipgloss.Style
}

func NewPrinter(w io.Writer, theme chart.Theme) *Printer {
	if theme.Up == "" {
		theme.Up = chart.DefaultUpColor
	}
	if theme.Down == "" {
		theme.Down = chart.DefaultDownColor
	}
	return &Printer{
		w:    w,
		up:   lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Up)),
		down: lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Down)),
	}
}

func (p *Printer) Title(format string, args ...any) {
	fmt.Fprintln(p.w, titleStyle.Render(fmt.Sprintf(format, args...)))
}

func (p *Printer) Note(format string, args ...any) {
	fmt.Fprintln(p.w, mutedStyle.Render(fmt.Sprintf(format, args...)))
}

func (p *Printer) render(headers []string, rows [][]string) {
	t := ltable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(p.w, t.String())
}

// signed 按方向着色。
func (p *Printer) signed(s string, sign int) string {
	if sign < 0 {
		return p.down.Render(s)
	}
	return p.up.Render(s)
}

// Kline 输出最后 tail 根日 K 及各均线（tail<=0 输出全部）。
func (p *Printer) Kline(res *series.Result, tail int) {
	n := res.Series.Len()
	from := 0
	if tail > 0 && tail < n {
		from = n - tail
	}
	headers := []string{"日期", "开", "收", "低", "高", "成交量"}
	for _, m := range res.MAs {
		headers = append(headers, m.Name())
	}
	rows := make([][]string, 0, n-from)
	for i := from; i < n; i++ {
		o := res.Series.OHLC[i]
		v := res.Series.Volumes[i]
		row := []string{
			res.Series.Dates[i],
			fixed(o.Open()),
			p.signed(fixed(o.Close()), v.Sign),
			fixed(o.Low()),
			fixed(o.High()),
			strconv.FormatFloat(v.Volume, 'f', -1, 64),
		}
		for _, m := range res.MAs {
			row = append(row, m.Values[i].String())
		}
		rows = append(rows, row)
	}
	p.render(headers, rows)
}

// Table 输出渲染好的表格，top>0 时只取前 top 行。
func (p *Printer) Table(t table.Table, top int) {
	rows := t.Rows
	if top > 0 && top < len(rows) {
		rows = rows[:top]
	}
	p.render(t.Headers, rows)
}

// Pairs 两列纵向输出。
func (p *Printer) Pairs(pairs []table.Pair) {
	rows := make([][]string, len(pairs))
	for i, kv := range pairs {
		rows[i] = []string{kv.Label, kv.Value}
	}
	p.render([]string{"项目", "值"}, rows)
}

// Stocks 输出扫描结果，windows 决定均线列。
func (p *Printer) Stocks(stocks []*model.Stock, windows []int) {
	headers := []string{"代码", "名称", "现价", "涨跌幅", "日期", "收盘"}
	for _, w := range windows {
		headers = append(headers, fmt.Sprintf("MA%d", w))
	}
	rows := make([][]string, 0, len(stocks))
	for _, s := range stocks {
		sign := series.SignUp
		if s.ChangePct < 0 {
			sign = series.SignDown
		}
		row := []string{
			s.Code,
			s.Name,
			fixed(s.Price),
			p.signed(fixed(s.ChangePct)+"%", sign),
			s.LastDate,
			fixed(s.LastClose),
		}
		for _, w := range windows {
			if v, ok := s.MAOf(w); ok {
				row = append(row, fixed(v))
			} else {
				row = append(row, "-")
			}
		}
		rows = append(rows, row)
	}
	p.render(headers, rows)
}

// Quotes 输出行情快照，top>0 时只取前 top 条。
func (p *Printer) Quotes(quotes []model.StockQuote, top int) {
	if top > 0 && top < len(quotes) {
		quotes = quotes[:top]
	}
	headers := []string{"代码", "名称", "现价", "涨跌幅", "换手率", "市盈率(动)"}
	rows := make([][]string, 0, len(quotes))
	for _, q := range quotes {
		sign := series.SignUp
		if q.ChangePct < 0 {
			sign = series.SignDown
		}
		pe := "-"
		if q.PE > 0 {
			pe = fixed(q.PE)
		}
		rows = append(rows, []string{
			q.Code,
			q.Name,
			fixed(q.Price),
			p.signed(fixed(q.ChangePct)+"%", sign),
			fixed(q.TurnoverRate) + "%",
			pe,
		})
	}
	p.render(headers, rows)
}

func fixed(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
