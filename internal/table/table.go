// Package table 用显式 (字段, 表头, 格式化) 模式把网关记录渲染成表格，
// 不再按首条记录的键动态生成列。
package table

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// Placeholder 缺失或 null 的单元格。
const Placeholder = "N/A"

// Formatter 格式化一个存在且非 null 的值。
type Formatter func(v gjson.Result) string

// Column 一列：记录字段、显示表头、格式化；Fallback 非空时缺失值按行号生成。
type Column struct {
	Field    string
	Label    string
	Format   Formatter
	Fallback func(row int) string
}

type Schema struct {
	Name    string
	Columns []Column
}

// Table 渲染结果，Rows 每行与 Headers 等长。
type Table struct {
	Name    string
	Caption string
	Headers []string
	Rows    [][]string
}

func (t Table) Empty() bool { return len(t.Rows) == 0 }

// Pair 纵向展示的一项。
type Pair struct {
	Label string
	Value string
}

// Headers 按列顺序返回表头。
func (s Schema) Headers() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Label
	}
	return out
}

// Validate 返回首条记录中缺失的字段（有 Fallback 的列不计）。
func (s Schema) Validate(first gjson.Result) []string {
	var missing []string
	for _, c := range s.Columns {
		if c.Fallback != nil {
			continue
		}
		if !first.Get(c.Field).Exists() {
			missing = append(missing, c.Field)
		}
	}
	return missing
}

// Render 逐行逐列格式化；记录里多余的键忽略。
func (s Schema) Render(records []gjson.Result) Table {
	t := Table{Name: s.Name, Headers: s.Headers(), Rows: make([][]string, 0, len(records))}
	for i, r := range records {
		row := make([]string, len(s.Columns))
		for j, c := range s.Columns {
			row[j] = c.cell(r, i)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Pairs 把单条记录按列顺序渲染为纵向列表。
func (s Schema) Pairs(record gjson.Result) []Pair {
	out := make([]Pair, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = Pair{Label: c.Label, Value: c.cell(record, 0)}
	}
	return out
}

func (c Column) cell(r gjson.Result, row int) string {
	v := r.Get(c.Field)
	if !present(v) {
		if c.Fallback != nil {
			return c.Fallback(row)
		}
		return Placeholder
	}
	f := c.Format
	if f == nil {
		f = Text
	}
	return f(v)
}

func present(v gjson.Result) bool {
	if !v.Exists() || v.Type == gjson.Null {
		return false
	}
	return !(v.Type == gjson.String && strings.TrimSpace(v.Str) == "")
}

// Text 原样输出：字符串取内容，数字保留字面量。
func Text(v gjson.Result) string {
	if v.Type == gjson.String {
		return v.Str
	}
	return v.Raw
}

// Percent 原值后加 %。
func Percent(v gjson.Result) string {
	return Text(v) + "%"
}

// Fixed 数字保留 n 位小数，非数字原样输出。
func Fixed(n int32) Formatter {
	return func(v gjson.Result) string {
		d, ok := number(v)
		if !ok {
			return Text(v)
		}
		return d.StringFixed(n)
	}
}

// FixedPercent 数字保留 n 位小数并加 %，非数字原样输出。
func FixedPercent(n int32) Formatter {
	return func(v gjson.Result) string {
		if v.Type != gjson.Number {
			return Text(v)
		}
		return decimal.NewFromFloat(v.Float()).StringFixed(n) + "%"
	}
}

var (
	yi  = decimal.New(1, 8)
	wan = decimal.New(1, 4)
)

// LargeNumber 大数缩写：绝对值 >=1e8 用亿，>=1e4 用万，保留 n 位；不可解析为数字时为 N/A。
func LargeNumber(n int32) Formatter {
	return func(v gjson.Result) string {
		d, ok := number(v)
		if !ok {
			return Placeholder
		}
		abs := d.Abs()
		switch {
		case abs.GreaterThanOrEqual(yi):
			return d.Div(yi).StringFixed(n) + "亿"
		case abs.GreaterThanOrEqual(wan):
			return d.Div(wan).StringFixed(n) + "万"
		default:
			return d.StringFixed(n)
		}
	}
}

// RowIndex 缺失序号时用 1 起始的行号。
func RowIndex(row int) string {
	return strconv.Itoa(row + 1)
}

func number(v gjson.Result) (decimal.Decimal, bool) {
	switch v.Type {
	case gjson.Number:
		d, err := decimal.NewFromString(v.Raw)
		if err != nil {
			return decimal.NewFromFloat(v.Float()), true
		}
		return d, true
	case gjson.String:
		d, err := decimal.NewFromString(strings.TrimSpace(v.Str))
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	}
	return decimal.Decimal{}, false
}
