package table

import (
	"strings"

	"github.com/tidwall/gjson"

	"stockDash/internal/model"
)

// SpotList 行情列表（stock_zh_a_spot_em）。
var SpotList = Schema{
	Name: "spot_list",
	Columns: []Column{
		{Field: "序号", Label: "序号", Fallback: RowIndex},
		{Field: "代码", Label: "代码"},
		{Field: "名称", Label: "名称"},
		{Field: "最新价", Label: "最新价"},
		{Field: "涨跌额", Label: "涨跌额"},
		{Field: "涨跌幅", Label: "涨跌幅", Format: Percent},
		{Field: "成交量", Label: "成交量"},
		{Field: "成交额", Label: "成交额"},
		{Field: "换手率", Label: "换手率", Format: Percent},
		{Field: "市盈率-动态", Label: "市盈率(动)"},
	},
}

// quoteFields 实时报价白名单，按展示顺序。
var quoteFields = []string{
	"最新价", "涨跌额", "涨跌幅", "今开", "最高", "最低", "昨收", "成交量", "成交额", "换手率",
	"市盈率-动态", "市净率", "总市值", "流通市值", "振幅", "委比", "量比", "买一价", "卖一价", "买一量", "卖一量",
}

// Quote 单只股票实时报价，纵向展示（Pairs）。
var Quote = Schema{Name: "quote", Columns: quoteColumns()}

func quoteColumns() []Column {
	cols := make([]Column, len(quoteFields))
	for i, f := range quoteFields {
		cols[i] = Column{Field: f, Label: f, Format: quoteFormatter(f)}
	}
	return cols
}

// quoteFormatter 按字段名选格式：幅/率/比 为两位百分比，市值/额 为大数两位，量 为大数取整。
func quoteFormatter(field string) Formatter {
	switch {
	case strings.Contains(field, "幅"), strings.Contains(field, "率"), strings.Contains(field, "比"):
		return FixedPercent(2)
	case strings.Contains(field, "市值"), strings.Contains(field, "额"):
		return LargeNumber(2)
	case strings.Contains(field, "量"):
		return LargeNumber(0)
	default:
		return Text
	}
}

// Dragon 龙虎榜明细（stock_lhb_detail_em）。
var Dragon = Schema{
	Name: "dragon",
	Columns: []Column{
		{Field: "上榜日", Label: "上榜日", Format: dateOnly},
		{Field: "解读", Label: "解读"},
		{Field: "收盘价", Label: "收盘价"},
		{Field: "涨跌幅", Label: "涨跌幅", Format: FixedPercent(2)},
		{Field: "龙虎榜净买额", Label: "净买额", Format: LargeNumber(2)},
		{Field: "龙虎榜买入额", Label: "买入额", Format: LargeNumber(2)},
		{Field: "龙虎榜卖出额", Label: "卖出额", Format: LargeNumber(2)},
		{Field: "上榜原因", Label: "上榜原因"},
	},
}

// Shareholders 十大股东（stock_gdfx_top_10_em）。
var Shareholders = Schema{
	Name: "shareholders",
	Columns: []Column{
		{Field: "名次", Label: "名次"},
		{Field: "股东名称", Label: "股东名称"},
		{Field: "股份类型", Label: "股份类型"},
		{Field: "持股数", Label: "持股数", Format: LargeNumber(2)},
		{Field: "占总股本持股比例", Label: "占总股本比例", Format: Percent},
		{Field: "增减", Label: "增减"},
		{Field: "变动比率", Label: "变动比率"},
	},
}

// fundTiers 资金流向档位。
var fundTiers = []string{"主力", "超大单", "大单", "中单", "小单"}

// FundFlow 取第一条（最新）资金流向，按档位纵向列出净额与净占比；无记录返回 ok=false。
func FundFlow(records []gjson.Result) (Table, bool) {
	if len(records) == 0 {
		return Table{}, false
	}
	latest := records[0]
	amount := Column{Format: Text}
	ratio := Column{Format: Percent}
	t := Table{
		Name:    "fund_flow",
		Caption: (Column{Field: "日期", Format: dateOnly}).cell(latest, 0),
		Headers: []string{"类型", "净流入-净额", "净流入-净占比"},
		Rows:    make([][]string, 0, len(fundTiers)),
	}
	for _, tier := range fundTiers {
		amount.Field = tier + "净流入-净额"
		ratio.Field = tier + "净流入-净占比"
		t.Rows = append(t.Rows, []string{tier + "净流入", amount.cell(latest, 0), ratio.cell(latest, 0)})
	}
	return t, true
}

// CompanyTitle 公司名称：取 股票简称 或 名称，缺失时为 "股票 <代码>"。
func CompanyTitle(items []model.InfoItem, symbol string) string {
	title := "股票 " + symbol
	for _, it := range items {
		if (it.Item == "股票简称" || it.Item == "名称") && strings.TrimSpace(it.Value) != "" {
			title = it.Value
		}
	}
	return title
}

// InfoPairs 公司概况，空值显示占位。
func InfoPairs(items []model.InfoItem) []Pair {
	out := make([]Pair, len(items))
	for i, it := range items {
		v := it.Value
		if strings.TrimSpace(v) == "" {
			v = Placeholder
		}
		out[i] = Pair{Label: it.Item, Value: v}
	}
	return out
}

func dateOnly(v gjson.Result) string {
	s := Text(v)
	if d, _, ok := strings.Cut(s, "T"); ok {
		return d
	}
	return s
}
