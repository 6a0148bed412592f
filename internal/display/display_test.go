package display

import (
	"bytes"
	"strings"
	"testing"

	"stockDash/internal/chart"
	"stockDash/internal/model"
	"stockDash/internal/series"
	"stockDash/internal/table"
)

func TestKlineTail(t *testing.T) {
	raw := []model.RawBar{
		{Date: "2024-01-02", Open: "10", Close: "11", Low: "9", High: "12", Volume: "100"},
		{Date: "2024-01-03", Open: "11", Close: "10", Low: "9.5", High: "11.5", Volume: "200"},
		{Date: "2024-01-04", Open: "10", Close: "12", Low: "9.8", High: "12.2", Volume: "300"},
	}
	res, err := series.Build(raw, []int{2})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	NewPrinter(&buf, chart.Theme{}).Kline(res, 2)
	out := buf.String()
	if strings.Contains(out, "2024-01-02") {
		t.Error("tail=2 should drop the first bar")
	}
	for _, want := range []string{"2024-01-03", "2024-01-04", "MA2", "10.50", "11.00", "300"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStocksAndTable(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, chart.Theme{Up: "#ff0000", Down: "#00ff00"})
	p.Stocks([]*model.Stock{{Code: "600519", Name: "贵州茅台", Price: 1500, ChangePct: -1.5, LastDate: "2024-06-14", LastClose: 1500, MA: map[int]float64{5: 1490.123}}}, []int{5, 20})
	p.Table(table.Table{Headers: []string{"代码", "名称"}, Rows: [][]string{{"000001", "平安银行"}, {"000002", "万科A"}}}, 1)
	out := buf.String()
	for _, want := range []string{"600519", "-1.50%", "1490.12", "MA20", "平安银行"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "万科A") {
		t.Error("top=1 should keep only the first row")
	}
}

func TestQuotes(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, chart.Theme{}).Quotes([]model.StockQuote{
		{Code: "600000", Name: "浦发银行", Price: 7.12, ChangePct: 0.71, TurnoverRate: 0.11, PE: 4.8},
		{Code: "000001", Name: "平安银行", Price: 10.02, ChangePct: -0.79, TurnoverRate: 0.42},
		{Code: "000002", Name: "万科A", Price: 8, ChangePct: 1},
	}, 2)
	out := buf.String()
	for _, want := range []string{"浦发银行", "4.80", "-0.79%", "0.42%"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "万科A") {
		t.Error("top=2 should keep two quotes")
	}
}
