package filter

import (
	"testing"

	"stockDash/internal/model"
)

func TestCriteria(t *testing.T) {
	s := &model.Stock{
		Code: "600519", Name: "贵州茅台", LastClose: 1500, PE: 25, TurnoverRate: 0.3, ChangePct: 1.2, MarketCap: 1.9e12,
		MA: map[int]float64{5: 1490, 10: 1480, 20: 1510},
	}
	tests := []struct {
		name string
		c    Criterion
		want bool
	}{
		{"main board", MainBoard, true},
		{"not st", ExcludeST, true},
		{"above ma5", CloseAboveMA(5), true},
		{"below ma20", CloseAboveMA(20), false},
		{"missing ma60", CloseAboveMA(60), false},
		{"ma5 over ma10", MAAbove(5, 10), true},
		{"ma10 over ma20", MAAbove(10, 20), false},
		{"pe range", PERange(0, 30), true},
		{"and", And(MainBoard, CloseAboveMA(20)), false},
		{"turnover", TurnoverRateRange(0.1, 1), true},
		{"change", ChangePctRange(2, 10), false},
		{"market cap", MarketCapMin(1e12), true},
		{"strategy", ScanStrategy(ScanOptions{AboveMA: 10}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c(s); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
	if And(MainBoard)(nil) {
		t.Error("nil stock must not pass")
	}
}

func TestScanStrategy(t *testing.T) {
	base := model.Stock{
		Code: "000001", Name: "平安银行", LastClose: 10.5, PE: 4.5, TurnoverRate: 0.8, ChangePct: 1.1, MarketCap: 2e11,
		MA: map[int]float64{5: 10.2, 20: 10.0, 60: 10.4},
	}
	tests := []struct {
		name   string
		opts   ScanOptions
		mutate func(*model.Stock)
		want   bool
	}{
		{"above ma20", ScanOptions{AboveMA: 20}, nil, true},
		{"trend holds", ScanOptions{AboveMA: 20, ShortMA: 5, LongMA: 20}, nil, true},
		{"trend broken", ScanOptions{AboveMA: 20, ShortMA: 20, LongMA: 60}, nil, false},
		{"st excluded", ScanOptions{AboveMA: 20}, func(s *model.Stock) { s.Name = "ST平安" }, false},
		{"main board", ScanOptions{AboveMA: 20, MainBoard: true}, func(s *model.Stock) { s.Code = "300001" }, false},
		{"cap too small", ScanOptions{AboveMA: 20, MinMarketCap: 5e11}, nil, false},
		{"turnover in range", ScanOptions{AboveMA: 20, Turnover: &Range{Min: 0.5, Max: 3}}, nil, true},
		{"change out of range", ScanOptions{AboveMA: 20, ChangePct: &Range{Min: 2, Max: 9}}, nil, false},
		{"loss making", ScanOptions{AboveMA: 20, PE: &Range{Min: 0, Max: 60}}, func(s *model.Stock) { s.PE = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base
			if tt.mutate != nil {
				tt.mutate(&s)
			}
			if got := ScanStrategy(tt.opts)(&s); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScanOptionsWindows(t *testing.T) {
	got := ScanOptions{AboveMA: 20, ShortMA: 5, LongMA: 20}.Windows()
	if len(got) != 2 || got[0] != 5 || got[1] != 20 {
		t.Errorf("Windows = %v, want [5 20]", got)
	}
	if got := (ScanOptions{AboveMA: 10, ShortMA: 5}).Windows(); len(got) != 1 || got[0] != 10 {
		t.Errorf("Windows = %v, want [10]", got)
	}
}

func TestMainBoard(t *testing.T) {
	for code, want := range map[string]bool{
		"600519": true, "601318": true, "000001": true, "002594": false, "300750": false, "688981": false, "8": false,
	} {
		if got := MainBoard(&model.Stock{Code: code}); got != want {
			t.Errorf("MainBoard(%s) = %v", code, got)
		}
	}
}

func TestQuotePreFilter(t *testing.T) {
	tests := []struct {
		q         model.StockQuote
		mainBoard bool
		want      bool
	}{
		{model.StockQuote{Code: "600519", Name: "贵州茅台", Price: 1500}, true, true},
		{model.StockQuote{Code: "300750", Name: "宁德时代", Price: 200}, true, false},
		{model.StockQuote{Code: "300750", Name: "宁德时代", Price: 200}, false, true},
		{model.StockQuote{Code: "600001", Name: "*ST 某某", Price: 2}, false, false},
		{model.StockQuote{Code: "600002", Name: "某某退", Price: 1}, false, false},
		{model.StockQuote{Code: "600003", Name: "停牌股", Price: 0}, false, false},
	}
	for _, tt := range tests {
		if got := QuotePreFilter(tt.mainBoard)(&tt.q); got != tt.want {
			t.Errorf("QuotePreFilter(%v)(%s %s) = %v", tt.mainBoard, tt.q.Code, tt.q.Name, got)
		}
	}
	if QuotePreFilter(false)(nil) {
		t.Error("nil quote must not pass")
	}
}
