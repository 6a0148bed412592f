package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"stockDash/internal/api"
	"stockDash/internal/model"
	"stockDash/internal/trace"
)

var fixedNow = time.Date(2024, 6, 14, 15, 0, 0, 0, time.Local)

type fakeGateway struct {
	mu      sync.Mutex
	queries []api.HistQuery

	bars    []model.RawBar
	barsErr error
	spot    string
	spotErr error
	infoErr error
	newsErr error
}

func (f *fakeGateway) DailyBars(_ context.Context, q api.HistQuery) ([]model.RawBar, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	return f.bars, f.barsErr
}

func (f *fakeGateway) Spot(context.Context) ([]gjson.Result, error) {
	if f.spotErr != nil {
		return nil, f.spotErr
	}
	return gjson.Parse(f.spot).Array(), nil
}

func (f *fakeGateway) SpotBySymbol(ctx context.Context, symbol string) (gjson.Result, error) {
	recs, err := f.Spot(ctx)
	if err != nil {
		return gjson.Result{}, err
	}
	for _, r := range recs {
		if r.Get("代码").String() == symbol {
			return r, nil
		}
	}
	return gjson.Result{}, api.ErrNotFound
}

func (f *fakeGateway) CompanyInfo(context.Context, string) ([]model.InfoItem, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return []model.InfoItem{{Item: "股票简称", Value: "浦发银行"}, {Item: "行业", Value: "银行"}}, nil
}

func (f *fakeGateway) FundFlow(context.Context, string) ([]gjson.Result, error) {
	return gjson.Parse(`[{"日期":"2024-06-14T00:00:00","主力净流入-净额":12345678,"主力净流入-净占比":3.21}]`).Array(), nil
}

func (f *fakeGateway) Dragon(context.Context, string) ([]gjson.Result, error) {
	return nil, nil
}

func (f *fakeGateway) Shareholders(context.Context, string) ([]gjson.Result, error) {
	return nil, nil
}

func (f *fakeGateway) News(context.Context, string) ([]model.NewsItem, error) {
	if f.newsErr != nil {
		return nil, f.newsErr
	}
	return []model.NewsItem{{Title: "浦发银行发布公告", URL: "https://example.com/n/1", DateTime: "2024-06-14 09:00:00"}}, nil
}

const spotFixture = `[
	{"序号":1,"代码":"600000","名称":"浦发银行","最新价":7.12,"涨跌额":0.05,"涨跌幅":0.71,"成交量":312345,"成交额":221234567,"换手率":0.11,"市盈率-动态":4.8},
	{"序号":2,"代码":"000001","名称":"平安银行","最新价":10.02,"涨跌额":-0.08,"涨跌幅":-0.79,"成交量":812345,"成交额":821234567,"换手率":0.42,"市盈率-动态":null}
]`

func goodBars() []model.RawBar {
	return []model.RawBar{
		{Date: "2024-06-12T00:00:00.000", Open: "7.00", Close: "7.05", Low: "6.98", High: "7.10", Volume: "1000"},
		{Date: "2024-06-13T00:00:00.000", Open: "7.05", Close: "7.01", Low: "6.95", High: "7.08", Volume: "1200"},
		{Date: "2024-06-14T00:00:00.000", Open: "7.01", Close: "7.12", Low: "7.00", High: "7.15", Volume: "1500"},
	}
}

func newTestServer(t *testing.T, gw Gateway) *httptest.Server {
	t.Helper()
	trace.SetOutput(io.Discard)
	s, err := NewServer(gw, Options{})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	s.now = func() time.Time { return fixedNow }
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestKline(t *testing.T) {
	malformed := []model.RawBar{{Date: "2024-06-14", Open: "x", Close: "1", Low: "1", High: "1", Volume: "1"}}
	tests := []struct {
		name      string
		query     string
		gw        *fakeGateway
		wantCode  int
		wantError string
		wantCalls int
	}{
		{"ok", "symbol=600000&range=1y", &fakeGateway{bars: goodBars()}, http.StatusOK, "", 1},
		{"no data", "symbol=600000", &fakeGateway{bars: malformed}, http.StatusNotFound, codeNoData, 1},
		{"empty", "symbol=600000", &fakeGateway{}, http.StatusNotFound, codeNoData, 1},
		{"bad symbol", "symbol=60000a", &fakeGateway{bars: goodBars()}, http.StatusBadRequest, codeBadRequest, 0},
		{"missing symbol", "", &fakeGateway{bars: goodBars()}, http.StatusBadRequest, codeBadRequest, 0},
		{"bad range", "symbol=600000&range=5y", &fakeGateway{bars: goodBars()}, http.StatusBadRequest, codeBadRequest, 0},
		{"gateway rejects date", "symbol=600000&start=2024-01-01",
			&fakeGateway{barsErr: fmt.Errorf("%w: %q", api.ErrInvalidDate, "2024-01-01")}, http.StatusBadRequest, codeBadRequest, 1},
		{"upstream failure", "symbol=600000",
			&fakeGateway{barsErr: &api.StatusError{StatusCode: 500, Body: "boom"}}, http.StatusBadGateway, codeUpstream, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.gw)
			code, body := get(t, srv.URL+"/api/kline?"+tt.query)
			if code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", code, tt.wantCode, body)
			}
			if len(tt.gw.queries) != tt.wantCalls {
				t.Errorf("gateway calls = %d, want %d", len(tt.gw.queries), tt.wantCalls)
			}
			if tt.wantError != "" {
				if got := gjson.Get(body, "error").String(); got != tt.wantError {
					t.Errorf("error = %q, want %q", got, tt.wantError)
				}
				return
			}
			if got := gjson.Get(body, "count").Int(); got != 3 {
				t.Errorf("count = %d, want 3", got)
			}
			if got := gjson.Get(body, "option.series.0.name").String(); got != "日K" {
				t.Errorf("first series = %q", got)
			}
			if got := gjson.Get(body, "option.xAxis.0.data.2").String(); got != "2024-06-14" {
				t.Errorf("last date = %q", got)
			}
			if got := gjson.Get(body, "theme.up").String(); got != "#FD1050" {
				t.Errorf("theme.up = %q", got)
			}
		})
	}
}

func TestKlineRangeStart(t *testing.T) {
	gw := &fakeGateway{bars: goodBars()}
	srv := newTestServer(t, gw)

	want, err := api.RangeStart("3m", fixedNow)
	if err != nil {
		t.Fatal(err)
	}
	if code, body := get(t, srv.URL+"/api/kline?symbol=600000&range=3m&adjust=hfq"); code != http.StatusOK {
		t.Fatalf("status = %d: %s", code, body)
	}
	if code, body := get(t, srv.URL+"/api/kline?symbol=600000&range=3m&start=20200101&end=20201231"); code != http.StatusOK {
		t.Fatalf("status = %d: %s", code, body)
	}
	if len(gw.queries) != 2 {
		t.Fatalf("calls = %d", len(gw.queries))
	}
	if q := gw.queries[0]; q.Start != want || q.Adjust != "hfq" {
		t.Errorf("range query = %+v, want start %s", q, want)
	}
	if q := gw.queries[1]; q.Start != "20200101" || q.End != "20201231" {
		t.Errorf("explicit start should win: %+v", q)
	}
}

func TestListPage(t *testing.T) {
	srv := newTestServer(t, &fakeGateway{spot: spotFixture})
	code, body := get(t, srv.URL+"/")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	for _, want := range []string{
		"最后更新时间：2024-06-14 15:00:00",
		`<a href="/stock?symbol=600000">600000</a>`,
		"浦发银行",
		`<td class="down">-0.79%</td>`,
		"<td>N/A</td>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("list page missing %q", want)
		}
	}
}

func TestListPageGatewayDown(t *testing.T) {
	srv := newTestServer(t, &fakeGateway{spotErr: errors.New("connection refused")})
	code, body := get(t, srv.URL+"/")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if !strings.Contains(body, "加载行情失败") {
		t.Error("expected error notice on list page")
	}
}

func TestSpotJSON(t *testing.T) {
	srv := newTestServer(t, &fakeGateway{spot: spotFixture})
	code, body := get(t, srv.URL+"/api/spot")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	var got tableResponse
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Rows) != 2 || len(got.Headers) != 10 {
		t.Fatalf("rows=%d headers=%d", len(got.Rows), len(got.Headers))
	}
	if got.Rows[1][9] != "N/A" {
		t.Errorf("null PE cell = %q", got.Rows[1][9])
	}

	srv = newTestServer(t, &fakeGateway{spotErr: errors.New("down")})
	if code, _ := get(t, srv.URL+"/api/spot"); code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", code)
	}
}

func TestDetailPage(t *testing.T) {
	srv := newTestServer(t, &fakeGateway{spot: spotFixture})
	code, body := get(t, srv.URL+"/stock?symbol=600000")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	for _, want := range []string{
		"<title>浦发银行</title>",
		`data-symbol="600000"`,
		`id="kline-chart"`,
		"2024-06-14",
		"https://example.com/n/1",
		"<dt>最新价</dt>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("detail page missing %q", want)
		}
	}
}

func TestDetailSectionsDegradeIndependently(t *testing.T) {
	gw := &fakeGateway{
		spot:    spotFixture,
		infoErr: errors.New("timeout"),
		newsErr: &api.StatusError{StatusCode: 502},
	}
	srv := newTestServer(t, gw)
	code, body := get(t, srv.URL+"/stock?symbol=000001")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if !strings.Contains(body, "<title>股票 000001</title>") {
		t.Error("title should fall back to the symbol")
	}
	if n := strings.Count(body, "加载失败"); n != 2 {
		t.Errorf("failed sections = %d, want 2", n)
	}
	if !strings.Contains(body, "<dt>涨跌幅</dt>") {
		t.Error("quote section should still render")
	}
}

func TestDetailQuoteNotFound(t *testing.T) {
	srv := newTestServer(t, &fakeGateway{spot: spotFixture})
	_, body := get(t, srv.URL+"/stock?symbol=300750")
	if !strings.Contains(body, "未找到实时行情") {
		t.Error("expected not-found notice in quote section")
	}
}

func TestDetailRejectsBadSymbol(t *testing.T) {
	srv := newTestServer(t, &fakeGateway{})
	for _, q := range []string{"", "?symbol=abc", "?symbol=6000001"} {
		code, body := get(t, srv.URL+"/stock"+q)
		if code != http.StatusBadRequest {
			t.Errorf("%q: status = %d, want 400", q, code)
		}
		if !strings.Contains(body, "缺少或无效的股票代码") {
			t.Errorf("%q: missing error message", q)
		}
	}
}

func TestHealthzAndStatic(t *testing.T) {
	srv := newTestServer(t, &fakeGateway{})
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Trace-Id") == "" {
		t.Error("missing X-Trace-Id header")
	}
	if code, body := get(t, srv.URL+"/static/detail.js"); code != http.StatusOK || !strings.Contains(body, "/api/kline") {
		t.Errorf("static script = %d", code)
	}
	if code, _ := get(t, srv.URL+"/nope"); code != http.StatusNotFound {
		t.Errorf("unknown path = %d, want 404", code)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	trace.SetOutput(io.Discard)
	s, err := NewServer(&fakeGateway{}, Options{ShutdownTimeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	if code, _ := get(t, "http://"+ln.Addr().String()+"/healthz"); code != http.StatusOK {
		t.Fatalf("healthz = %d", code)
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
