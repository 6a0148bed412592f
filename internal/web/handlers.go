package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"stockDash/internal/api"
	"stockDash/internal/chart"
	"stockDash/internal/model"
	"stockDash/internal/series"
	"stockDash/internal/table"
	"stockDash/internal/trace"
)

const updatedLayout = "2006-01-02 15:04:05"

// 接口错误码
const (
	codeBadRequest = "bad_request"
	codeNoData     = "no_data"
	codeUpstream   = "upstream_error"
	codeInternal   = "internal_error"
)

type klineResponse struct {
	Symbol  string        `json:"symbol"`
	Count   int           `json:"count"`
	Dropped int           `json:"dropped"`
	Option  *chart.Option `json:"option"`
	Theme   chart.Theme   `json:"theme"`
}

type tableResponse struct {
	Name    string     `json:"name"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
	Updated string     `json:"updated"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		trace.Warn(context.TODO(), "web: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": code, "message": msg})
}

func badInput(err error) bool {
	return errors.Is(err, api.ErrInvalidSymbol) ||
		errors.Is(err, api.ErrInvalidRange) ||
		errors.Is(err, api.ErrInvalidDate) ||
		errors.Is(err, api.ErrInvalidAdjust) ||
		errors.Is(err, series.ErrInvalidWindow)
}

// handleKline GET /api/kline?symbol=&range=&start=&end=&adjust=
// start 优先于 range；返回 ECharts 配置。
func (s *Server) handleKline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	hq := api.HistQuery{
		Symbol: q.Get("symbol"),
		Adjust: q.Get("adjust"),
		Start:  q.Get("start"),
		End:    q.Get("end"),
	}
	if !api.ValidSymbol(hq.Symbol) {
		writeError(w, http.StatusBadRequest, codeBadRequest, "symbol must be a six-digit code")
		return
	}
	if hq.Start == "" {
		start, err := api.RangeStart(q.Get("range"), s.now())
		if err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
			return
		}
		hq.Start = start
	}

	raw, err := s.gw.DailyBars(ctx, hq)
	if err != nil {
		if badInput(err) {
			writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
			return
		}
		trace.Error(ctx, err, "web: kline %s", hq.Symbol)
		writeError(w, http.StatusBadGateway, codeUpstream, "failed to load daily bars")
		return
	}
	res, err := series.Build(raw, s.opts.Windows)
	switch {
	case errors.Is(err, series.ErrNoData):
		writeError(w, http.StatusNotFound, codeNoData, "no usable daily bars")
		return
	case err != nil:
		trace.Error(ctx, err, "web: build series %s", hq.Symbol)
		writeError(w, http.StatusInternalServerError, codeInternal, err.Error())
		return
	}

	h := chart.NewHandle(s.opts.Chart)
	defer h.Destroy()
	if err := h.Render(res.Series, res.MAs); err != nil {
		trace.Error(ctx, err, "web: render chart %s", hq.Symbol)
		writeError(w, http.StatusInternalServerError, codeInternal, err.Error())
		return
	}
	if res.Dropped > 0 {
		trace.Debug(ctx, "web: %s dropped %d malformed bars", hq.Symbol, res.Dropped)
	}
	writeJSON(w, http.StatusOK, klineResponse{
		Symbol:  hq.Symbol,
		Count:   res.Series.Len(),
		Dropped: res.Dropped,
		Option:  h.Option(),
		Theme:   h.Theme(),
	})
}

func (s *Server) handleSpot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recs, err := s.gw.Spot(ctx)
	if err != nil {
		trace.Error(ctx, err, "web: spot")
		writeError(w, http.StatusBadGateway, codeUpstream, "failed to load spot list")
		return
	}
	if len(recs) > 0 {
		if missing := table.SpotList.Validate(recs[0]); len(missing) > 0 {
			trace.Warn(ctx, "web: spot list missing fields %v", missing)
		}
	}
	t := table.SpotList.Render(recs)
	writeJSON(w, http.StatusOK, tableResponse{
		Name:    t.Name,
		Headers: t.Headers,
		Rows:    t.Rows,
		Updated: s.now().Format(updatedLayout),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type listPage struct {
	Table   table.Table
	Updated string
	Err     string
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := listPage{Updated: s.now().Format(updatedLayout)}
	recs, err := s.gw.Spot(ctx)
	if err != nil {
		trace.Error(ctx, err, "web: list page")
		page.Err = "加载行情失败"
	} else {
		if len(recs) > 0 {
			if missing := table.SpotList.Validate(recs[0]); len(missing) > 0 {
				trace.Warn(ctx, "web: spot list missing fields %v", missing)
			}
		}
		page.Table = table.SpotList.Render(recs)
	}
	s.render(w, r, http.StatusOK, "list.html", page)
}

// section 详情页的一个区块，Err 非空时只显示错误提示。
type section[T any] struct {
	Data T
	Err  string
}

type detailPage struct {
	Symbol       string
	Title        string
	Container    string
	Theme        chart.Theme
	Info         section[[]table.Pair]
	Quote        section[[]table.Pair]
	FundFlow     section[table.Table]
	Dragon       section[table.Table]
	Shareholders section[table.Table]
	News         section[[]model.NewsItem]
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	symbol := r.URL.Query().Get("symbol")
	if !api.ValidSymbol(symbol) {
		s.render(w, r, http.StatusBadRequest, "error.html", errorPage{
			Status:  http.StatusBadRequest,
			Message: "缺少或无效的股票代码",
		})
		return
	}

	h := chart.NewHandle(s.opts.Chart)
	defer h.Destroy()
	page := detailPage{
		Symbol:    symbol,
		Title:     table.CompanyTitle(nil, symbol),
		Container: h.Container(),
		Theme:     h.Theme(),
	}

	// 各区块独立加载，互不影响
	var wg sync.WaitGroup
	load := func(name string, fn func() error, errMsg *string) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				trace.Error(ctx, err, "web: detail %s %s", symbol, name)
				*errMsg = "加载失败"
			}
		}()
	}
	load("info", func() error {
		items, err := s.gw.CompanyInfo(ctx, symbol)
		if err != nil {
			return err
		}
		page.Title = table.CompanyTitle(items, symbol)
		page.Info.Data = table.InfoPairs(items)
		return nil
	}, &page.Info.Err)
	load("quote", func() error {
		rec, err := s.gw.SpotBySymbol(ctx, symbol)
		if errors.Is(err, api.ErrNotFound) {
			page.Quote.Err = "未找到实时行情"
			return nil
		}
		if err != nil {
			return err
		}
		page.Quote.Data = table.Quote.Pairs(rec)
		return nil
	}, &page.Quote.Err)
	load("fundflow", func() error {
		recs, err := s.gw.FundFlow(ctx, symbol)
		if err != nil {
			return err
		}
		page.FundFlow.Data, _ = table.FundFlow(recs)
		return nil
	}, &page.FundFlow.Err)
	load("dragon", func() error {
		recs, err := s.gw.Dragon(ctx, symbol)
		if err != nil {
			return err
		}
		page.Dragon.Data = table.Dragon.Render(recs)
		return nil
	}, &page.Dragon.Err)
	load("shareholders", func() error {
		recs, err := s.gw.Shareholders(ctx, symbol)
		if err != nil {
			return err
		}
		page.Shareholders.Data = table.Shareholders.Render(recs)
		return nil
	}, &page.Shareholders.Err)
	load("news", func() error {
		items, err := s.gw.News(ctx, symbol)
		if err != nil {
			return err
		}
		page.News.Data = items
		return nil
	}, &page.News.Err)
	wg.Wait()

	s.render(w, r, http.StatusOK, "detail.html", page)
}
