package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"stockDash/internal/model"
	"stockDash/internal/trace"
)

// 网关函数名
const (
	fnHist         = "stock_zh_a_hist"
	fnSpot         = "stock_zh_a_spot_em"
	fnInfo         = "stock_individual_info_em"
	fnFundFlow     = "stock_individual_fund_flow"
	fnDragon       = "stock_lhb_detail_em"
	fnShareholders = "stock_gdfx_top_10_em"
	fnNews         = "stock_news_em"
)

// 日 K 记录字段
const (
	keyDate   = "日期"
	keyOpen   = "开盘"
	keyClose  = "收盘"
	keyLow    = "最低"
	keyHigh   = "最高"
	keyVolume = "成交量"
)

// 实时行情字段
const (
	keyCode         = "代码"
	keyName         = "名称"
	keyPrice        = "最新价"
	keyChangePct    = "涨跌幅"
	keyAmount       = "成交额"
	keyTurnoverRate = "换手率"
	keyMarketCap    = "总市值"
	keyPE           = "市盈率-动态"
)

// ErrNotFound 实时行情中找不到该代码。
var ErrNotFound = errors.New("aktools: symbol not found in spot list")

// DailyBars 拉取日 K 原文，按网关返回顺序。
func (c *Client) DailyBars(ctx context.Context, q HistQuery) ([]model.RawBar, error) {
	params, err := q.values(c.now())
	if err != nil {
		return nil, err
	}
	recs, err := c.getRecords(ctx, fnHist, params)
	if err != nil {
		return nil, err
	}
	out := make([]model.RawBar, 0, len(recs))
	for _, r := range recs {
		out = append(out, model.RawBar{
			Date:   Text(r, keyDate),
			Open:   Text(r, keyOpen),
			Close:  Text(r, keyClose),
			Low:    Text(r, keyLow),
			High:   Text(r, keyHigh),
			Volume: Text(r, keyVolume),
		})
	}
	trace.Debug(ctx, "api: DailyBars symbol=%s start=%s records=%d", q.Symbol, q.Start, len(out))
	return out, nil
}

// Spot 全市场实时行情原始记录。
func (c *Client) Spot(ctx context.Context) ([]gjson.Result, error) {
	return c.getRecords(ctx, fnSpot, nil)
}

// SpotQuotes 全市场实时行情，解析为 StockQuote；代码为空的记录跳过。
func (c *Client) SpotQuotes(ctx context.Context) ([]model.StockQuote, error) {
	recs, err := c.Spot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.StockQuote, 0, len(recs))
	for _, r := range recs {
		q, ok := quoteOf(r)
		if !ok {
			continue
		}
		out = append(out, q)
	}
	trace.Log(ctx, "api: SpotQuotes len=%d", len(out))
	return out, nil
}

func quoteOf(r gjson.Result) (model.StockQuote, bool) {
	code := strings.TrimSpace(Text(r, keyCode))
	if code == "" {
		return model.StockQuote{}, false
	}
	pe := r.Get(keyPE).Float()
	if pe < 0 {
		pe = 0
	}
	return model.StockQuote{
		Code:         code,
		Name:         strings.TrimSpace(Text(r, keyName)),
		Price:        r.Get(keyPrice).Float(),
		ChangePct:    r.Get(keyChangePct).Float(),
		Amount:       r.Get(keyAmount).Float(),
		TurnoverRate: r.Get(keyTurnoverRate).Float(),
		MarketCap:    r.Get(keyMarketCap).Float(),
		PE:           pe,
	}, true
}

// SpotBySymbol 在全市场行情中查找单只股票。
func (c *Client) SpotBySymbol(ctx context.Context, symbol string) (gjson.Result, error) {
	if !ValidSymbol(symbol) {
		return gjson.Result{}, fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	recs, err := c.Spot(ctx)
	if err != nil {
		return gjson.Result{}, err
	}
	for _, r := range recs {
		if Text(r, keyCode) == symbol {
			return r, nil
		}
	}
	return gjson.Result{}, fmt.Errorf("%w: %s", ErrNotFound, symbol)
}

// CompanyInfo 公司概况 item/value 列表。
func (c *Client) CompanyInfo(ctx context.Context, symbol string) ([]model.InfoItem, error) {
	recs, err := c.symbolRecords(ctx, fnInfo, "symbol", symbol)
	if err != nil {
		return nil, err
	}
	out := make([]model.InfoItem, 0, len(recs))
	for _, r := range recs {
		item := Text(r, "item")
		if item == "" {
			continue
		}
		out = append(out, model.InfoItem{Item: item, Value: Text(r, "value")})
	}
	return out, nil
}

// FundFlow 个股资金流向；第一条为最新。
func (c *Client) FundFlow(ctx context.Context, symbol string) ([]gjson.Result, error) {
	return c.symbolRecords(ctx, fnFundFlow, "stock", symbol)
}

// Dragon 龙虎榜明细。
func (c *Client) Dragon(ctx context.Context, symbol string) ([]gjson.Result, error) {
	return c.symbolRecords(ctx, fnDragon, "symbol", symbol)
}

// Shareholders 十大股东。
func (c *Client) Shareholders(ctx context.Context, symbol string) ([]gjson.Result, error) {
	return c.symbolRecords(ctx, fnShareholders, "symbol", symbol)
}

// News 个股资讯，缺标题或链接的条目跳过。
func (c *Client) News(ctx context.Context, symbol string) ([]model.NewsItem, error) {
	recs, err := c.symbolRecords(ctx, fnNews, "symbol", symbol)
	if err != nil {
		return nil, err
	}
	out := make([]model.NewsItem, 0, len(recs))
	for _, r := range recs {
		title, link := strings.TrimSpace(Text(r, "title")), strings.TrimSpace(Text(r, "url"))
		if title == "" || link == "" {
			continue
		}
		out = append(out, model.NewsItem{Title: title, URL: link, DateTime: Text(r, "datetime")})
	}
	return out, nil
}

func (c *Client) symbolRecords(ctx context.Context, fn, param, symbol string) ([]gjson.Result, error) {
	if !ValidSymbol(symbol) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	return c.getRecords(ctx, fn, url.Values{param: {symbol}})
}
