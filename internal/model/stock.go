// Package model 定义日 K 原始记录、实时行情、扫描结果等数据结构。
package model

// RawBar 网关返回的单条日 K 原文：数字保留 JSON 字面量文本，缺失或 null 为空串。
type RawBar struct {
	Date   string
	Open   string
	Close  string
	Low    string
	High   string
	Volume string
}

// StockQuote 实时行情列表单条（stock_zh_a_spot_em）：代码、名称、现价、涨跌幅、成交额、换手、市值、PE。
type StockQuote struct {
	Code         string
	Name         string
	Price        float64
	ChangePct    float64
	Amount       float64
	TurnoverRate float64
	MarketCap    float64 // 总市值(元)
	PE           float64 // 市盈率-动态，无效为 0
}

// Stock 扫描结果：行情 + 日 K 最新收盘与各窗口均线。
type Stock struct {
	Code         string
	Name         string
	Price        float64
	ChangePct    float64
	TurnoverRate float64
	MarketCap    float64
	PE           float64
	Bars         int             // 归一化后有效日 K 数
	LastDate     string
	LastClose    float64
	MA           map[int]float64 // 窗口 -> 最新均线值，数据不足的窗口不出现
}

// MAOf 返回窗口 w 的最新均线，ok=false 表示历史不足。
func (s *Stock) MAOf(w int) (float64, bool) {
	if s == nil || s.MA == nil {
		return 0, false
	}
	v, ok := s.MA[w]
	return v, ok
}

// NewsItem 个股资讯：标题、链接、时间。
type NewsItem struct {
	Title    string
	URL      string
	DateTime string
}

// InfoItem 公司概况 item/value 对。
type InfoItem struct {
	Item  string
	Value string
}
