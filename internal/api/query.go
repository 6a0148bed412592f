package api

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// 网关日期格式
const dateLayout = "20060102"

// 复权方式；AdjustNone 发送空串（不复权）。
const (
	AdjustQFQ  = "qfq"
	AdjustHFQ  = "hfq"
	AdjustNone = "none"
)

const PeriodDaily = "daily"

var (
	ErrInvalidSymbol = errors.New("aktools: invalid symbol")
	ErrInvalidRange  = errors.New("aktools: invalid range")
	ErrInvalidDate   = errors.New("aktools: invalid date")
	ErrInvalidAdjust = errors.New("aktools: invalid adjust")
)

// HistQuery 日 K 查询。Period 默认 daily，Adjust 默认 qfq，End 默认今天；Start 为空表示全部历史。
type HistQuery struct {
	Symbol string
	Period string
	Adjust string
	Start  string // YYYYMMDD
	End    string // YYYYMMDD
}

// values 构造查询参数；today 用于 End 缺省。
func (q HistQuery) values(today time.Time) (url.Values, error) {
	if !ValidSymbol(q.Symbol) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSymbol, q.Symbol)
	}
	period := q.Period
	if period == "" {
		period = PeriodDaily
	}
	adjust := q.Adjust
	switch adjust {
	case "":
		adjust = AdjustQFQ
	case AdjustQFQ, AdjustHFQ:
	case AdjustNone:
		adjust = ""
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidAdjust, q.Adjust)
	}
	v := url.Values{}
	v.Set("symbol", q.Symbol)
	v.Set("period", period)
	v.Set("adjust", adjust)
	if q.Start != "" {
		if !validDate(q.Start) {
			return nil, fmt.Errorf("%w: start=%q", ErrInvalidDate, q.Start)
		}
		v.Set("start_date", q.Start)
	}
	end := q.End
	if end == "" {
		end = today.Format(dateLayout)
	} else if !validDate(end) {
		return nil, fmt.Errorf("%w: end=%q", ErrInvalidDate, end)
	}
	v.Set("end_date", end)
	return v, nil
}

// RangeStart 时间范围按钮到起始日期：1m/3m/1y/3y 往前推，all 或空串为全部历史（返回空串）。
func RangeStart(key string, now time.Time) (string, error) {
	var t time.Time
	switch key {
	case "", "all":
		return "", nil
	case "1m":
		t = now.AddDate(0, -1, 0)
	case "3m":
		t = now.AddDate(0, -3, 0)
	case "1y":
		t = now.AddDate(-1, 0, 0)
	case "3y":
		t = now.AddDate(-3, 0, 0)
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRange, key)
	}
	return t.Format(dateLayout), nil
}

// ValidSymbol A 股六位数字代码。
func ValidSymbol(s string) bool {
	if len(s) != 6 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func validDate(s string) bool {
	_, err := time.Parse(dateLayout, s)
	return err == nil
}
