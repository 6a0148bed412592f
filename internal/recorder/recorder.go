// Package recorder 持久化实时行情快照，供离线查看与复盘。
package recorder

import (
	"time"

	"stockDash/internal/model"
)

// SpotSnapshot 一次全市场行情快照。
type SpotSnapshot struct {
	ID     int64
	Taken  time.Time
	Quotes []model.StockQuote
}

type Recorder interface {
	RecordSpot(snap *SpotSnapshot) error
	// LatestSpot 返回最近一次快照，没有时为 nil。
	LatestSpot() (*SpotSnapshot, error)
	Close() error
}
