// Package domain defines the core value types shared across quantsim: daily
// bars as stored on disk, trading signals, and the day × asset matrices the
// simulation engine consumes.
package domain

import "time"

// Market identifies the exchange group a symbol belongs to.
type Market string

const (
	MarketUS Market = "us"
	MarketCN Market = "cn"
)

// Bar is a single daily OHLCV record for one symbol.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	TradeCount int64
	VWAP       float64
}
