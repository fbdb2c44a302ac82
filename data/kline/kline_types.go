package kline

import (
	"time"

	"github.com/quantview/backtester/data"
	"github.com/shopspring/decimal"
)

// Candle is one raw OHLCV row before it becomes a streamable bar
type Candle struct {
	Time   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
}

// DataFromKline is a historical candle data handler. It is restartable:
// Reset followed by Load replays the identical stream
type DataFromKline struct {
	data.Base
	Instrument string
	Interval   time.Duration
	Candles    []Candle
	// GapTolerance is how many consecutive missing intervals are permitted
	// before Load fails with ErrDataGap
	GapTolerance int64
}
