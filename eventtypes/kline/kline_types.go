package kline

import (
	"github.com/quantview/backtester/common"
	"github.com/quantview/backtester/eventtypes/event"
	"github.com/shopspring/decimal"
)

// Bar is one OHLCV observation for an instrument over a fixed interval.
// Bars are immutable once emitted by a feed; the Sequence field breaks
// timestamp ties deterministically
type Bar struct {
	event.Base
	Sequence int64           `json:"sequence"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	Volume   decimal.Decimal `json:"volume"`
}

// Event interface for a bar data event
type Event interface {
	common.DataEvent
	GetSequence() int64
}
