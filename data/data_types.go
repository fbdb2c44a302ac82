package data

import (
	"errors"
	"time"

	"github.com/quantview/backtester/eventtypes/kline"
	"github.com/shopspring/decimal"
)

var (
	// ErrDataGap is returned when a requested historical range has missing
	// bars beyond the configured tolerance
	ErrDataGap = errors.New("data gap exceeds tolerance")
	// ErrFeedDisconnected is returned when a live feed is interrupted. It is
	// potentially recoverable and distinct from stream exhaustion
	ErrFeedDisconnected = errors.New("feed disconnected")
	// ErrEndOfStream is returned when a historical feed is exhausted
	ErrEndOfStream = errors.New("end of stream")
	// ErrHandlerNotFound is returned when no handler is registered for an
	// instrument
	ErrHandlerNotFound = errors.New("data handler not found")
	// ErrNoCandleData is returned when a loader has nothing to stream
	ErrNoCandleData = errors.New("no candle data provided")
)

// Handler is the per instrument contract for loading and streaming bars
type Handler interface {
	Loader
	Streamer
	Reset()
}

// Loader loads data into a streamable format
type Loader interface {
	Load() error
	AppendStream(bars ...*kline.Bar)
	// Revision increments whenever historical bars are amended wholesale,
	// e.g. a corporate action adjustment. Factor caches key on it
	Revision() int64
}

// Streamer handles distributing loaded data
type Streamer interface {
	Next() (*kline.Bar, bool)
	Latest() *kline.Bar
	History() []*kline.Bar
	Offset() int64
	IsLastEvent() bool

	StreamOpen() []decimal.Decimal
	StreamHigh() []decimal.Decimal
	StreamLow() []decimal.Decimal
	StreamClose() []decimal.Decimal
	StreamVol() []decimal.Decimal

	HasDataAtTime(time.Time) bool
}

// Base is the foundational implementation of Handler, embedded by loaders
type Base struct {
	latest   *kline.Bar
	stream   []*kline.Bar
	offset   int64
	revision int64
}

// Batch is every bar sharing one timestamp across subscribed instruments,
// processed atomically so no strategy sees a partial cross-section
type Batch struct {
	Time time.Time
	Bars []*kline.Bar
}
