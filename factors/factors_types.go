package factors

import (
	"errors"

	"github.com/quantview/backtester/data"
	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientHistory is returned when fewer bars exist than the
	// requested lookback requires. Callers must widen the lookback or skip
	// the step rather than receive a silently wrong default
	ErrInsufficientHistory = errors.New("insufficient history for factor calculation")
	// ErrUnknownFactor is returned for a factor name the engine cannot compute
	ErrUnknownFactor = errors.New("unknown factor")
)

// Supported factor names
const (
	SMA           = "sma"
	EMA           = "ema"
	RSI           = "rsi"
	MACD          = "macd"
	MACDSignal    = "macd-signal"
	MACDHistogram = "macd-histogram"
	BollingerUp   = "bollinger-upper"
	BollingerMid  = "bollinger-middle"
	BollingerLow  = "bollinger-lower"
	ATR           = "atr"
	OBV           = "obv"
	DonchianHigh  = "donchian-high"
	DonchianLow   = "donchian-low"
	Momentum      = "momentum"
)

// cacheKey uniquely identifies one computed factor value
type cacheKey struct {
	instrument string
	name       string
	timestamp  int64
	lookback   int
	paramHash  uint64
}

// Engine computes derived indicators from raw bars on demand, memoising
// results per (instrument, factor, timestamp, parameter hash). Each run
// owns its own Engine instance, there is no shared cache between runs
type Engine struct {
	feed      *data.Feed
	cache     map[cacheKey]decimal.Decimal
	revisions map[string]int64
}
