package factors

import (
	"fmt"
	"hash/fnv"
	"sort"
	"time"

	"github.com/quantview/backtester/data"
	"github.com/quantview/backtester/eventtypes/kline"
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/gct-ta/indicators"
)

// NewEngine creates a factor engine bound to a feed
func NewEngine(feed *data.Feed) *Engine {
	return &Engine{
		feed:      feed,
		cache:     make(map[cacheKey]decimal.Decimal),
		revisions: make(map[string]int64),
	}
}

// Compute returns the named factor for an instrument as of a timestamp,
// using at most lookback prior bars. Values are memoised; a cache entry is
// only reused while the instrument's bar history is unamended
func (e *Engine) Compute(instrument, name string, asOf time.Time, lookback int, params map[string]float64) (decimal.Decimal, error) {
	if lookback <= 0 {
		return decimal.Zero, fmt.Errorf("%w: lookback must be positive", ErrUnknownFactor)
	}
	h, err := e.feed.GetHandler(instrument)
	if err != nil {
		return decimal.Zero, err
	}
	e.checkRevision(instrument, h.Revision())

	key := cacheKey{
		instrument: instrument,
		name:       name,
		timestamp:  asOf.UnixNano(),
		lookback:   lookback,
		paramHash:  hashParams(params),
	}
	if v, ok := e.cache[key]; ok {
		return v, nil
	}

	bars := barsUpTo(h.History(), asOf)
	v, err := compute(name, bars, lookback, params)
	if err != nil {
		return decimal.Zero, err
	}
	e.cache[key] = v
	return v, nil
}

// Invalidate discards every cached value for an instrument. Entries are
// never removed piecemeal
func (e *Engine) Invalidate(instrument string) {
	for k := range e.cache {
		if k.instrument == instrument {
			delete(e.cache, k)
		}
	}
}

// Reset discards the entire cache
func (e *Engine) Reset() {
	e.cache = make(map[cacheKey]decimal.Decimal)
	e.revisions = make(map[string]int64)
}

func (e *Engine) checkRevision(instrument string, rev int64) {
	if prev, ok := e.revisions[instrument]; ok && prev == rev {
		return
	}
	e.Invalidate(instrument)
	e.revisions[instrument] = rev
}

func barsUpTo(history []*kline.Bar, asOf time.Time) []*kline.Bar {
	i := len(history)
	for i > 0 && history[i-1].Time.After(asOf) {
		i--
	}
	return history[:i]
}

func compute(name string, bars []*kline.Bar, lookback int, params map[string]float64) (decimal.Decimal, error) {
	closes := make([]float64, len(bars))
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i := range bars {
		closes[i] = bars[i].Close.InexactFloat64()
		highs[i] = bars[i].High.InexactFloat64()
		lows[i] = bars[i].Low.InexactFloat64()
		volumes[i] = bars[i].Volume.InexactFloat64()
	}

	switch name {
	case SMA:
		if err := requireHistory(len(bars), lookback, name); err != nil {
			return decimal.Zero, err
		}
		return last(indicators.SMA(closes, lookback))
	case EMA:
		if err := requireHistory(len(bars), lookback, name); err != nil {
			return decimal.Zero, err
		}
		return last(indicators.EMA(closes, lookback))
	case RSI:
		if err := requireHistory(len(bars), lookback+1, name); err != nil {
			return decimal.Zero, err
		}
		return last(indicators.RSI(closes, lookback))
	case MACD, MACDSignal, MACDHistogram:
		fast := intParam(params, "fast", 12)
		slow := intParam(params, "slow", 26)
		signalPeriod := intParam(params, "signal", 9)
		if err := requireHistory(len(bars), slow+signalPeriod, name); err != nil {
			return decimal.Zero, err
		}
		macd, macdSignal, macdHist := indicators.MACD(closes, fast, slow, signalPeriod)
		switch name {
		case MACDSignal:
			return last(macdSignal)
		case MACDHistogram:
			return last(macdHist)
		default:
			return last(macd)
		}
	case BollingerUp, BollingerMid, BollingerLow:
		dev := floatParam(params, "stddev", 2)
		if err := requireHistory(len(bars), lookback, name); err != nil {
			return decimal.Zero, err
		}
		upper, middle, lower := indicators.BBANDS(closes, lookback, dev, dev, indicators.Sma)
		switch name {
		case BollingerUp:
			return last(upper)
		case BollingerLow:
			return last(lower)
		default:
			return last(middle)
		}
	case ATR:
		if err := requireHistory(len(bars), lookback+1, name); err != nil {
			return decimal.Zero, err
		}
		return last(indicators.ATR(highs, lows, closes, lookback))
	case OBV:
		if err := requireHistory(len(bars), 1, name); err != nil {
			return decimal.Zero, err
		}
		return last(indicators.OBV(closes, volumes))
	case DonchianHigh:
		if err := requireHistory(len(bars), lookback, name); err != nil {
			return decimal.Zero, err
		}
		return highest(highs[len(highs)-lookback:])
	case DonchianLow:
		if err := requireHistory(len(bars), lookback, name); err != nil {
			return decimal.Zero, err
		}
		return lowest(lows[len(lows)-lookback:])
	case Momentum:
		// rate of change over the lookback window
		if err := requireHistory(len(bars), lookback+1, name); err != nil {
			return decimal.Zero, err
		}
		prev := bars[len(bars)-1-lookback].Close
		if prev.IsZero() {
			return decimal.Zero, nil
		}
		return bars[len(bars)-1].Close.Sub(prev).Div(prev), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownFactor, name)
	}
}

func requireHistory(have, want int, name string) error {
	if have < want {
		return fmt.Errorf("%w: %s requires %d bars, have %d",
			ErrInsufficientHistory, name, want, have)
	}
	return nil
}

func last(values []float64) (decimal.Decimal, error) {
	if len(values) == 0 {
		return decimal.Zero, ErrInsufficientHistory
	}
	return decimal.NewFromFloat(values[len(values)-1]), nil
}

func highest(values []float64) (decimal.Decimal, error) {
	if len(values) == 0 {
		return decimal.Zero, ErrInsufficientHistory
	}
	h := values[0]
	for _, v := range values[1:] {
		if v > h {
			h = v
		}
	}
	return decimal.NewFromFloat(h), nil
}

func lowest(values []float64) (decimal.Decimal, error) {
	if len(values) == 0 {
		return decimal.Zero, ErrInsufficientHistory
	}
	l := values[0]
	for _, v := range values[1:] {
		if v < l {
			l = v
		}
	}
	return decimal.NewFromFloat(l), nil
}

func intParam(params map[string]float64, key string, def int) int {
	if v, ok := params[key]; ok && v > 0 {
		return int(v)
	}
	return def
}

func floatParam(params map[string]float64, key string, def float64) float64 {
	if v, ok := params[key]; ok && v > 0 {
		return v
	}
	return def
}

func hashParams(params map[string]float64) uint64 {
	if len(params) == 0 {
		return 0
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	h := fnv.New64a()
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%v;", k, params[k])
	}
	return h.Sum64()
}
