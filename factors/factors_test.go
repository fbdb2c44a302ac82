package factors

import (
	"testing"
	"time"

	"github.com/quantview/backtester/data"
	datakline "github.com/quantview/backtester/data/kline"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func testFeed(t *testing.T, instrument string, closes []float64) (*data.Feed, *datakline.DataFromKline) {
	t.Helper()
	candles := make([]datakline.Candle, len(closes))
	for i, c := range closes {
		d := decimal.NewFromFloat(c)
		candles[i] = datakline.Candle{
			Time:   testStart.Add(time.Duration(i) * time.Hour),
			Open:   d,
			High:   d,
			Low:    d,
			Close:  d,
			Volume: decimal.NewFromInt(1000),
		}
	}
	h := &datakline.DataFromKline{
		Instrument: instrument,
		Interval:   time.Hour,
		Candles:    candles,
	}
	require.NoError(t, h.Load())
	// stream everything so the full history is visible to the engine
	for {
		if _, ok := h.Next(); !ok {
			break
		}
	}
	feed := data.NewFeed()
	feed.SetHandler(instrument, h)
	return feed, h
}

func asOf(i int) time.Time {
	return testStart.Add(time.Duration(i) * time.Hour)
}

func TestComputeSMA(t *testing.T) {
	t.Parallel()
	feed, _ := testFeed(t, "ACME", []float64{10, 11, 12, 13, 14})
	e := NewEngine(feed)

	got, err := e.Compute("ACME", SMA, asOf(4), 3, nil)
	require.NoError(t, err)
	assert.Equal(t, "13", got.String())
}

func TestComputeRespectsAsOf(t *testing.T) {
	t.Parallel()
	feed, _ := testFeed(t, "ACME", []float64{10, 11, 12, 13, 14})
	e := NewEngine(feed)

	// as of the fourth bar, the fifth close must not leak in
	got, err := e.Compute("ACME", SMA, asOf(3), 3, nil)
	require.NoError(t, err)
	assert.Equal(t, "12", got.String())
}

func TestComputeInsufficientHistory(t *testing.T) {
	t.Parallel()
	feed, _ := testFeed(t, "ACME", []float64{10, 11, 12})
	e := NewEngine(feed)

	_, err := e.Compute("ACME", SMA, asOf(2), 10, nil)
	assert.ErrorIs(t, err, ErrInsufficientHistory)

	// RSI needs one bar more than its period
	_, err = e.Compute("ACME", RSI, asOf(2), 3, nil)
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestComputeUnknownFactor(t *testing.T) {
	t.Parallel()
	feed, _ := testFeed(t, "ACME", []float64{10, 11, 12})
	e := NewEngine(feed)

	_, err := e.Compute("ACME", "astrology", asOf(2), 2, nil)
	assert.ErrorIs(t, err, ErrUnknownFactor)

	_, err = e.Compute("ACME", SMA, asOf(2), 0, nil)
	assert.ErrorIs(t, err, ErrUnknownFactor)
}

func TestComputeUnknownInstrument(t *testing.T) {
	t.Parallel()
	feed, _ := testFeed(t, "ACME", []float64{10, 11, 12})
	e := NewEngine(feed)

	_, err := e.Compute("GHOST", SMA, asOf(2), 2, nil)
	assert.ErrorIs(t, err, data.ErrHandlerNotFound)
}

func TestComputeMemoises(t *testing.T) {
	t.Parallel()
	feed, _ := testFeed(t, "ACME", []float64{10, 11, 12, 13, 14})
	e := NewEngine(feed)

	first, err := e.Compute("ACME", SMA, asOf(4), 3, nil)
	require.NoError(t, err)
	require.Len(t, e.cache, 1)

	second, err := e.Compute("ACME", SMA, asOf(4), 3, nil)
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
	assert.Len(t, e.cache, 1)
}

func TestParamsDistinguishCacheEntries(t *testing.T) {
	t.Parallel()
	feed, _ := testFeed(t, "ACME", []float64{10, 11, 12, 13, 14, 15, 16, 17, 18, 19})
	e := NewEngine(feed)

	wide, err := e.Compute("ACME", BollingerUp, asOf(9), 5, map[string]float64{"stddev": 3})
	require.NoError(t, err)
	narrow, err := e.Compute("ACME", BollingerUp, asOf(9), 5, map[string]float64{"stddev": 1})
	require.NoError(t, err)
	assert.False(t, wide.Equal(narrow))
	assert.Len(t, e.cache, 2)
}

func TestAmendInvalidatesWholesale(t *testing.T) {
	t.Parallel()
	feed, h := testFeed(t, "ACME", []float64{10, 11, 12, 13, 14})
	e := NewEngine(feed)

	before, err := e.Compute("ACME", SMA, asOf(4), 3, nil)
	require.NoError(t, err)
	assert.Equal(t, "13", before.String())

	// adjust the history, e.g. a split, and replay the stream
	adjusted := make([]datakline.Candle, 5)
	for i, c := range []float64{20, 22, 24, 26, 28} {
		d := decimal.NewFromFloat(c)
		adjusted[i] = datakline.Candle{
			Time: asOf(i), Open: d, High: d, Low: d, Close: d,
			Volume: decimal.NewFromInt(1000),
		}
	}
	require.NoError(t, h.Amend(adjusted))
	for {
		if _, ok := h.Next(); !ok {
			break
		}
	}

	after, err := e.Compute("ACME", SMA, asOf(4), 3, nil)
	require.NoError(t, err)
	assert.Equal(t, "26", after.String(), "amended history must not serve stale cached values")
}

func TestInvalidateIsPerInstrument(t *testing.T) {
	t.Parallel()
	feed, _ := testFeed(t, "ACME", []float64{10, 11, 12, 13, 14})
	other := &datakline.DataFromKline{
		Instrument: "WIDG",
		Interval:   time.Hour,
		Candles: []datakline.Candle{
			{Time: asOf(0), Open: decimal.NewFromInt(5), High: decimal.NewFromInt(5), Low: decimal.NewFromInt(5), Close: decimal.NewFromInt(5), Volume: decimal.NewFromInt(1)},
			{Time: asOf(1), Open: decimal.NewFromInt(6), High: decimal.NewFromInt(6), Low: decimal.NewFromInt(6), Close: decimal.NewFromInt(6), Volume: decimal.NewFromInt(1)},
		},
	}
	require.NoError(t, other.Load())
	for {
		if _, ok := other.Next(); !ok {
			break
		}
	}
	feed.SetHandler("WIDG", other)
	e := NewEngine(feed)

	_, err := e.Compute("ACME", SMA, asOf(4), 3, nil)
	require.NoError(t, err)
	_, err = e.Compute("WIDG", SMA, asOf(1), 2, nil)
	require.NoError(t, err)
	require.Len(t, e.cache, 2)

	e.Invalidate("ACME")
	assert.Len(t, e.cache, 1)
}

func TestDonchianAndMomentum(t *testing.T) {
	t.Parallel()
	feed, _ := testFeed(t, "ACME", []float64{10, 15, 12, 18, 14})
	e := NewEngine(feed)

	high, err := e.Compute("ACME", DonchianHigh, asOf(4), 3, nil)
	require.NoError(t, err)
	assert.Equal(t, "18", high.String())

	low, err := e.Compute("ACME", DonchianLow, asOf(4), 3, nil)
	require.NoError(t, err)
	assert.Equal(t, "12", low.String())

	// close moved 14/10 - 1 over four bars
	mom, err := e.Compute("ACME", Momentum, asOf(4), 4, nil)
	require.NoError(t, err)
	assert.Equal(t, "0.4", mom.String())
}
