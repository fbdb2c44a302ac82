package multifactor

import (
	"math"
	"testing"
	"time"

	"github.com/quantview/backtester/common"
	"github.com/quantview/backtester/data"
	datakline "github.com/quantview/backtester/data/kline"
	"github.com/quantview/backtester/factors"
	"github.com/quantview/backtester/portfolio"
	"github.com/quantview/backtester/strategies/base"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func testContext(t *testing.T, closes []float64) (*base.Context, *datakline.DataFromKline) {
	t.Helper()
	candles := make([]datakline.Candle, len(closes))
	for i, c := range closes {
		d := decimal.NewFromFloat(c)
		candles[i] = datakline.Candle{
			Time: testStart.Add(time.Duration(i) * time.Hour),
			Open: d, High: d, Low: d, Close: d,
			Volume: decimal.NewFromInt(1000),
		}
	}
	h := &datakline.DataFromKline{Instrument: "ACME", Interval: time.Hour, Candles: candles}
	require.NoError(t, h.Load())

	feed := data.NewFeed()
	feed.SetHandler("ACME", h)
	return &base.Context{
		Data:    h,
		Factors: factors.NewEngine(feed),
		Account: portfolio.Account{
			Cash:      decimal.NewFromInt(1000),
			Equity:    decimal.NewFromInt(1000),
			Positions: make(map[string]portfolio.Position),
		},
	}, h
}

func TestName(t *testing.T) {
	t.Parallel()
	s := New()
	assert.Equal(t, Name, s.Name())
	assert.NotEmpty(t, s.Description())
}

func TestOnBarNoData(t *testing.T) {
	t.Parallel()
	s := New()
	_, err := s.OnBar(nil)
	assert.ErrorIs(t, err, base.ErrNoData)
}

// The momentum contribution is a rate of change, so an instrument's
// price level must not dilute it: a 30% advance on a 10000-priced stock
// scores the same as on a 10-priced one
func TestOnBarMomentumIgnoresPriceLevel(t *testing.T) {
	t.Parallel()
	s := New()
	require.NoError(t, s.SetParameters(map[string]float64{
		"momentum":        10,
		"rsi":             5,
		"trend":           5,
		"momentum-weight": 1,
		"rsi-weight":      0,
		"trend-weight":    0,
		"entry":           0.2,
		"exit":            0,
	}))

	// 3% per bar: the 10-bar rate of change is 1.03^10-1, about 0.34
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 10000 * math.Pow(1.03, float64(i))
	}
	ctx, h := testContext(t, closes)
	for range closes {
		_, ok := h.Next()
		require.True(t, ok)
	}

	signals, err := s.OnBar(ctx)
	require.NoError(t, err)
	require.Len(t, signals, 1, "score must clear the entry threshold")
	assert.Equal(t, common.Long, signals[0].GetDirection())
}

func TestOnBarExitsBelowThreshold(t *testing.T) {
	t.Parallel()
	s := New()
	require.NoError(t, s.SetParameters(map[string]float64{
		"momentum":        10,
		"rsi":             5,
		"trend":           5,
		"momentum-weight": 1,
		"rsi-weight":      0,
		"trend-weight":    0,
		"entry":           0.2,
		"exit":            0,
	}))

	// a steady decline scores negative momentum
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 10000 * math.Pow(0.99, float64(i))
	}
	ctx, h := testContext(t, closes)
	ctx.Account.Positions["ACME"] = portfolio.Position{
		Instrument: "ACME",
		Quantity:   decimal.NewFromInt(1),
	}
	for range closes {
		_, ok := h.Next()
		require.True(t, ok)
	}

	signals, err := s.OnBar(ctx)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, common.Flat, signals[0].GetDirection())
}
