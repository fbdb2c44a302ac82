package macross

import (
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

func TestOnBarRejectsInvertedPeriods(t *testing.T) {
	t.Parallel()
	s := New()
	require.NoError(t, s.SetParameters(map[string]float64{"fast": 30, "slow": 10}))

	ctx, h := testContext(t, []float64{10, 11, 12})
	_, ok := h.Next()
	require.True(t, ok)
	_, err := s.OnBar(ctx)
	assert.ErrorIs(t, err, base.ErrInvalidParameter)
}

// Walks a two-over-three cross through five bars: the first bars lack
// history for the slow average so no signal may appear before the
// averages diverge
func TestOnBarFiveBarCross(t *testing.T) {
	t.Parallel()
	s := New()
	require.NoError(t, s.SetParameters(map[string]float64{"fast": 2, "slow": 3}))

	ctx, h := testContext(t, []float64{10, 11, 9, 12, 13})

	type expectation struct {
		direction common.Direction
		none      bool
	}
	expected := []expectation{
		{none: true}, // 1 bar, no history
		{none: true}, // 2 bars, slow average still warming up
		{none: true}, // SMA2 and SMA3 both 10, no divergence
		{direction: common.Flat},
		{direction: common.Long},
	}
	for i, want := range expected {
		_, ok := h.Next()
		require.True(t, ok)
		signals, err := s.OnBar(ctx)
		require.NoError(t, err, "bar %d", i)
		if want.none {
			assert.Empty(t, signals, "bar %d should emit nothing", i)
			continue
		}
		require.Len(t, signals, 1, "bar %d", i)
		assert.Equal(t, want.direction, signals[0].GetDirection(), "bar %d", i)
	}
}

func TestOnBarShortsWhenEnabled(t *testing.T) {
	t.Parallel()
	s := New()
	require.NoError(t, s.SetParameters(map[string]float64{"fast": 2, "slow": 3, "shorts": 1}))

	ctx, h := testContext(t, []float64{10, 11, 9, 12})
	for i := 0; i < 4; i++ {
		_, ok := h.Next()
		require.True(t, ok)
	}
	signals, err := s.OnBar(ctx)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, common.Short, signals[0].GetDirection())
}
