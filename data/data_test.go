package data

import (
	"testing"
	"time"

	"github.com/quantview/backtester/eventtypes/event"
	"github.com/quantview/backtester/eventtypes/kline"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func bar(instrument string, i int, close float64) *kline.Bar {
	d := decimal.NewFromFloat(close)
	return &kline.Bar{
		Base: event.Base{
			Instrument: instrument,
			Time:       testStart.Add(time.Duration(i) * time.Hour),
			Interval:   time.Hour,
		},
		Open: d, High: d, Low: d, Close: d,
		Volume: decimal.NewFromInt(100),
	}
}

type stubHandler struct {
	Base
	loads int
}

func (s *stubHandler) Load() error {
	s.loads++
	return nil
}

func TestSetStreamSortsAndNumbers(t *testing.T) {
	t.Parallel()
	b := &Base{}
	b.SetStream([]*kline.Bar{bar("ACME", 2, 12), bar("ACME", 0, 10), bar("ACME", 1, 11)})

	stream := b.GetStream()
	require.Len(t, stream, 3)
	for i := range stream {
		assert.Equal(t, int64(i), stream[i].GetOffset())
		assert.Equal(t, int64(i), stream[i].Sequence)
		if i > 0 {
			assert.True(t, stream[i].Time.After(stream[i-1].Time))
		}
	}
}

func TestNextWalksTheStream(t *testing.T) {
	t.Parallel()
	b := &Base{}
	b.SetStream([]*kline.Bar{bar("ACME", 0, 10), bar("ACME", 1, 11)})

	first, ok := b.Next()
	require.True(t, ok)
	assert.Equal(t, "10", first.Close.String())
	assert.Equal(t, first, b.Latest())
	assert.False(t, b.IsLastEvent())

	second, ok := b.Next()
	require.True(t, ok)
	assert.Equal(t, "11", second.Close.String())
	assert.True(t, b.IsLastEvent())

	_, ok = b.Next()
	assert.False(t, ok)
	assert.Len(t, b.History(), 2)
}

func TestAppendStreamIgnoresStaleBars(t *testing.T) {
	t.Parallel()
	b := &Base{}
	b.SetStream([]*kline.Bar{bar("ACME", 0, 10), bar("ACME", 1, 11)})

	b.AppendStream(nil, bar("ACME", 1, 99), bar("ACME", 2, 12))
	stream := b.GetStream()
	require.Len(t, stream, 3)
	assert.Equal(t, "12", stream[2].Close.String())
	assert.Equal(t, int64(2), stream[2].GetOffset())
}

func TestValidateContinuity(t *testing.T) {
	t.Parallel()
	b := &Base{}
	b.SetStream([]*kline.Bar{bar("ACME", 0, 10), bar("ACME", 1, 11), bar("ACME", 5, 12)})

	err := b.ValidateContinuity(time.Hour, 0)
	assert.ErrorIs(t, err, ErrDataGap)

	// a tolerance covering the three missing bars passes
	assert.NoError(t, b.ValidateContinuity(time.Hour, 3))
}

func TestFeedNextMergesByTimestamp(t *testing.T) {
	t.Parallel()
	acme := &stubHandler{}
	acme.SetStream([]*kline.Bar{bar("ACME", 0, 10), bar("ACME", 1, 11), bar("ACME", 2, 12)})
	// WIDG is missing the middle bar
	widg := &stubHandler{}
	widg.SetStream([]*kline.Bar{bar("WIDG", 0, 50), bar("WIDG", 2, 52)})

	feed := NewFeed()
	feed.SetHandler("ACME", acme)
	feed.SetHandler("WIDG", widg)
	assert.Equal(t, []string{"ACME", "WIDG"}, feed.Instruments())

	batch, err := feed.Next()
	require.NoError(t, err)
	assert.True(t, batch.Time.Equal(testStart))
	assert.Len(t, batch.Bars, 2)

	batch, err = feed.Next()
	require.NoError(t, err)
	require.Len(t, batch.Bars, 1, "only ACME has a bar at this timestamp")
	assert.Equal(t, "ACME", batch.Bars[0].Instrument)

	batch, err = feed.Next()
	require.NoError(t, err)
	assert.Len(t, batch.Bars, 2)

	_, err = feed.Next()
	assert.ErrorIs(t, err, ErrEndOfStream)
}

func TestFeedGetHandler(t *testing.T) {
	t.Parallel()
	feed := NewFeed()
	_, err := feed.GetHandler("ACME")
	assert.ErrorIs(t, err, ErrHandlerNotFound)
}

func TestFeedResetReloads(t *testing.T) {
	t.Parallel()
	h := &stubHandler{}
	h.SetStream([]*kline.Bar{bar("ACME", 0, 10)})

	feed := NewFeed()
	feed.SetHandler("ACME", h)
	_, err := feed.Next()
	require.NoError(t, err)

	require.NoError(t, feed.Reset())
	assert.Equal(t, 1, h.loads)
	assert.Equal(t, int64(0), h.Offset())
}
