package kline

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/quantview/backtester/data"
	"github.com/quantview/backtester/eventtypes/event"
	"github.com/quantview/backtester/eventtypes/kline"
	"github.com/shopspring/decimal"
)

// Load converts the raw candles into a sorted bar stream and verifies
// continuity against the gap tolerance
func (d *DataFromKline) Load() error {
	if len(d.Candles) == 0 {
		return data.ErrNoCandleData
	}
	bars := make([]*kline.Bar, len(d.Candles))
	for i := range d.Candles {
		bars[i] = &kline.Bar{
			Base: event.Base{
				Instrument: d.Instrument,
				Time:       d.Candles[i].Time,
				Interval:   d.Interval,
			},
			Open:   d.Candles[i].Open,
			High:   d.Candles[i].High,
			Low:    d.Candles[i].Low,
			Close:  d.Candles[i].Close,
			Volume: d.Candles[i].Volume,
		}
	}
	d.SetStream(bars)
	return d.ValidateContinuity(d.Interval, d.GapTolerance)
}

// Amend replaces the underlying candle history wholesale, e.g. after a
// corporate action adjustment, and reloads. The stream revision changes so
// factor caches for this instrument are discarded, never partially
func (d *DataFromKline) Amend(candles []Candle) error {
	if len(candles) == 0 {
		return data.ErrNoCandleData
	}
	d.Candles = candles
	d.Reset()
	d.MarkAmended()
	return d.Load()
}

// FromCSV builds a historical handler from a CSV file of
// timestamp,open,high,low,close,volume rows. The timestamp column accepts
// RFC3339 or unix seconds
func FromCSV(path, instrument string, interval time.Duration) (*DataFromKline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not read candle data for %v: %w", instrument, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("could not parse candle data for %v: %w", instrument, err)
	}
	d := &DataFromKline{
		Instrument: instrument,
		Interval:   interval,
	}
	for i := range records {
		if i == 0 && !isTimestamp(records[i][0]) {
			// header row
			continue
		}
		c, err := parseCandle(records[i])
		if err != nil {
			return nil, fmt.Errorf("row %d of %v: %w", i+1, path, err)
		}
		d.Candles = append(d.Candles, c)
	}
	return d, nil
}

func parseCandle(record []string) (Candle, error) {
	if len(record) < 6 {
		return Candle{}, fmt.Errorf("expected 6 columns, have %d", len(record))
	}
	var c Candle
	if ts, err := strconv.ParseInt(record[0], 10, 64); err == nil {
		c.Time = time.Unix(ts, 0).UTC()
	} else {
		t, err := time.Parse(time.RFC3339, record[0])
		if err != nil {
			return Candle{}, fmt.Errorf("unparseable timestamp %q: %w", record[0], err)
		}
		c.Time = t.UTC()
	}
	fields := []*decimal.Decimal{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume}
	for i, target := range fields {
		v, err := decimal.NewFromString(record[i+1])
		if err != nil {
			return Candle{}, fmt.Errorf("unparseable value %q: %w", record[i+1], err)
		}
		*target = v
	}
	return c, nil
}

func isTimestamp(s string) bool {
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return true
	}
	_, err := time.Parse(time.RFC3339, s)
	return err == nil
}
