package macd

import (
	"errors"
	"fmt"

	"github.com/quantview/backtester/common"
	"github.com/quantview/backtester/eventtypes/fill"
	"github.com/quantview/backtester/eventtypes/signal"
	"github.com/quantview/backtester/factors"
	"github.com/quantview/backtester/strategies/base"
)

// New returns a freshly parameterised instance
func New() *Strategy {
	s := &Strategy{}
	s.Declare(
		base.Parameter{Name: "fast", Default: 12, Min: 2, Max: 200, Description: "fast EMA period"},
		base.Parameter{Name: "slow", Default: 26, Min: 3, Max: 400, Description: "slow EMA period"},
		base.Parameter{Name: "signal", Default: 9, Min: 2, Max: 100, Description: "signal line period"},
	)
	return s
}

// Name returns the registry identifier
func (s *Strategy) Name() string {
	return Name
}

// Description returns a human readable summary
func (s *Strategy) Description() string {
	return "goes long when the MACD histogram turns positive, flat when negative"
}

// OnBar emits a signal from the sign of the MACD histogram
func (s *Strategy) OnBar(ctx *base.Context) ([]signal.Event, error) {
	if ctx == nil || ctx.Data == nil {
		return nil, base.ErrNoData
	}
	bar := ctx.Data.Latest()
	if bar == nil {
		return nil, base.ErrNoData
	}

	params := map[string]float64{
		"fast":   s.Param("fast"),
		"slow":   s.Param("slow"),
		"signal": s.Param("signal"),
	}
	lookback := s.IntParam("slow") + s.IntParam("signal")
	hist, err := ctx.Factors.Compute(bar.Instrument, factors.MACDHistogram, bar.Time, lookback, params)
	if err != nil {
		if errors.Is(err, factors.ErrInsufficientHistory) {
			return nil, nil
		}
		return nil, err
	}

	switch {
	case hist.IsPositive():
		sig := base.NewSignal(bar, common.Long, fmt.Sprintf("MACD histogram %v positive", hist))
		return []signal.Event{sig}, nil
	case hist.IsNegative():
		sig := base.NewSignal(bar, common.Flat, fmt.Sprintf("MACD histogram %v negative", hist))
		return []signal.Event{sig}, nil
	}
	return nil, nil
}

// OnFill is a no-op
func (s *Strategy) OnFill(_ fill.Event) {}
