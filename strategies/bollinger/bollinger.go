package bollinger

import (
	"errors"
	"fmt"

	"github.com/quantview/backtester/common"
	"github.com/quantview/backtester/eventtypes/fill"
	"github.com/quantview/backtester/eventtypes/kline"
	"github.com/quantview/backtester/eventtypes/signal"
	"github.com/quantview/backtester/factors"
	"github.com/quantview/backtester/strategies/base"
	"github.com/shopspring/decimal"
)

// New returns a freshly parameterised instance
func New() *Strategy {
	s := &Strategy{}
	s.Declare(
		base.Parameter{Name: "period", Default: 20, Min: 2, Max: 500, Description: "band moving average period"},
		base.Parameter{Name: "stddev", Default: 2, Min: 0.5, Max: 5, Description: "band width in standard deviations"},
		base.Parameter{Name: "shorts", Default: 0, Min: 0, Max: 1, Description: "short touches of the upper band"},
	)
	return s
}

// Name returns the registry identifier
func (s *Strategy) Name() string {
	return Name
}

// Description returns a human readable summary
func (s *Strategy) Description() string {
	return "mean reversion between Bollinger bands"
}

// OnBar compares the close against the band envelope
func (s *Strategy) OnBar(ctx *base.Context) ([]signal.Event, error) {
	if ctx == nil || ctx.Data == nil {
		return nil, base.ErrNoData
	}
	bar := ctx.Data.Latest()
	if bar == nil {
		return nil, base.ErrNoData
	}

	period := s.IntParam("period")
	params := map[string]float64{"stddev": s.Param("stddev")}
	upper, err := s.band(ctx, bar, factors.BollingerUp, period, params)
	if err != nil {
		return nil, ignoreWarmup(err)
	}
	middle, err := s.band(ctx, bar, factors.BollingerMid, period, params)
	if err != nil {
		return nil, ignoreWarmup(err)
	}
	lower, err := s.band(ctx, bar, factors.BollingerLow, period, params)
	if err != nil {
		return nil, ignoreWarmup(err)
	}

	held := ctx.Account.PositionFor(bar.Instrument).Quantity
	switch {
	case bar.Close.LessThanOrEqual(lower):
		sig := base.NewSignal(bar, common.Long,
			fmt.Sprintf("close %v at or below lower band %v", bar.Close, lower))
		return []signal.Event{sig}, nil
	case bar.Close.GreaterThanOrEqual(upper):
		direction := common.Flat
		if s.Param("shorts") > 0 {
			direction = common.Short
		}
		sig := base.NewSignal(bar, direction,
			fmt.Sprintf("close %v at or above upper band %v", bar.Close, upper))
		return []signal.Event{sig}, nil
	case !held.IsZero() && crossedMiddle(held, bar.Close, middle):
		sig := base.NewSignal(bar, common.Flat,
			fmt.Sprintf("close %v reverted to middle band %v", bar.Close, middle))
		return []signal.Event{sig}, nil
	}
	return nil, nil
}

// OnFill is a no-op
func (s *Strategy) OnFill(_ fill.Event) {}

func (s *Strategy) band(ctx *base.Context, bar *kline.Bar, name string, period int, params map[string]float64) (decimal.Decimal, error) {
	return ctx.Factors.Compute(bar.Instrument, name, bar.Time, period, params)
}

// ignoreWarmup swallows insufficient-history so early bars simply emit
// no signal
func ignoreWarmup(err error) error {
	if errors.Is(err, factors.ErrInsufficientHistory) {
		return nil
	}
	return err
}

// crossedMiddle reports whether price has reached the middle band from
// the profitable side of the held position
func crossedMiddle(held, close, middle decimal.Decimal) bool {
	if held.IsPositive() {
		return close.GreaterThanOrEqual(middle)
	}
	return close.LessThanOrEqual(middle)
}
