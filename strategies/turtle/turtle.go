package turtle

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
		base.Parameter{Name: "entry", Default: 20, Min: 2, Max: 500, Description: "entry channel period"},
		base.Parameter{Name: "exit", Default: 10, Min: 2, Max: 500, Description: "exit channel period"},
		base.Parameter{Name: "atr", Default: 14, Min: 2, Max: 200, Description: "ATR period for unit sizing"},
		base.Parameter{Name: "risk", Default: 0.01, Min: 0.0001, Max: 0.2, Description: "equity fraction risked per ATR unit"},
		base.Parameter{Name: "shorts", Default: 0, Min: 0, Max: 1, Description: "take short breakouts"},
	)
	return s
}

// Name returns the registry identifier
func (s *Strategy) Name() string {
	return Name
}

// Description returns a human readable summary
func (s *Strategy) Description() string {
	return "Donchian channel breakout with ATR unit sizing"
}

// OnBar checks entry and exit channel breaks for the latest bar
func (s *Strategy) OnBar(ctx *base.Context) ([]signal.Event, error) {
	if ctx == nil || ctx.Data == nil {
		return nil, base.ErrNoData
	}
	bar := ctx.Data.Latest()
	if bar == nil {
		return nil, base.ErrNoData
	}

	entryHigh, err := s.channel(ctx, bar.Instrument, factors.DonchianHigh, s.IntParam("entry"), bar)
	if err != nil {
		return nil, ignoreWarmup(err)
	}
	entryLow, err := s.channel(ctx, bar.Instrument, factors.DonchianLow, s.IntParam("entry"), bar)
	if err != nil {
		return nil, ignoreWarmup(err)
	}
	exitHigh, err := s.channel(ctx, bar.Instrument, factors.DonchianHigh, s.IntParam("exit"), bar)
	if err != nil {
		return nil, ignoreWarmup(err)
	}
	exitLow, err := s.channel(ctx, bar.Instrument, factors.DonchianLow, s.IntParam("exit"), bar)
	if err != nil {
		return nil, ignoreWarmup(err)
	}

	held := ctx.Account.PositionFor(bar.Instrument).Quantity
	switch {
	case held.IsPositive() && bar.Close.LessThanOrEqual(exitLow):
		sig := base.NewSignal(bar, common.Flat,
			fmt.Sprintf("close %v broke exit channel low %v", bar.Close, exitLow))
		return []signal.Event{sig}, nil
	case held.IsNegative() && bar.Close.GreaterThanOrEqual(exitHigh):
		sig := base.NewSignal(bar, common.Flat,
			fmt.Sprintf("close %v broke exit channel high %v", bar.Close, exitHigh))
		return []signal.Event{sig}, nil
	case held.IsZero() && bar.Close.GreaterThanOrEqual(entryHigh):
		return s.entry(ctx, bar, common.Long, entryHigh)
	case held.IsZero() && s.Param("shorts") > 0 && bar.Close.LessThanOrEqual(entryLow):
		return s.entry(ctx, bar, common.Short, entryLow)
	}
	return nil, nil
}

func (s *Strategy) entry(ctx *base.Context, bar *kline.Bar, direction common.Direction, level decimal.Decimal) ([]signal.Event, error) {
	atr, err := ctx.Factors.Compute(bar.Instrument, factors.ATR, bar.Time, s.IntParam("atr"), nil)
	if err != nil {
		return nil, ignoreWarmup(err)
	}
	if !atr.IsPositive() {
		return nil, nil
	}
	unit := ctx.Account.Equity.Mul(decimal.NewFromFloat(s.Param("risk"))).Div(atr)
	sig := base.NewSignal(bar, direction,
		fmt.Sprintf("close %v broke entry channel %v, ATR %v", bar.Close, level, atr))
	sig.Amount = unit
	return []signal.Event{sig}, nil
}

func (s *Strategy) channel(ctx *base.Context, instrument, name string, period int, bar *kline.Bar) (decimal.Decimal, error) {
	return ctx.Factors.Compute(instrument, name, bar.Time, period, nil)
}

// OnFill is a no-op
func (s *Strategy) OnFill(_ fill.Event) {}

func ignoreWarmup(err error) error {
	if errors.Is(err, factors.ErrInsufficientHistory) {
		return nil
	}
	return err
}
