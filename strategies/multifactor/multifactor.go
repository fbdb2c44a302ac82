package multifactor

import (
	"errors"
	"fmt"

	"github.com/quantview/backtester/common"
	"github.com/quantview/backtester/eventtypes/fill"
	"github.com/quantview/backtester/eventtypes/signal"
	"github.com/quantview/backtester/factors"
	"github.com/quantview/backtester/strategies/base"
	"github.com/shopspring/decimal"
)

// New returns a freshly parameterised instance
func New() *Strategy {
	s := &Strategy{}
	s.Declare(
		base.Parameter{Name: "momentum", Default: 20, Min: 2, Max: 500, Description: "momentum lookback"},
		base.Parameter{Name: "rsi", Default: 14, Min: 2, Max: 200, Description: "RSI period"},
		base.Parameter{Name: "trend", Default: 50, Min: 2, Max: 1000, Description: "trend SMA period"},
		base.Parameter{Name: "momentum-weight", Default: 1, Min: 0, Max: 10, Description: "momentum factor weight"},
		base.Parameter{Name: "rsi-weight", Default: 1, Min: 0, Max: 10, Description: "RSI factor weight"},
		base.Parameter{Name: "trend-weight", Default: 1, Min: 0, Max: 10, Description: "trend factor weight"},
		base.Parameter{Name: "entry", Default: 0.5, Min: 0, Max: 3, Description: "score required to enter"},
		base.Parameter{Name: "exit", Default: 0, Min: -3, Max: 3, Description: "score at which to exit"},
	)
	return s
}

// Name returns the registry identifier
func (s *Strategy) Name() string {
	return Name
}

// Description returns a human readable summary
func (s *Strategy) Description() string {
	return "weighted blend of momentum, RSI and trend factors"
}

// OnBar scores the latest bar and trades threshold crossings
func (s *Strategy) OnBar(ctx *base.Context) ([]signal.Event, error) {
	if ctx == nil || ctx.Data == nil {
		return nil, base.ErrNoData
	}
	bar := ctx.Data.Latest()
	if bar == nil {
		return nil, base.ErrNoData
	}

	score, err := s.score(ctx, bar.Instrument, bar.Close)
	if err != nil {
		if errors.Is(err, factors.ErrInsufficientHistory) {
			return nil, nil
		}
		return nil, err
	}

	held := ctx.Account.PositionFor(bar.Instrument).Quantity
	entry := decimal.NewFromFloat(s.Param("entry"))
	exit := decimal.NewFromFloat(s.Param("exit"))
	switch {
	case held.IsZero() && score.GreaterThanOrEqual(entry):
		sig := base.NewSignal(bar, common.Long, fmt.Sprintf("composite score %v above entry %v", score, entry))
		return []signal.Event{sig}, nil
	case !held.IsZero() && score.LessThanOrEqual(exit):
		sig := base.NewSignal(bar, common.Flat, fmt.Sprintf("composite score %v fell to exit %v", score, exit))
		return []signal.Event{sig}, nil
	}
	return nil, nil
}

// score normalises each factor to a roughly [-1, 1] contribution and
// sums the weighted parts. The weighting is deliberately simple, each
// factor is rescaled by fixed bounds rather than a rolling fit
func (s *Strategy) score(ctx *base.Context, instrument string, close decimal.Decimal) (decimal.Decimal, error) {
	bar := ctx.Data.Latest()

	mom, err := ctx.Factors.Compute(instrument, factors.Momentum, bar.Time, s.IntParam("momentum"), nil)
	if err != nil {
		return decimal.Zero, err
	}
	rsi, err := ctx.Factors.Compute(instrument, factors.RSI, bar.Time, s.IntParam("rsi"), nil)
	if err != nil {
		return decimal.Zero, err
	}
	trend, err := ctx.Factors.Compute(instrument, factors.SMA, bar.Time, s.IntParam("trend"), nil)
	if err != nil {
		return decimal.Zero, err
	}

	// momentum is already a rate of change, clamp to one full move
	momScore := clamp(mom, decimal.NewFromInt(-1), decimal.NewFromInt(1))
	// RSI 50 is neutral, 0 and 100 map to -1 and 1
	rsiScore := rsi.Sub(decimal.NewFromInt(50)).Div(decimal.NewFromInt(50))
	var trendScore decimal.Decimal
	if trend.IsPositive() {
		trendScore = clamp(close.Sub(trend).Div(trend).Mul(decimal.NewFromInt(10)),
			decimal.NewFromInt(-1), decimal.NewFromInt(1))
	}

	score := momScore.Mul(decimal.NewFromFloat(s.Param("momentum-weight"))).
		Add(rsiScore.Mul(decimal.NewFromFloat(s.Param("rsi-weight")))).
		Add(trendScore.Mul(decimal.NewFromFloat(s.Param("trend-weight"))))
	return score, nil
}

// OnFill is a no-op
func (s *Strategy) OnFill(_ fill.Event) {}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
