package grid

import (
	"fmt"

	"github.com/quantview/backtester/common"
	"github.com/quantview/backtester/eventtypes/fill"
	"github.com/quantview/backtester/eventtypes/signal"
	"github.com/quantview/backtester/strategies/base"
	"github.com/shopspring/decimal"
)

// New returns a freshly parameterised instance
func New() *Strategy {
	s := &Strategy{}
	s.Declare(
		base.Parameter{Name: "levels", Default: 5, Min: 1, Max: 50, Description: "number of grid levels below the anchor"},
		base.Parameter{Name: "spacing", Default: 0.02, Min: 0.001, Max: 0.5, Description: "price distance between levels as a fraction of the anchor"},
		base.Parameter{Name: "weight", Default: 0.1, Min: 0.001, Max: 1, Description: "equity fraction bought per level"},
	)
	return s
}

// Name returns the registry identifier
func (s *Strategy) Name() string {
	return Name
}

// Description returns a human readable summary
func (s *Strategy) Description() string {
	return "ladders buys across fixed price levels below an anchor price"
}

// OnBar retargets the position to the number of grid levels currently
// breached. The first bar only sets the anchor
func (s *Strategy) OnBar(ctx *base.Context) ([]signal.Event, error) {
	if ctx == nil || ctx.Data == nil {
		return nil, base.ErrNoData
	}
	bar := ctx.Data.Latest()
	if bar == nil {
		return nil, base.ErrNoData
	}
	if !s.anchored {
		s.anchor = bar.Close
		s.anchored = true
		return nil, nil
	}
	if !s.anchor.IsPositive() {
		return nil, nil
	}

	spacing := s.anchor.Mul(decimal.NewFromFloat(s.Param("spacing")))
	depth := s.anchor.Sub(bar.Close).Div(spacing).Floor()
	levels := decimal.NewFromInt(int64(s.IntParam("levels")))
	if depth.IsNegative() {
		depth = decimal.Zero
	}
	if depth.GreaterThan(levels) {
		depth = levels
	}

	unit := ctx.Account.Equity.Mul(decimal.NewFromFloat(s.Param("weight"))).Div(s.anchor)
	target := unit.Mul(depth)
	held := ctx.Account.PositionFor(bar.Instrument).Quantity
	if target.Sub(held).Abs().LessThan(unit.Div(decimal.NewFromInt(2))) {
		return nil, nil
	}

	if target.IsZero() {
		sig := base.NewSignal(bar, common.Flat,
			fmt.Sprintf("price %v recovered above the first grid level", bar.Close))
		return []signal.Event{sig}, nil
	}
	sig := base.NewSignal(bar, common.Long,
		fmt.Sprintf("price %v is %v levels below anchor %v", bar.Close, depth, s.anchor))
	sig.Amount = target
	return []signal.Event{sig}, nil
}

// OnFill is a no-op, grid state depends only on prices
func (s *Strategy) OnFill(_ fill.Event) {}

// ResetAnchor clears the anchor so the next bar re-centres the grid
func (s *Strategy) ResetAnchor() {
	s.anchor = decimal.Zero
	s.anchored = false
}
