package macross

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
		base.Parameter{Name: "fast", Default: 10, Min: 1, Max: 500, Description: "fast moving average period"},
		base.Parameter{Name: "slow", Default: 30, Min: 2, Max: 1000, Description: "slow moving average period"},
		base.Parameter{Name: "shorts", Default: 0, Min: 0, Max: 1, Description: "open short positions on bearish crosses"},
	)
	return s
}

// Name returns the registry identifier
func (s *Strategy) Name() string {
	return Name
}

// Description returns a human readable summary
func (s *Strategy) Description() string {
	return "trades crossings of a fast moving average over a slow one"
}

// OnBar emits at most one signal for the latest bar. Bars that predate
// sufficient history produce no signal at all
func (s *Strategy) OnBar(ctx *base.Context) ([]signal.Event, error) {
	if ctx == nil || ctx.Data == nil {
		return nil, base.ErrNoData
	}
	bar := ctx.Data.Latest()
	if bar == nil {
		return nil, base.ErrNoData
	}

	fastPeriod := s.IntParam("fast")
	slowPeriod := s.IntParam("slow")
	if fastPeriod >= slowPeriod {
		return nil, fmt.Errorf("%w: fast period %d must be below slow period %d",
			base.ErrInvalidParameter, fastPeriod, slowPeriod)
	}

	fast, err := ctx.Factors.Compute(bar.Instrument, factors.SMA, bar.Time, fastPeriod, nil)
	if err != nil {
		if errors.Is(err, factors.ErrInsufficientHistory) {
			return nil, nil
		}
		return nil, err
	}
	slow, err := ctx.Factors.Compute(bar.Instrument, factors.SMA, bar.Time, slowPeriod, nil)
	if err != nil {
		if errors.Is(err, factors.ErrInsufficientHistory) {
			return nil, nil
		}
		return nil, err
	}

	switch {
	case fast.GreaterThan(slow):
		sig := base.NewSignal(bar, common.Long,
			fmt.Sprintf("fast MA %v above slow MA %v", fast, slow))
		return []signal.Event{sig}, nil
	case fast.LessThan(slow):
		direction := common.Flat
		if s.Param("shorts") > 0 {
			direction = common.Short
		}
		sig := base.NewSignal(bar, direction,
			fmt.Sprintf("fast MA %v below slow MA %v", fast, slow))
		return []signal.Event{sig}, nil
	}
	return nil, nil
}

// OnFill is a no-op, the strategy carries no fill-dependent state
func (s *Strategy) OnFill(_ fill.Event) {}
