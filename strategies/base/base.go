// Package base carries the shared plumbing every strategy embeds:
// declared parameters with range validation and helpers for building
// signal events from bar data.
package base

import (
	"errors"
	"fmt"

	"github.com/quantview/backtester/common"
	"github.com/quantview/backtester/data"
	"github.com/quantview/backtester/eventtypes/kline"
	"github.com/quantview/backtester/eventtypes/signal"
	"github.com/quantview/backtester/factors"
	"github.com/quantview/backtester/portfolio"
)

var (
	// ErrInvalidParameter is returned for unknown names or out-of-range values
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrNoData is returned when a strategy is invoked without a usable bar
	ErrNoData = errors.New("no data received")
)

// Parameter declares one tunable a strategy accepts
type Parameter struct {
	Name        string  `json:"name"`
	Default     float64 `json:"default"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Description string  `json:"description"`
}

// Context is everything a strategy may consult when deciding on a bar.
// Strategies read from it, never mutate it
type Context struct {
	Data    data.Handler
	Factors *factors.Engine
	Account portfolio.Account
}

// Strategy provides parameter storage and validation. Concrete strategies
// embed it and declare their parameters at construction
type Strategy struct {
	declared []Parameter
	values   map[string]float64
}

// Declare registers the strategy's parameter set and seeds defaults
func (s *Strategy) Declare(params ...Parameter) {
	s.declared = params
	s.values = make(map[string]float64, len(params))
	for _, p := range params {
		s.values[p.Name] = p.Default
	}
}

// Parameters returns the declared parameter set
func (s *Strategy) Parameters() []Parameter {
	out := make([]Parameter, len(s.declared))
	copy(out, s.declared)
	return out
}

// SetParameters overrides defaults, failing fast on the first unknown
// name or out-of-range value without applying any of the batch
func (s *Strategy) SetParameters(overrides map[string]float64) error {
	for name, v := range overrides {
		p, ok := s.find(name)
		if !ok {
			return fmt.Errorf("%w: unknown parameter %q", ErrInvalidParameter, name)
		}
		if v < p.Min || v > p.Max {
			return fmt.Errorf("%w: %s=%v outside [%v, %v]", ErrInvalidParameter, name, v, p.Min, p.Max)
		}
	}
	for name, v := range overrides {
		s.values[name] = v
	}
	return nil
}

// Param returns the current value for a declared parameter
func (s *Strategy) Param(name string) float64 {
	return s.values[name]
}

// IntParam returns a declared parameter truncated to int
func (s *Strategy) IntParam(name string) int {
	return int(s.values[name])
}

func (s *Strategy) find(name string) (Parameter, bool) {
	for _, p := range s.declared {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// NewSignal builds a signal event positioned on the given bar
func NewSignal(b *kline.Bar, direction common.Direction, reason string) *signal.Signal {
	s := &signal.Signal{
		Direction:  direction,
		ClosePrice: b.Close,
	}
	s.Instrument = b.Instrument
	s.Time = b.Time
	s.Offset = b.Offset
	s.Interval = b.Interval
	s.Reason = reason
	return s
}
