package mlscore

import (
	"errors"
	"fmt"

	"github.com/quantview/backtester/common"
	"github.com/quantview/backtester/eventtypes/fill"
	"github.com/quantview/backtester/eventtypes/signal"
	"github.com/quantview/backtester/factors"
	"github.com/quantview/backtester/strategies/base"
)

// New returns a freshly parameterised instance with no predictor
func New() *Strategy {
	s := &Strategy{}
	s.Declare(
		base.Parameter{Name: "momentum", Default: 20, Min: 2, Max: 500, Description: "momentum feature lookback"},
		base.Parameter{Name: "rsi", Default: 14, Min: 2, Max: 200, Description: "RSI feature period"},
		base.Parameter{Name: "atr", Default: 14, Min: 2, Max: 200, Description: "ATR feature period"},
		base.Parameter{Name: "threshold", Default: 0.1, Min: 0, Max: 1, Description: "absolute score required to act"},
	)
	return s
}

// SetPredictor injects the scoring model
func (s *Strategy) SetPredictor(p Predictor) {
	s.predictor = p
}

// Name returns the registry identifier
func (s *Strategy) Name() string {
	return Name
}

// Description returns a human readable summary
func (s *Strategy) Description() string {
	return "trades scores from an injected prediction model over factor features"
}

// OnBar assembles the feature vector and trades the predictor's score
func (s *Strategy) OnBar(ctx *base.Context) ([]signal.Event, error) {
	if ctx == nil || ctx.Data == nil {
		return nil, base.ErrNoData
	}
	bar := ctx.Data.Latest()
	if bar == nil {
		return nil, base.ErrNoData
	}
	if s.predictor == nil {
		return nil, nil
	}

	features, err := s.features(ctx, bar.Instrument)
	if err != nil {
		if errors.Is(err, factors.ErrInsufficientHistory) {
			return nil, nil
		}
		return nil, err
	}
	score, err := s.predictor.Predict(features)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	threshold := s.Param("threshold")
	switch {
	case score >= threshold:
		sig := base.NewSignal(bar, common.Long, fmt.Sprintf("model score %.4f above %.4f", score, threshold))
		return []signal.Event{sig}, nil
	case score <= -threshold:
		sig := base.NewSignal(bar, common.Flat, fmt.Sprintf("model score %.4f below %.4f", score, -threshold))
		return []signal.Event{sig}, nil
	}
	return nil, nil
}

// features builds the fixed-order vector the predictor was trained on:
// momentum, RSI, ATR
func (s *Strategy) features(ctx *base.Context, instrument string) ([]float64, error) {
	bar := ctx.Data.Latest()
	out := make([]float64, 0, 3)
	for _, spec := range []struct {
		name     string
		lookback int
	}{
		{factors.Momentum, s.IntParam("momentum")},
		{factors.RSI, s.IntParam("rsi")},
		{factors.ATR, s.IntParam("atr")},
	} {
		v, err := ctx.Factors.Compute(instrument, spec.name, bar.Time, spec.lookback, nil)
		if err != nil {
			return nil, err
		}
		f, _ := v.Float64()
		out = append(out, f)
	}
	return out, nil
}

// OnFill is a no-op
func (s *Strategy) OnFill(_ fill.Event) {}
