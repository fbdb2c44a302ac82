package mlscore

import (
	"github.com/quantview/backtester/strategies/base"
)

// Name is the registry identifier
const Name = "ml-score"

// Predictor scores a feature vector. Implementations wrap whatever model
// produced the scores, the strategy only needs a number per bar where
// positive means expected upside
type Predictor interface {
	Predict(features []float64) (float64, error)
}

// Strategy feeds a fixed feature vector (recent factor values) into a
// Predictor and trades the sign and magnitude of the returned score.
// Without an injected Predictor it stays flat
type Strategy struct {
	base.Strategy
	predictor Predictor
}
