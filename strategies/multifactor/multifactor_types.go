package multifactor

import "github.com/quantview/backtester/strategies/base"

// Name is the registry identifier
const Name = "multi-factor"

// Strategy blends momentum, RSI and trend factors into a single score
// and trades its sign against entry and exit thresholds
type Strategy struct {
	base.Strategy
}
