package bollinger

import "github.com/quantview/backtester/strategies/base"

// Name is the registry identifier
const Name = "bollinger"

// Strategy is a mean-reversion trade of the Bollinger band envelope:
// buy touches of the lower band, exit at the middle, sell touches of the
// upper band when shorting is enabled
type Strategy struct {
	base.Strategy
}
