package grid

import (
	"github.com/quantview/backtester/strategies/base"
	"github.com/shopspring/decimal"
)

// Name is the registry identifier
const Name = "grid"

// Strategy ladders a long position across evenly spaced price levels
// below an anchor price: each level the price falls adds one unit, each
// level it recovers sheds one. The anchor is the first close seen after
// a reset
type Strategy struct {
	base.Strategy
	anchor   decimal.Decimal
	anchored bool
}
