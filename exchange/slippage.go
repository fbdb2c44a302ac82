package exchange

import (
	"github.com/quantview/backtester/eventtypes/order"
	"github.com/shopspring/decimal"
)

var tenThousand = decimal.NewFromInt(10000)

// slippageRate returns the total adverse price adjustment as a fraction of
// price: a fixed basis point component plus an impact component that grows
// with the order's share of the bar's traded value. Deterministic by
// construction, there is no randomness anywhere in the fill path
func slippageRate(s *Settings, orderValue, barValue decimal.Decimal) decimal.Decimal {
	bps := s.SlippageBps
	if s.ImpactBps.IsPositive() && barValue.IsPositive() {
		bps = bps.Add(s.ImpactBps.Mul(orderValue.Div(barValue)))
	}
	return bps.Div(tenThousand)
}

// applySlippage moves the price against the order's side
func applySlippage(side order.Side, price, rate decimal.Decimal) decimal.Decimal {
	if side == order.Buy {
		return price.Mul(decimal.NewFromInt(1).Add(rate))
	}
	return price.Mul(decimal.NewFromInt(1).Sub(rate))
}

// commission charges the configured rate on notional with a minimum fee
func commission(s *Settings, price, quantity decimal.Decimal) decimal.Decimal {
	c := price.Mul(quantity).Mul(s.CommissionRate)
	if c.LessThan(s.MinimumCommission) {
		return s.MinimumCommission
	}
	return c
}
