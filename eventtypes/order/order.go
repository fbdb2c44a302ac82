package order

import (
	"github.com/quantview/backtester/common"
	"github.com/shopspring/decimal"
)

// IsOrder returns whether the event is an order type
func (o *Order) IsOrder() bool {
	return true
}

// GetID returns the order's unique identifier
func (o *Order) GetID() string {
	return o.ID
}

// SetDirection sets the intent behind the order
func (o *Order) SetDirection(d common.Direction) {
	o.Direction = d
}

// GetDirection returns the intent behind the order
func (o *Order) GetDirection() common.Direction {
	return o.Direction
}

// GetSide returns the executable side of the order
func (o *Order) GetSide() Side {
	return o.Side
}

// GetStatus returns the lifecycle state
func (o *Order) GetStatus() Status {
	return o.Status
}

// IsTerminal returns whether the order can no longer change
func (o *Order) IsTerminal() bool {
	return o.Status == Filled || o.Status == Rejected || o.Status == Cancelled
}

// GetQuantity returns the requested quantity
func (o *Order) GetQuantity() decimal.Decimal {
	return o.Quantity
}

// GetFilledQuantity returns how much has transacted so far
func (o *Order) GetFilledQuantity() decimal.Decimal {
	return o.FilledQuantity
}

// Remaining returns the unfilled quantity
func (o *Order) Remaining() decimal.Decimal {
	return o.Quantity.Sub(o.FilledQuantity)
}

// GetLimit returns the limit price, zero for market orders
func (o *Order) GetLimit() decimal.Decimal {
	return o.Limit
}
