package fill

import (
	"github.com/quantview/backtester/eventtypes/order"
	"github.com/shopspring/decimal"
)

// GetOrderID returns the identifier of the order this fill belongs to
func (f *Fill) GetOrderID() string {
	return f.OrderID
}

// GetSide returns the executed side
func (f *Fill) GetSide() order.Side {
	return f.Side
}

// GetStatus returns the order status this fill moved the order into
func (f *Fill) GetStatus() order.Status {
	return f.Status
}

// IsRejected returns whether the fill reports a rejection
func (f *Fill) IsRejected() bool {
	return f.Status == order.Rejected
}

// GetQuantity returns the transacted quantity
func (f *Fill) GetQuantity() decimal.Decimal {
	return f.Quantity
}

// GetPrice returns the transacted price
func (f *Fill) GetPrice() decimal.Decimal {
	return f.Price
}

// GetCommission returns the commission charged for this fill
func (f *Fill) GetCommission() decimal.Decimal {
	return f.Commission
}

// GetSlippage returns the price adjustment applied against the model price
func (f *Fill) GetSlippage() decimal.Decimal {
	return f.Slippage
}

// GetOrder returns a value copy of the order after the fill was applied
func (f *Fill) GetOrder() order.Order {
	return f.Order
}
