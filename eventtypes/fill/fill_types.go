package fill

import (
	"github.com/quantview/backtester/common"
	"github.com/quantview/backtester/eventtypes/event"
	"github.com/quantview/backtester/eventtypes/order"
	"github.com/shopspring/decimal"
)

// Fill details the result of advancing an order against a bar. A rejected
// order also produces a Fill so strategies hear about it through OnFill
// rather than a fault
type Fill struct {
	event.Base
	OrderID    string          `json:"order-id"`
	Side       order.Side      `json:"side"`
	Status     order.Status    `json:"status"`
	Quantity   decimal.Decimal `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Commission decimal.Decimal `json:"commission"`
	// Slippage is the price adjustment applied against the model price
	Slippage decimal.Decimal `json:"slippage"`
	// Order is a value copy of the order after this fill was applied
	Order order.Order `json:"order"`
}

// Event holds all functions required to handle a fill event
type Event interface {
	common.Event
	GetOrderID() string
	GetSide() order.Side
	GetStatus() order.Status
	GetQuantity() decimal.Decimal
	GetPrice() decimal.Decimal
	GetCommission() decimal.Decimal
	GetSlippage() decimal.Decimal
	GetOrder() order.Order
	IsRejected() bool
}
