package order

import (
	"github.com/quantview/backtester/common"
	"github.com/quantview/backtester/eventtypes/event"
	"github.com/shopspring/decimal"
)

// Side is the executable side derived from a signal's direction
type Side string

const (
	// Buy increases the signed position quantity
	Buy Side = "BUY"
	// Sell decreases the signed position quantity
	Sell Side = "SELL"
)

// Status tracks an order through its lifecycle
type Status string

const (
	// Pending has been accepted by the simulator but not yet priced
	Pending Status = "PENDING"
	// PartiallyFilled has transacted some, but not all, of its quantity
	PartiallyFilled Status = "PARTIALLY_FILLED"
	// Filled has transacted its full quantity
	Filled Status = "FILLED"
	// Rejected was refused, the ledger is untouched
	Rejected Status = "REJECTED"
	// Cancelled was withdrawn before reaching a terminal fill
	Cancelled Status = "CANCELLED"
)

// Order is derived from a signal and owned by the execution simulator
// until it reaches a terminal state, after which it transfers by value
// into the run's trade history
type Order struct {
	event.Base
	ID               string           `json:"id"`
	Direction        common.Direction `json:"direction"`
	Side             Side             `json:"side"`
	Status           Status           `json:"status"`
	Quantity         decimal.Decimal  `json:"quantity"`
	FilledQuantity   decimal.Decimal  `json:"filled-quantity"`
	Limit            decimal.Decimal  `json:"limit"`
	AverageFillPrice decimal.Decimal  `json:"average-fill-price"`
	Commission       decimal.Decimal  `json:"commission"`
}

// Event holds all functions required to handle an order event
type Event interface {
	common.Event
	common.Directioner
	GetID() string
	GetSide() Side
	GetStatus() Status
	GetQuantity() decimal.Decimal
	GetFilledQuantity() decimal.Decimal
	GetLimit() decimal.Decimal
	IsOrder() bool
}
