package signal

import (
	"github.com/quantview/backtester/common"
	"github.com/quantview/backtester/eventtypes/event"
	"github.com/shopspring/decimal"
)

// Signal is emitted by a strategy when it wants the portfolio to move
// towards a direction. It is ephemeral and consumed by the execution
// simulator in the same step it is produced
type Signal struct {
	event.Base
	Direction common.Direction `json:"direction"`
	// ClosePrice is the price the signal decision was made against
	ClosePrice decimal.Decimal `json:"close-price"`
	// Amount optionally requests an explicit quantity. Zero means the
	// sizing rules decide
	Amount decimal.Decimal `json:"amount"`
	// TargetWeight optionally requests a fraction of account equity,
	// between zero and one. Zero means the sizing rules decide
	TargetWeight decimal.Decimal `json:"target-weight"`
	// Limit optionally converts the resulting order into a limit order
	Limit decimal.Decimal `json:"limit"`
}

// Event is the type supplied to the execution simulator
type Event interface {
	common.Event
	common.Directioner
	GetClosePrice() decimal.Decimal
	GetAmount() decimal.Decimal
	GetTargetWeight() decimal.Decimal
	GetLimit() decimal.Decimal
	IsSignal() bool
}
