package signal

import (
	"github.com/quantview/backtester/common"
	"github.com/shopspring/decimal"
)

// IsSignal returns whether the event is a signal type
func (s *Signal) IsSignal() bool {
	return true
}

// SetDirection sets the direction
func (s *Signal) SetDirection(d common.Direction) {
	s.Direction = d
}

// GetDirection returns the direction
func (s *Signal) GetDirection() common.Direction {
	return s.Direction
}

// GetClosePrice returns the price the signal was decided against
func (s *Signal) GetClosePrice() decimal.Decimal {
	return s.ClosePrice
}

// SetPrice sets the decision price
func (s *Signal) SetPrice(p decimal.Decimal) {
	s.ClosePrice = p
}

// GetAmount returns the explicitly requested quantity, if any
func (s *Signal) GetAmount() decimal.Decimal {
	return s.Amount
}

// SetAmount sets an explicit quantity request
func (s *Signal) SetAmount(a decimal.Decimal) {
	s.Amount = a
}

// GetTargetWeight returns the requested fraction of equity, if any
func (s *Signal) GetTargetWeight() decimal.Decimal {
	return s.TargetWeight
}

// GetLimit returns the optional limit price
func (s *Signal) GetLimit() decimal.Decimal {
	return s.Limit
}
