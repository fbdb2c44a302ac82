package portfolio

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrLedgerInvariant indicates a logic defect: an applied fill produced
	// an account state that should have been rejected upstream. The run is
	// not salvageable
	ErrLedgerInvariant = errors.New("ledger invariant violation")
	// ErrInitialCash is returned when a ledger is created without funds
	ErrInitialCash = errors.New("initial cash must be positive")
	// ErrInvalidLeverage is returned for a non-positive leverage limit
	// when margin is enabled
	ErrInvalidLeverage = errors.New("leverage limit must be at least 1 when margin is enabled")
)

// Position is the signed holding of one instrument. Quantity sign flips
// always pass through an explicit flat record and the average cost basis
// resets when the quantity reaches exactly zero
type Position struct {
	Instrument  string          `json:"instrument"`
	Quantity    decimal.Decimal `json:"quantity"`
	AverageCost decimal.Decimal `json:"average-cost"`
	MarkPrice   decimal.Decimal `json:"mark-price"`
	RealisedPNL decimal.Decimal `json:"realised-pnl"`
}

// UnrealisedPNL values the open quantity against the mark price
func (p Position) UnrealisedPNL() decimal.Decimal {
	return p.MarkPrice.Sub(p.AverageCost).Mul(p.Quantity)
}

// MarketValue is the signed mark-to-market value of the position
func (p Position) MarketValue() decimal.Decimal {
	return p.Quantity.Mul(p.MarkPrice)
}

// Account is an immutable snapshot of ledger state at one point in time
type Account struct {
	Timestamp   time.Time           `json:"timestamp"`
	Offset      int64               `json:"offset"`
	Cash        decimal.Decimal     `json:"cash"`
	Positions   map[string]Position `json:"positions"`
	Equity      decimal.Decimal     `json:"equity"`
	RealisedPNL decimal.Decimal     `json:"realised-pnl"`
	TotalFees   decimal.Decimal     `json:"total-fees"`
}

// PositionFor returns the snapshot position for an instrument, zero valued
// when none is held
func (a Account) PositionFor(instrument string) Position {
	if p, ok := a.Positions[instrument]; ok {
		return p
	}
	return Position{Instrument: instrument}
}

// Trade is a terminal order recorded in the ledger's history, including
// the explicit flat records written when a position crosses zero
type Trade struct {
	Timestamp  time.Time       `json:"timestamp"`
	Instrument string          `json:"instrument"`
	OrderID    string          `json:"order-id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Realised   decimal.Decimal `json:"realised"`
	// Flat marks the intermediate record written when a fill takes the
	// position through zero
	Flat bool `json:"flat,omitempty"`
}

// Ledger tracks cash, positions and realised P&L. It is the single source
// of truth for account state within a run and is never shared between runs
type Ledger struct {
	cash          decimal.Decimal
	positions     map[string]*Position
	realised      decimal.Decimal
	fees          decimal.Decimal
	trades        []Trade
	marginEnabled bool
	leverageLimit decimal.Decimal
	timestamp     time.Time
	offset        int64
}
