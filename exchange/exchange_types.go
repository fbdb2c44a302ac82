package exchange

import (
	"errors"

	"github.com/quantview/backtester/eventtypes/order"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// FillModel selects how simulated fill prices are derived
type FillModel string

const (
	// NextOpen fills market orders at the open of the bar following
	// submission
	NextOpen FillModel = "next-open"
	// CloseSlippage fills market orders at the submission bar's close
	// adjusted by slippage
	CloseSlippage FillModel = "close-slippage"
)

var (
	// ErrInsufficientFunds rejects an order whose cost exceeds buying power
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInsufficientPosition rejects a sell exceeding the held quantity
	ErrInsufficientPosition = errors.New("insufficient position")
	// ErrUnknownFillModel is returned at construction for a bad model name
	ErrUnknownFillModel = errors.New("unknown fill model")
	// ErrSizedToZero is returned when sizing rules reduce an order to nothing
	ErrSizedToZero = errors.New("order sized to zero")

	// errAlreadyAtTarget means the position already matches the signal
	errAlreadyAtTarget = errors.New("position already at target")
)

// Settings hold the deterministic cost frictions for one instrument. Both
// slippage and commission are pure functions of order size and instrument
// so identical inputs always produce bit-identical fills
type Settings struct {
	Instrument        string
	CommissionRate    decimal.Decimal
	MinimumCommission decimal.Decimal
	// SlippageBps is the base slippage in basis points
	SlippageBps decimal.Decimal
	// ImpactBps adds further basis points proportional to the order's
	// share of the bar's traded value
	ImpactBps decimal.Decimal
	// MaxVolumeFraction caps a single fill at a fraction of bar volume,
	// leaving the remainder open as a partial fill. Zero disables the cap
	MaxVolumeFraction decimal.Decimal
	// LotSize conforms order quantities downward to a step. Zero disables
	LotSize decimal.Decimal
}

// Simulator converts strategy signals into simulated orders and fills. It
// owns every order until the order reaches a terminal state
type Simulator struct {
	model         FillModel
	defaults      Settings
	settings      map[string]Settings
	open          []*order.Order
	marginEnabled bool
	leverageLimit decimal.Decimal
	defaultWeight decimal.Decimal
	log           *logrus.Entry
}
