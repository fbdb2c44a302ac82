package portfolio

import (
	"fmt"
	"time"

	"github.com/quantview/backtester/common"
	"github.com/quantview/backtester/eventtypes/fill"
	"github.com/quantview/backtester/eventtypes/order"
	"github.com/shopspring/decimal"
)

// Option mutates ledger construction
type Option func(*Ledger)

// WithMargin enables negative cash bounded by the leverage limit. A limit
// of 2 allows total exposure of twice the account equity
func WithMargin(leverageLimit decimal.Decimal) Option {
	return func(l *Ledger) {
		l.marginEnabled = true
		l.leverageLimit = leverageLimit
	}
}

// NewLedger creates a ledger seeded with initial cash
func NewLedger(initialCash decimal.Decimal, opts ...Option) (*Ledger, error) {
	if initialCash.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInitialCash
	}
	l := &Ledger{
		cash:      initialCash,
		positions: make(map[string]*Position),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.marginEnabled && l.leverageLimit.LessThan(decimal.NewFromInt(1)) {
		return nil, ErrInvalidLeverage
	}
	return l, nil
}

// MarginEnabled reports whether negative cash is permitted
func (l *Ledger) MarginEnabled() bool {
	return l.marginEnabled
}

// LeverageLimit returns the configured leverage bound, zero without margin
func (l *Ledger) LeverageLimit() decimal.Decimal {
	return l.leverageLimit
}

// Apply processes one fill atomically: it is validated in full before any
// state changes, so a failed apply leaves the ledger untouched. Rejected
// fills never mutate state
func (l *Ledger) Apply(f fill.Event) error {
	if f == nil {
		return common.ErrNilEvent
	}
	if f.IsRejected() {
		return nil
	}
	qty := f.GetQuantity()
	if qty.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: non-positive fill quantity %v", ErrLedgerInvariant, qty)
	}
	signed := qty
	if f.GetSide() == order.Sell {
		signed = qty.Neg()
	}
	price := f.GetPrice()
	commission := f.GetCommission()

	pos, ok := l.positions[f.GetInstrument()]
	if !ok {
		pos = &Position{Instrument: f.GetInstrument()}
	}

	// validate the cash outcome before mutating anything
	cashDelta := signed.Mul(price).Neg().Sub(commission)
	newCash := l.cash.Add(cashDelta)
	if newCash.IsNegative() && !l.marginEnabled {
		return fmt.Errorf("%w: fill %v would drive cash to %v without margin",
			ErrLedgerInvariant, f.GetOrderID(), newCash)
	}

	l.applyToPosition(pos, signed, price, f)
	l.cash = newCash
	l.fees = l.fees.Add(commission)
	l.timestamp = f.GetTime()
	if f.GetOffset() > l.offset {
		l.offset = f.GetOffset()
	}
	if pos.Quantity.IsZero() {
		delete(l.positions, pos.Instrument)
	} else {
		pos.MarkPrice = price
		l.positions[pos.Instrument] = pos
	}
	return nil
}

// applyToPosition folds a signed fill quantity into a position using the
// weighted average cost method. Reductions realise P&L at the current
// average cost; a sign flip is split so it passes through an explicit flat
// record and the remainder opens with a fresh cost basis
func (l *Ledger) applyToPosition(pos *Position, signed, price decimal.Decimal, f fill.Event) {
	if !pos.Quantity.IsZero() && pos.Quantity.Sign() != signed.Sign() && signed.Abs().GreaterThan(pos.Quantity.Abs()) {
		closing := pos.Quantity.Neg()
		remainder := signed.Add(pos.Quantity)
		l.applyToPosition(pos, closing, price, f)
		l.trades = append(l.trades, Trade{
			Timestamp:  f.GetTime(),
			Instrument: pos.Instrument,
			OrderID:    f.GetOrderID(),
			Quantity:   decimal.Zero,
			Price:      price,
			Flat:       true,
		})
		l.applyToPosition(pos, remainder, price, f)
		return
	}

	switch {
	case pos.Quantity.IsZero():
		// opening: fresh cost basis
		pos.Quantity = signed
		pos.AverageCost = price
	case pos.Quantity.Sign() == signed.Sign():
		// increasing: weighted average cost
		total := pos.Quantity.Add(signed)
		pos.AverageCost = pos.AverageCost.Mul(pos.Quantity).
			Add(price.Mul(signed)).
			Div(total)
		pos.Quantity = total
	default:
		// reducing: realise against the persisting average cost
		realised := price.Sub(pos.AverageCost).Mul(signed.Neg())
		pos.RealisedPNL = pos.RealisedPNL.Add(realised)
		l.realised = l.realised.Add(realised)
		pos.Quantity = pos.Quantity.Add(signed)
		if pos.Quantity.IsZero() {
			pos.AverageCost = decimal.Zero
		}
	}
	l.trades = append(l.trades, Trade{
		Timestamp:  f.GetTime(),
		Instrument: pos.Instrument,
		OrderID:    f.GetOrderID(),
		Quantity:   signed,
		Price:      price,
		Realised:   pos.RealisedPNL,
	})
}

// UpdateMarks refreshes mark prices from the latest closes and stamps the
// clock the next snapshot reports
func (l *Ledger) UpdateMarks(prices map[string]decimal.Decimal, ts time.Time, offset int64) {
	for id, p := range prices {
		if pos, ok := l.positions[id]; ok {
			pos.MarkPrice = p
		}
	}
	l.offset = offset
	l.timestamp = ts
}

// Snapshot returns an immutable deep copy of account state. Calling it
// twice without an intervening Apply returns equal values
func (l *Ledger) Snapshot() Account {
	positions := make(map[string]Position, len(l.positions))
	equity := l.cash
	for id, p := range l.positions {
		positions[id] = *p
		equity = equity.Add(p.MarketValue())
	}
	return Account{
		Timestamp:   l.timestamp,
		Offset:      l.offset,
		Cash:        l.cash,
		Positions:   positions,
		Equity:      equity,
		RealisedPNL: l.realised,
		TotalFees:   l.fees,
	}
}

// Trades returns a copy of the trade history including flat records
func (l *Ledger) Trades() []Trade {
	out := make([]Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// Verify checks the structural invariants that must hold after every step.
// Violations are fatal to the run
func (l *Ledger) Verify() error {
	snap := l.Snapshot()
	if !l.marginEnabled {
		for _, p := range snap.Positions {
			if p.Quantity.IsNegative() {
				return fmt.Errorf("%w: short position %v %v without margin",
					ErrLedgerInvariant, p.Instrument, p.Quantity)
			}
		}
	}
	if snap.Cash.IsNegative() {
		if !l.marginEnabled {
			return fmt.Errorf("%w: negative cash %v without margin", ErrLedgerInvariant, snap.Cash)
		}
		exposure := decimal.Zero
		for _, p := range snap.Positions {
			exposure = exposure.Add(p.MarketValue().Abs())
		}
		if snap.Equity.IsPositive() && exposure.GreaterThan(snap.Equity.Mul(l.leverageLimit)) {
			return fmt.Errorf("%w: exposure %v exceeds leverage limit %v of equity %v",
				ErrLedgerInvariant, exposure, l.leverageLimit, snap.Equity)
		}
	}
	return nil
}
