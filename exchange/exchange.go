package exchange

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/quantview/backtester/common"
	"github.com/quantview/backtester/eventtypes/fill"
	"github.com/quantview/backtester/eventtypes/kline"
	"github.com/quantview/backtester/eventtypes/order"
	"github.com/quantview/backtester/eventtypes/signal"
	"github.com/quantview/backtester/portfolio"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Option mutates simulator construction
type Option func(*Simulator)

// WithMargin mirrors the ledger's margin configuration so short signals
// and leveraged buys are permitted up to the leverage limit
func WithMargin(leverageLimit decimal.Decimal) Option {
	return func(s *Simulator) {
		s.marginEnabled = true
		s.leverageLimit = leverageLimit
	}
}

// WithDefaultWeight sets the fraction of equity targeted when a signal
// specifies neither an amount nor a weight
func WithDefaultWeight(w decimal.Decimal) Option {
	return func(s *Simulator) {
		s.defaultWeight = w
	}
}

// New creates a simulator for the given fill model
func New(model FillModel, log *logrus.Logger, opts ...Option) (*Simulator, error) {
	if model != NextOpen && model != CloseSlippage {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFillModel, model)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Simulator{
		model:         model,
		settings:      make(map[string]Settings),
		defaultWeight: decimal.NewFromInt(1),
		log:           log.WithField("component", "exchange"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SetSettings assigns cost frictions for an instrument
func (s *Simulator) SetSettings(cfg Settings) {
	if cfg.Instrument == "" {
		s.defaults = cfg
		return
	}
	s.settings[cfg.Instrument] = cfg
}

func (s *Simulator) settingsFor(instrument string) Settings {
	if cfg, ok := s.settings[instrument]; ok {
		return cfg
	}
	cfg := s.defaults
	cfg.Instrument = instrument
	return cfg
}

// Reset returns the simulator to initial state
func (s *Simulator) Reset() {
	s.open = nil
}

// OpenOrders returns value copies of every non-terminal order
func (s *Simulator) OpenOrders() []order.Order {
	out := make([]order.Order, len(s.open))
	for i := range s.open {
		out[i] = *s.open[i]
	}
	return out
}

// Submit assesses a signal against the account snapshot and either opens
// an order or rejects it. Rejections are reported through the returned
// order's status, never as an error: the strategy hears about them via
// OnFill. A Hold signal, or one that needs no change, yields nil
func (s *Simulator) Submit(sig signal.Event, bar *kline.Bar, acct portfolio.Account) (*order.Order, error) {
	if sig == nil || bar == nil {
		return nil, common.ErrNilArguments
	}
	if sig.GetDirection() == common.Hold {
		return nil, nil
	}
	cfg := s.settingsFor(sig.GetInstrument())
	side, qty, err := s.sizeSignal(sig, bar, acct, &cfg)
	if err != nil {
		if errNoChange(err) {
			return nil, nil
		}
		o := s.newOrder(sig, side, qty)
		o.Status = order.Rejected
		o.AppendReason(err.Error())
		s.log.WithFields(logrus.Fields{
			"instrument": sig.GetInstrument(),
			"reason":     err.Error(),
		}).Debug("order rejected at submission")
		return o, nil
	}

	o := s.newOrder(sig, side, qty)
	if err := s.checkConstraints(o, bar.Close, acct); err != nil {
		o.Status = order.Rejected
		o.AppendReason(err.Error())
		return o, nil
	}
	o.Status = order.Pending
	s.open = append(s.open, o)
	return o, nil
}

// errNoChange separates "the position already matches the target" from
// genuine rejections
func errNoChange(err error) bool {
	return err == errAlreadyAtTarget
}

func (s *Simulator) newOrder(sig signal.Event, side order.Side, qty decimal.Decimal) *order.Order {
	id, _ := uuid.NewV4()
	o := &order.Order{
		ID:        id.String(),
		Direction: sig.GetDirection(),
		Side:      side,
		Quantity:  qty,
		Limit:     sig.GetLimit(),
	}
	o.Instrument = sig.GetInstrument()
	o.Time = sig.GetTime()
	o.Offset = sig.GetOffset()
	o.Interval = sig.GetInterval()
	o.Reason = sig.GetReason()
	return o
}

// sizeSignal converts a directional intent into an executable side and
// quantity relative to the current position
func (s *Simulator) sizeSignal(sig signal.Event, bar *kline.Bar, acct portfolio.Account, cfg *Settings) (order.Side, decimal.Decimal, error) {
	current := acct.PositionFor(sig.GetInstrument()).Quantity
	price := bar.Close
	if price.LessThanOrEqual(decimal.Zero) {
		return "", decimal.Zero, fmt.Errorf("%w: no usable price", ErrSizedToZero)
	}

	var target decimal.Decimal
	switch sig.GetDirection() {
	case common.Flat:
		target = decimal.Zero
	case common.Long, common.Short:
		if sig.GetAmount().IsPositive() {
			target = sig.GetAmount()
		} else {
			weight := sig.GetTargetWeight()
			if !weight.IsPositive() {
				weight = s.defaultWeight
			}
			// size against the estimated all-in cost so a full-weight
			// target cannot overshoot available cash by a rounding hair
			estimate := price.
				Mul(decimal.NewFromInt(1).Add(cfg.SlippageBps.Div(decimal.NewFromInt(10000)))).
				Mul(decimal.NewFromInt(1).Add(cfg.CommissionRate))
			target = acct.Equity.Mul(weight).Div(estimate).RoundDown(8)
		}
		target = conformToLot(target, cfg.LotSize)
		if target.IsZero() {
			return "", decimal.Zero, fmt.Errorf("%w: lot size %v", ErrSizedToZero, cfg.LotSize)
		}
		if sig.GetDirection() == common.Short {
			target = target.Neg()
		}
	default:
		return "", decimal.Zero, fmt.Errorf("%w: direction %q", ErrSizedToZero, sig.GetDirection())
	}

	delta := target.Sub(current)
	if delta.IsZero() {
		return "", decimal.Zero, errAlreadyAtTarget
	}
	if delta.IsPositive() {
		return order.Buy, delta, nil
	}
	return order.Sell, delta.Neg(), nil
}

func conformToLot(qty, lot decimal.Decimal) decimal.Decimal {
	if !lot.IsPositive() {
		return qty
	}
	return qty.Div(lot).Floor().Mul(lot)
}

// checkConstraints verifies the order against the cash/short rules using
// an estimated fill price. The same check runs again at fill time against
// the actual price so a drifting market cannot sneak a violation through
func (s *Simulator) checkConstraints(o *order.Order, price decimal.Decimal, acct portfolio.Account) error {
	cfg := s.settingsFor(o.Instrument)
	qty := o.Remaining()
	switch o.Side {
	case order.Buy:
		cost := qty.Mul(price).Add(commission(&cfg, price, qty))
		power := acct.Cash
		if s.marginEnabled {
			extra := s.leverageLimit.Sub(decimal.NewFromInt(1)).Mul(acct.Equity)
			if extra.IsPositive() {
				power = power.Add(extra)
			}
		}
		if cost.GreaterThan(power) {
			return fmt.Errorf("%w: need %v, buying power %v", ErrInsufficientFunds, cost, power)
		}
	case order.Sell:
		held := acct.PositionFor(o.Instrument).Quantity
		if !s.marginEnabled && qty.GreaterThan(held) {
			return fmt.Errorf("%w: selling %v, holding %v", ErrInsufficientPosition, qty, held)
		}
	}
	return nil
}

// Advance prices open orders against the new bars and emits fills,
// partial fills and rejections. Orders submitted this step only become
// eligible under the close-slippage model; next-open orders wait for the
// following bar. Terminal orders leave the open book
func (s *Simulator) Advance(bars map[string]*kline.Bar, acct portfolio.Account) []*fill.Fill {
	var fills []*fill.Fill
	var remaining []*order.Order
	for _, o := range s.open {
		bar, ok := bars[o.Instrument]
		if !ok {
			remaining = append(remaining, o)
			continue
		}
		if s.model == NextOpen && !bar.Time.After(o.Time) {
			// submitted against this bar, fills at the next open
			remaining = append(remaining, o)
			continue
		}
		f := s.fillOrder(o, bar, acct)
		if f != nil {
			fills = append(fills, f)
			if !f.IsRejected() {
				// keep the running snapshot honest within the step
				acct = adjustSnapshot(acct, f)
			}
		}
		if !o.IsTerminal() {
			remaining = append(remaining, o)
		}
	}
	s.open = remaining
	return fills
}

func (s *Simulator) fillOrder(o *order.Order, bar *kline.Bar, acct portfolio.Account) *fill.Fill {
	cfg := s.settingsFor(o.Instrument)

	var base decimal.Decimal
	switch {
	case o.Limit.IsPositive():
		if !limitCrossed(o, bar) {
			return nil
		}
		base = o.Limit
	case s.model == NextOpen:
		base = bar.Open
	default:
		base = bar.Close
	}

	qty := o.Remaining()
	partial := false
	if cfg.MaxVolumeFraction.IsPositive() && bar.Volume.IsPositive() {
		most := bar.Volume.Mul(cfg.MaxVolumeFraction)
		if qty.GreaterThan(most) {
			qty = conformToLot(most, cfg.LotSize)
			if qty.LessThanOrEqual(decimal.Zero) {
				return nil
			}
			partial = true
		}
	}

	var rate, price decimal.Decimal
	if o.Limit.IsPositive() || s.model == NextOpen {
		price = base
	} else {
		rate = slippageRate(&cfg, qty.Mul(base), bar.Volume.Mul(base))
		price = applySlippage(o.Side, base, rate)
	}
	fee := commission(&cfg, price, qty)

	if err := s.checkFillConstraints(o, qty, price, acct); err != nil {
		o.Status = order.Rejected
		o.AppendReason(err.Error())
		return s.newFill(o, bar, decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, err.Error())
	}

	// fold the fill into the order
	filledValue := o.AverageFillPrice.Mul(o.FilledQuantity).Add(price.Mul(qty))
	o.FilledQuantity = o.FilledQuantity.Add(qty)
	o.AverageFillPrice = filledValue.Div(o.FilledQuantity)
	o.Commission = o.Commission.Add(fee)
	if partial || o.FilledQuantity.LessThan(o.Quantity) {
		o.Status = order.PartiallyFilled
	} else {
		o.Status = order.Filled
	}
	return s.newFill(o, bar, qty, price, fee, price.Sub(base).Abs(), "")
}

// checkFillConstraints repeats the affordability check with the final
// price so the fill can still be rejected instead of corrupting the ledger
func (s *Simulator) checkFillConstraints(o *order.Order, qty, price decimal.Decimal, acct portfolio.Account) error {
	probe := *o
	probe.FilledQuantity = o.Quantity.Sub(qty)
	return s.checkConstraints(&probe, price, acct)
}

func (s *Simulator) newFill(o *order.Order, bar *kline.Bar, qty, price, fee, slip decimal.Decimal, reason string) *fill.Fill {
	f := &fill.Fill{
		OrderID:    o.ID,
		Side:       o.Side,
		Status:     o.Status,
		Quantity:   qty,
		Price:      price,
		Commission: fee,
		Slippage:   slip,
		Order:      *o,
	}
	f.Instrument = o.Instrument
	f.Time = bar.Time
	f.Offset = bar.GetOffset()
	f.Interval = bar.Interval
	f.Reason = o.Reason
	if reason != "" {
		f.AppendReason(reason)
	}
	return f
}

// limitCrossed reports whether the bar's range reached the order's limit
// price. Buys need the market to trade down to the limit, sells up to it
func limitCrossed(o *order.Order, bar *kline.Bar) bool {
	if o.Side == order.Buy {
		return bar.Low.LessThanOrEqual(o.Limit)
	}
	return bar.High.GreaterThanOrEqual(o.Limit)
}

// CancelAll withdraws every open order, e.g. at the end of a run. The
// cancelled orders are returned by value for the trade history
func (s *Simulator) CancelAll(at time.Time) []order.Order {
	out := make([]order.Order, 0, len(s.open))
	for _, o := range s.open {
		o.Status = order.Cancelled
		o.AppendReason("cancelled at run end")
		out = append(out, *o)
	}
	s.open = nil
	return out
}

// adjustSnapshot applies a fill's cash and position effect to a snapshot
// copy so later fills within one step see the funds already spent
func adjustSnapshot(acct portfolio.Account, f *fill.Fill) portfolio.Account {
	positions := make(map[string]portfolio.Position, len(acct.Positions))
	for k, v := range acct.Positions {
		positions[k] = v
	}
	acct.Positions = positions
	pos := acct.PositionFor(f.GetInstrument())
	notional := f.Quantity.Mul(f.Price)
	if f.Side == order.Buy {
		acct.Cash = acct.Cash.Sub(notional).Sub(f.Commission)
		pos.Quantity = pos.Quantity.Add(f.Quantity)
	} else {
		acct.Cash = acct.Cash.Add(notional).Sub(f.Commission)
		pos.Quantity = pos.Quantity.Sub(f.Quantity)
	}
	positions[f.GetInstrument()] = pos
	return acct
}
