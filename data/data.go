package data

import (
	"fmt"
	"sort"
	"time"

	"github.com/quantview/backtester/eventtypes/kline"
	"github.com/shopspring/decimal"
)

// Reset returns loaded data to a blank state
func (b *Base) Reset() {
	b.latest = nil
	b.offset = 0
	b.stream = nil
}

// GetStream returns the entire stream
func (b *Base) GetStream() []*kline.Bar {
	return b.stream
}

// Offset returns the number of bars already streamed
func (b *Base) Offset() int64 {
	return b.offset
}

// Revision reports how many times history has been amended
func (b *Base) Revision() int64 {
	return b.revision
}

// MarkAmended records that historical bars were replaced rather than
// merely reloaded. Factor caches key on the revision and discard their
// entries for this instrument wholesale when it changes
func (b *Base) MarkAmended() {
	b.revision++
}

// SetStream replaces the stream, sorts it, and assigns offsets and tie
// breaking sequence numbers
func (b *Base) SetStream(s []*kline.Bar) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].Time.Equal(s[j].Time) {
			return s[i].Sequence < s[j].Sequence
		}
		return s[i].Time.Before(s[j].Time)
	})
	for i := range s {
		s[i].SetOffset(int64(i))
		s[i].Sequence = int64(i)
	}
	b.stream = s
	b.latest = nil
	b.offset = 0
}

// AppendStream appends fresh bars onto the stream, ignoring nils and
// anything not strictly newer than the tail. Used for live analysis
func (b *Base) AppendStream(bars ...*kline.Bar) {
	for i := range bars {
		if bars[i] == nil {
			continue
		}
		if len(b.stream) > 0 {
			tail := b.stream[len(b.stream)-1]
			if !bars[i].Time.After(tail.Time) {
				continue
			}
		}
		bars[i].SetOffset(int64(len(b.stream)))
		bars[i].Sequence = int64(len(b.stream))
		b.stream = append(b.stream, bars[i])
	}
}

// Next returns the next bar and shifts the offset along
func (b *Base) Next() (*kline.Bar, bool) {
	if int64(len(b.stream)) <= b.offset {
		return nil, false
	}
	ret := b.stream[b.offset]
	b.offset++
	b.latest = ret
	return ret, true
}

// Peek returns the next bar without consuming it
func (b *Base) Peek() (*kline.Bar, bool) {
	if int64(len(b.stream)) <= b.offset {
		return nil, false
	}
	return b.stream[b.offset], true
}

// History returns all bars that have been streamed so far
func (b *Base) History() []*kline.Bar {
	return b.stream[:b.offset]
}

// Latest returns the most recently streamed bar
func (b *Base) Latest() *kline.Bar {
	return b.latest
}

// IsLastEvent returns whether the latest bar is the final bar in the stream
func (b *Base) IsLastEvent() bool {
	return b.latest != nil && b.offset == int64(len(b.stream))
}

// HasDataAtTime returns whether a streamed bar exists at the given time
func (b *Base) HasDataAtTime(t time.Time) bool {
	for i := int64(0); i < b.offset; i++ {
		if b.stream[i].Time.Equal(t) {
			return true
		}
	}
	return false
}

// StreamOpen returns all streamed open prices
func (b *Base) StreamOpen() []decimal.Decimal {
	ret := make([]decimal.Decimal, b.offset)
	for i := range b.stream[:b.offset] {
		ret[i] = b.stream[i].Open
	}
	return ret
}

// StreamHigh returns all streamed high prices
func (b *Base) StreamHigh() []decimal.Decimal {
	ret := make([]decimal.Decimal, b.offset)
	for i := range b.stream[:b.offset] {
		ret[i] = b.stream[i].High
	}
	return ret
}

// StreamLow returns all streamed low prices
func (b *Base) StreamLow() []decimal.Decimal {
	ret := make([]decimal.Decimal, b.offset)
	for i := range b.stream[:b.offset] {
		ret[i] = b.stream[i].Low
	}
	return ret
}

// StreamClose returns all streamed close prices
func (b *Base) StreamClose() []decimal.Decimal {
	ret := make([]decimal.Decimal, b.offset)
	for i := range b.stream[:b.offset] {
		ret[i] = b.stream[i].Close
	}
	return ret
}

// StreamVol returns all streamed volumes
func (b *Base) StreamVol() []decimal.Decimal {
	ret := make([]decimal.Decimal, b.offset)
	for i := range b.stream[:b.offset] {
		ret[i] = b.stream[i].Volume
	}
	return ret
}

// ValidateContinuity walks the stream and fails with ErrDataGap when more
// than tolerance consecutive intervals are missing between bars
func (b *Base) ValidateContinuity(interval time.Duration, tolerance int64) error {
	if interval <= 0 || len(b.stream) < 2 {
		return nil
	}
	for i := 1; i < len(b.stream); i++ {
		elapsed := b.stream[i].Time.Sub(b.stream[i-1].Time)
		missing := int64(elapsed/interval) - 1
		if missing > tolerance {
			return fmt.Errorf("%w: %d missing intervals between %v and %v",
				ErrDataGap,
				missing,
				b.stream[i-1].Time,
				b.stream[i].Time)
		}
	}
	return nil
}

// Feed merges one handler per instrument into a single time ordered
// sequence of batches. It is the engine's market data boundary
type Feed struct {
	handlers    map[string]Handler
	instruments []string
}

// NewFeed creates an empty feed
func NewFeed() *Feed {
	return &Feed{handlers: make(map[string]Handler)}
}

// SetHandler assigns a data handler for an instrument
func (f *Feed) SetHandler(instrument string, h Handler) {
	if f.handlers == nil {
		f.handlers = make(map[string]Handler)
	}
	if _, ok := f.handlers[instrument]; !ok {
		f.instruments = append(f.instruments, instrument)
		sort.Strings(f.instruments)
	}
	f.handlers[instrument] = h
}

// GetHandler returns the handler for an instrument
func (f *Feed) GetHandler(instrument string) (Handler, error) {
	h, ok := f.handlers[instrument]
	if !ok {
		return nil, fmt.Errorf("%w for %q", ErrHandlerNotFound, instrument)
	}
	return h, nil
}

// Instruments returns the subscribed instruments in deterministic order
func (f *Feed) Instruments() []string {
	return f.instruments
}

// Next returns the next synchronised batch: every instrument's bar at the
// smallest pending timestamp. Returns ErrEndOfStream once every handler is
// exhausted
func (f *Feed) Next() (*Batch, error) {
	var next time.Time
	found := false
	for _, id := range f.instruments {
		p, ok := peek(f.handlers[id])
		if !ok {
			continue
		}
		if !found || p.Time.Before(next) {
			next = p.Time
			found = true
		}
	}
	if !found {
		return nil, ErrEndOfStream
	}
	batch := &Batch{Time: next}
	for _, id := range f.instruments {
		h := f.handlers[id]
		p, ok := peek(h)
		if !ok || !p.Time.Equal(next) {
			continue
		}
		bar, _ := h.Next()
		batch.Bars = append(batch.Bars, bar)
	}
	return batch, nil
}

// Reset rewinds every handler so a backtest can be restarted
func (f *Feed) Reset() error {
	for id, h := range f.handlers {
		h.Reset()
		// a reset handler must reload its stream before streaming again
		if err := h.Load(); err != nil {
			return fmt.Errorf("reset %q: %w", id, err)
		}
	}
	return nil
}

type peeker interface {
	Peek() (*kline.Bar, bool)
}

func peek(h Handler) (*kline.Bar, bool) {
	if p, ok := h.(peeker); ok {
		return p.Peek()
	}
	return nil, false
}
