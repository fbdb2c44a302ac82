package event

import (
	"fmt"
	"strings"
	"time"
)

// Base is the underlying type for all events, detailing when and for which
// instrument the event occurred, along with a human readable reason trail
type Base struct {
	Offset     int64         `json:"offset"`
	Instrument string        `json:"instrument"`
	Time       time.Time     `json:"timestamp"`
	Interval   time.Duration `json:"interval"`
	Reason     string        `json:"reason"`
}

// GetOffset returns the event's position in the data stream
func (b *Base) GetOffset() int64 {
	return b.Offset
}

// SetOffset sets the event's position in the data stream
func (b *Base) SetOffset(o int64) {
	b.Offset = o
}

// GetInstrument returns the instrument identifier
func (b *Base) GetInstrument() string {
	return b.Instrument
}

// GetTime returns the timestamp of the event
func (b *Base) GetTime() time.Time {
	return b.Time
}

// GetInterval returns the bar interval the event relates to
func (b *Base) GetInterval() time.Duration {
	return b.Interval
}

// GetReason returns the reason trail for the event
func (b *Base) GetReason() string {
	return b.Reason
}

// AppendReason appends to the event's reason trail so decisions can be
// traced after a run completes
func (b *Base) AppendReason(r string) {
	if r == "" {
		return
	}
	if b.Reason == "" {
		b.Reason = r
		return
	}
	b.Reason = strings.Join([]string{b.Reason, r}, ". ")
}

// AppendReasonf appends a formatted reason to the event's reason trail
func (b *Base) AppendReasonf(format string, v ...any) {
	b.AppendReason(fmt.Sprintf(format, v...))
}
