package common

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Direction is a strategy's stated intent for an instrument.
type Direction string

const (
	// Long signals the desire to hold a positive quantity
	Long Direction = "LONG"
	// Short signals the desire to hold a negative quantity
	Short Direction = "SHORT"
	// Flat signals the desire to hold no position at all
	Flat Direction = "FLAT"
	// Hold signals that no action should be taken this step
	Hold Direction = "HOLD"
)

var (
	// ErrNilArguments is a common error response to highlight that nils were
	// passed in when they should not have been
	ErrNilArguments = errors.New("received nil argument(s)")
	// ErrNilEvent is a common error for whenever a nil event occurs when it
	// shouldn't have
	ErrNilEvent = errors.New("nil event received")
)

// Event is the shared contract between every event flowing through a run
type Event interface {
	GetOffset() int64
	SetOffset(int64)
	GetInstrument() string
	GetTime() time.Time
	GetInterval() time.Duration
	GetReason() string
	AppendReason(string)
}

// DataEvent describes a market data observation
type DataEvent interface {
	Event
	GetOpenPrice() decimal.Decimal
	GetHighPrice() decimal.Decimal
	GetLowPrice() decimal.Decimal
	GetClosePrice() decimal.Decimal
	GetVolume() decimal.Decimal
}

// Directioner dictates the intent attached to an event
type Directioner interface {
	SetDirection(Direction)
	GetDirection() Direction
}
