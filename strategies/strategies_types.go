package strategies

import (
	"errors"

	"github.com/quantview/backtester/eventtypes/fill"
	"github.com/quantview/backtester/eventtypes/signal"
	"github.com/quantview/backtester/strategies/base"
)

// ErrNotFound is returned for a strategy name the registry cannot resolve
var ErrNotFound = errors.New("strategy not found")

// Handler is the interface every strategy satisfies
type Handler interface {
	Name() string
	Description() string
	OnBar(*base.Context) ([]signal.Event, error)
	OnFill(fill.Event)
	Parameters() []base.Parameter
	SetParameters(map[string]float64) error
}
