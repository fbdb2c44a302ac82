// Package strategies resolves strategy names to fresh handler instances.
// Every call to New returns an isolated instance so concurrent runs never
// share strategy state.
package strategies

import (
	"fmt"
	"sort"
	"strings"

	"github.com/quantview/backtester/strategies/bollinger"
	"github.com/quantview/backtester/strategies/grid"
	"github.com/quantview/backtester/strategies/macd"
	"github.com/quantview/backtester/strategies/macross"
	"github.com/quantview/backtester/strategies/mlscore"
	"github.com/quantview/backtester/strategies/multifactor"
	"github.com/quantview/backtester/strategies/turtle"
)

var registry = map[string]func() Handler{
	bollinger.Name:   func() Handler { return bollinger.New() },
	grid.Name:        func() Handler { return grid.New() },
	macd.Name:        func() Handler { return macd.New() },
	macross.Name:     func() Handler { return macross.New() },
	mlscore.Name:     func() Handler { return mlscore.New() },
	multifactor.Name: func() Handler { return multifactor.New() },
	turtle.Name:      func() Handler { return turtle.New() },
}

// New returns a fresh instance of the named strategy
func New(name string) (Handler, error) {
	factory, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return factory(), nil
}

// Names returns the sorted registry names
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// All returns one fresh instance per registered strategy, sorted by name
func All() []Handler {
	out := make([]Handler, 0, len(registry))
	for _, name := range Names() {
		h, _ := New(name)
		out = append(out, h)
	}
	return out
}
