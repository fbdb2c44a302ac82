package macross

import "github.com/quantview/backtester/strategies/base"

// Name is the registry identifier
const Name = "ma-cross"

// Strategy goes long while the fast moving average is above the slow one
// and exits (or shorts, when enabled) once it drops below
type Strategy struct {
	base.Strategy
}
