package turtle

import "github.com/quantview/backtester/strategies/base"

// Name is the registry identifier
const Name = "turtle"

// Strategy is a Donchian channel breakout system. Entries trigger on a
// close beyond the entry channel, exits on a close beyond the opposite,
// shorter, exit channel. Position size is scaled by ATR so each unit
// risks a comparable fraction of equity
type Strategy struct {
	base.Strategy
}
