package macd

import "github.com/quantview/backtester/strategies/base"

// Name is the registry identifier
const Name = "macd"

// Strategy trades the MACD line crossing its signal line
type Strategy struct {
	base.Strategy
}
