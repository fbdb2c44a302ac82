package statistics

import (
	"errors"
	"time"

	"github.com/quantview/backtester/portfolio"
	"github.com/shopspring/decimal"
)

var (
	// ErrNoSnapshots is returned by Finalize when nothing was recorded
	ErrNoSnapshots = errors.New("no snapshots recorded")
	// ErrAlreadyFinalized guards against recording into a sealed collector
	ErrAlreadyFinalized = errors.New("statistics already finalized")
)

// Report is the sealed output of a run. Values are decimal so callers can
// serialise them without float representation drift
type Report struct {
	Start                time.Time       `json:"start"`
	End                  time.Time       `json:"end"`
	InitialEquity        decimal.Decimal `json:"initialEquity"`
	FinalEquity          decimal.Decimal `json:"finalEquity"`
	CumulativeReturn     decimal.Decimal `json:"cumulativeReturn"`
	MaxDrawdown          decimal.Decimal `json:"maxDrawdown"`
	AnnualisedVolatility decimal.Decimal `json:"annualisedVolatility"`
	SharpeRatio          decimal.Decimal `json:"sharpeRatio"`
	TradeCount           int             `json:"tradeCount"`
	RejectedOrders       int             `json:"rejectedOrders"`
	TotalCommission      decimal.Decimal `json:"totalCommission"`
}

// Collector accumulates per-step account snapshots and summarises them
// into a Report. Internal maths runs on float64; only the sealed report
// carries decimals
type Collector struct {
	snapshots []portfolio.Account
	trades    int
	rejected  int
	riskFree  decimal.Decimal
	finalized bool
	report    Report
}
