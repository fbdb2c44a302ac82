package statistics

import (
	"math"

	"github.com/quantview/backtester/eventtypes/fill"
	"github.com/quantview/backtester/portfolio"
	"github.com/shopspring/decimal"
)

const hoursPerYear = 365 * 24

// NewCollector returns an empty collector
func NewCollector() *Collector {
	return &Collector{}
}

// SetRiskFreeRate sets the annual rate subtracted from the return before
// the Sharpe ratio divides by volatility. Zero by default
func (c *Collector) SetRiskFreeRate(r decimal.Decimal) {
	c.riskFree = r
}

// Record stores one end-of-step account snapshot
func (c *Collector) Record(acct portfolio.Account) error {
	if c.finalized {
		return ErrAlreadyFinalized
	}
	c.snapshots = append(c.snapshots, acct)
	return nil
}

// ObserveFill counts executed and rejected fills for the report
func (c *Collector) ObserveFill(f fill.Event) {
	if c.finalized || f == nil {
		return
	}
	if f.IsRejected() {
		c.rejected++
		return
	}
	c.trades++
}

// Snapshots returns the recorded equity curve
func (c *Collector) Snapshots() []portfolio.Account {
	return c.snapshots
}

// Reset clears all recorded state
func (c *Collector) Reset() {
	c.snapshots = nil
	c.trades = 0
	c.rejected = 0
	c.finalized = false
	c.report = Report{}
}

// Finalize seals the collector and computes the summary report. Further
// calls return the same report without recomputation
func (c *Collector) Finalize() (Report, error) {
	if c.finalized {
		return c.report, nil
	}
	if len(c.snapshots) == 0 {
		return Report{}, ErrNoSnapshots
	}

	first := c.snapshots[0]
	last := c.snapshots[len(c.snapshots)-1]
	r := Report{
		Start:          first.Timestamp,
		End:            last.Timestamp,
		InitialEquity:  first.Equity,
		FinalEquity:    last.Equity,
		TradeCount:     c.trades,
		RejectedOrders: c.rejected,
	}
	r.TotalCommission = last.TotalFees
	if first.Equity.IsPositive() {
		r.CumulativeReturn = last.Equity.Sub(first.Equity).Div(first.Equity)
	}
	r.MaxDrawdown = decimal.NewFromFloat(maxDrawdown(c.snapshots))

	riskFree, _ := c.riskFree.Float64()
	vol, sharpe := volatilityAndSharpe(c.snapshots, riskFree)
	r.AnnualisedVolatility = decimal.NewFromFloat(vol)
	r.SharpeRatio = decimal.NewFromFloat(sharpe)

	c.report = r
	c.finalized = true
	return r, nil
}

// maxDrawdown returns the largest peak-to-trough equity decline as a
// positive fraction of the peak
func maxDrawdown(snapshots []portfolio.Account) float64 {
	var peak, worst float64
	for i := range snapshots {
		eq, _ := snapshots[i].Equity.Float64()
		if eq > peak {
			peak = eq
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - eq) / peak
		if dd > worst {
			worst = dd
		}
	}
	return worst
}

// volatilityAndSharpe computes annualised volatility and Sharpe from
// per-step returns. Each interval's return is scaled by its own duration
// so a return earned across a multi-day gap contributes less annualised
// variance than the same return earned in a single day
func volatilityAndSharpe(snapshots []portfolio.Account, riskFree float64) (float64, float64) {
	if len(snapshots) < 2 {
		return 0, 0
	}
	type interval struct {
		ret   float64
		years float64
	}
	intervals := make([]interval, 0, len(snapshots)-1)
	var totalRet, totalYears float64
	for i := 1; i < len(snapshots); i++ {
		prev, _ := snapshots[i-1].Equity.Float64()
		cur, _ := snapshots[i].Equity.Float64()
		years := snapshots[i].Timestamp.Sub(snapshots[i-1].Timestamp).Hours() / hoursPerYear
		if prev <= 0 || years <= 0 {
			continue
		}
		r := cur/prev - 1
		intervals = append(intervals, interval{ret: r, years: years})
		totalRet += r
		totalYears += years
	}
	if len(intervals) < 2 || totalYears <= 0 {
		return 0, 0
	}
	meanRate := totalRet / totalYears

	var variance float64
	for _, iv := range intervals {
		d := (iv.ret - meanRate*iv.years) / math.Sqrt(iv.years)
		variance += d * d
	}
	variance /= float64(len(intervals) - 1)
	vol := math.Sqrt(variance)
	if vol == 0 {
		return 0, 0
	}
	return vol, (meanRate - riskFree) / vol
}
