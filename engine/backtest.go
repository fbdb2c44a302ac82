// Package engine drives strategies over synchronised bar data, routing
// signals through the execution simulator into the ledger and sealing
// the result into an immutable run artifact.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quantview/backtester/data"
	"github.com/quantview/backtester/eventtypes/fill"
	"github.com/quantview/backtester/eventtypes/kline"
	"github.com/quantview/backtester/eventtypes/order"
	"github.com/quantview/backtester/eventtypes/signal"
	"github.com/quantview/backtester/portfolio"
	"github.com/quantview/backtester/statistics"
	"github.com/quantview/backtester/strategies/base"
	"github.com/shopspring/decimal"
)

// Run executes the full backtest and seals the artifact. A BackTest can
// run once, subsequent calls return ErrAlreadyRan
func (bt *BackTest) Run(ctx context.Context) (*Run, error) {
	if err := bt.transitionToRunning(); err != nil {
		return nil, err
	}
	started := time.Now()
	bt.log.Info("run started")

	var runErr error
	for {
		if err := bt.waitIfPaused(ctx); err != nil {
			runErr = err
			break
		}
		batch, err := bt.feed.Next()
		if err != nil {
			if errors.Is(err, data.ErrEndOfStream) {
				break
			}
			runErr = err
			break
		}
		if err = bt.step(batch); err != nil {
			runErr = err
			break
		}
	}
	return bt.seal(started, runErr), runErr
}

// step processes one synchronised batch of bars: mark positions, invoke
// the strategy per instrument, route signals to the simulator, price the
// open order book and apply the resulting fills to the ledger
func (bt *BackTest) step(batch *data.Batch) error {
	bars := make(map[string]*kline.Bar, len(batch.Bars))
	prices := make(map[string]decimal.Decimal, len(batch.Bars))
	for _, bar := range batch.Bars {
		bars[bar.Instrument] = bar
		prices[bar.Instrument] = bar.Close
	}
	offset := batch.Bars[len(batch.Bars)-1].Offset
	bt.ledger.UpdateMarks(prices, batch.Time, offset)

	acct := bt.ledger.Snapshot()
	for _, bar := range batch.Bars {
		handler, err := bt.feed.GetHandler(bar.Instrument)
		if err != nil {
			return err
		}
		sctx := &base.Context{
			Data:    handler,
			Factors: bt.factors,
			Account: acct,
		}
		signals, err := bt.strategy.OnBar(sctx)
		if err != nil {
			return fmt.Errorf("strategy %q on bar %v: %w", bt.strategy.Name(), batch.Time, err)
		}
		for _, sig := range signals {
			bt.publish(sig)
			o, err := bt.exchange.Submit(sig, bar, acct)
			if err != nil {
				return err
			}
			if o == nil {
				continue
			}
			if o.Status == order.Rejected {
				// a submission-time rejection travels the same path as a
				// fill-time one so the strategy and the report hear it
				if err = bt.applyFill(rejectionFill(o)); err != nil {
					return err
				}
				continue
			}
			bt.recordOrder(o)
		}
	}

	fills := bt.exchange.Advance(bars, acct)
	for _, f := range fills {
		if err := bt.applyFill(f); err != nil {
			return err
		}
	}
	if len(fills) > 0 {
		// fills change positions, refresh marks before the snapshot
		bt.ledger.UpdateMarks(prices, batch.Time, offset)
	}

	snapshot := bt.ledger.Snapshot()
	if err := bt.stats.Record(snapshot); err != nil {
		return err
	}
	if err := bt.ledger.Verify(); err != nil {
		return err
	}

	bt.mu.Lock()
	bt.checkpoint = Checkpoint{
		Offset:    offset,
		Timestamp: batch.Time,
		Account:   snapshot,
	}
	bt.mu.Unlock()
	return nil
}

func (bt *BackTest) applyFill(f *fill.Fill) error {
	if !f.IsRejected() {
		if err := bt.ledger.Apply(f); err != nil {
			return err
		}
	}
	bt.recordOrder(&f.Order)
	bt.stats.ObserveFill(f)
	bt.strategy.OnFill(f)
	return nil
}

// rejectionFill wraps an order the simulator refused at submission so it
// can travel the fill pipeline without touching the ledger
func rejectionFill(o *order.Order) *fill.Fill {
	f := &fill.Fill{
		OrderID: o.ID,
		Side:    o.Side,
		Status:  o.Status,
		Order:   *o,
	}
	f.Base = o.Base
	return f
}

// recordOrder keeps the latest observed state per order ID
func (bt *BackTest) recordOrder(o *order.Order) {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	for i := range bt.orders {
		if bt.orders[i].ID == o.ID {
			bt.orders[i] = *o
			return
		}
	}
	bt.orders = append(bt.orders, *o)
}

// seal finalises statistics, cancels the open book and freezes the run
// artifact
func (bt *BackTest) seal(started time.Time, runErr error) *Run {
	for _, o := range bt.exchange.CancelAll(bt.checkpoint.Timestamp) {
		cancelled := o
		bt.recordOrder(&cancelled)
	}
	// a run over zero bars has no snapshots, that is an empty report,
	// not a failure
	report, statsErr := bt.stats.Finalize()
	if runErr == nil && statsErr != nil && !errors.Is(statsErr, statistics.ErrNoSnapshots) {
		runErr = statsErr
	}

	bt.mu.Lock()
	defer bt.mu.Unlock()
	switch {
	case runErr == nil:
		bt.status = StatusCompleted
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, ErrNotRunning):
		bt.status = StatusCancelled
		runErr = nil
	default:
		bt.status = StatusFailed
	}

	run := &Run{
		ID:         bt.id,
		Nickname:   bt.cfg.Nickname,
		Strategy:   bt.strategy.Name(),
		Config:     bt.cfg,
		Status:     bt.status,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Snapshots:  bt.stats.Snapshots(),
		Orders:     bt.orders,
		Trades:     bt.ledger.Trades(),
		Report:     report,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	bt.run = run
	bt.log.WithField("status", bt.status).Info("run sealed")
	return run
}

// Result returns the sealed artifact, nil until the run finishes
func (bt *BackTest) Result() *Run {
	bt.mu.RLock()
	defer bt.mu.RUnlock()
	return bt.run
}

// Status returns the current lifecycle state
func (bt *BackTest) Status() Status {
	bt.mu.RLock()
	defer bt.mu.RUnlock()
	return bt.status
}

// Checkpoint returns resumable progress as of the last completed step
func (bt *BackTest) Checkpoint() Checkpoint {
	bt.mu.RLock()
	defer bt.mu.RUnlock()
	return bt.checkpoint
}

// Ledger exposes the portfolio for inspection
func (bt *BackTest) Ledger() *portfolio.Ledger {
	return bt.ledger
}

// Pause holds the loop before its next step
func (bt *BackTest) Pause() error {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	if bt.status != StatusRunning {
		return ErrNotRunning
	}
	bt.status = StatusPaused
	return nil
}

// Resume releases a paused loop
func (bt *BackTest) Resume() error {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	if bt.status != StatusPaused {
		return ErrNotPaused
	}
	bt.status = StatusRunning
	bt.cond.Broadcast()
	return nil
}

// Stop cancels the run between steps. The artifact still seals with
// everything processed so far
func (bt *BackTest) Stop() error {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	if bt.status != StatusRunning && bt.status != StatusPaused {
		return ErrNotRunning
	}
	bt.status = StatusCancelled
	bt.cond.Broadcast()
	if bt.liveFeed != nil {
		bt.liveFeed.Stop()
	}
	return nil
}

func (bt *BackTest) transitionToRunning() error {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	if bt.status != StatusInitialized {
		return ErrAlreadyRan
	}
	bt.status = StatusRunning
	return nil
}

// waitIfPaused blocks while paused and reports cancellation. It is the
// only place the loop yields, so cancellation always lands on a step
// boundary
func (bt *BackTest) waitIfPaused(ctx context.Context) error {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	for bt.status == StatusPaused {
		bt.cond.Wait()
	}
	if bt.status == StatusCancelled {
		return ErrNotRunning
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// Subscribe returns a channel receiving every signal the strategy emits.
// Slow consumers lose signals rather than stalling the run
func (bt *BackTest) Subscribe() <-chan signal.Event {
	ch := make(chan signal.Event, 32)
	bt.subMu.Lock()
	bt.subscribers = append(bt.subscribers, ch)
	bt.subMu.Unlock()
	return ch
}

func (bt *BackTest) publish(sig signal.Event) {
	bt.subMu.Lock()
	defer bt.subMu.Unlock()
	for _, ch := range bt.subscribers {
		select {
		case ch <- sig:
		default:
		}
	}
}
