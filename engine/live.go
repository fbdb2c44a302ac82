package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quantview/backtester/data"
	datakline "github.com/quantview/backtester/data/kline"
	"github.com/quantview/backtester/eventtypes/kline"
)

// ErrNotLive guards RunLive against CSV-configured sessions
var ErrNotLive = errors.New("run is not configured for live data")

// RunLive consumes the websocket feed until the context ends or the feed
// disconnects past its reconnect budget. Each arriving bar is appended to
// its instrument's stream and processed through the same step pipeline as
// a backtest, so live and historical runs share every execution rule
func (bt *BackTest) RunLive(ctx context.Context) (*Run, error) {
	if bt.liveFeed == nil {
		return nil, ErrNotLive
	}
	if err := bt.transitionToRunning(); err != nil {
		return nil, err
	}
	started := time.Now()

	since := bt.checkpoint.Timestamp
	if err := bt.liveFeed.Start(ctx, since); err != nil {
		return bt.seal(started, fmt.Errorf("start live feed: %w", err)), nil
	}
	bt.log.Info("live session started")

	var runErr error
	var pending *kline.Bar
	for {
		if err := bt.waitIfPaused(ctx); err != nil {
			runErr = err
			break
		}
		head := pending
		pending = nil
		if head == nil {
			var err error
			head, err = bt.liveFeed.Next(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					break
				}
				runErr = err
				break
			}
		}
		// same-timestamp bars across instruments form one atomic batch;
		// the first strictly newer bar is held back for the next step
		batch := []*kline.Bar{head}
		for {
			next, ok := bt.liveFeed.TryNext()
			if !ok {
				break
			}
			if next.Time.After(head.Time) {
				pending = next
				break
			}
			batch = append(batch, next)
		}

		stepBars := make([]*kline.Bar, 0, len(batch))
		for _, bar := range batch {
			accepted, err := bt.appendLiveBar(bar)
			if err != nil {
				runErr = err
				break
			}
			if accepted {
				stepBars = append(stepBars, bar)
			}
		}
		if runErr != nil {
			break
		}
		// every bar was stale or duplicated, nothing to step
		if len(stepBars) == 0 {
			continue
		}
		if err := bt.step(&data.Batch{Time: head.Time, Bars: stepBars}); err != nil {
			runErr = err
			break
		}
	}
	bt.liveFeed.Stop()
	if errors.Is(runErr, data.ErrFeedDisconnected) {
		bt.log.Warn("live feed disconnected beyond reconnect budget")
	}
	return bt.seal(started, runErr), runErr
}

// appendLiveBar feeds one streamed bar into its instrument's stream and
// reports whether the stream accepted it. A stale or duplicate bar is
// skipped by the stream, not an error
func (bt *BackTest) appendLiveBar(bar *kline.Bar) (bool, error) {
	handler, err := bt.feed.GetHandler(bar.Instrument)
	if err != nil {
		return false, err
	}
	loader, ok := handler.(*datakline.DataFromKline)
	if !ok {
		return false, fmt.Errorf("handler for %q cannot accept streamed bars", bar.Instrument)
	}
	loader.AppendStream(bar)
	if _, ok = loader.Next(); !ok {
		return false, nil
	}
	return true, nil
}
