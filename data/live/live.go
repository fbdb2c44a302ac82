package live

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/quantview/backtester/data"
	"github.com/quantview/backtester/eventtypes/event"
	"github.com/quantview/backtester/eventtypes/kline"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const defaultQueueSize = 64

// NewFeed creates a live feed from settings
func NewFeed(s Settings, log *logrus.Logger) (*Feed, error) {
	if s.URL == "" {
		return nil, fmt.Errorf("%w: no url", data.ErrFeedDisconnected)
	}
	if len(s.Instruments) == 0 {
		return nil, fmt.Errorf("%w: no instruments", data.ErrFeedDisconnected)
	}
	if s.QueueSize <= 0 {
		s.QueueSize = defaultQueueSize
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Feed{
		settings: s,
		queue:    make(chan *kline.Bar, s.QueueSize),
		errs:     make(chan error, 1),
		done:     make(chan struct{}),
		// one reconnect attempt per two seconds, small burst for startup
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
		log:     log.WithField("component", "livefeed"),
	}, nil
}

// Start dials the stream and launches the reader worker. The worker pushes
// bars into the bounded queue and blocks when it is full
func (f *Feed) Start(ctx context.Context, since time.Time) error {
	if err := f.connect(ctx, since); err != nil {
		return err
	}
	go f.read(ctx)
	return nil
}

func (f *Feed) connect(ctx context.Context, since time.Time) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", data.ErrFeedDisconnected, err)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.settings.URL, nil)
	if err != nil {
		return fmt.Errorf("%w: dial %v: %v", data.ErrFeedDisconnected, f.settings.URL, err)
	}
	sub := subscribeMessage{
		Type:        "subscribe",
		Instruments: f.settings.Instruments,
	}
	if !since.IsZero() {
		sub.Since = since.Unix()
	}
	if err = conn.WriteJSON(sub); err != nil {
		conn.Close()
		return fmt.Errorf("%w: subscribe: %v", data.ErrFeedDisconnected, err)
	}
	f.conn = conn
	f.log.WithField("url", f.settings.URL).Info("live feed connected")
	return nil
}

func (f *Feed) read(ctx context.Context) {
	defer close(f.done)
	reconnects := 0
	for {
		var msg barMessage
		err := f.conn.ReadJSON(&msg)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			reconnects++
			if reconnects > f.settings.MaxReconnects {
				f.errs <- fmt.Errorf("%w: %v", data.ErrFeedDisconnected, err)
				return
			}
			f.log.WithError(err).Warnf("stream interrupted, reconnect %d of %d",
				reconnects, f.settings.MaxReconnects)
			if err = f.connect(ctx, time.Now().UTC()); err != nil {
				f.errs <- err
				return
			}
			continue
		}
		reconnects = 0
		bar := convert(&msg, f.settings.Interval)
		select {
		case f.queue <- bar:
		case <-ctx.Done():
			return
		}
	}
}

// Next blocks until a bar, a feed fault or context cancellation. A closed
// stream surfaces as ErrFeedDisconnected so the scheduler can distinguish a
// recoverable stall from exhaustion
func (f *Feed) Next(ctx context.Context) (*kline.Bar, error) {
	select {
	case bar := <-f.queue:
		return bar, nil
	case err := <-f.errs:
		return nil, err
	case <-f.done:
		return nil, data.ErrFeedDisconnected
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryNext returns an already-queued bar without blocking
func (f *Feed) TryNext() (*kline.Bar, bool) {
	select {
	case bar := <-f.queue:
		return bar, true
	default:
		return nil, false
	}
}

// Stop closes the underlying connection
func (f *Feed) Stop() {
	if f.conn != nil {
		f.conn.Close()
	}
}

func convert(m *barMessage, interval time.Duration) *kline.Bar {
	return &kline.Bar{
		Base: event.Base{
			Instrument: m.Instrument,
			Time:       time.Unix(m.Timestamp, 0).UTC(),
			Interval:   interval,
		},
		Open:   decimal.NewFromFloat(m.Open),
		High:   decimal.NewFromFloat(m.High),
		Low:    decimal.NewFromFloat(m.Low),
		Close:  decimal.NewFromFloat(m.Close),
		Volume: decimal.NewFromFloat(m.Volume),
	}
}
