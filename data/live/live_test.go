package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/quantview/backtester/data"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLog() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

// barServer upgrades, checks the subscription and pushes bars. With dropConn
// set it hangs up after the last bar instead of waiting for the client
func barServer(t *testing.T, bars []barMessage, dropConn bool) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var sub subscribeMessage
		require.NoError(t, conn.ReadJSON(&sub))
		assert.Equal(t, "subscribe", sub.Type)
		assert.NotEmpty(t, sub.Instruments)

		for i := range bars {
			require.NoError(t, conn.WriteJSON(&bars[i]))
		}
		if dropConn {
			return
		}
		// hold the connection open until the client walks away
		conn.ReadMessage()
	}))
}

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func TestNewFeedValidates(t *testing.T) {
	t.Parallel()
	_, err := NewFeed(Settings{}, quietLog())
	assert.ErrorIs(t, err, data.ErrFeedDisconnected)

	_, err = NewFeed(Settings{URL: "ws://localhost:1"}, quietLog())
	assert.ErrorIs(t, err, data.ErrFeedDisconnected)
}

func TestStartAndNext(t *testing.T) {
	t.Parallel()
	srv := barServer(t, []barMessage{
		{Instrument: "ACME", Timestamp: 1700000000, Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 500},
		{Instrument: "ACME", Timestamp: 1700003600, Open: 10.5, High: 12, Low: 10, Close: 11.5, Volume: 600},
	}, false)
	defer srv.Close()

	feed, err := NewFeed(Settings{
		URL:         wsURL(srv),
		Instruments: []string{"ACME"},
		Interval:    time.Hour,
	}, quietLog())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, feed.Start(ctx, time.Time{}))
	defer feed.Stop()

	first, err := feed.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ACME", first.Instrument)
	assert.Equal(t, "10.5", first.Close.String())
	assert.True(t, first.Time.Equal(time.Unix(1700000000, 0)))
	assert.Equal(t, time.Hour, first.Interval)

	second, err := feed.Next(ctx)
	require.NoError(t, err)
	assert.True(t, second.Time.After(first.Time), "bars arrive in order")

	_, ok := feed.TryNext()
	assert.False(t, ok, "queue drained")
}

func TestNextContextCancelled(t *testing.T) {
	t.Parallel()
	srv := barServer(t, nil, false)
	defer srv.Close()

	feed, err := NewFeed(Settings{
		URL:         wsURL(srv),
		Instruments: []string{"ACME"},
		Interval:    time.Hour,
	}, quietLog())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, feed.Start(ctx, time.Time{}))
	defer feed.Stop()

	cancel()
	_, err = feed.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDisconnectBeyondBudget(t *testing.T) {
	t.Parallel()
	srv := barServer(t, []barMessage{
		{Instrument: "ACME", Timestamp: 1700000000, Close: 10},
	}, true)
	defer srv.Close()

	feed, err := NewFeed(Settings{
		URL:           wsURL(srv),
		Instruments:   []string{"ACME"},
		Interval:      time.Hour,
		MaxReconnects: 0,
	}, quietLog())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, feed.Start(ctx, time.Time{}))

	_, err = feed.Next(ctx)
	require.NoError(t, err)

	// the stream hangs up and no reconnect budget remains
	_, err = feed.Next(ctx)
	assert.ErrorIs(t, err, data.ErrFeedDisconnected)
}
