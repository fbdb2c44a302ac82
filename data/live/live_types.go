package live

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/quantview/backtester/eventtypes/kline"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Settings configures a live market data subscription
type Settings struct {
	URL         string
	Instruments []string
	Interval    time.Duration
	// QueueSize bounds the bar queue. When full the reader blocks, it
	// never drops bars, preserving ordering guarantees
	QueueSize int
	// MaxReconnects caps reconnection attempts before the feed reports
	// itself disconnected for good
	MaxReconnects int
}

// Feed subscribes to a websocket bar stream and exposes it through a
// bounded queue consumed by the single threaded step loop
type Feed struct {
	settings Settings
	conn     *websocket.Conn
	queue    chan *kline.Bar
	errs     chan error
	done     chan struct{}
	// limiter paces reconnection attempts
	limiter *rate.Limiter
	log     *logrus.Entry
}

// barMessage is the wire format pushed by the data-access collaborator
type barMessage struct {
	Instrument string  `json:"instrument"`
	Timestamp  int64   `json:"timestamp"`
	Open       float64 `json:"open"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Close      float64 `json:"close"`
	Volume     float64 `json:"volume"`
}

type subscribeMessage struct {
	Type        string   `json:"type"`
	Instruments []string `json:"instruments"`
	// Since resumes the stream from a checkpoint timestamp
	Since int64 `json:"since,omitempty"`
}
