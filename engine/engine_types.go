package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/quantview/backtester/config"
	"github.com/quantview/backtester/data"
	"github.com/quantview/backtester/eventtypes/kline"
	"github.com/quantview/backtester/eventtypes/order"
	"github.com/quantview/backtester/eventtypes/signal"
	"github.com/quantview/backtester/exchange"
	"github.com/quantview/backtester/factors"
	"github.com/quantview/backtester/portfolio"
	"github.com/quantview/backtester/statistics"
	"github.com/quantview/backtester/strategies"
	"github.com/sirupsen/logrus"
)

// Status is the lifecycle state of a run
type Status string

const (
	// StatusInitialized means constructed but never started
	StatusInitialized Status = "initialized"
	// StatusRunning means the step loop is executing
	StatusRunning Status = "running"
	// StatusPaused means the loop is held between steps
	StatusPaused Status = "paused"
	// StatusCompleted means the run finished and sealed its artifact
	StatusCompleted Status = "completed"
	// StatusFailed means the run aborted on an error
	StatusFailed Status = "failed"
	// StatusCancelled means the run was stopped between steps
	StatusCancelled Status = "cancelled"
)

var (
	// ErrNotRunning guards pause and stop against idle runs
	ErrNotRunning = errors.New("run is not running")
	// ErrNotPaused guards resume against runs that were never paused
	ErrNotPaused = errors.New("run is not paused")
	// ErrAlreadyRan prevents reusing a sealed backtest
	ErrAlreadyRan = errors.New("run already executed")
	// ErrRunNotFound is returned by the manager for unknown run IDs
	ErrRunNotFound = errors.New("run not found")
)

// Checkpoint records resumable progress after a completed step
type Checkpoint struct {
	Offset    int64             `json:"offset"`
	Timestamp time.Time         `json:"timestamp"`
	Account   portfolio.Account `json:"account"`
}

// Run is the sealed, immutable artifact of a finished session
type Run struct {
	ID         string              `json:"id"`
	Nickname   string              `json:"nickname"`
	Strategy   string              `json:"strategy"`
	Config     *config.Config      `json:"config"`
	Status     Status              `json:"status"`
	StartedAt  time.Time           `json:"startedAt"`
	FinishedAt time.Time           `json:"finishedAt"`
	Snapshots  []portfolio.Account `json:"snapshots"`
	Orders     []order.Order       `json:"orders"`
	Trades     []portfolio.Trade   `json:"trades"`
	Report     statistics.Report   `json:"report"`
	Error      string              `json:"error,omitempty"`
}

// liveSource is the surface the live loop needs from a streaming feed
type liveSource interface {
	Start(ctx context.Context, since time.Time) error
	Next(ctx context.Context) (*kline.Bar, error)
	TryNext() (*kline.Bar, bool)
	Stop()
}

// BackTest wires one strategy, one feed and one ledger into a step loop.
// Each BackTest owns all of its components, nothing is shared between
// concurrent runs
type BackTest struct {
	id       string
	cfg      *config.Config
	feed     *data.Feed
	factors  *factors.Engine
	strategy strategies.Handler
	exchange *exchange.Simulator
	ledger   *portfolio.Ledger
	stats    *statistics.Collector
	liveFeed liveSource
	log      *logrus.Entry

	mu         sync.RWMutex
	cond       *sync.Cond
	status     Status
	checkpoint Checkpoint
	orders     []order.Order
	run        *Run

	subMu       sync.Mutex
	subscribers []chan signal.Event
}
