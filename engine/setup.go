package engine

import (
	"fmt"
	"sync"

	"github.com/gofrs/uuid"
	"github.com/quantview/backtester/config"
	"github.com/quantview/backtester/data"
	"github.com/quantview/backtester/data/kline"
	"github.com/quantview/backtester/data/live"
	"github.com/quantview/backtester/exchange"
	"github.com/quantview/backtester/factors"
	"github.com/quantview/backtester/portfolio"
	"github.com/quantview/backtester/statistics"
	"github.com/quantview/backtester/strategies"
	"github.com/sirupsen/logrus"
)

// NewFromConfig assembles a ready-to-run backtest from a validated
// config. Construction loads all CSV data eagerly so a bad file fails
// here, not mid-run
func NewFromConfig(cfg *config.Config, log *logrus.Logger) (*BackTest, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", config.ErrInvalidParameter)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}

	strat, err := strategies.New(cfg.Strategy.Name)
	if err != nil {
		return nil, err
	}
	if len(cfg.Strategy.Parameters) > 0 {
		if err = strat.SetParameters(cfg.Strategy.Parameters); err != nil {
			return nil, err
		}
	}

	feed := data.NewFeed()
	var liveFeed *live.Feed
	switch cfg.Data.Source {
	case config.SourceCSV:
		for i := range cfg.Data.Instruments {
			inst := cfg.Data.Instruments[i]
			handler, err := kline.FromCSV(inst.CSVPath, inst.Name, cfg.Data.Interval)
			if err != nil {
				return nil, fmt.Errorf("load %q: %w", inst.Name, err)
			}
			handler.GapTolerance = cfg.Data.GapTolerance
			if err = handler.Load(); err != nil {
				return nil, fmt.Errorf("load %q: %w", inst.Name, err)
			}
			feed.SetHandler(inst.Name, handler)
		}
	case config.SourceLive:
		names := make([]string, 0, len(cfg.Data.Instruments))
		for i := range cfg.Data.Instruments {
			inst := cfg.Data.Instruments[i]
			names = append(names, inst.Name)
			handler := &kline.DataFromKline{
				Instrument:   inst.Name,
				Interval:     cfg.Data.Interval,
				GapTolerance: cfg.Data.GapTolerance,
			}
			feed.SetHandler(inst.Name, handler)
		}
		liveFeed, err = live.NewFeed(live.Settings{
			URL:           cfg.Data.Live.URL,
			Instruments:   names,
			Interval:      cfg.Data.Interval,
			QueueSize:     cfg.Data.Live.QueueSize,
			MaxReconnects: cfg.Data.Live.MaxReconnects,
		}, log)
		if err != nil {
			return nil, err
		}
	}

	var exchOpts []exchange.Option
	var ledgerOpts []portfolio.Option
	if cfg.Portfolio.MarginEnabled {
		exchOpts = append(exchOpts, exchange.WithMargin(cfg.Portfolio.LeverageLimit))
		ledgerOpts = append(ledgerOpts, portfolio.WithMargin(cfg.Portfolio.LeverageLimit))
	}
	if cfg.Portfolio.DefaultWeight.IsPositive() {
		exchOpts = append(exchOpts, exchange.WithDefaultWeight(cfg.Portfolio.DefaultWeight))
	}

	sim, err := exchange.New(exchange.FillModel(cfg.Exchange.FillModel), log, exchOpts...)
	if err != nil {
		return nil, err
	}
	sim.SetSettings(exchange.Settings{
		CommissionRate:    cfg.Exchange.CommissionRate,
		MinimumCommission: cfg.Exchange.MinimumCommission,
		SlippageBps:       cfg.Exchange.SlippageBps,
		ImpactBps:         cfg.Exchange.ImpactBps,
		MaxVolumeFraction: cfg.Exchange.MaxVolumeFraction,
		LotSize:           cfg.Exchange.LotSize,
	})

	ledger, err := portfolio.NewLedger(cfg.Portfolio.InitialCash, ledgerOpts...)
	if err != nil {
		return nil, err
	}

	stats := statistics.NewCollector()
	stats.SetRiskFreeRate(cfg.Statistics.RiskFreeRate)

	bt := &BackTest{
		id:       id.String(),
		cfg:      cfg,
		feed:     feed,
		factors:  factors.NewEngine(feed),
		strategy: strat,
		exchange: sim,
		ledger:   ledger,
		stats:    stats,
		status:   StatusInitialized,
		log: log.WithFields(logrus.Fields{
			"run":      id.String(),
			"strategy": strat.Name(),
		}),
	}
	if liveFeed != nil {
		bt.liveFeed = liveFeed
	}
	bt.cond = sync.NewCond(&bt.mu)
	return bt, nil
}

// ID returns the run identifier
func (bt *BackTest) ID() string {
	return bt.id
}

// Strategy returns the wired strategy handler
func (bt *BackTest) Strategy() strategies.Handler {
	return bt.strategy
}
