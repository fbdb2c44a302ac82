package config

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidParameter is returned by Validate for any unusable value.
	// Validation fails fast before a run starts, never mid-run
	ErrInvalidParameter = errors.New("invalid configuration parameter")
	// ErrNoInstruments means the data section declares nothing to trade
	ErrNoInstruments = errors.New("no instruments configured")
)

// Config is the complete declaration of one backtest or live session
type Config struct {
	Nickname   string          `json:"nickname" mapstructure:"nickname"`
	Strategy   StrategySetup   `json:"strategy" mapstructure:"strategy"`
	Data       DataSetup       `json:"data" mapstructure:"data"`
	Exchange   ExchangeSetup   `json:"exchange" mapstructure:"exchange"`
	Portfolio  PortfolioSetup  `json:"portfolio" mapstructure:"portfolio"`
	Statistics StatisticsSetup `json:"statistics" mapstructure:"statistics"`
	API        APISetup        `json:"api" mapstructure:"api"`
	Store      StoreSetup      `json:"store" mapstructure:"store"`
	Log        LogSetup        `json:"log" mapstructure:"log"`
}

// StrategySetup names the strategy and its parameter overrides
type StrategySetup struct {
	Name       string             `json:"name" mapstructure:"name"`
	Parameters map[string]float64 `json:"parameters" mapstructure:"parameters"`
}

// DataSetup declares where bars come from
type DataSetup struct {
	Source   string        `json:"source" mapstructure:"source"`
	Interval time.Duration `json:"interval" mapstructure:"interval"`
	// GapTolerance is how many consecutive missing intervals are accepted
	// before a data stream is considered broken
	GapTolerance int64             `json:"gapTolerance" mapstructure:"gap-tolerance"`
	Instruments  []InstrumentSetup `json:"instruments" mapstructure:"instruments"`
	Live         LiveSetup         `json:"live" mapstructure:"live"`
}

// InstrumentSetup binds one instrument to its candle source
type InstrumentSetup struct {
	Name    string `json:"name" mapstructure:"name"`
	CSVPath string `json:"csvPath" mapstructure:"csv-path"`
}

// LiveSetup configures the websocket feed for live sessions
type LiveSetup struct {
	URL           string `json:"url" mapstructure:"url"`
	QueueSize     int    `json:"queueSize" mapstructure:"queue-size"`
	MaxReconnects int    `json:"maxReconnects" mapstructure:"max-reconnects"`
}

// ExchangeSetup configures the execution simulator
type ExchangeSetup struct {
	FillModel         string          `json:"fillModel" mapstructure:"fill-model"`
	CommissionRate    decimal.Decimal `json:"commissionRate" mapstructure:"commission-rate"`
	MinimumCommission decimal.Decimal `json:"minimumCommission" mapstructure:"minimum-commission"`
	SlippageBps       decimal.Decimal `json:"slippageBps" mapstructure:"slippage-bps"`
	ImpactBps         decimal.Decimal `json:"impactBps" mapstructure:"impact-bps"`
	MaxVolumeFraction decimal.Decimal `json:"maxVolumeFraction" mapstructure:"max-volume-fraction"`
	LotSize           decimal.Decimal `json:"lotSize" mapstructure:"lot-size"`
}

// PortfolioSetup configures the ledger
type PortfolioSetup struct {
	InitialCash   decimal.Decimal `json:"initialCash" mapstructure:"initial-cash"`
	MarginEnabled bool            `json:"marginEnabled" mapstructure:"margin-enabled"`
	LeverageLimit decimal.Decimal `json:"leverageLimit" mapstructure:"leverage-limit"`
	DefaultWeight decimal.Decimal `json:"defaultWeight" mapstructure:"default-weight"`
}

// StatisticsSetup configures reporting
type StatisticsSetup struct {
	RiskFreeRate decimal.Decimal `json:"riskFreeRate" mapstructure:"risk-free-rate"`
}

// APISetup configures the REST server
type APISetup struct {
	Enabled        bool     `json:"enabled" mapstructure:"enabled"`
	ListenAddress  string   `json:"listenAddress" mapstructure:"listen-address"`
	AllowedOrigins []string `json:"allowedOrigins" mapstructure:"allowed-origins"`
}

// StoreSetup configures run persistence
type StoreSetup struct {
	Path string `json:"path" mapstructure:"path"`
}

// LogSetup configures structured logging
type LogSetup struct {
	Level string `json:"level" mapstructure:"level"`
	JSON  bool   `json:"json" mapstructure:"json"`
}

// Data source names
const (
	SourceCSV  = "csv"
	SourceLive = "live"
)
