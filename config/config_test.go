package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Strategy: StrategySetup{Name: "ma-cross"},
		Data: DataSetup{
			Source:   SourceCSV,
			Interval: time.Hour,
			Instruments: []InstrumentSetup{
				{Name: "ACME", CSVPath: "testdata/acme.csv"},
			},
		},
		Exchange: ExchangeSetup{FillModel: "next-open"},
		Portfolio: PortfolioSetup{
			InitialCash: decimal.NewFromInt(100000),
		},
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validConfig().Validate())
}

func TestValidateFailsFast(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"missing strategy", func(c *Config) { c.Strategy.Name = "" }, ErrInvalidParameter},
		{"bad source", func(c *Config) { c.Data.Source = "carrier-pigeon" }, ErrInvalidParameter},
		{"zero interval", func(c *Config) { c.Data.Interval = 0 }, ErrInvalidParameter},
		{"no instruments", func(c *Config) { c.Data.Instruments = nil }, ErrNoInstruments},
		{"nameless instrument", func(c *Config) { c.Data.Instruments[0].Name = "" }, ErrInvalidParameter},
		{"csv without path", func(c *Config) { c.Data.Instruments[0].CSVPath = "" }, ErrInvalidParameter},
		{"bad fill model", func(c *Config) { c.Exchange.FillModel = "telepathy" }, ErrInvalidParameter},
		{"negative commission", func(c *Config) { c.Exchange.CommissionRate = decimal.NewFromInt(-1) }, ErrInvalidParameter},
		{"zero cash", func(c *Config) { c.Portfolio.InitialCash = decimal.Zero }, ErrInvalidParameter},
		{"margin under 1x", func(c *Config) {
			c.Portfolio.MarginEnabled = true
			c.Portfolio.LeverageLimit = decimal.NewFromFloat(0.5)
		}, ErrInvalidParameter},
		{"live without url", func(c *Config) {
			c.Data.Source = SourceLive
			c.Data.Instruments[0].CSVPath = ""
		}, ErrInvalidParameter},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tc.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tc.want)
		})
	}
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	raw := `
strategy:
  name: ma-cross
  parameters:
    fast: 5
    slow: 15
data:
  source: csv
  interval: 1h
  instruments:
    - name: ACME
      csv-path: testdata/acme.csv
exchange:
  fill-model: close-slippage
  commission-rate: "0.001"
  slippage-bps: 5
portfolio:
  initial-cash: "25000"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ma-cross", cfg.Strategy.Name)
	assert.Equal(t, 5.0, cfg.Strategy.Parameters["fast"])
	assert.Equal(t, time.Hour, cfg.Data.Interval)
	assert.Equal(t, "close-slippage", cfg.Exchange.FillModel)
	assert.Equal(t, "0.001", cfg.Exchange.CommissionRate.String())
	assert.Equal(t, "25000", cfg.Portfolio.InitialCash.String())
	// defaults fill what the file omits
	assert.Equal(t, "backtester.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidConfigFails(t *testing.T) {
	t.Parallel()
	raw := `
strategy:
  name: ""
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}
