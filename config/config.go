// Package config loads and validates run declarations from files and
// the environment.
package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Defaults applied before any file or environment override
func defaults(v *viper.Viper) {
	v.SetDefault("data.source", SourceCSV)
	v.SetDefault("data.interval", time.Hour*24)
	v.SetDefault("data.live.queue-size", 64)
	v.SetDefault("data.live.max-reconnects", 5)
	v.SetDefault("exchange.fill-model", "next-open")
	v.SetDefault("portfolio.initial-cash", "100000")
	v.SetDefault("portfolio.leverage-limit", "1")
	v.SetDefault("portfolio.default-weight", "1")
	v.SetDefault("api.listen-address", "localhost:9051")
	v.SetDefault("store.path", "backtester.db")
	v.SetDefault("log.level", "info")
}

// Load reads a config file, layering environment variables prefixed with
// BACKTESTER_ on top, and validates the result
func Load(path string) (*Config, error) {
	v := viper.New()
	defaults(v)
	v.SetEnvPrefix("backtester")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	var cfg Config
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		decimalDecodeHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hooks); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field a run depends on. The first problem is
// returned immediately, a run never starts on a partially bad config
func (c *Config) Validate() error {
	if c.Strategy.Name == "" {
		return fmt.Errorf("%w: strategy name is required", ErrInvalidParameter)
	}
	if c.Data.Source != SourceCSV && c.Data.Source != SourceLive {
		return fmt.Errorf("%w: data source %q", ErrInvalidParameter, c.Data.Source)
	}
	if c.Data.Interval <= 0 {
		return fmt.Errorf("%w: data interval must be positive", ErrInvalidParameter)
	}
	if len(c.Data.Instruments) == 0 {
		return ErrNoInstruments
	}
	for i := range c.Data.Instruments {
		inst := &c.Data.Instruments[i]
		if inst.Name == "" {
			return fmt.Errorf("%w: instrument %d has no name", ErrInvalidParameter, i)
		}
		if c.Data.Source == SourceCSV && inst.CSVPath == "" {
			return fmt.Errorf("%w: instrument %q has no csv path", ErrInvalidParameter, inst.Name)
		}
	}
	if c.Data.Source == SourceLive && c.Data.Live.URL == "" {
		return fmt.Errorf("%w: live source requires a feed url", ErrInvalidParameter)
	}
	if c.Exchange.FillModel != "next-open" && c.Exchange.FillModel != "close-slippage" {
		return fmt.Errorf("%w: fill model %q", ErrInvalidParameter, c.Exchange.FillModel)
	}
	if c.Exchange.CommissionRate.IsNegative() ||
		c.Exchange.SlippageBps.IsNegative() ||
		c.Exchange.ImpactBps.IsNegative() ||
		c.Exchange.MaxVolumeFraction.IsNegative() ||
		c.Exchange.LotSize.IsNegative() {
		return fmt.Errorf("%w: exchange frictions cannot be negative", ErrInvalidParameter)
	}
	if !c.Portfolio.InitialCash.IsPositive() {
		return fmt.Errorf("%w: initial cash must be positive", ErrInvalidParameter)
	}
	if c.Portfolio.MarginEnabled && c.Portfolio.LeverageLimit.LessThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: leverage limit below 1", ErrInvalidParameter)
	}
	return nil
}

// decimalDecodeHook lets viper read decimal fields from strings or
// numbers without passing through float64 precision loss for strings
func decimalDecodeHook() func(from, to reflect.Type, data interface{}) (interface{}, error) {
	decType := reflect.TypeOf(decimal.Decimal{})
	return func(from, to reflect.Type, data interface{}) (interface{}, error) {
		if to != decType {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return decimal.NewFromString(v)
		case float64:
			return decimal.NewFromFloat(v), nil
		case int:
			return decimal.NewFromInt(int64(v)), nil
		case int64:
			return decimal.NewFromInt(v), nil
		}
		return data, nil
	}
}
