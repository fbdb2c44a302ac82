package base

import (
	"testing"
	"time"

	"github.com/quantview/backtester/common"
	"github.com/quantview/backtester/eventtypes/event"
	"github.com/quantview/backtester/eventtypes/kline"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func declared() *Strategy {
	s := &Strategy{}
	s.Declare(
		Parameter{Name: "period", Default: 20, Min: 2, Max: 100},
		Parameter{Name: "risk", Default: 0.01, Min: 0.001, Max: 0.1},
	)
	return s
}

func TestDeclareSeedsDefaults(t *testing.T) {
	t.Parallel()
	s := declared()
	assert.Equal(t, 20.0, s.Param("period"))
	assert.Equal(t, 20, s.IntParam("period"))
	assert.Len(t, s.Parameters(), 2)
}

func TestSetParametersValidates(t *testing.T) {
	t.Parallel()
	s := declared()

	err := s.SetParameters(map[string]float64{"mystery": 5})
	assert.ErrorIs(t, err, ErrInvalidParameter)

	err = s.SetParameters(map[string]float64{"period": 1000})
	assert.ErrorIs(t, err, ErrInvalidParameter)

	require.NoError(t, s.SetParameters(map[string]float64{"period": 50}))
	assert.Equal(t, 50.0, s.Param("period"))
}

func TestSetParametersIsAtomic(t *testing.T) {
	t.Parallel()
	s := declared()

	err := s.SetParameters(map[string]float64{"period": 50, "risk": 99})
	assert.ErrorIs(t, err, ErrInvalidParameter)
	// the valid half of a failed batch must not apply
	assert.Equal(t, 20.0, s.Param("period"))
}

func TestNewSignalCopiesBarIdentity(t *testing.T) {
	t.Parallel()
	bar := &kline.Bar{
		Base: event.Base{
			Instrument: "ACME",
			Time:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Interval:   time.Hour,
			Offset:     7,
		},
		Close: decimal.NewFromInt(100),
	}
	sig := NewSignal(bar, common.Long, "testing")
	assert.Equal(t, "ACME", sig.GetInstrument())
	assert.Equal(t, int64(7), sig.GetOffset())
	assert.Equal(t, common.Long, sig.GetDirection())
	assert.Equal(t, "100", sig.GetClosePrice().String())
	assert.Equal(t, "testing", sig.GetReason())
}
