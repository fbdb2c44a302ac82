package strategies

import (
	"testing"

	"github.com/quantview/backtester/strategies/macross"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResolvesEveryRegisteredName(t *testing.T) {
	t.Parallel()
	for _, name := range Names() {
		h, err := New(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, h.Name())
		assert.NotEmpty(t, h.Description(), name)
	}
}

func TestNewIsCaseInsensitive(t *testing.T) {
	t.Parallel()
	h, err := New("MA-Cross")
	require.NoError(t, err)
	assert.Equal(t, macross.Name, h.Name())
}

func TestNewUnknown(t *testing.T) {
	t.Parallel()
	_, err := New("perpetual-motion")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewReturnsIsolatedInstances(t *testing.T) {
	t.Parallel()
	first, err := New(macross.Name)
	require.NoError(t, err)
	second, err := New(macross.Name)
	require.NoError(t, err)

	require.NoError(t, first.SetParameters(map[string]float64{"fast": 5}))
	// the second instance keeps its defaults
	for _, p := range second.Parameters() {
		if p.Name == "fast" {
			assert.Equal(t, p.Default, 10.0)
		}
	}
	assert.NotSame(t, first, second)
}

func TestAll(t *testing.T) {
	t.Parallel()
	all := All()
	assert.Len(t, all, len(Names()))
}
