package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/quantview/backtester/engine"
	"github.com/quantview/backtester/statistics"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sealedRun(id string) *engine.Run {
	return &engine.Run{
		ID:         id,
		Nickname:   "nightly",
		Strategy:   "ma-cross",
		Status:     engine.StatusCompleted,
		StartedAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC),
		Report: statistics.Report{
			InitialEquity:    decimal.NewFromInt(1000),
			FinalEquity:      decimal.NewFromInt(1100),
			CumulativeReturn: decimal.NewFromFloat(0.1),
			TradeCount:       3,
		},
	}
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sealedRun("run-1")))
	got, err := s.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "ma-cross", got.Strategy)
	assert.Equal(t, engine.StatusCompleted, got.Status)
	assert.Equal(t, 3, got.Report.TradeCount)
	assert.True(t, got.Report.FinalEquity.Equal(decimal.NewFromInt(1100)))
}

func TestSaveIsWriteOnce(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sealedRun("run-1")))

	altered := sealedRun("run-1")
	altered.Strategy = "macd"
	assert.ErrorIs(t, s.Save(ctx, altered), ErrDuplicate)

	// the stored artifact is untouched
	got, err := s.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "ma-cross", got.Strategy)
}

func TestGetMissing(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	_, err := s.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	ctx := context.Background()

	older := sealedRun("run-old")
	newer := sealedRun("run-new")
	newer.StartedAt = older.StartedAt.Add(time.Hour)
	require.NoError(t, s.Save(ctx, older))
	require.NoError(t, s.Save(ctx, newer))

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "run-new", got[0].ID)
	assert.Equal(t, "run-old", got[1].ID)
	assert.Equal(t, "nightly", got[0].Nickname)
}
