package gormstore

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"niftyfib/internal/store"
	"niftyfib/internal/store/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	s, err := NewGormStore(filepath.Join(t.TempDir(), "db", "niftyfib.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGormStore_Runs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		require.NoError(t, s.SaveRun(ctx, &model.BacktestRunModel{
			ID:          fmt.Sprintf("run-%d", i),
			Symbol:      "NIFTY50",
			CompletedAt: int64(i * 1000),
			TotalDays:   24,
			Triggers:    i,
			Records:     datatypes.JSON(`[{"date":"01/03/2025"}]`),
		}))
	}

	runs, err := s.ListRuns(ctx, "NIFTY50", 10)
	require.NoError(t, err)
	require.Len(t, runs, 4)
	assert.Equal(t, "run-4", runs[0].ID)
	assert.Empty(t, runs[0].Records)

	got, err := s.GetRun(ctx, "run-2")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Triggers)
	assert.JSONEq(t, `[{"date":"01/03/2025"}]`, string(got.Records))

	_, err = s.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	removed, err := s.PruneRuns(ctx, "NIFTY50", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
	runs, err = s.ListRuns(ctx, "NIFTY50", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-4", runs[0].ID)
	assert.Equal(t, "run-3", runs[1].ID)
}

func TestGormStore_SaveRunRequiresID(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.SaveRun(context.Background(), &model.BacktestRunModel{}))
}

func TestGormStore_AlertsDeduplicateByDay(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inserted, err := s.RecordAlert(ctx, &model.AlertModel{ID: "a1", Symbol: "NIFTY50", Day: "2025-01-03", Buy50: 105})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.RecordAlert(ctx, &model.AlertModel{ID: "a2", Symbol: "NIFTY50", Day: "2025-01-03", Buy50: 106})
	require.NoError(t, err)
	assert.False(t, inserted)

	inserted, err = s.RecordAlert(ctx, &model.AlertModel{ID: "a3", Symbol: "NIFTY50", Day: "2025-01-06"})
	require.NoError(t, err)
	assert.True(t, inserted)

	require.NoError(t, s.MarkDelivered(ctx, "NIFTY50", "2025-01-06", true))

	days, err := s.AlertedDays(ctx, "NIFTY50", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-06", "2025-01-03"}, days)

	other, err := s.AlertedDays(ctx, "BANKNIFTY", 10)
	require.NoError(t, err)
	assert.Empty(t, other)
}
