package market

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteCache_UpsertAndRecent(t *testing.T) {
	cache, err := NewSQLiteCache(filepath.Join(t.TempDir(), "nested", "bars.db"))
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	d := func(day int) time.Time { return time.Date(2025, 1, day, 0, 0, 0, 0, time.UTC) }
	require.NoError(t, cache.Upsert(ctx, "^NSEI", []Bar{
		{Date: d(2), Open: 100, High: 110, Low: 95, Close: 105},
		{Date: d(3), Open: 104, High: 120, Low: 100, Close: 118},
		{Date: d(6), Open: 110, High: 115, Low: 105, Close: 112},
	}))
	require.NoError(t, cache.Upsert(ctx, "^NSEI", []Bar{
		{Date: d(6), Open: 111, High: 116, Low: 106, Close: 113},
	}))
	require.NoError(t, cache.Upsert(ctx, "^BSESN", []Bar{
		{Date: d(6), Open: 1, High: 1, Low: 1, Close: 1},
	}))

	bars, err := cache.Recent(ctx, "^NSEI", 2)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, d(3), bars[0].Date)
	assert.Equal(t, d(6), bars[1].Date)
	assert.Equal(t, 111.0, bars[1].Open)

	none, err := cache.Recent(ctx, "^NSEI", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteCache_ClosedRejectsWrites(t *testing.T) {
	cache, err := NewSQLiteCache(filepath.Join(t.TempDir(), "bars.db"))
	require.NoError(t, err)
	require.NoError(t, cache.Close())
	require.NoError(t, cache.Close())
	err = cache.Upsert(context.Background(), "^NSEI", []Bar{{Date: time.Now(), Open: 1, High: 1, Low: 1, Close: 1}})
	assert.Error(t, err)
}
