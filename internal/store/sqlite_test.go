package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takp-dkp/lootledger/internal/model"
)

func newTestHistory(t *testing.T) *HistoryStore {
	t.Helper()
	s, err := NewHistory(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestHistory_RecordAndList(t *testing.T) {
	s := newTestHistory(t)
	ctx := context.Background()

	stats := model.RunStats{RowsTotal: 10, Preserved: 3, Decided: 5, Unassigned: 1, Skipped: 1}
	rec, err := s.RecordRun(ctx, model.ModeIncremental, "data/raid_loot.csv", stats)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "incremental", got.Mode)
	assert.Equal(t, "data/raid_loot.csv", got.LedgerPath)
	assert.Equal(t, stats, got.Stats)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestHistory_ListLimit(t *testing.T) {
	s := newTestHistory(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.RecordRun(ctx, model.ModeRecompute, "loot.csv", model.RunStats{RowsTotal: i})
		require.NoError(t, err)
	}

	runs, err := s.ListRuns(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, runs, 3)

	// A non-positive limit falls back to the default.
	runs, err = s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 5)
}

func TestHistory_MigrateIdempotent(t *testing.T) {
	s := newTestHistory(t)
	require.NoError(t, s.Migrate(context.Background()))
}
