package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/shepherd/pkg/types"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOperationJournal(t *testing.T) {
	store := newTestStore(t)

	op := &types.RollbackOperation{
		ID:        "op-1",
		Type:      types.RollbackDatabaseOnly,
		Reason:    "bad migration",
		Status:    types.StatusPending,
		StartedAt: time.Now().Truncate(time.Second),
	}
	require.NoError(t, store.SaveOperation(op))

	// Saving again with a new status overwrites, not duplicates.
	op.Status = types.StatusCompleted
	require.NoError(t, store.SaveOperation(op))

	got, err := store.GetOperation("op-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, got.Status)
	assert.Equal(t, "bad migration", got.Reason)

	ops, err := store.ListOperations()
	require.NoError(t, err)
	assert.Len(t, ops, 1)
}

func TestLatestOperationOrdering(t *testing.T) {
	store := newTestStore(t)

	base := time.Now()
	for i, id := range []string{"older", "newest", "middle"} {
		offsets := []time.Duration{-2 * time.Hour, 0, -time.Hour}
		require.NoError(t, store.SaveOperation(&types.RollbackOperation{
			ID:        id,
			StartedAt: base.Add(offsets[i]),
		}))
	}

	latest, err := store.LatestOperation()
	require.NoError(t, err)
	assert.Equal(t, "newest", latest.ID)
}

func TestLatestOperationEmptyJournal(t *testing.T) {
	store := newTestStore(t)
	_, err := store.LatestOperation()
	assert.Error(t, err)
}

func TestGetOperationNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetOperation("nope")
	assert.Error(t, err)
}

func TestBackupCatalog(t *testing.T) {
	store := newTestStore(t)

	rec := &types.BackupRecord{
		ID:        "shepherd-20240101-120000.dump",
		Trigger:   types.TriggerManual,
		SizeBytes: 4096,
		CreatedAt: time.Now().Truncate(time.Second),
		RowCounts: map[string]int64{"orders": 120, "customers": 8},
	}
	require.NoError(t, store.SaveBackup(rec))

	got, err := store.GetBackup(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TriggerManual, got.Trigger)
	assert.Equal(t, int64(120), got.RowCounts["orders"])

	recs, err := store.ListBackups()
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestRolloutStateSnapshot(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetRolloutState()
	assert.Error(t, err, "fresh store has no snapshot")

	state := &types.RolloutState{
		Ladder:     []int{5, 20, 50, 100},
		StepIndex:  2,
		RetryCount: 1,
		MaxRetries: 2,
		UpdatedAt:  time.Now().Truncate(time.Second),
	}
	require.NoError(t, store.SaveRolloutState(state))

	got, err := store.GetRolloutState()
	require.NoError(t, err)
	assert.Equal(t, 2, got.StepIndex)
	assert.Equal(t, 1, got.RetryCount)

	// The snapshot is a singleton; a second save replaces it.
	state.StepIndex = 3
	require.NoError(t, store.SaveRolloutState(state))
	got, err = store.GetRolloutState()
	require.NoError(t, err)
	assert.Equal(t, 3, got.StepIndex)
}
