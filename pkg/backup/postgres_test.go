package backup

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// toolCall records one backup-tool invocation.
type toolCall struct {
	name string
	args []string
}

// fakeTools scripts pg_dump and pg_restore without subprocesses.
type fakeTools struct {
	calls []toolCall
}

func (f *fakeTools) run(ctx context.Context, name string, args ...string) error {
	f.calls = append(f.calls, toolCall{name: name, args: args})
	if name == "pg_dump" {
		// args: --format=custom --file <path> <dsn>
		return os.WriteFile(args[2], []byte("dump"), 0600)
	}
	return nil
}

func (f *fakeTools) count(name string) int {
	n := 0
	for _, c := range f.calls {
		if c.name == name {
			n++
		}
	}
	return n
}

func TestDirectRestoreTakesImplicitSafetyBackup(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "shepherd-20240101-030000.dump", time.Now().Add(-time.Hour))

	tools := &fakeTools{}
	store := NewPostgresStore("postgres://localhost/app", dir, nil)
	store.run = tools.run

	require.NoError(t, store.Restore(context.Background(), "shepherd-20240101-030000.dump"))

	assert.Equal(t, 1, tools.count("pg_dump"), "a direct restore takes its own safety backup")
	assert.Equal(t, 1, tools.count("pg_restore"))

	recs, err := store.List()
	require.NoError(t, err)
	assert.Len(t, recs, 2, "the safety artifact joins the original snapshot")
}

func TestRestoreWithoutImplicitSafetySkipsBackup(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "shepherd-20240101-030000.dump", time.Now().Add(-time.Hour))

	tools := &fakeTools{}
	store := NewPostgresStore("postgres://localhost/app", dir, nil).WithoutImplicitSafety()
	store.run = tools.run

	require.NoError(t, store.Restore(context.Background(), "shepherd-20240101-030000.dump"))

	assert.Zero(t, tools.count("pg_dump"), "the caller already holds a safety backup")
	assert.Equal(t, 1, tools.count("pg_restore"))

	recs, err := store.List()
	require.NoError(t, err)
	assert.Len(t, recs, 1, "no new artifacts appear")
}

func TestRepeatedRestoreYieldsIdenticalRowCounts(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "shepherd-a.dump", time.Now().Add(-time.Hour))

	// Simulated database: pg_restore resets it to the snapshot contents.
	snapshot := map[string]int64{"orders": 120, "customers": 8}
	state := map[string]int64{"orders": 170, "customers": 12}

	store := NewPostgresStore("postgres://localhost/app", dir, nil).WithoutImplicitSafety()
	store.run = func(ctx context.Context, name string, args ...string) error {
		if name == "pg_restore" {
			state = make(map[string]int64, len(snapshot))
			for k, v := range snapshot {
				state[k] = v
			}
		}
		return nil
	}

	var captured []map[string]int64
	store.countRows = func(ctx context.Context) (map[string]int64, error) {
		out := make(map[string]int64, len(state))
		for k, v := range state {
			out[k] = v
		}
		captured = append(captured, out)
		return out, nil
	}

	require.NoError(t, store.Restore(context.Background(), "shepherd-a.dump"))

	// Drift between the two restores.
	state["orders"] += 40

	require.NoError(t, store.Restore(context.Background(), "shepherd-a.dump"))

	// Counts are captured before and after each restore.
	require.Len(t, captured, 4)
	assert.Equal(t, snapshot, captured[1])
	assert.Equal(t, captured[1], captured[3],
		"restoring the same snapshot twice must land on identical row counts")
}
