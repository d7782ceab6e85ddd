package lockfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "op.lock")

	lock, err := Acquire(path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n")

	require.NoError(t, lock.Release())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSecondAcquireFailsWhileHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "op.lock")

	lock, err := Acquire(path)
	require.NoError(t, err)
	defer lock.Release()

	// The holder is this very process, so it is definitely alive.
	_, err = Acquire(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "another operation is in progress")
}

func TestStaleLockIsReclaimed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "op.lock")

	// A pid far above any plausible live process.
	require.NoError(t, os.WriteFile(path, []byte("999999999\n"), 0600))

	lock, err := Acquire(path)
	require.NoError(t, err)
	defer lock.Release()
}

func TestGarbageLockIsReclaimed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "op.lock")
	require.NoError(t, os.WriteFile(path, []byte("not a pid\n"), 0600))

	lock, err := Acquire(path)
	require.NoError(t, err)
	defer lock.Release()
}

func TestReleaseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "op.lock")

	lock, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, lock.Release())
	assert.NoError(t, lock.Release())
}
