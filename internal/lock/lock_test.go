package lock

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	exerrors "github.com/randalmurphal/dashexport/internal/errors"
)

func writeLockFile(t *testing.T, path string, lock *Lock) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	data, err := yaml.Marshal(lock)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestNoOpLocker_AlwaysSucceeds(t *testing.T) {
	var locker Locker = NoOpLocker{}
	assert.NoError(t, locker.Acquire("bob"))
	assert.NoError(t, locker.Acquire("bob"))
	assert.NoError(t, locker.Release("bob"))
}

func TestFileLocker_AcquireRelease(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tmp", "dashexport")
	locker := NewFileLocker(dir, time.Minute)

	require.NoError(t, locker.Acquire("bob"))

	holder, err := locker.Holder("bob")
	require.NoError(t, err)
	require.NotNil(t, holder)
	assert.Equal(t, os.Getpid(), holder.PID)
	assert.Equal(t, locker.RunID(), holder.RunID)
	assert.Equal(t, DefaultOwner(), holder.Owner)
	assert.Equal(t, time.Minute, holder.TTLDuration())

	require.NoError(t, locker.Release("bob"))
	_, err = os.Stat(locker.Path("bob"))
	assert.True(t, os.IsNotExist(err), "lock file should be removed")
}

func TestFileLocker_ReacquireOwnLock(t *testing.T) {
	locker := NewFileLocker(t.TempDir(), time.Minute)

	require.NoError(t, locker.Acquire("bob"))
	require.NoError(t, locker.Acquire("bob"))
	require.NoError(t, locker.Release("bob"))
}

func TestFileLocker_LiveHolderBlocks(t *testing.T) {
	dir := t.TempDir()
	first := NewFileLocker(dir, time.Minute)
	second := NewFileLocker(dir, time.Minute)

	require.NoError(t, first.Acquire("bob"))

	err := second.Acquire("bob")
	require.Error(t, err)
	assert.ErrorIs(t, err, exerrors.ErrExportLocked)

	// A different user is independent.
	require.NoError(t, second.Acquire("alice"))

	// Release by a non-holder leaves the lock alone.
	require.NoError(t, second.Release("bob"))
	holder, err := first.Holder("bob")
	require.NoError(t, err)
	require.NotNil(t, holder)
	assert.Equal(t, first.RunID(), holder.RunID)
}

func TestFileLocker_TakesOverStaleLocks(t *testing.T) {
	tests := []struct {
		name string
		lock *Lock
	}{
		{
			name: "dead process",
			lock: &Lock{Owner: "ghost@host", PID: 0, RunID: "old", Acquired: time.Now().UTC(), TTL: "10m"},
		},
		{
			name: "expired",
			lock: &Lock{Owner: "slow@host", PID: os.Getpid(), RunID: "old", Acquired: time.Now().Add(-time.Hour).UTC(), TTL: "1m"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			locker := NewFileLocker(t.TempDir(), time.Minute)
			writeLockFile(t, locker.Path("bob"), tt.lock)

			require.NoError(t, locker.Acquire("bob"))

			holder, err := locker.Holder("bob")
			require.NoError(t, err)
			assert.Equal(t, locker.RunID(), holder.RunID)
		})
	}
}

func TestFileLocker_CorruptLockIsTakenOver(t *testing.T) {
	locker := NewFileLocker(t.TempDir(), time.Minute)
	require.NoError(t, os.WriteFile(locker.Path("bob"), []byte("{{{ not yaml"), 0o644))

	require.NoError(t, locker.Acquire("bob"))
}

func TestFileLocker_ReleaseWithoutLock(t *testing.T) {
	locker := NewFileLocker(t.TempDir(), time.Minute)
	assert.NoError(t, locker.Release("bob"))

	holder, err := locker.Holder("bob")
	assert.NoError(t, err)
	assert.Nil(t, holder)
}

func TestLock_TTLDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, (&Lock{TTL: "5s"}).TTLDuration())
	assert.Equal(t, DefaultTTL, (&Lock{TTL: "garbage"}).TTLDuration())
	assert.Equal(t, DefaultTTL, (&Lock{}).TTLDuration())
}

func TestProcessExists(t *testing.T) {
	assert.True(t, processExists(os.Getpid()))
	assert.False(t, processExists(0))
	assert.False(t, processExists(-1))
}
