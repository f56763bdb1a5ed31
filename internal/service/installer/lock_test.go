package installer

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/game-launcher/internal/domain/install"
)

// TestLock_RejectsConcurrentInstall allows one holder per target at a time.
func TestLock_RejectsConcurrentInstall(t *testing.T) {
	t.Parallel()

	target := newTarget(t)

	unlock, err := Lock(context.Background(), target)
	require.NoError(t, err)

	_, err = os.Stat(markerPath(target))
	require.NoError(t, err)

	_, err = Lock(context.Background(), target)
	require.ErrorIs(t, err, install.ErrInstallInProgress)

	// Another target is independent.
	other := install.Target{Root: target.Root, Subdir: "other"}
	unlockOther, err := Lock(context.Background(), other)
	require.NoError(t, err)
	unlockOther()

	unlock()

	_, err = os.Stat(markerPath(target))
	require.ErrorIs(t, err, os.ErrNotExist)

	unlock, err = Lock(context.Background(), target)
	require.NoError(t, err)
	unlock()
}

// TestLock_LiveForeignMarker refuses a marker owned by a running process.
func TestLock_LiveForeignMarker(t *testing.T) {
	t.Parallel()

	target := newTarget(t)
	require.NoError(t, os.MkdirAll(target.Root, 0o755))
	require.NoError(t, os.WriteFile(markerPath(target), []byte(strconv.Itoa(os.Getppid())), 0o600))

	_, err := Lock(context.Background(), target)
	require.ErrorIs(t, err, install.ErrInstallInProgress)
}

// TestLock_StaleMarker replaces markers whose owner has exited.
func TestLock_StaleMarker(t *testing.T) {
	t.Parallel()

	target := newTarget(t)
	require.NoError(t, os.MkdirAll(target.Root, 0o755))

	// Above the largest PID Linux can assign.
	require.NoError(t, os.WriteFile(markerPath(target), []byte("4194999"), 0o600))

	unlock, err := Lock(context.Background(), target)
	require.NoError(t, err)

	contents, err := os.ReadFile(filepath.Clean(markerPath(target)))
	require.NoError(t, err)
	require.Equal(t, strconv.Itoa(os.Getpid()), string(contents))

	unlock()
}

// TestLock_FreshUnreadableMarker waits out the grace period of a marker being written.
func TestLock_FreshUnreadableMarker(t *testing.T) {
	t.Parallel()

	target := newTarget(t)
	require.NoError(t, os.MkdirAll(target.Root, 0o755))
	require.NoError(t, os.WriteFile(markerPath(target), nil, 0o600))

	_, err := Lock(context.Background(), target)
	require.ErrorIs(t, err, install.ErrInstallInProgress)
}
