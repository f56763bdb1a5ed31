package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/game-launcher/internal/domain/install"
	"github.com/oshokin/game-launcher/internal/logger"
)

const (
	// markerSuffix names the lock marker next to the install directory.
	markerSuffix = ".lock"

	// markerGracePeriod protects a marker whose owner has not written its PID yet.
	markerGracePeriod = 30 * time.Second

	markerFileMode os.FileMode = 0o600
)

var (
	//nolint:gochecknoglobals // Installs must be serialized process-wide, not per service instance.
	heldMu sync.Mutex
	//nolint:gochecknoglobals // Keyed by cleaned install directory.
	held = make(map[string]struct{}, 1)
)

// Lock reserves target for one install run and returns the function releasing it.
// A second Lock on the same target, from this process or another one, fails
// with install.ErrInstallInProgress until the first is released.
func Lock(ctx context.Context, target install.Target) (func(), error) {
	key := filepath.Clean(target.Dir())

	heldMu.Lock()
	if _, busy := held[key]; busy {
		heldMu.Unlock()

		return nil, fmt.Errorf("%w: %s", install.ErrInstallInProgress, key)
	}

	held[key] = struct{}{}
	heldMu.Unlock()

	release := func() {
		heldMu.Lock()
		delete(held, key)
		heldMu.Unlock()
	}

	marker := markerPath(target)
	if err := acquireMarker(ctx, marker); err != nil {
		release()

		return nil, err
	}

	logger.DebugKV(ctx, "Install lock acquired", "marker", marker)

	return func() {
		if err := os.Remove(marker); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.WarnKV(ctx, "Could not remove install marker", "path", marker, "error", err)
		}

		release()
	}, nil
}

// acquireMarker creates the marker file exclusively, replacing it once if its owner is gone.
func acquireMarker(ctx context.Context, marker string) error {
	if err := os.MkdirAll(filepath.Dir(marker), DefaultDirMode); err != nil {
		return fmt.Errorf("%w: create data directory: %w", install.ErrFilesystem, err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		file, err := os.OpenFile(marker, os.O_CREATE|os.O_EXCL|os.O_WRONLY, markerFileMode)
		if err == nil {
			_, writeErr := file.WriteString(strconv.Itoa(os.Getpid()))
			closeErr := file.Close()

			if writeErr != nil || closeErr != nil {
				_ = os.Remove(marker)

				return fmt.Errorf("%w: write install marker: %w", install.ErrFilesystem, errors.Join(writeErr, closeErr))
			}

			return nil
		}

		if !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: create install marker: %w", install.ErrFilesystem, err)
		}

		owner, stale, err := inspectMarker(marker)
		if err != nil {
			return err
		}

		if !stale {
			return fmt.Errorf("%w: held by process %d", install.ErrInstallInProgress, owner)
		}

		logger.InfoKV(ctx, "Removing stale install marker", "path", marker, "owner", owner)

		if err = os.Remove(marker); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: remove stale install marker: %w", install.ErrFilesystem, err)
		}
	}

	return fmt.Errorf("%w: marker %s keeps reappearing", install.ErrInstallInProgress, marker)
}

// inspectMarker reads the owner PID and decides whether the marker is abandoned.
func inspectMarker(marker string) (int, bool, error) {
	info, err := os.Stat(marker)
	if errors.Is(err, os.ErrNotExist) {
		return 0, true, nil
	}

	if err != nil {
		return 0, false, fmt.Errorf("%w: inspect install marker: %w", install.ErrFilesystem, err)
	}

	contents, err := os.ReadFile(filepath.Clean(marker))
	if err != nil {
		return 0, false, fmt.Errorf("%w: read install marker: %w", install.ErrFilesystem, err)
	}

	owner, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil {
		return 0, time.Since(info.ModTime()) > markerGracePeriod, nil
	}

	// The process-wide map already guards this process, so its own PID means a leftover.
	if owner == os.Getpid() {
		return owner, true, nil
	}

	process, err := ps.FindProcess(owner)
	if err != nil {
		return owner, false, fmt.Errorf("%w: look up marker owner: %w", install.ErrFilesystem, err)
	}

	return owner, process == nil, nil
}

func markerPath(target install.Target) string {
	return filepath.Join(target.Root, "."+target.Subdir+markerSuffix)
}
