package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/game-launcher/internal/domain/install"
	"github.com/oshokin/game-launcher/internal/logger"
)

// Launcher starts executables from an install directory.
type Launcher struct {
	// processes lists running processes; replaced in tests.
	processes func() ([]ps.Process, error)
}

// New creates a launcher backed by the operating system process table.
func New() *Launcher {
	return &Launcher{
		processes: ps.Processes,
	}
}

// Launch starts target/executableName without waiting for it to exit.
// It does not search elsewhere or repair a missing installation.
func (l *Launcher) Launch(ctx context.Context, target install.Target, executableName string) error {
	executable := target.ExecutablePath(executableName)

	info, err := os.Stat(executable)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: game executable not found at %s", install.ErrNotFound, executable)
		}

		return fmt.Errorf("%w: inspect %s: %w", install.ErrLaunch, executable, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%w: game executable not found at %s (is a directory)", install.ErrNotFound, executable)
	}

	// The game must outlive the launcher, so the command is not bound to ctx.
	//nolint:gosec // The path comes from the launcher's own settings.
	cmd := exec.Command(executable)
	cmd.Dir = target.Dir()

	if err = cmd.Start(); err != nil {
		return fmt.Errorf("%w: start %s: %w", install.ErrLaunch, executable, err)
	}

	pid := cmd.Process.Pid
	logger.InfoKV(ctx, "Game started", "executable", executable, "pid", pid)

	// Reap the child so it does not linger as a zombie while the host keeps running.
	go func() {
		waitErr := cmd.Wait()
		logger.DebugKV(context.WithoutCancel(ctx), "Game exited", "pid", pid, "error", waitErr)
	}()

	return nil
}

// Running reports whether a process with the given executable name exists.
func (l *Launcher) Running(executableName string) (bool, error) {
	processes, err := l.processes()
	if err != nil {
		return false, fmt.Errorf("list processes: %w", err)
	}

	self := os.Getpid()
	want := normalizeName(executableName)

	for _, process := range processes {
		if process.Pid() == self {
			continue
		}

		if normalizeName(process.Executable()) == want {
			return true, nil
		}
	}

	return false, nil
}

// normalizeName compares names the way the host does: case-insensitively on Windows.
// Linux truncates process names in /proc to 15 bytes, so longer names compare by prefix.
func normalizeName(name string) string {
	name = filepath.Base(name)

	switch runtime.GOOS {
	case "windows":
		return strings.ToLower(name)
	case "linux":
		if len(name) > linuxCommLength {
			return name[:linuxCommLength]
		}
	}

	return name
}

// linuxCommLength is the visible length of /proc/<pid>/stat process names.
const linuxCommLength = 15
