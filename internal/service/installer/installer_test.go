package installer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/game-launcher/internal/domain/install"
	"github.com/oshokin/game-launcher/internal/service/progress"
)

type entry struct {
	name string
	body string
	mode os.FileMode
}

// buildZip writes entries in the given order.
func buildZip(t *testing.T, entries ...entry) []byte {
	t.Helper()

	var buf bytes.Buffer

	w := zip.NewWriter(&buf)
	for _, e := range entries {
		header := &zip.FileHeader{Name: e.name, Method: zip.Deflate}
		if e.mode != 0 {
			header.SetMode(e.mode)
		}

		f, err := w.CreateHeader(header)
		require.NoError(t, err)

		if e.body != "" {
			_, err = f.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}

	require.NoError(t, w.Close())

	return buf.Bytes()
}

func newTarget(t *testing.T) install.Target {
	t.Helper()

	return install.Target{Root: filepath.Join(t.TempDir(), "appdata"), Subdir: "game"}
}

// listTree returns every path under dir relative to it.
func listTree(t *testing.T, dir string) []string {
	t.Helper()

	var paths []string

	err := filepath.WalkDir(dir, func(p string, _ os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if p == dir {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}

		paths = append(paths, filepath.ToSlash(rel))

		return nil
	})
	require.NoError(t, err)

	return paths
}

// TestInstall_SkipsEscapingEntries extracts safe entries and drops the traversal attempt.
func TestInstall_SkipsEscapingEntries(t *testing.T) {
	t.Parallel()

	target := newTarget(t)
	archive := buildZip(t,
		entry{name: "a/"},
		entry{name: "a/b.txt", body: "hello"},
		entry{name: "../escape.txt", body: "nope"},
	)

	var events []install.Progress

	sink := progress.SinkFunc(func(p install.Progress) { events = append(events, p) })

	require.NoError(t, New().Install(context.Background(), archive, target, sink))

	info, err := os.Stat(filepath.Join(target.Dir(), "a"))
	require.NoError(t, err)
	require.True(t, info.IsDir())

	content, err := os.ReadFile(filepath.Join(target.Dir(), "a", "b.txt"))
	require.NoError(t, err)
	require.Equal(t, "hello", string(content))

	_, err = os.Stat(filepath.Join(target.Root, "escape.txt"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = os.Stat(filepath.Join(filepath.Dir(target.Root), "escape.txt"))
	require.ErrorIs(t, err, os.ErrNotExist)

	require.Equal(t, []string{"a", "a/b.txt"}, listTree(t, target.Dir()))
	require.Equal(t, []install.Progress{{Percentage: 100, Status: install.StatusInstallComplete}}, events)
}

// TestInstall_ReplacesPreviousContents leaves only the new archive's files behind.
func TestInstall_ReplacesPreviousContents(t *testing.T) {
	t.Parallel()

	target := newTarget(t)
	require.NoError(t, os.MkdirAll(filepath.Join(target.Dir(), "saves"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target.Dir(), "old.dll"), []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(target.Dir(), "saves", "slot1"), []byte("old"), 0o644))

	archive := buildZip(t, entry{name: "GameApp.exe", body: "new"})
	require.NoError(t, New().Install(context.Background(), archive, target, nil))

	require.Equal(t, []string{"GameApp.exe"}, listTree(t, target.Dir()))

	// No staging or backup directories survive next to the install.
	siblings, err := os.ReadDir(target.Root)
	require.NoError(t, err)
	require.Len(t, siblings, 1)
	require.Equal(t, "game", siblings[0].Name())
}

// TestInstall_CreatesParentsOnDemand writes files whose directories have no entries.
func TestInstall_CreatesParentsOnDemand(t *testing.T) {
	t.Parallel()

	target := newTarget(t)
	archive := buildZip(t,
		entry{name: "data/levels/1.bin", body: "L1"},
		entry{name: "./readme.txt", body: "r"},
		entry{name: "data/../notes.txt", body: "n"},
	)

	require.NoError(t, New().Install(context.Background(), archive, target, nil))
	require.ElementsMatch(t,
		[]string{"data", "data/levels", "data/levels/1.bin", "readme.txt", "notes.txt"},
		listTree(t, target.Dir()))
}

// TestInstall_InvalidArchive keeps the existing installation untouched.
func TestInstall_InvalidArchive(t *testing.T) {
	t.Parallel()

	target := newTarget(t)
	require.NoError(t, os.MkdirAll(target.Dir(), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target.Dir(), "GameApp.exe"), []byte("v1"), 0o644))

	err := New().Install(context.Background(), []byte("definitely not a zip"), target, nil)
	require.ErrorIs(t, err, install.ErrArchiveFormat)

	content, err := os.ReadFile(filepath.Join(target.Dir(), "GameApp.exe"))
	require.NoError(t, err)
	require.Equal(t, "v1", string(content))
}

// TestInstall_FilesystemFailureKeepsPrevious aborts on a write conflict and cleans staging.
func TestInstall_FilesystemFailureKeepsPrevious(t *testing.T) {
	t.Parallel()

	target := newTarget(t)
	require.NoError(t, os.MkdirAll(target.Dir(), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target.Dir(), "GameApp.exe"), []byte("v1"), 0o644))

	// "a" is a file, so "a/b.txt" cannot be created.
	archive := buildZip(t,
		entry{name: "a", body: "file"},
		entry{name: "a/b.txt", body: "x"},
	)

	err := New().Install(context.Background(), archive, target, nil)
	require.ErrorIs(t, err, install.ErrFilesystem)

	require.Equal(t, []string{"GameApp.exe"}, listTree(t, target.Dir()))

	siblings, err := os.ReadDir(target.Root)
	require.NoError(t, err)
	require.Len(t, siblings, 1)
}

// TestInstall_RemovesLeftovers cleans staging trees of interrupted runs.
func TestInstall_RemovesLeftovers(t *testing.T) {
	t.Parallel()

	target := newTarget(t)
	leftover := filepath.Join(target.Root, ".game-staging-crashed")
	require.NoError(t, os.MkdirAll(leftover, 0o755))

	require.NoError(t, New().Install(context.Background(), buildZip(t, entry{name: "x", body: "x"}), target, nil))

	_, err := os.Stat(leftover)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestInstall_Canceled stops before extracting and keeps the old tree.
func TestInstall_Canceled(t *testing.T) {
	t.Parallel()

	target := newTarget(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New().Install(ctx, buildZip(t, entry{name: "x", body: "x"}), target, nil)
	require.ErrorIs(t, err, install.ErrCanceled)

	_, err = os.Stat(target.Dir())
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestInstall_SkipsSymlinks refuses link entries that could point outside the target.
func TestInstall_SkipsSymlinks(t *testing.T) {
	t.Parallel()

	target := newTarget(t)
	archive := buildZip(t,
		entry{name: "link", body: "/etc/passwd", mode: os.ModeSymlink | 0o777},
		entry{name: "real.txt", body: "ok"},
	)

	require.NoError(t, New().Install(context.Background(), archive, target, nil))
	require.Equal(t, []string{"real.txt"}, listTree(t, target.Dir()))
}

// TestInstall_PreservesExecutableBit keeps unix permissions from the archive.
func TestInstall_PreservesExecutableBit(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not tracked on windows")
	}

	target := newTarget(t)
	archive := buildZip(t,
		entry{name: "run.sh", body: "#!/bin/sh\n", mode: 0o755},
		entry{name: "data.txt", body: "d"},
	)

	require.NoError(t, New().Install(context.Background(), archive, target, nil))

	info, err := os.Stat(filepath.Join(target.Dir(), "run.sh"))
	require.NoError(t, err)
	require.NotZero(t, info.Mode().Perm()&0o100)

	info, err = os.Stat(filepath.Join(target.Dir(), "data.txt"))
	require.NoError(t, err)
	require.NotZero(t, info.Mode().Perm()&0o600)
}

// TestEnclosedName covers the path-safety rules.
func TestEnclosedName(t *testing.T) {
	t.Parallel()

	accepted := map[string]string{
		"a/":           "a",
		"a/b.txt":      filepath.Join("a", "b.txt"),
		"./x":          "x",
		"a/../b":       "b",
		`dir\file.txt`: filepath.Join("dir", "file.txt"),
	}
	for name, want := range accepted {
		got, ok := enclosedName(name)
		require.True(t, ok, name)
		require.Equal(t, want, got, name)
	}

	for _, name := range []string{"", ".", "./", "..", "../escape.txt", "a/../../x", "/etc/passwd", `\\server\share`, `..\x`, "a\x00b"} {
		_, ok := enclosedName(name)
		require.False(t, ok, name)
	}
}
