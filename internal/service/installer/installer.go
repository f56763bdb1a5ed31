package installer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"

	"github.com/oshokin/game-launcher/internal/domain/install"
	"github.com/oshokin/game-launcher/internal/logger"
	"github.com/oshokin/game-launcher/internal/service/progress"
)

const (
	// DefaultDirMode is used for every directory created during extraction.
	DefaultDirMode os.FileMode = 0o755

	// DefaultFileMode is used for entries that carry no permission bits.
	DefaultFileMode os.FileMode = 0o644

	// ownerReadWrite is always granted so the next install can remove the tree.
	ownerReadWrite os.FileMode = 0o600

	stagingInfix = "-staging-"
	backupInfix  = "-old-"
)

// Installer extracts archives into install targets.
type Installer struct{}

// New creates an installer.
func New() *Installer {
	return &Installer{}
}

// Install replaces target's directory with the extracted archive.
//
// Entries are written in archive order into a staging directory. Entries whose
// names cannot be confined to the target are skipped. Once every entry has been
// written the staging directory replaces the target by rename.
func (i *Installer) Install(ctx context.Context, archive []byte, target install.Target, sink progress.Sink) error {
	if sink == nil {
		sink = progress.Discard
	}

	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return fmt.Errorf("%w: open archive: %w", install.ErrArchiveFormat, err)
	}

	if err = os.MkdirAll(target.Root, DefaultDirMode); err != nil {
		return fmt.Errorf("%w: create data directory: %w", install.ErrFilesystem, err)
	}

	removeLeftovers(ctx, target)

	staging := scratchDir(target, stagingInfix)
	if err = os.Mkdir(staging, DefaultDirMode); err != nil {
		return fmt.Errorf("%w: create staging directory: %w", install.ErrFilesystem, err)
	}

	// Until the swap succeeds the staging tree belongs to this call alone.
	swapped := false

	defer func() {
		if swapped {
			return
		}

		if removeErr := os.RemoveAll(staging); removeErr != nil {
			logger.WarnKV(ctx, "Could not remove staging directory", "path", staging, "error", removeErr)
		}
	}()

	written, skipped, err := extract(ctx, reader, staging)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Archive extracted", "entries", written, "skipped", skipped, "staging", staging)

	if err = swap(ctx, staging, target); err != nil {
		return err
	}

	swapped = true

	sink.Report(install.Progress{Percentage: 100, Status: install.StatusInstallComplete})
	logger.InfoKV(ctx, "Installation complete", "path", target.Dir())

	return nil
}

// extract writes every safe entry under root and returns the written and skipped counts.
func extract(ctx context.Context, reader *zip.Reader, root string) (int, int, error) {
	var written, skipped int

	for _, entry := range reader.File {
		if err := ctx.Err(); err != nil {
			return written, skipped, fmt.Errorf("%w: extraction interrupted: %w", install.ErrCanceled, err)
		}

		relative, ok := enclosedName(entry.Name)
		if !ok || entry.Mode()&os.ModeSymlink != 0 {
			logger.WarnKV(ctx, "Skipping unsafe archive entry", "name", entry.Name)

			skipped++

			continue
		}

		destination := filepath.Join(root, relative)

		if strings.HasSuffix(entry.Name, "/") {
			if err := os.MkdirAll(destination, DefaultDirMode); err != nil {
				return written, skipped, fmt.Errorf("%w: create directory %s: %w", install.ErrFilesystem, relative, err)
			}

			written++

			continue
		}

		if err := writeFile(entry, destination, relative); err != nil {
			return written, skipped, err
		}

		written++
	}

	return written, skipped, nil
}

// writeFile copies one file entry to destination, creating missing parents.
func writeFile(entry *zip.File, destination, relative string) error {
	if err := os.MkdirAll(filepath.Dir(destination), DefaultDirMode); err != nil {
		return fmt.Errorf("%w: create parent of %s: %w", install.ErrFilesystem, relative, err)
	}

	source, err := entry.Open()
	if err != nil {
		return fmt.Errorf("%w: open entry %s: %w", install.ErrArchiveFormat, relative, err)
	}

	defer func() {
		_ = source.Close()
	}()

	output, err := os.OpenFile(destination, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fileMode(entry))
	if err != nil {
		return fmt.Errorf("%w: create file %s: %w", install.ErrFilesystem, relative, err)
	}

	_, copyErr := io.Copy(output, source)
	closeErr := output.Close()

	switch {
	case isArchiveError(copyErr):
		return fmt.Errorf("%w: read entry %s: %w", install.ErrArchiveFormat, relative, copyErr)
	case copyErr != nil:
		return fmt.Errorf("%w: write file %s: %w", install.ErrFilesystem, relative, copyErr)
	case closeErr != nil:
		return fmt.Errorf("%w: close file %s: %w", install.ErrFilesystem, relative, closeErr)
	}

	return nil
}

// swap moves staging into place, keeping the previous tree until the rename succeeds.
func swap(ctx context.Context, staging string, target install.Target) error {
	dir := target.Dir()

	var backup string

	if _, err := os.Lstat(dir); err == nil {
		backup = scratchDir(target, backupInfix)
		if err = os.Rename(dir, backup); err != nil {
			return fmt.Errorf("%w: move previous installation aside: %w", install.ErrFilesystem, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: inspect install directory: %w", install.ErrFilesystem, err)
	}

	if err := os.Rename(staging, dir); err != nil {
		if backup != "" {
			if rollbackErr := os.Rename(backup, dir); rollbackErr != nil {
				return fmt.Errorf("%w: activate new installation: %w (rollback failed: %w)",
					install.ErrFilesystem, err, rollbackErr)
			}
		}

		return fmt.Errorf("%w: activate new installation: %w", install.ErrFilesystem, err)
	}

	if backup == "" {
		return nil
	}

	if err := os.RemoveAll(backup); err != nil {
		logger.WarnKV(ctx, "Could not remove previous installation", "path", backup, "error", err)
	}

	return nil
}

// removeLeftovers deletes staging and backup trees left by interrupted runs.
// Callers hold the target lock, so nothing else owns them.
func removeLeftovers(ctx context.Context, target install.Target) {
	for _, infix := range []string{stagingInfix, backupInfix} {
		pattern := filepath.Join(target.Root, "."+target.Subdir+infix+"*")

		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}

		for _, match := range matches {
			logger.InfoKV(ctx, "Removing leftover directory", "path", match)

			if err = os.RemoveAll(match); err != nil {
				logger.WarnKV(ctx, "Could not remove leftover directory", "path", match, "error", err)
			}
		}
	}
}

// scratchDir names a hidden sibling of the install directory on the same filesystem.
func scratchDir(target install.Target, infix string) string {
	return filepath.Join(target.Root, "."+target.Subdir+infix+uuid.NewString())
}

// enclosedName converts an archive entry name into a relative local path.
// It rejects names that are absolute, carry a volume or NUL byte,
// or climb above the root. A name that cleans to the root itself is rejected too.
func enclosedName(name string) (string, bool) {
	if name == "" || strings.ContainsRune(name, 0) {
		return "", false
	}

	// Zip names use forward slashes. Backslashes from broken Windows writers are
	// treated as separators, so "..\\x" cannot slip through on Windows.
	normalized := strings.ReplaceAll(name, `\`, "/")
	if strings.HasPrefix(normalized, "/") {
		return "", false
	}

	cleaned := path.Clean(normalized)
	if cleaned == "." {
		return "", false
	}

	local := filepath.FromSlash(cleaned)
	if !filepath.IsLocal(local) {
		return "", false
	}

	return local, true
}

// fileMode keeps the entry's permission bits and always grants the owner read and write.
func fileMode(entry *zip.File) os.FileMode {
	perm := entry.Mode().Perm()
	if perm == 0 {
		return DefaultFileMode
	}

	return perm | ownerReadWrite
}

func isArchiveError(err error) bool {
	return errors.Is(err, zip.ErrChecksum) || errors.Is(err, zip.ErrFormat) || errors.Is(err, zip.ErrAlgorithm)
}
