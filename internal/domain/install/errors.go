package install

import "errors"

// Error kinds. Every failure returned by the launcher wraps exactly one of them,
// so callers can branch with errors.Is. None of them is retried internally.
var (
	// ErrNetwork means a request could not be sent or got a non-success status.
	ErrNetwork = errors.New("network error")
	// ErrParse means release metadata could not be interpreted.
	ErrParse = errors.New("parse error")
	// ErrNotFound means a requested asset or executable does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStream means the download stream failed mid-transfer.
	ErrStream = errors.New("stream error")
	// ErrFilesystem means a directory or file operation failed.
	ErrFilesystem = errors.New("filesystem error")
	// ErrArchiveFormat means the downloaded bytes are not a valid zip archive.
	ErrArchiveFormat = errors.New("archive format error")
	// ErrLaunch means the operating system refused to start the executable.
	ErrLaunch = errors.New("launch error")
	// ErrInstallInProgress means another install holds the target.
	ErrInstallInProgress = errors.New("install already in progress")
	// ErrCanceled means the caller aborted the operation.
	ErrCanceled = errors.New("operation canceled")
)
