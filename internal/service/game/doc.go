// Package game exposes the operations the host shell invokes:
// installing the latest release and launching the installed game.
//
// InstallLatestRelease runs resolve, download and extract in sequence under a
// per-target lock and forwards progress events to the host as "download_progress".
package game
