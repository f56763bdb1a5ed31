// Package launcher starts the installed executable as an independent process
// and reports whether it is already running.
package launcher
