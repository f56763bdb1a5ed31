// Package download streams a release asset into memory while reporting progress.
package download
