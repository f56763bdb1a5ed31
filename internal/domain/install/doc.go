// Package install holds the launcher's domain model: the release asset being
// installed, the progress events emitted while installing, the install target
// on disk, and the error kinds every operation reports.
package install
