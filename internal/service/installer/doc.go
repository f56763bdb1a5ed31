// Package installer replaces the install directory with the contents of a zip archive.
//
// Extraction happens in a staging directory next to the target. Only a fully
// extracted tree is swapped in by rename, so a failed install leaves the
// previous installation untouched. Lock serializes installs per target both
// within the process and across processes.
package installer
