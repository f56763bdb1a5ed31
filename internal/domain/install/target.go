package install

import "path/filepath"

// Target identifies where installed content lives: a host data directory
// plus a fixed subdirectory name.
type Target struct {
	// Root is the per-application data directory provided by the host.
	Root string
	// Subdir is the directory under Root that holds the installed game.
	Subdir string
}

// Dir returns the install directory.
func (t Target) Dir() string {
	return filepath.Join(t.Root, t.Subdir)
}

// ExecutablePath returns the expected location of the named executable.
func (t Target) ExecutablePath(name string) string {
	return filepath.Join(t.Dir(), name)
}
