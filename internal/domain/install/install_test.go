package install

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestTarget_Paths checks directory and executable path composition.
func TestTarget_Paths(t *testing.T) {
	t.Parallel()

	target := Target{Root: filepath.Join("data", "launcher"), Subdir: "game"}

	require.Equal(t, filepath.Join("data", "launcher", "game"), target.Dir())
	require.Equal(t, filepath.Join("data", "launcher", "game", "GameApp.exe"), target.ExecutablePath("GameApp.exe"))
}

// TestAsset_Version parses semver tags and ignores the rest.
func TestAsset_Version(t *testing.T) {
	t.Parallel()

	asset := &Asset{ReleaseTag: "v3.0.1"}
	v := asset.Version()
	require.NotNil(t, v)
	require.Equal(t, "3.0.1", v.String())

	require.Nil(t, (&Asset{ReleaseTag: "nightly"}).Version())
	require.Nil(t, (&Asset{}).Version())

	var missing *Asset
	require.Nil(t, missing.Version())
}

// TestDownloading formats the per-chunk status line.
func TestDownloading(t *testing.T) {
	t.Parallel()

	p := Downloading(25)
	require.InDelta(t, 25.0, p.Percentage, 0)
	require.Equal(t, "Downloading... 25.00%", p.Status)
}
