package install

import (
	"github.com/Masterminds/semver/v3"
)

// Asset is a single downloadable file attached to a published release.
type Asset struct {
	// Name is the file name as published on the release feed.
	Name string
	// DownloadURL is the direct download location of the file.
	DownloadURL string
	// Size is the size declared by the feed, zero when unknown.
	Size int64
	// ReleaseTag is the tag of the release the asset belongs to.
	ReleaseTag string
}

// Version parses the release tag as a semantic version.
// Tags that are not semver, like "latest-build", yield nil.
func (a *Asset) Version() *semver.Version {
	if a == nil || a.ReleaseTag == "" {
		return nil
	}

	v, err := semver.NewVersion(a.ReleaseTag)
	if err != nil {
		return nil
	}

	return v
}
