// Package feed resolves release assets from a GitHub-compatible release feed.
//
// The Client queries the "latest release" endpoint of a project and returns
// the direct download location of one exactly named asset.
package feed
