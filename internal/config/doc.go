// Package config defines the launcher settings and provides helpers to load,
// validate and save them in YAML format.
//
// The Config type holds the release feed coordinates (owner, project, asset
// name), the executable to launch and the install directory layout.
package config
