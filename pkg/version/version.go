// Package version reports the mesgrid build version.
package version

import "runtime/debug"

// Set at build time with -ldflags "-X github.com/rshade/mesgrid/pkg/version.version=v1.2.3".
var (
	version   = "" //nolint:gochecknoglobals // ldflags target
	gitCommit = "" //nolint:gochecknoglobals // ldflags target
)

const devVersion = "dev"

// GetVersion returns the build version, the module version recorded in the
// binary, or "dev".
func GetVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return devVersion
}

// GetGitCommit returns the commit the binary was built from, if known.
func GetGitCommit() string {
	return gitCommit
}
