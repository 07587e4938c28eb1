// Package misc keeps build time program identity.
package misc

import (
	"runtime/debug"
)

// Set with -ldflags "-X stylec/misc.version=... -X stylec/misc.gitHash=..."
var (
	version = "dev"
	gitHash string
)

const appName = "stylec"

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

// GetGitHash returns commit of the build, falling back to VCS information
// recorded by the toolchain.
func GetGitHash() string {
	if len(gitHash) != 0 {
		return gitHash
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}
