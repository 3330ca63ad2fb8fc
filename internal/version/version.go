// Package version holds build metadata stamped in with -ldflags -X.
package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the build metadata for a named binary.
func String(binary string) string {
	return fmt.Sprintf("%s version %s (commit %s, built %s)", binary, Version, GitSHA, BuildTime)
}
