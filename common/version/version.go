// Package version carries build metadata stamped in via -ldflags.
package version

var (
	// Version is the released version string.
	Version = "v0.0.0-dev"

	// GitCommit is the commit hash of the build.
	GitCommit = "unknown"

	// BuildTime is the timestamp of the build.
	BuildTime = "unknown"
)

// Info returns a one-line description of the build.
func Info() string {
	return Version + " (" + GitCommit + ") built at " + BuildTime
}
