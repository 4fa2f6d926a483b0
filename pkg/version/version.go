// Package version holds build version information for dive-engine.
package version

// Version is the current dive-engine version.
// Overridden at build time via -ldflags "-X github.com/duclm1x1/dive-engine/pkg/version.Version=..."
var Version = "0.3.0-dev"

// Commit is the git commit hash, set at build time.
var Commit = "unknown"

// BuildDate is the build timestamp, set at build time.
var BuildDate = "unknown"
