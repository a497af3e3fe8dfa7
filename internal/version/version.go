// Package version exposes the build metadata baked into the gatekeeper
// binary at release time.
package version

import (
	"fmt"
	"runtime"
)

// Overridden via -ldflags on release builds. Development builds report
// "dev" with unknown commit and date.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Short returns the bare version string.
func Short() string {
	return Version
}

// Info returns the multi-line report printed by the version command.
func Info() string {
	return fmt.Sprintf("gatekeeper %s\nCommit: %s\nBuilt: %s\nGo: %s\nOS/Arch: %s/%s",
		Version, Commit, Date,
		runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
