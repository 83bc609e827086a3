package build

import "fmt"

// Stamped at build time:
//
//	go build -ldflags "-X github.com/rohmanhakim/nps-explorer/internal/build.Version=1.0.0 \
//	  -X github.com/rohmanhakim/nps-explorer/internal/build.Commit=$(git rev-parse --short HEAD)"
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

// FullVersion returns the version string with commit hash appended.
// Format: "Version+Commit" (e.g., "1.0.0+abc123")
func FullVersion() string {
	return Version + "+" + Commit
}

// Banner is the line printed by the version command.
func Banner() string {
	return fmt.Sprintf("nps-explorer %s (built %s)", FullVersion(), BuildTime)
}
