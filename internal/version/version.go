// Package version carries build metadata stamped via ldflags:
//
//	go build -ldflags "-X github.com/rickgao/ashare-data/internal/version.Version=0.3.0 \
//	                   -X github.com/rickgao/ashare-data/internal/version.Commit=$(git rev-parse --short HEAD) \
//	                   -X github.com/rickgao/ashare-data/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// The collector, backfill, and apiserver binaries all report it.
package version

var (
	// Version is the release version.
	Version = "dev"

	// Commit is the short git commit hash.
	Commit = "unknown"

	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)

// String formats the three fields for -version output.
func String() string {
	return Version + " (" + Commit + ") built " + BuildTime
}
