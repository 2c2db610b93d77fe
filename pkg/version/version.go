// Package version holds build metadata stamped in with -ldflags.
package version

// Build metadata. Release builds override these with
// -ldflags "-X github.com/Sumatoshi-tech/gffstream/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the metadata on one line.
func String() string {
	return Version + " (commit: " + Commit + ", built: " + Date + ")"
}
