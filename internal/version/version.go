// Package version carries build metadata set through -ldflags.
package version

var (
	// Version is the release tag of the build.
	Version = "dev"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// String renders the metadata for --version output.
func String() string {
	return Version + " (commit: " + Commit + ", built: " + Date + ")"
}
