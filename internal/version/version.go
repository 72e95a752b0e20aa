// Package version carries build metadata. Values are set at build time via
// -ldflags "-X github.com/phantomx-ai/phantomx/internal/version.Version=...".
package version

var (
	// Version is the semantic version of the service.
	Version = "1.0.0"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)
