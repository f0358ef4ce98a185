package version

// Version is the service current released version.
// This value can be overridden at build time using ldflags:
//
//	go build -ldflags "-X github.com/smuassist/learnmate/internal/version.Version=v0.3.0"
var Version = "0.0.0-dev"

// GitCommit is the git commit hash at build time.
// Set via ldflags: -X github.com/smuassist/learnmate/internal/version.GitCommit=$(git rev-parse HEAD)
var GitCommit = "unknown"

// GetCurrentVersion returns the version string reported for the given mode.
func GetCurrentVersion(mode string) string {
	if mode == "dev" {
		return Version + "+dev"
	}
	return Version
}
