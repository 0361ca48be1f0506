package version

// Version contains the application version information.
// This should be set via build-time ldflags in production:
// go build -ldflags "-X git.home.luguber.info/inful/nscale/internal/version.Version=v0.3.0".
var Version = "unknown"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String formats the build metadata for --version and the version command.
func String() string {
	return "nscale " + Version + " (commit " + GitCommit + ", built " + BuildTime + ")"
}
