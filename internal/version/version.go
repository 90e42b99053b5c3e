package version

// Version contains the application version information, set at build time:
// go build -ldflags "-X git.home.luguber.info/inful/sitebuilder/internal/version.Version=v1.0.0".
var Version = "dev"

// Build metadata stamped via ldflags alongside Version.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by `sitebuilder version`.
func String() string {
	return Version + " (commit " + GitCommit + ", built " + BuildTime + ")"
}
