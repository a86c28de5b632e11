// Package misc holds build time program identification.
package misc

// Set with -ldflags "-X dss/misc.version=... -X dss/misc.githash=...".
var (
	version = "dev"
	githash = "unknown"
)

const appName = "dss"

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

func GetGitHash() string {
	return githash
}
