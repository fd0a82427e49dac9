// Package misc carries build time identification of the program.
package misc

// Set by linker flags (-X) during release builds.
var (
	appName = "pview"
	version = "dev"
	gitHash = "unknown"
)

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

func GetGitHash() string {
	return gitHash
}
