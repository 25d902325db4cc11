// Package version holds build-time identifiers, overridden via
// -ldflags "-X github.com/ChristianF88/logarchivist/version.Version=...".
package version

var (
	Version = "dev"
	Date    = ""
)
