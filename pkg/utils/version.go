// Package utils provides bespoke, one off utils that don't make sense to be
// their own package
package utils

import "fmt"

// Set at build time with -ldflags "-X github.com/papercomputeco/folio/pkg/utils.Version=...".
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)

// VersionString renders the build info for `folio version` and the User-Agent.
func VersionString() string {
	return fmt.Sprintf("folio %s (%s, built %s)", Version, Sha, Buildtime)
}

// UserAgent is the User-Agent sent to the upstream model API.
func UserAgent() string {
	return "folio/" + Version
}
