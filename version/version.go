// Package version provides the sm-action version strings.
package version

import (
	_ "embed"
	"runtime"
	"strings"
)

// buildVersion can be set at compile time with:
//
//	go build -ldflags "-X github.com/bitwarden/sm-action/version.buildVersion=abc" .

//go:embed VERSION
var baseVersion string
var buildVersion string

func Version() string {
	return strings.TrimSpace(baseVersion)
}

func BuildVersion() string {
	if buildVersion == "" {
		return "x"
	}
	return buildVersion
}

// FullVersion is what --version prints.
func FullVersion() string {
	return Version() + "+" + BuildVersion()
}

// UserAgent identifies sm-action to Bitwarden.
func UserAgent() string {
	return "bitwarden/sm-action/" + Version() + " (" + runtime.GOOS + "; " + runtime.GOARCH + ")"
}
