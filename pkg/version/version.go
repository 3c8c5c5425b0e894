// Package version holds build-time version info injected via ldflags.
//
//	go build -ldflags "-X github.com/NicolasHaas/gochat/pkg/version.tag=v0.3.0
//	  -X github.com/NicolasHaas/gochat/pkg/version.commit=abc1234"
package version

import "fmt"

var (
	tag    = ""
	commit = "unknown"
)

// String returns the tag, the commit, or "dev" for local builds.
func String() string {
	switch {
	case tag != "":
		return tag
	case commit != "unknown":
		return commit
	default:
		return "dev"
	}
}

// Banner is the one-line greeting printed by the binaries.
func Banner(program string) string {
	return fmt.Sprintf("%s %s", program, String())
}
