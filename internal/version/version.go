// Package version reports the build's version and commit.
//
// Release builds set both with ldflags:
//
//	go build -ldflags="-X github.com/freshpots/freshpots/internal/version.Version=v0.3.0 \
//	                   -X github.com/freshpots/freshpots/internal/version.Commit=abc1234"
//
// Otherwise they come from the VCS stamp in the build info, falling back to
// "dev" and "unknown".
package version

import (
	"fmt"
	"runtime/debug"
	"time"
)

var (
	// Version is the release tag, or dev-YYYYMMDD for untagged builds
	Version = ""
	// Commit is the short git hash, suffixed -dirty for modified trees
	Commit = ""
)

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		fill(info.Settings)
	}
	if Version == "" {
		Version = "dev"
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fill sets whichever of Version and Commit are still empty from VCS settings.
func fill(settings []debug.BuildSetting) {
	vcs := make(map[string]string, len(settings))
	for _, s := range settings {
		vcs[s.Key] = s.Value
	}

	if rev := vcs["vcs.revision"]; Commit == "" && rev != "" {
		if len(rev) > 7 {
			rev = rev[:7]
		}
		if vcs["vcs.modified"] == "true" {
			rev += "-dirty"
		}
		Commit = rev
	}

	if Version == "" {
		if t, err := time.Parse(time.RFC3339, vcs["vcs.time"]); err == nil {
			Version = "dev-" + t.Format("20060102")
		}
	}
}

// Full returns the version with its commit.
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// String returns program's version line, as printed by "<program> version".
func String(program string) string {
	return program + " " + Full()
}
