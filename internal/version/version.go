package version

import (
	"regexp"
	"runtime/debug"
	"strings"
)

var Version = "0.1.0"

type buildInfo struct {
	revision string
	modified bool
	tagged   bool
}

// Resolve returns the version string, suffixed with the short VCS revision
// (and -dirty) when the binary was not built from a tagged release.
func Resolve() string {
	return resolveVersion(Version, readBuildInfo)
}

func resolveVersion(base string, read func() (buildInfo, bool)) string {
	if base == "" {
		base = "0.0.0"
	}

	info, ok := read()
	if !ok || info.tagged || info.revision == "" {
		return base
	}

	suffix := info.revision
	if len(suffix) > 7 {
		suffix = suffix[:7]
	}
	if info.modified {
		suffix += "-dirty"
	}
	return base + "-" + suffix
}

func readBuildInfo() (buildInfo, bool) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return buildInfo{}, false
	}
	return buildInfoFrom(bi), true
}

func buildInfoFrom(bi *debug.BuildInfo) buildInfo {
	var info buildInfo
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.revision = s.Value
		case "vcs.modified":
			info.modified = s.Value == "true"
		}
	}
	info.tagged = isReleaseVersion(bi.Main.Version)
	return info
}

// pseudoVersion matches the timestamp-revision tail the go command stamps
// on untagged commits, e.g. v0.1.1-0.20260102030405-abcdef012345.
var pseudoVersion = regexp.MustCompile(`\d{14}-[0-9a-f]{12}(\+incompatible)?$`)

// isReleaseVersion reports whether v is a clean tagged module version.
func isReleaseVersion(v string) bool {
	if v == "" || v == "(devel)" || strings.HasSuffix(v, "+dirty") {
		return false
	}
	return !pseudoVersion.MatchString(v)
}
