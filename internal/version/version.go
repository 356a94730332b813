// Package version reports the build version of the binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const defaultModule = "pkt.systems/hybridterm"

// buildVersion is set via -ldflags "-X pkt.systems/hybridterm/internal/version.buildVersion=...".
var buildVersion = ""

// Info describes the running build.
type Info struct {
	Version   string
	Module    string
	Revision  string
	Dirty     bool
	GoVersion string
}

// String renders the info on one line.
func (i Info) String() string {
	out := fmt.Sprintf("%s %s (%s)", i.Module, i.Version, i.GoVersion)
	if i.Revision != "" {
		out += " rev " + i.Revision
	}
	return out
}

// Read collects build information, preferring the linker-provided version.
func Read() Info {
	info := Info{Module: defaultModule, GoVersion: runtime.Version()}
	bi, ok := debug.ReadBuildInfo()
	if ok {
		if path := strings.TrimSpace(bi.Main.Path); path != "" {
			info.Module = path
		}
		rev, _, dirty := vcsSettings(bi)
		info.Revision = shortRevision(rev)
		info.Dirty = dirty
	}
	info.Version = resolve(bi, ok)
	return info
}

// Current returns the best available version string without the dirty suffix.
func Current() string {
	return strings.TrimSuffix(Read().Version, "+dirty")
}

// CurrentWithDirty returns the best available version string including the dirty suffix.
func CurrentWithDirty() string {
	return Read().Version
}

func resolve(bi *debug.BuildInfo, ok bool) string {
	if v := strings.TrimSpace(buildVersion); v != "" {
		return v
	}
	if !ok {
		return "v0.0.0-unknown"
	}
	if v := strings.TrimSpace(bi.Main.Version); v != "" && v != "(devel)" {
		return v
	}
	if v := pseudoFromBuildInfo(bi); v != "" {
		return v
	}
	return "v0.0.0-unknown"
}

func vcsSettings(bi *debug.BuildInfo) (revision, vcsTime string, modified bool) {
	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.time":
			vcsTime = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	return revision, vcsTime, modified
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

// pseudoFromBuildInfo builds a Go pseudo-version from VCS stamps.
func pseudoFromBuildInfo(bi *debug.BuildInfo) string {
	if bi == nil {
		return ""
	}
	revision, vcsTime, modified := vcsSettings(bi)
	if revision == "" || vcsTime == "" {
		return ""
	}
	parsed, err := time.Parse(time.RFC3339, vcsTime)
	if err != nil {
		return ""
	}
	ver := "v0.0.0-" + parsed.UTC().Format("20060102150405") + "-" + shortRevision(revision)
	if modified {
		ver += "+dirty"
	}
	return ver
}
