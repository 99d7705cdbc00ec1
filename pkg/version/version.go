// Package version reports the lebanon release and the build it came from.
package version

import (
	"bytes"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"text/tabwriter"
)

// Version is a release of lebanon.
type Version struct {
	Major, Minor, Patch int
	// Metadata is appended to the release number, for example "rc1".
	Metadata string
	// Build is the VCS revision. If it still holds the unexpanded "$Id$"
	// keyword the revision recorded by the go tool is used instead.
	Build string
}

// LebanonVersion is the current version of lebanon.
var LebanonVersion = Version{Major: 0, Minor: 3, Patch: 0, Build: "$Id$"}

// Release returns the dotted release number.
func (v Version) Release() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Metadata != "" {
		s += "-" + v.Metadata
	}
	return s
}

func (v Version) String() string {
	build := v.Build
	if strings.HasPrefix(build, "$Id$") {
		build = "unknown"
		if info, ok := debug.ReadBuildInfo(); ok {
			if rev := setting(info, "vcs.revision"); rev != "" {
				build = rev
			}
		}
	}
	return fmt.Sprintf("Version: %s\nBuild: %s", v.Release(), build)
}

// reportedModules are the dependencies that decide what the terminal and
// scripts accept, keyed by the name shown in BuildInfo.
var reportedModules = []struct{ name, path string }{
	{"starlark", "go.starlark.net"},
	{"liner", "github.com/go-delve/liner"},
	{"cobra", "github.com/spf13/cobra"},
	{"yaml", "gopkg.in/yaml.v2"},
}

// BuildInfo returns the go version, the lebanon module and the versions of
// the modules scripts and the terminal depend on.
func BuildInfo() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return runtime.Version() + "\nnot built in module mode"
	}
	return formatBuildInfo(runtime.Version(), info)
}

func formatBuildInfo(goVersion string, info *debug.BuildInfo) string {
	buf := new(bytes.Buffer)
	fmt.Fprintln(buf, goVersion)
	w := tabwriter.NewWriter(buf, 0, 8, 1, ' ', 0)
	fmt.Fprintf(w, "lebanon\t%s\t%s", info.Main.Path, info.Main.Version)
	if setting(info, "vcs.modified") == "true" {
		fmt.Fprint(w, " (modified)")
	}
	fmt.Fprintln(w)
	for _, m := range reportedModules {
		dep := findModule(info, m.path)
		if dep == nil {
			continue
		}
		if dep.Replace != nil {
			dep = dep.Replace
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.name, dep.Path, dep.Version)
	}
	w.Flush()
	return strings.TrimSuffix(buf.String(), "\n")
}

func findModule(info *debug.BuildInfo, path string) *debug.Module {
	for _, dep := range info.Deps {
		if dep.Path == path {
			return dep
		}
	}
	return nil
}

func setting(info *debug.BuildInfo, key string) string {
	for _, s := range info.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}
