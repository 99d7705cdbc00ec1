package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestVersionString(t *testing.T) {
	v := Version{Major: 1, Minor: 2, Patch: 3, Metadata: "rc1", Build: "abcdef"}
	if got, want := v.String(), "Version: 1.2.3-rc1\nBuild: abcdef"; got != want {
		t.Errorf("got %q expected %q", got, want)
	}

	v.Metadata = ""
	if got := v.String(); !strings.HasPrefix(got, "Version: 1.2.3\n") {
		t.Errorf("unexpected metadata in %q", got)
	}

	v.Build = "$Id$"
	if got := v.String(); strings.Contains(got, "$Id$") {
		t.Errorf("unexpanded build keyword in %q", got)
	}
}

func TestBuildInfo(t *testing.T) {
	if got := BuildInfo(); !strings.HasPrefix(got, "go") && !strings.HasPrefix(got, "devel") {
		t.Errorf("build info does not start with the go version: %q", got)
	}
}

func TestFormatBuildInfo(t *testing.T) {
	info := &debug.BuildInfo{
		Main: debug.Module{Path: "github.com/lebanon-go/lebanon", Version: "v0.3.0"},
		Deps: []*debug.Module{
			{Path: "github.com/sirupsen/logrus", Version: "v1.6.0"},
			{Path: "go.starlark.net", Version: "v0.0.0-20220816155156-cfacd8902214"},
			{Path: "github.com/spf13/cobra", Version: "v1.1.3", Replace: &debug.Module{Path: "../cobra", Version: "(devel)"}},
		},
		Settings: []debug.BuildSetting{{Key: "vcs.modified", Value: "true"}},
	}
	got := formatBuildInfo("go1.21.0", info)
	lines := strings.Split(got, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %q", got)
	}
	if lines[0] != "go1.21.0" {
		t.Errorf("first line %q", lines[0])
	}
	for i, want := range [][]string{
		{"lebanon", "github.com/lebanon-go/lebanon", "v0.3.0", "(modified)"},
		{"starlark", "go.starlark.net", "v0.0.0-20220816155156-cfacd8902214"},
		{"cobra", "../cobra", "(devel)"},
	} {
		if fields := strings.Fields(lines[i+1]); strings.Join(fields, " ") != strings.Join(want, " ") {
			t.Errorf("line %d: got %q, want %q", i+1, fields, want)
		}
	}
	if strings.Contains(got, "logrus") {
		t.Errorf("unreported module listed: %q", got)
	}
}
