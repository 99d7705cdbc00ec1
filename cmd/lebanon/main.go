package main

import (
	"os"

	"github.com/lebanon-go/lebanon/cmd/lebanon/cmds"
	"github.com/lebanon-go/lebanon/pkg/version"
)

// Build is the git sha of this binaries build.
var Build string

func main() {
	if Build != "" {
		version.LebanonVersion.Build = Build
	}
	if err := cmds.New().Execute(); err != nil {
		os.Exit(1)
	}
}
