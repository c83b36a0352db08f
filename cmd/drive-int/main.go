// drive-int - command-line client for the SekolahDrive file service.
package main

import (
	"os"

	"github.com/sekolahdrive/drive-int/internal/cli"
	"github.com/sekolahdrive/drive-int/internal/version"
)

// Version information - overridden at release time via LDFLAGS.
var (
	Version   = "v0.3.0"
	BuildTime = "2026-08-29"
)

func main() {
	version.Version = Version
	version.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
