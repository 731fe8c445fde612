package main

import (
	"fmt"

	"github.com/m3rciful/trainingbot/core/buildinfo"
)

func init() {
	rootCmd.Version = versionString()
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func versionString() string {
	s := fmt.Sprintf("%s (commit %s)", buildinfo.Version, buildinfo.Commit)
	if buildinfo.Date != "" {
		s += " built " + buildinfo.Date
	}
	return s
}
