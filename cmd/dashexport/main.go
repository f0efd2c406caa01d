// Package main provides the entry point for the dashexport CLI.
package main

import (
	"os"

	"github.com/randalmurphal/dashexport/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
