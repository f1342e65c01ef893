package main

import (
	"fmt"
	"os"

	"github.com/marmos91/oceancache/cmd/oceanctl/commands"
)

// Set with -ldflags "-X main.version=..."
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "oceanctl: %v\n", err)
		os.Exit(1)
	}
}
