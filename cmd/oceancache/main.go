package main

import (
	"fmt"
	"os"

	"github.com/marmos91/oceancache/cmd/oceancache/commands"
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
		fmt.Fprintf(os.Stderr, "oceancache: %v\n", err)
		os.Exit(1)
	}
}
