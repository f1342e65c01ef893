// Package config implements the oceancache config subcommands.
package config

import "github.com/spf13/cobra"

// Cmd groups the commands that inspect the server configuration.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the server configuration",
	Long: `Inspect the configuration oceancache starts with. Every value may be
overridden with an OCEANCACHE_ environment variable, for example
OCEANCACHE_SOURCE_TYPE=badger or OCEANCACHE_SCHEDULER_MAX_CONCURRENCY=4.

Create a configuration file with 'oceancache init'.`,
}

func init() {
	Cmd.AddCommand(validateCmd, showCmd, schemaCmd)
}
