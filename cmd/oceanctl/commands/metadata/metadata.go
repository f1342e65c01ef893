// Package metadata implements dataset metadata commands.
package metadata

import "github.com/spf13/cobra"

// Cmd is the parent command for dataset metadata.
var Cmd = &cobra.Command{
	Use:   "metadata",
	Short: "Inspect dataset metadata and color scales",
	Long: `Inspect the dataset metadata loaded by the server and manage per-attribute
color scale overrides.

Examples:
  # Global extrema of every attribute
  oceanctl metadata show

  # Extrema of one layer
  oceanctl metadata extrema theta 2011-09-13-0 5

  # Pin the theta color scale
  oceanctl metadata override set theta -2 30`,
}

func init() {
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(extremaCmd)
	Cmd.AddCommand(overrideCmd)
}
