// Package layer implements commands for single layers.
package layer

import "github.com/spf13/cobra"

// Cmd is the parent command for layer operations.
var Cmd = &cobra.Command{
	Use:   "layer",
	Short: "Inspect single layers",
	Long: `Inspect single layers. A layer is named by its attribute, its timestamp
(YYYY-MM-DD-H) and its level as a depth in meters.

Examples:
  # Cache status of one layer
  oceanctl layer status theta 2011-09-13-0 5

  # Download a layer
  oceanctl layer get theta 2011-09-13-0 5 --out theta.bin`,
}

func init() {
	Cmd.AddCommand(getCmd)
	Cmd.AddCommand(statusCmd)
}
