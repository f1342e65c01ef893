// Package cache implements manual caching commands.
package cache

import "github.com/spf13/cobra"

// Cmd is the parent command for manual caching.
var Cmd = &cobra.Command{
	Use:   "cache",
	Short: "Cache layers on demand",
	Long: `Start caching rounds by hand. These work whether or not auto caching is
on, and are not cancelled by selection changes.

Examples:
  # Cache the selected block
  oceanctl cache block

  # Cache every pinned slice
  oceanctl cache slices

  # Preload every layer of salinity
  oceanctl cache attribute salt --concurrency 16`,
}

func init() {
	Cmd.AddCommand(blockCmd)
	Cmd.AddCommand(slicesCmd)
	Cmd.AddCommand(attributeCmd)
}
