package cache

import (
	"fmt"

	"github.com/marmos91/oceancache/cmd/oceanctl/cmdutil"
	"github.com/marmos91/oceancache/pkg/axis"
	"github.com/spf13/cobra"
)

var (
	preloadConcurrency int
	preloadForce       bool
)

var attributeCmd = &cobra.Command{
	Use:   "attribute <name>",
	Short: "Preload every layer of an attribute",
	Long: `Preload every layer of an attribute in the background. Follow progress
with 'oceanctl grid --attribute <name>' or 'oceanctl watch'.

A concurrency of 0 uses the server default.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if preloadConcurrency < 0 {
			return fmt.Errorf("concurrency must not be negative")
		}
		ok, err := cmdutil.Confirm(cmd.OutOrStdout(), fmt.Sprintf("Preload every layer of %s?", args[0]), preloadForce)
		if err != nil || !ok {
			return err
		}
		res, err := cmdutil.GetClient().CacheAttribute(cmd.Context(), axis.Attribute(args[0]), preloadConcurrency)
		if err != nil {
			return fmt.Errorf("failed to start preload: %w", err)
		}
		return cmdutil.PrintResourceWithSuccess(cmd.OutOrStdout(), res,
			fmt.Sprintf("Preloading %d layers of %s", res.Layers, res.Attribute))
	},
}

func init() {
	attributeCmd.Flags().IntVarP(&preloadConcurrency, "concurrency", "c", 0, "Concurrent loads (0 = server default)")
	attributeCmd.Flags().BoolVarP(&preloadForce, "force", "f", false, "Skip confirmation prompt")
}
