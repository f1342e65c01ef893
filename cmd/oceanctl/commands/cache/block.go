package cache

import (
	"fmt"

	"github.com/marmos91/oceancache/cmd/oceanctl/cmdutil"
	"github.com/spf13/cobra"
)

var blockCmd = &cobra.Command{
	Use:   "block",
	Short: "Cache the selected block",
	RunE: func(cmd *cobra.Command, args []string) error {
		sel, err := cmdutil.GetClient().CacheBlock(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to cache block: %w", err)
		}
		return cmdutil.PrintResourceWithSuccess(cmd.OutOrStdout(), sel,
			fmt.Sprintf("Caching %s block %d (%s mode)", sel.Attribute, sel.Block(), sel.Mode))
	},
}
