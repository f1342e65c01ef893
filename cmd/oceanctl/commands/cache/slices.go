package cache

import (
	"fmt"

	"github.com/marmos91/oceancache/cmd/oceanctl/cmdutil"
	"github.com/spf13/cobra"
)

var slicesCmd = &cobra.Command{
	Use:   "slices",
	Short: "Cache the pinned slices",
	Long:  `Start one job per pinned slice of the selected attribute. Nothing happens when no slice is pinned.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := cmdutil.GetClient().CacheSlices(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to cache slices: %w", err)
		}
		msg := fmt.Sprintf("Started %d slice jobs", n)
		if n == 0 {
			msg = "No slices pinned"
		}
		return cmdutil.PrintResourceWithSuccess(cmd.OutOrStdout(), map[string]int{"jobs": n}, msg)
	},
}
