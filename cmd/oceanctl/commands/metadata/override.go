package metadata

import (
	"fmt"
	"strconv"

	"github.com/marmos91/oceancache/cmd/oceanctl/cmdutil"
	"github.com/marmos91/oceancache/pkg/axis"
	"github.com/marmos91/oceancache/pkg/metadata"
	"github.com/spf13/cobra"
)

var clearForce bool

var overrideCmd = &cobra.Command{
	Use:   "override",
	Short: "Manage color scale overrides",
}

var overrideSetCmd = &cobra.Command{
	Use:   "set <attribute> <min> <max>",
	Short: "Pin the color scale of an attribute",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		lo, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid min %q", args[1])
		}
		hi, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("invalid max %q", args[2])
		}
		if lo > hi {
			return fmt.Errorf("min %g is greater than max %g", lo, hi)
		}
		e, err := cmdutil.GetClient().SetOverride(cmd.Context(), axis.Attribute(args[0]), metadata.Extrema{Min: lo, Max: hi})
		if err != nil {
			return fmt.Errorf("failed to set override: %w", err)
		}
		return cmdutil.PrintResourceWithSuccess(cmd.OutOrStdout(), e,
			fmt.Sprintf("Color scale of %s pinned to %s", args[0], formatExtrema(*e)))
	},
}

var overrideClearCmd = &cobra.Command{
	Use:   "clear <attribute>",
	Short: "Remove the color scale override of an attribute",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ok, err := cmdutil.Confirm(cmd.OutOrStdout(), fmt.Sprintf("Remove the color scale override of %s?", args[0]), clearForce)
		if err != nil || !ok {
			return err
		}
		if err := cmdutil.GetClient().ClearOverride(cmd.Context(), axis.Attribute(args[0])); err != nil {
			return fmt.Errorf("failed to clear override: %w", err)
		}
		cmdutil.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Color scale override of %s removed", args[0]))
		return nil
	},
}

func init() {
	overrideCmd.AddCommand(overrideSetCmd)
	overrideCmd.AddCommand(overrideClearCmd)

	overrideClearCmd.Flags().BoolVarP(&clearForce, "force", "f", false, "Skip confirmation prompt")
}
