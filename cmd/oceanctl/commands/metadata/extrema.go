package metadata

import (
	"fmt"

	"github.com/marmos91/oceancache/cmd/oceanctl/cmdutil"
	"github.com/marmos91/oceancache/internal/cli/output"
	"github.com/spf13/cobra"
)

var extremaGlobal bool

var extremaCmd = &cobra.Command{
	Use:   "extrema <attribute> <timestamp> <level>",
	Short: "Show the color scale extrema of a layer",
	Long: `Show the extrema the color scale of a layer uses. An override, when set,
takes precedence. --global returns the attribute-wide extrema instead of the
local ones.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		attr, ts, level, err := cmdutil.ParseLayerArgs(args)
		if err != nil {
			return err
		}
		e, err := cmdutil.GetClient().Extrema(cmd.Context(), attr, ts, level, extremaGlobal)
		if err != nil {
			return fmt.Errorf("failed to get extrema: %w", err)
		}
		table := output.NewTableData("MIN", "MAX")
		table.AddRow(fmt.Sprintf("%g", e.Min), fmt.Sprintf("%g", e.Max))
		return cmdutil.PrintResource(cmd.OutOrStdout(), e, table)
	},
}

func init() {
	extremaCmd.Flags().BoolVar(&extremaGlobal, "global", false, "Use the global extrema of the attribute")
}
