package layer

import (
	"fmt"

	"github.com/marmos91/oceancache/cmd/oceanctl/cmdutil"
	"github.com/marmos91/oceancache/internal/cli/output"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <attribute> <timestamp> <level>",
	Short: "Show the cache status of a layer",
	Long:  `Show whether a layer is missing, queued, being loaded or cached. Nothing is loaded.`,
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		attr, ts, level, err := cmdutil.ParseLayerArgs(args)
		if err != nil {
			return err
		}
		st, err := cmdutil.GetClient().LayerStatus(cmd.Context(), attr, ts, level)
		if err != nil {
			return fmt.Errorf("failed to get layer status: %w", err)
		}
		table := output.NewTableData("ATTRIBUTE", "TIMESTAMP", "LEVEL", "STATUS")
		table.AddRow(string(st.Attribute), st.Timestamp.String(), fmt.Sprintf("%gm", float64(st.Level)), st.Status.String())
		return cmdutil.PrintResource(cmd.OutOrStdout(), st, table)
	},
}
