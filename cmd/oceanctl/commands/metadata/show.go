package metadata

import (
	"fmt"
	"slices"

	"github.com/marmos91/oceancache/cmd/oceanctl/cmdutil"
	"github.com/marmos91/oceancache/internal/cli/output"
	"github.com/marmos91/oceancache/pkg/axis"
	"github.com/marmos91/oceancache/pkg/metadata"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show global extrema and overrides",
	RunE: func(cmd *cobra.Command, args []string) error {
		sum, err := cmdutil.GetClient().Metadata(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get metadata: %w", err)
		}
		return cmdutil.PrintResource(cmd.OutOrStdout(), sum, summaryTable(sum))
	},
}

func summaryTable(sum *metadata.Summary) *output.TableData {
	attrs := make([]axis.Attribute, 0, len(sum.Global))
	for attr := range sum.Global {
		attrs = append(attrs, attr)
	}
	slices.Sort(attrs)

	table := output.NewTableData("ATTRIBUTE", "MIN", "MAX", "OVERRIDE")
	for _, attr := range attrs {
		g := sum.Global[attr]
		override := "-"
		if o, ok := sum.Overrides[attr]; ok {
			override = formatExtrema(o)
		}
		table.AddRow(string(attr), fmt.Sprintf("%g", g.Min), fmt.Sprintf("%g", g.Max), override)
	}
	return table
}

func formatExtrema(e metadata.Extrema) string {
	return fmt.Sprintf("%g..%g", e.Min, e.Max)
}
