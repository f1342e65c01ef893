package commands

import (
	"fmt"
	"strconv"

	"github.com/marmos91/oceancache/cmd/oceanctl/cmdutil"
	"github.com/marmos91/oceancache/internal/cli/output"
	"github.com/marmos91/oceancache/pkg/axis"
	"github.com/marmos91/oceancache/pkg/prefetch"
	"github.com/spf13/cobra"
)

var gridAttribute string

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Show the cache status of every layer",
	Long: `Display the cache status of every layer of an attribute as a matrix,
one row per depth level and one column per timestamp.

Cells: # cached, * working, + queued, . missing

Examples:
  # Grid of the selected attribute
  oceanctl grid

  # Grid of salt as JSON
  oceanctl grid --attribute salt -o json`,
	RunE: runGrid,
}

func init() {
	gridCmd.Flags().StringVarP(&gridAttribute, "attribute", "a", "", "Attribute (default: the selected one)")
}

func runGrid(cmd *cobra.Command, args []string) error {
	grid, err := cmdutil.GetClient().Grid(cmd.Context(), axis.Attribute(gridAttribute))
	if err != nil {
		return fmt.Errorf("failed to get grid: %w", err)
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}
	if format != output.FormatTable {
		return cmdutil.PrintResource(cmd.OutOrStdout(), grid, nil)
	}

	out := cmd.OutOrStdout()
	cols, rows, cells := gridMatrix(grid)
	if err := output.PrintMatrix(out, "LEVEL", cols, rows, cells); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "\n%s: %d cached, %d working, %d queued, %d missing\n", grid.Attribute,
		grid.Count(prefetch.StatusCached), grid.Count(prefetch.StatusWorking),
		grid.Count(prefetch.StatusQueued), grid.Count(prefetch.StatusMissing))
	return nil
}

// gridMatrix lays a grid out as timestamp columns and level rows.
func gridMatrix(g *prefetch.Grid) (cols, rows []string, cells [][]string) {
	cols = make([]string, len(g.Timestamps))
	for i, ts := range g.Timestamps {
		// YYYY-MM is enough to tell monthly snapshots apart
		cols[i] = fmt.Sprintf("%04d-%02d", ts.Year, ts.Month)
	}

	rows = make([]string, len(g.Levels))
	cells = make([][]string, len(g.Levels))
	for i, l := range g.Levels {
		rows[i] = strconv.FormatFloat(float64(l), 'f', -1, 64)
		cells[i] = make([]string, len(g.Timestamps))
		for j := range g.Timestamps {
			if i < len(g.Cells) && j < len(g.Cells[i]) {
				cells[i][j] = statusSymbol(g.Cells[i][j])
			}
		}
	}
	return cols, rows, cells
}

func statusSymbol(s prefetch.CacheStatus) string {
	switch s {
	case prefetch.StatusCached:
		return "#"
	case prefetch.StatusWorking:
		return "*"
	case prefetch.StatusQueued:
		return "+"
	default:
		return "."
	}
}
