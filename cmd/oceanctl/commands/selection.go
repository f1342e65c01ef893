package commands

import (
	"fmt"
	"strconv"

	"github.com/marmos91/oceancache/cmd/oceanctl/cmdutil"
	"github.com/marmos91/oceancache/pkg/apiclient"
	"github.com/marmos91/oceancache/pkg/axis"
	"github.com/marmos91/oceancache/pkg/prefetch"
	"github.com/spf13/cobra"
)

var selectCmd = &cobra.Command{
	Use:   "select <timestamp-index> <level-index>",
	Short: "Move the selection",
	Long: `Select the layer at a timestamp and level index. With auto caching on,
the server aborts the running rounds and starts new ones around it.

Examples:
  # Select the third timestamp at the surface
  oceanctl select 2 0`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ts, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid timestamp index %q", args[0])
		}
		level, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid level index %q", args[1])
		}
		return applySelection(cmd, func(c *apiclient.Client) (*prefetch.State, error) {
			return c.Select(cmd.Context(), apiclient.SelectRequest{TimestampIndex: ts, LevelIndex: level})
		})
	},
}

var rangeCmd = &cobra.Command{
	Use:   "range <lo> <hi>",
	Short: "Set the visible range of the point axis",
	Long: `Set the inclusive index range of the point axis (levels in space mode,
timestamps in time mode) that the block round caches first.

Examples:
  # Only the top 10 levels in space mode
  oceanctl range 0 9`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lo, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid range start %q", args[0])
		}
		hi, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid range end %q", args[1])
		}
		return applySelection(cmd, func(c *apiclient.Client) (*prefetch.State, error) {
			return c.SetRange(cmd.Context(), prefetch.Range{Lo: lo, Hi: hi})
		})
	},
}

var modeCmd = &cobra.Command{
	Use:       "mode <space|time>",
	Short:     "Switch between space and time mode",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{string(axis.ModeSpace), string(axis.ModeTime)},
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := axis.ParseMode(args[0])
		if err != nil {
			return err
		}
		return applySelection(cmd, func(c *apiclient.Client) (*prefetch.State, error) {
			return c.SetMode(cmd.Context(), mode)
		})
	},
}

var attributeCmd = &cobra.Command{
	Use:   "attribute <name>",
	Short: "Change the selected attribute",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return applySelection(cmd, func(c *apiclient.Client) (*prefetch.State, error) {
			return c.SetAttribute(cmd.Context(), axis.Attribute(args[0]))
		})
	},
}

var slicesCmd = &cobra.Command{
	Use:   "slices [indices]",
	Short: "Pin point-axis slices",
	Long: `Replace the pinned slices with a comma-separated list of point-axis
indices. Without an argument all slices are unpinned.

Examples:
  # Pin levels 5 and 20 in space mode
  oceanctl slices 5,20

  # Unpin everything
  oceanctl slices`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pts := []int{}
		if len(args) == 1 {
			var err error
			if pts, err = cmdutil.ParseIntList(args[0]); err != nil {
				return err
			}
		}
		return applySelection(cmd, func(c *apiclient.Client) (*prefetch.State, error) {
			return c.SetSlices(cmd.Context(), pts)
		})
	},
}

var autocacheCmd = &cobra.Command{
	Use:       "autocache <on|off>",
	Short:     "Turn automatic caching on or off",
	Long:      `Turning auto caching off aborts every running round. Turning it on starts rounds for the current selection.`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return applySelection(cmd, func(c *apiclient.Client) (*prefetch.State, error) {
			return c.SetAutoCache(cmd.Context(), args[0] == "on")
		})
	},
}

// applySelection sends one selection change and prints the resulting
// selection.
func applySelection(cmd *cobra.Command, fn func(*apiclient.Client) (*prefetch.State, error)) error {
	state, err := fn(cmdutil.GetClient())
	if err != nil {
		return err
	}
	sel := state.Selection
	return cmdutil.PrintResourceWithSuccess(cmd.OutOrStdout(), state, fmt.Sprintf(
		"Selected %s %s t=%d l=%d range=%d..%d slices=%s auto_cache=%s",
		sel.Mode, sel.Attribute, sel.Timestamp, sel.Level, sel.Range.Lo, sel.Range.Hi,
		cmdutil.FormatInts(sel.Slices), cmdutil.BoolToYesNo(state.AutoCache)))
}
