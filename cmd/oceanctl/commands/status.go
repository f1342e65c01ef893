package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/marmos91/oceancache/cmd/oceanctl/cmdutil"
	"github.com/marmos91/oceancache/internal/bytesize"
	"github.com/marmos91/oceancache/pkg/prefetch"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show scheduler status",
	Long: `Display the state of the connected oceancache server: the selection,
the running caching rounds, the worker pool and the size of the layer store.

Examples:
  # Show status
  oceanctl status

  # Output as JSON
  oceanctl status -o json`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	state, err := cmdutil.GetClient().Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	return cmdutil.PrintResource(cmd.OutOrStdout(), state, stateTable{state})
}

// stateTable renders a scheduler state as field/value rows.
type stateTable struct {
	state *prefetch.State
}

func (t stateTable) Headers() []string { return []string{"Field", "Value"} }

func (t stateTable) Rows() [][]string {
	s := t.state
	sel := s.Selection

	block := "idle"
	if s.Block.Active {
		block = fmt.Sprintf("block %d", s.Block.Block)
		if s.Block.InRangeOnly {
			block += " (range)"
		} else {
			block += " (full)"
		}
	}

	working := 0
	for _, j := range s.Slices.Jobs {
		if j.Working {
			working++
		}
	}

	preloading := "-"
	if len(s.Preloading) > 0 {
		names := make([]string, len(s.Preloading))
		for i, a := range s.Preloading {
			names[i] = string(a)
		}
		preloading = strings.Join(names, ",")
	}

	return [][]string{
		{"Mode", string(sel.Mode)},
		{"Attribute", string(sel.Attribute)},
		{"Timestamp index", strconv.Itoa(sel.Timestamp)},
		{"Level index", strconv.Itoa(sel.Level)},
		{"Range", fmt.Sprintf("%d..%d", sel.Range.Lo, sel.Range.Hi)},
		{"Slices", cmdutil.FormatInts(sel.Slices)},
		{"Auto cache", cmdutil.BoolToYesNo(s.AutoCache)},
		{"Block round", block},
		{"Slice jobs", fmt.Sprintf("%d (%d working)", len(s.Slices.Jobs), working)},
		{"Pool", fmt.Sprintf("%d running, %d queued, max %d", s.Pool.Running, s.Pool.Queued, s.Pool.MaxConcurrency)},
		{"Store", fmt.Sprintf("%d layers, %s", s.Store.Layers, bytesize.ByteSize(s.Store.Bytes))},
		{"Preloading", preloading},
	}
}
