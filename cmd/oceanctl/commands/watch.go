package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/marmos91/oceancache/cmd/oceanctl/cmdutil"
	"github.com/marmos91/oceancache/internal/cli/output"
	"github.com/marmos91/oceancache/pkg/apiclient"
	"github.com/spf13/cobra"
)

var watchAttribute string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow layers as they are cached",
	Long: `Print one line for every layer the server writes to its store, until
interrupted. With -o json or -o yaml each event is printed as one JSON line.

Examples:
  # Follow every store write
  oceanctl watch

  # Only theta, as JSON lines
  oceanctl watch --attribute theta -o json`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchAttribute, "attribute", "a", "", "Only show layers of this attribute")
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	if format == output.FormatTable && cmdutil.IsVerbose() {
		_, _ = fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)...\n", cmdutil.ServerURL())
	}

	return cmdutil.GetClient().Watch(ctx, func(ev apiclient.LayerEvent) error {
		if watchAttribute != "" && string(ev.Attribute) != watchAttribute {
			return nil
		}
		if format != output.FormatTable {
			return output.PrintJSONCompact(out, ev)
		}
		_, err := fmt.Fprintf(out, "%-14s %s %8gm %7d values\n", ev.Attribute, ev.Timestamp, float64(ev.Level), ev.Values)
		return err
	})
}
