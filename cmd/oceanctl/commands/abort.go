package commands

import (
	"fmt"

	"github.com/marmos91/oceancache/cmd/oceanctl/cmdutil"
	"github.com/marmos91/oceancache/pkg/apiclient"
	"github.com/spf13/cobra"
)

var abortForce bool

var abortCmd = &cobra.Command{
	Use:   "abort [all|block|slices]",
	Short: "Abort caching work",
	Long: `Abort the running caching rounds. "block" aborts the block round,
"slices" aborts the slice jobs, "all" (the default) aborts both.

Manual rounds started with 'oceanctl cache' are not affected.

Examples:
  # Abort everything without confirmation
  oceanctl abort --force`,
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{apiclient.AbortAll, apiclient.AbortBlock, apiclient.AbortSlices},
	RunE: func(cmd *cobra.Command, args []string) error {
		scope := apiclient.AbortAll
		if len(args) == 1 {
			scope = args[0]
		}
		ok, err := cmdutil.Confirm(cmd.OutOrStdout(), fmt.Sprintf("Abort %s caching rounds?", scope), abortForce)
		if err != nil || !ok {
			return err
		}
		if err := cmdutil.GetClient().Abort(cmd.Context(), scope); err != nil {
			return fmt.Errorf("failed to abort: %w", err)
		}
		cmdutil.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Aborted %s", scope))
		return nil
	},
}

func init() {
	abortCmd.Flags().BoolVarP(&abortForce, "force", "f", false, "Skip confirmation prompt")
}
