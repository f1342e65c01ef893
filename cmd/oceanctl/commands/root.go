// Package commands implements the CLI commands of the oceanctl client.
package commands

import (
	"github.com/marmos91/oceancache/cmd/oceanctl/cmdutil"
	cachecmd "github.com/marmos91/oceancache/cmd/oceanctl/commands/cache"
	layercmd "github.com/marmos91/oceancache/cmd/oceanctl/commands/layer"
	metadatacmd "github.com/marmos91/oceancache/cmd/oceanctl/commands/metadata"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "oceanctl",
	Short: "oceanctl - Control client for an oceancache server",
	Long: `oceanctl drives an oceancache server through its control API.

Use it to move the selection, trigger or abort caching, inspect which
layers are cached, download layers and follow store writes.

Use "oceanctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Sync flags to cmdutil.Flags for subcommands
		cmdutil.Flags.ServerURL, _ = cmd.Flags().GetString("server")
		cmdutil.Flags.Output, _ = cmd.Flags().GetString("output")
		cmdutil.Flags.NoColor, _ = cmd.Flags().GetBool("no-color")
		cmdutil.Flags.Verbose, _ = cmd.Flags().GetBool("verbose")
		cmdutil.Flags.Timeout, _ = cmd.Flags().GetDuration("timeout")
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().String("server", "", "Server URL (default: $OCEANCTL_SERVER or http://localhost:8180)")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format (table|json|yaml)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Request timeout (default 30s)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(gridCmd)
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(rangeCmd)
	rootCmd.AddCommand(modeCmd)
	rootCmd.AddCommand(attributeCmd)
	rootCmd.AddCommand(slicesCmd)
	rootCmd.AddCommand(autocacheCmd)
	rootCmd.AddCommand(abortCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(cachecmd.Cmd)
	rootCmd.AddCommand(layercmd.Cmd)
	rootCmd.AddCommand(metadatacmd.Cmd)
	rootCmd.AddCommand(completionCmd)

	// Hide the default completion command (we provide our own)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
