package config

import (
	"fmt"

	"github.com/marmos91/oceancache/pkg/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the oceancache configuration file.

Checks for syntax errors, missing required fields, and invalid values, and
that the dataset axes and metadata can be built from it.

Examples:
  # Validate default config
  oceancache config validate

  # Validate specific config file
  oceancache config validate --config /etc/oceancache/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	// Get config path from parent's persistent flag
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	axes, md, err := config.BuildDataset(cfg.Dataset)
	if err != nil {
		return fmt.Errorf("invalid dataset: %w", err)
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	var warnings []string
	if cfg.Source.Type == config.SourceFilesystem && cfg.Source.Filesystem.BasePath == "" {
		warnings = append(warnings, "Filesystem source without base_path reads from the working directory")
	}
	if !cfg.API.IsEnabled() {
		warnings = append(warnings, "Control API disabled - the selection cannot be changed at runtime")
	}
	if cfg.Scheduler.MaxConcurrency > 16 {
		warnings = append(warnings, "More than 16 slice workers may overload the layer source")
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintf(out, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(out, "  Source type:     %s\n", cfg.Source.Type)
	_, _ = fmt.Fprintf(out, "  Dataset:         %d attributes, %d timestamps, %d levels\n",
		len(axes.Attributes()), axes.NumTimestamps(), axes.NumLevels())
	_, _ = fmt.Fprintf(out, "  Metadata:        %t\n", md != nil)
	_, _ = fmt.Fprintf(out, "  API port:        %d\n", cfg.API.Port)
	_, _ = fmt.Fprintf(out, "  Log level:       %s\n", cfg.Logging.Level)

	return nil
}
