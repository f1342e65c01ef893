package commands

import (
	"fmt"
	"time"

	"github.com/marmos91/oceancache/cmd/oceanctl/cmdutil"
	"github.com/marmos91/oceancache/internal/cli/output"
	"github.com/marmos91/oceancache/pkg/apiclient"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server health",
	Long: `Check that the server is alive and that its layer source is reachable.

Exits with an error when the server does not answer. An unreachable layer
source is reported but does not fail the command.`,
	RunE: runHealth,
}

// healthReport combines liveness and readiness.
type healthReport struct {
	Server     string                `json:"server" yaml:"server"`
	Health     *apiclient.HealthInfo `json:"health" yaml:"health"`
	Ready      bool                  `json:"ready" yaml:"ready"`
	ReadyError string                `json:"ready_error,omitempty" yaml:"ready_error,omitempty"`
}

func runHealth(cmd *cobra.Command, args []string) error {
	client := cmdutil.GetClient()

	info, err := client.Health(cmd.Context())
	if err != nil {
		return fmt.Errorf("server not healthy: %w", err)
	}

	report := healthReport{Server: client.BaseURL(), Health: info, Ready: true}
	if err := client.Ready(cmd.Context()); err != nil {
		report.Ready = false
		report.ReadyError = err.Error()
	}

	ready := "yes"
	if !report.Ready {
		ready = "no (" + report.ReadyError + ")"
	}
	table := output.NewTableData("Field", "Value")
	table.AddRow("Server", client.BaseURL())
	table.AddRow("Service", info.Service)
	table.AddRow("Started", info.StartedAt.Local().Format(time.DateTime))
	table.AddRow("Uptime", output.Uptime(time.Duration(info.UptimeSec)*time.Second))
	table.AddRow("Ready", ready)
	return cmdutil.PrintResource(cmd.OutOrStdout(), report, table)
}
