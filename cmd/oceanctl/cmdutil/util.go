// Package cmdutil provides shared utilities for oceanctl commands.
package cmdutil

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/marmos91/oceancache/internal/cli/output"
	"github.com/marmos91/oceancache/internal/cli/prompt"
	"github.com/marmos91/oceancache/pkg/apiclient"
	"github.com/marmos91/oceancache/pkg/axis"
)

// DefaultServerURL is used when neither --server nor EnvServer is set.
const DefaultServerURL = "http://localhost:8180"

// EnvServer overrides the default server URL.
const EnvServer = "OCEANCTL_SERVER"

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	ServerURL string
	Output    string
	NoColor   bool
	Verbose   bool
	Timeout   time.Duration
}

// ServerURL returns the server to talk to: --server, then EnvServer, then
// DefaultServerURL.
func ServerURL() string {
	if Flags.ServerURL != "" {
		return Flags.ServerURL
	}
	if env := os.Getenv(EnvServer); env != "" {
		return env
	}
	return DefaultServerURL
}

// GetClient returns an API client for the configured server.
func GetClient() *apiclient.Client {
	client := apiclient.New(ServerURL())
	if Flags.Timeout > 0 {
		client = client.WithTimeout(Flags.Timeout)
	}
	return client
}

// GetOutputFormatParsed returns the parsed output format.
func GetOutputFormatParsed() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// IsColorDisabled returns whether color output is disabled.
func IsColorDisabled() bool {
	return Flags.NoColor
}

// IsVerbose returns whether verbose output is enabled.
func IsVerbose() bool {
	return Flags.Verbose
}

// PrintResource prints a resource in the selected format. In table format
// it uses tableRenderer.
func PrintResource(w io.Writer, data any, tableRenderer output.TableRenderer) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		return output.PrintTable(w, tableRenderer)
	}
}

// PrintResourceWithSuccess prints data as JSON/YAML, or successMsg in table
// format. Used by commands that change server state.
func PrintResourceWithSuccess(w io.Writer, data any, successMsg string) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		output.NewPrinter(w, format, !IsColorDisabled()).Success(successMsg)
		return nil
	}
}

// PrintSuccess prints a success message if the output format is table.
func PrintSuccess(w io.Writer, msg string) {
	format, err := GetOutputFormatParsed()
	if err != nil || format != output.FormatTable {
		return
	}
	output.NewPrinter(w, format, !IsColorDisabled()).Success(msg)
}

// Confirm asks for confirmation unless force is set. A declined or
// interrupted prompt prints "Aborted." and returns false.
func Confirm(w io.Writer, label string, force bool) (bool, error) {
	confirmed, err := prompt.ConfirmWithForce(label, force)
	if err != nil {
		if prompt.IsAborted(err) {
			_, _ = fmt.Fprintln(w, "\nAborted.")
			return false, nil
		}
		return false, err
	}
	if !confirmed {
		_, _ = fmt.Fprintln(w, "Aborted.")
	}
	return confirmed, nil
}

// ParseIntList parses a comma-separated list of integers. Empty input
// yields an empty, non-nil slice.
func ParseIntList(s string) ([]int, error) {
	result := []int{}
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		n, err := strconv.Atoi(item)
		if err != nil {
			return nil, fmt.Errorf("invalid index %q", item)
		}
		result = append(result, n)
	}
	return result, nil
}

// ParseLayerArgs parses the <attribute> <timestamp> <level> arguments
// naming one layer. The level is a depth in meters.
func ParseLayerArgs(args []string) (axis.Attribute, axis.Timestamp, axis.Level, error) {
	if len(args) != 3 {
		return "", axis.Timestamp{}, 0, fmt.Errorf("expected <attribute> <timestamp> <level>, got %d arguments", len(args))
	}
	ts, err := axis.ParseTimestamp(args[1])
	if err != nil {
		return "", axis.Timestamp{}, 0, err
	}
	depth, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return "", axis.Timestamp{}, 0, fmt.Errorf("invalid level %q: %w", args[2], err)
	}
	return axis.Attribute(args[0]), ts, axis.Level(depth), nil
}

// BoolToYesNo converts a boolean to "yes" or "no" string.
func BoolToYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// EmptyOr returns the value if not empty, otherwise returns the fallback.
// Useful for table display where empty fields should show "-".
func EmptyOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// FormatInts joins ints with commas, or "-" when empty.
func FormatInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return EmptyOr(strings.Join(parts, ","), "-")
}
