package layer

import (
	"fmt"
	"math"
	"os"

	"github.com/marmos91/oceancache/cmd/oceanctl/cmdutil"
	"github.com/marmos91/oceancache/internal/bytesize"
	"github.com/marmos91/oceancache/internal/cli/output"
	"github.com/marmos91/oceancache/pkg/layer"
	"github.com/spf13/cobra"
)

var (
	getOut    string
	getValues bool
)

var getCmd = &cobra.Command{
	Use:   "get <attribute> <timestamp> <level>",
	Short: "Fetch a layer",
	Long: `Fetch a layer, loading it on the server first when it is not cached.

Without --out a summary of the values is printed. --values prints every
value, one per line.`,
	Args: cobra.ExactArgs(3),
	RunE: runGet,
}

func init() {
	getCmd.Flags().StringVar(&getOut, "out", "", "Write the raw little-endian float32 layer to this file")
	getCmd.Flags().BoolVar(&getValues, "values", false, "Print every value")
}

func runGet(cmd *cobra.Command, args []string) error {
	attr, ts, level, err := cmdutil.ParseLayerArgs(args)
	if err != nil {
		return err
	}
	client := cmdutil.GetClient()
	out := cmd.OutOrStdout()

	if getOut != "" {
		data, err := client.GetLayerBytes(cmd.Context(), attr, ts, level)
		if err != nil {
			return fmt.Errorf("failed to get layer: %w", err)
		}
		if err := os.WriteFile(getOut, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", getOut, err)
		}
		cmdutil.PrintSuccess(out, fmt.Sprintf("Wrote %s (%s)", getOut, bytesize.ByteSize(len(data))))
		return nil
	}

	l, err := client.GetLayer(cmd.Context(), attr, ts, level)
	if err != nil {
		return fmt.Errorf("failed to get layer: %w", err)
	}

	if getValues {
		for _, v := range l.Values() {
			if _, err := fmt.Fprintln(out, v); err != nil {
				return err
			}
		}
		return nil
	}

	sum := summarize(l)
	table := output.NewTableData("Field", "Value")
	table.AddRow("Layer", fmt.Sprintf("%s %s %gm", attr, ts, float64(level)))
	table.AddRow("Values", fmt.Sprintf("%d", sum.Values))
	table.AddRow("Valid", fmt.Sprintf("%d", sum.Valid))
	table.AddRow("Size", bytesize.ByteSize(sum.Bytes).String())
	if sum.Valid > 0 {
		table.AddRow("Min", fmt.Sprintf("%g", sum.Min))
		table.AddRow("Max", fmt.Sprintf("%g", sum.Max))
	}
	return cmdutil.PrintResource(out, sum, table)
}

// layerSummary describes the values of one layer. NaN cells (land) are not
// counted as valid; Min and Max are zero when no cell is.
type layerSummary struct {
	Values int     `json:"values" yaml:"values"`
	Valid  int     `json:"valid" yaml:"valid"`
	Bytes  int     `json:"bytes" yaml:"bytes"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
}

func summarize(l *layer.Layer) layerSummary {
	s := layerSummary{Values: l.Len(), Bytes: l.SizeBytes()}
	for _, v := range l.Values() {
		f := float64(v)
		if math.IsNaN(f) {
			continue
		}
		if s.Valid == 0 || f < s.Min {
			s.Min = f
		}
		if s.Valid == 0 || f > s.Max {
			s.Max = f
		}
		s.Valid++
	}
	return s
}
