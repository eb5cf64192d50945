package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilnhq/kiln/internal/output"
	"github.com/kilnhq/kiln/internal/parser"
	"github.com/kilnhq/kiln/internal/pipeline"
	"github.com/kilnhq/kiln/internal/report"
)

var (
	renderFormat string
	renderOut    string
)

var renderCmd = &cobra.Command{
	Use:   "render <file>",
	Short: "Render a report for one log file",
	Long: `Parse a log file, aggregate its records and write the report
artifacts to a directory. The summary table is printed to the terminal.

Examples:
  kiln render results.csv
  kiln render run.txt --format txt --out reports/run
  kiln render results.json --output json`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVar(&renderFormat, "format", "", "record format: csv, json, txt (default: from file extension)")
	renderCmd.Flags().StringVar(&renderOut, "out", "", "report directory (default: kiln-report/<file stem>)")
}

func runRender(cmd *cobra.Command, args []string) error {
	path := args[0]

	format, err := resolveFormat(renderFormat, path)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	res, err := pipeline.Run(cmd.Context(), pipeline.Input{
		Source: filepath.Base(path),
		Format: format,
		Data:   data,
	}, nil)
	if err != nil {
		return err
	}

	dir := renderOut
	if dir == "" {
		base := filepath.Base(path)
		dir = filepath.Join("kiln-report", strings.TrimSuffix(base, filepath.Ext(base)))
	}
	if err := report.WriteDir(dir, res.Report); err != nil {
		return err
	}

	if err := newRenderer().Render(res.Summary); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "🔥 report written to %s\n", dir)
	return nil
}

// resolveFormat picks the record format from the flag value, falling back
// to the file extension.
func resolveFormat(flag, path string) (parser.Format, error) {
	if flag != "" {
		return parser.ParseFormat(flag)
	}
	return parser.DetectFormat(path)
}

// newRenderer picks the terminal renderer from the --output flag.
func newRenderer() output.Renderer {
	if strings.ToLower(outputFmt) == "json" {
		return output.NewJSONRenderer()
	}
	return output.NewTextRenderer()
}
