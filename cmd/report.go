package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/khanhnv2901/seca-snapshot/internal/report"
	consts "github.com/khanhnv2901/seca-snapshot/internal/shared/constants"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render a report from previously collected facts",
	Long: `Render a report from a JSON document of the form
{"certificateFacts": {...}, "headerFacts": {...}}. Either side may be omitted
but not both. Use --input - to read from stdin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")
		formatName, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		if input == "" {
			return fmt.Errorf("--input is required")
		}
		format, err := report.ParseFormat(formatName)
		if err != nil {
			return err
		}
		if format == report.FormatPDF && output == "" {
			return fmt.Errorf("--output is required for pdf format")
		}

		facts, err := readFacts(cmd.InOrStdin(), input)
		if err != nil {
			return err
		}
		rep, err := facts.Synthesize()
		if err != nil {
			return err
		}
		data, err := report.Render(rep, format, time.Now())
		if err != nil {
			return fmt.Errorf("failed to generate report: %w", err)
		}
		return writeOutput(cmd.OutOrStdout(), output, data)
	},
}

// readFacts decodes the facts document from path, or from stdin when path is "-".
func readFacts(stdin io.Reader, path string) (report.Facts, error) {
	var r io.Reader
	if path == "-" {
		r = stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return report.Facts{}, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	var facts report.Facts
	if err := json.NewDecoder(io.LimitReader(r, consts.MaxRequestBodyBytes)).Decode(&facts); err != nil {
		return report.Facts{}, fmt.Errorf("invalid facts document: %w", err)
	}
	return facts, nil
}

func init() {
	reportCmd.Flags().StringP("input", "i", "", "facts JSON file (- for stdin)")
	reportCmd.Flags().StringP("format", "f", "text", "output format: text, md, or pdf")
	reportCmd.Flags().StringP("output", "O", "", "write report to file instead of stdout")
}
