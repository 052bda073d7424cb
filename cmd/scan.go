package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/khanhnv2901/seca-snapshot/internal/checker"
	"github.com/khanhnv2901/seca-snapshot/internal/report"
	consts "github.com/khanhnv2901/seca-snapshot/internal/shared/constants"
	apperrors "github.com/khanhnv2901/seca-snapshot/internal/shared/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	jsonPrefix = ""
	jsonIndent = "  "
)

// scanOutput is the JSON shape of one scanned target.
type scanOutput struct {
	ID               string                    `json:"id,omitempty"`
	Input            string                    `json:"input"`
	Target           string                    `json:"target,omitempty"`
	CheckedAt        time.Time                 `json:"checkedAt"`
	Status           string                    `json:"status"`
	Error            string                    `json:"error,omitempty"`
	Certificate      *checker.CertificateFacts `json:"certificate,omitempty"`
	CertificateError string                    `json:"certificateError,omitempty"`
	Headers          *checker.HeaderFacts      `json:"headers,omitempty"`
	HeadersError     string                    `json:"headersError,omitempty"`
	Report           string                    `json:"report,omitempty"`
	DurationSeconds  float64                   `json:"durationSeconds"`
}

var scanCmd = &cobra.Command{
	Use:   "scan <target>...",
	Short: "Probe certificate and headers of one or more targets and print the report",
	Example: `  seca-snapshot scan example.com
  seca-snapshot scan https://example.com http://localhost:8080 --format json
  seca-snapshot scan example.com --format pdf --output snapshot.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd, args, cliConfig.Scan)
	},
}

func runScan(cmd *cobra.Command, inputs []string, cfg ScanConfig) error {
	format := strings.ToLower(strings.TrimSpace(cfg.Format))
	var renderFormat report.Format
	if format != "json" {
		f, err := report.ParseFormat(format)
		if err != nil {
			return fmt.Errorf("invalid format: %s (must be text, json, md, or pdf)", cfg.Format)
		}
		renderFormat = f
	}
	if renderFormat == report.FormatPDF {
		if len(inputs) != 1 {
			return errors.New("pdf output supports a single target")
		}
		if cfg.Output == "" {
			return errors.New("--output is required for pdf format")
		}
	}

	scanner := newScanner(cliConfig.Probe)
	runner := &checker.Runner{Concurrency: cfg.Concurrency, RateLimit: cfg.RateLimit}

	var progress *progressPrinter
	if cfg.Progress && len(inputs) > 1 {
		progress = newProgressPrinter(cmd.ErrOrStderr(), len(inputs), "scan")
		progress.Start()
	}

	ctx := commandContext(cmd)

	start := time.Now()
	results := runner.Run(ctx, scanner, inputs, func(result checker.ScanResult) {
		if progress != nil {
			progress.Increment(scanStatus(result), result.Duration.Seconds())
		}
	})
	if progress != nil {
		progress.Stop()
	}

	getLogger().Info("scan_finished",
		zap.Int("targets", len(inputs)),
		zap.Duration("duration", time.Since(start)),
	)

	data, err := renderScanResults(results, format, renderFormat, time.Now())
	if err != nil {
		return err
	}
	if err := writeOutput(cmd.OutOrStdout(), cfg.Output, data); err != nil {
		return err
	}
	if cfg.Output != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s Report written to %s\n", colorInfo("→"), cfg.Output)
	}

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}
	if failed > 0 {
		return &ScanFailedError{Failed: failed, Total: len(results)}
	}
	return nil
}

// scanStatus is "ok" when both probes succeeded, "partial" when one did.
func scanStatus(result checker.ScanResult) string {
	switch {
	case result.Certificate != nil && result.Headers != nil:
		return "ok"
	case result.OK():
		return "partial"
	default:
		return "failed"
	}
}

func newScanOutput(result checker.ScanResult) scanOutput {
	out := scanOutput{
		ID:              result.ID,
		Input:           result.Input,
		CheckedAt:       result.CheckedAt,
		Status:          scanStatus(result),
		Certificate:     result.Certificate,
		Headers:         result.Headers,
		DurationSeconds: result.Duration.Seconds(),
	}
	if result.Target != nil {
		out.Target = result.Target.Origin()
	}
	if result.TargetErr != nil {
		out.Error = result.TargetErr.Error()
	}
	if result.CertificateErr != nil {
		out.CertificateError = result.CertificateErr.Error()
	}
	if result.HeadersErr != nil {
		out.HeadersError = result.HeadersErr.Error()
	}
	if rep, err := report.Synthesize(result.Certificate, result.Headers); err == nil {
		out.Report = rep.String()
	}
	return out
}

func renderScanResults(results []checker.ScanResult, format string, renderFormat report.Format, generatedAt time.Time) ([]byte, error) {
	if format == "json" {
		outputs := make([]scanOutput, 0, len(results))
		for _, r := range results {
			outputs = append(outputs, newScanOutput(r))
		}
		data, err := json.MarshalIndent(outputs, jsonPrefix, jsonIndent)
		if err != nil {
			return nil, fmt.Errorf("encode results: %w", err)
		}
		return append(data, '\n'), nil
	}

	var buf bytes.Buffer
	for i, result := range results {
		if i > 0 {
			if renderFormat == report.FormatMarkdown {
				buf.WriteString("\n---\n\n")
			} else {
				buf.WriteString("\n")
			}
		}

		header := fmt.Sprintf("%s %s", formatStatusWithColor(strings.ToUpper(scanStatus(result))), result.Input)
		if renderFormat == report.FormatText {
			buf.WriteString(header + "\n")
		}

		if result.TargetErr != nil {
			if renderFormat == report.FormatPDF {
				return nil, result.TargetErr
			}
			fmt.Fprintf(&buf, "  %s %v\n", colorError("✗"), result.TargetErr)
			continue
		}
		if renderFormat == report.FormatText {
			if result.CertificateErr != nil {
				fmt.Fprintf(&buf, "  %s certificate probe: %v\n", colorWarn("!"), result.CertificateErr)
			}
			if result.HeadersErr != nil {
				fmt.Fprintf(&buf, "  %s header probe: %v\n", colorWarn("!"), result.HeadersErr)
			}
			buf.WriteString("\n")
		}

		rep, err := report.Synthesize(result.Certificate, result.Headers)
		if errors.Is(err, apperrors.ErrInsufficientInput) {
			if renderFormat == report.FormatPDF {
				return nil, err
			}
			fmt.Fprintf(&buf, "  %s both probes failed; no report\n", colorError("✗"))
			continue
		}
		if err != nil {
			return nil, err
		}

		data, err := report.Render(rep, renderFormat, generatedAt)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	return buf.Bytes(), nil
}

// writeOutput writes data to path, or to w when path is empty.
func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := w.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, consts.DefaultFilePerm); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func init() {
	scanCmd.Flags().IntVar(&cliConfig.Scan.Concurrency, "concurrency", cliConfig.Scan.Concurrency, "maximum targets scanned at once")
	scanCmd.Flags().IntVar(&cliConfig.Scan.RateLimit, "rate-limit", cliConfig.Scan.RateLimit, "scans started per second (0 = unlimited)")
	scanCmd.Flags().StringVarP(&cliConfig.Scan.Format, "format", "f", cliConfig.Scan.Format, "output format: text, json, md, or pdf")
	scanCmd.Flags().StringVarP(&cliConfig.Scan.Output, "output", "O", "", "write output to file instead of stdout")
	scanCmd.Flags().BoolVar(&cliConfig.Scan.Progress, "progress", cliConfig.Scan.Progress, "show progress on stderr when scanning several targets")
}
