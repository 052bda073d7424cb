package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Format selects a report rendering.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "md"
	FormatPDF      Format = "pdf"
)

// ParseFormat maps a user-supplied format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unsupported report format %q (expected text|md|pdf)", s)
}

// Render produces the report bytes in the requested format.
func Render(r *Report, format Format, generatedAt time.Time) ([]byte, error) {
	switch format {
	case FormatText:
		return []byte(r.String() + "\n"), nil
	case FormatMarkdown:
		return []byte(RenderMarkdown(r)), nil
	case FormatPDF:
		return RenderPDF(r, generatedAt)
	}
	return nil, fmt.Errorf("unsupported report format %q", format)
}

// RenderMarkdown renders the report as a Markdown document.
func RenderMarkdown(r *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", Title)

	if r.Target != "" {
		fmt.Fprintf(&b, "**Target:** %s\n\n", r.Target)
	}
	if r.CertificateFinding != "" {
		b.WriteString("## Certificate\n\n")
		fmt.Fprintf(&b, "- %s\n\n", r.CertificateFinding)
	}

	b.WriteString("## Security headers\n\n")
	if len(r.Present) > 0 {
		fmt.Fprintf(&b, "✅ In place: %s. %s\n\n", strings.Join(r.Present, ", "), presentSuffix)
	}
	if len(r.Missing) > 0 {
		fmt.Fprintf(&b, "⚠️ Missing or weak: %s. %s\n\n", strings.Join(r.Missing, ", "), missingSuffix)
	}

	b.WriteString("## Next steps\n\n")
	for i, s := range r.NextSteps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	return b.String()
}

// RenderPDF renders the report as a single-page A4 PDF.
func RenderPDF(r *Report, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	// Title
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr(Title), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "I", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated %s", generatedAt.UTC().Format(time.RFC1123)), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	if r.Target != "" {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "Certificate", "", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, tr("Target: "+r.Target), "", 1, "", false, 0, "")
		if r.CertificateExpired {
			pdf.SetTextColor(180, 0, 0)
		}
		if r.CertificateFinding != "" {
			pdf.MultiCell(0, 5, tr(r.CertificateFinding), "", "", false)
		}
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(4)
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Security Headers", "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	if len(r.Present) > 0 {
		pdf.MultiCell(0, 5, tr(fmt.Sprintf("In place: %s. %s", strings.Join(r.Present, ", "), presentSuffix)), "", "", false)
		pdf.Ln(2)
	}
	if len(r.Missing) > 0 {
		pdf.SetTextColor(160, 90, 0)
		pdf.MultiCell(0, 5, tr(fmt.Sprintf("Missing or weak: %s. %s", strings.Join(r.Missing, ", "), missingSuffix)), "", "", false)
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Next Steps", "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	for _, s := range r.NextSteps {
		pdf.MultiCell(0, 5, tr("- "+s), "", "", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
