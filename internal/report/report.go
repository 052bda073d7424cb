// Package report turns probe facts into the narrative security snapshot.
package report

import (
	"fmt"
	"strings"

	"github.com/khanhnv2901/seca-snapshot/internal/checker"
	consts "github.com/khanhnv2901/seca-snapshot/internal/shared/constants"
	apperrors "github.com/khanhnv2901/seca-snapshot/internal/shared/errors"
)

// Title heads every report.
const Title = "SECA Security Snapshot"

const (
	expiredFinding   = "The SSL certificate appears to be expired. Browsers may show warnings and attackers can more easily intercept traffic."
	renewSoonFinding = "The certificate is valid but only for about %d more days. Plan a renewal soon to avoid downtime."
	validFinding     = "SSL certificate is valid for roughly %d more days, which is acceptable in the short term."

	presentSuffix = "These help reduce common web exploits and leaks."
	missingSuffix = "Adding these will harden the site against clickjacking, XSS and data exposure."
)

// NextSteps closes every report regardless of findings.
var NextSteps = []string{
	"Renew or monitor your SSL certificate so it never expires.",
	"Add the missing security headers at your reverse proxy or app layer.",
	"Re-run this scan after each change to verify improvements.",
}

// Report is the narrative derived from one set of probe facts.
type Report struct {
	Target             string   // empty when no certificate facts were supplied
	CertificateFinding string   // empty without certificate facts or a day count
	CertificateExpired bool
	Present            []string // display names of headers in place
	Missing            []string // display names of missing headers
	NextSteps          []string
}

// Synthesize applies the report rules to whichever facts are available. At
// least one of cert or headers must be non-nil. The result depends only on its
// inputs.
func Synthesize(cert *checker.CertificateFacts, headers *checker.HeaderFacts) (*Report, error) {
	if cert == nil && headers == nil {
		return nil, apperrors.ErrInsufficientInput
	}

	r := &Report{NextSteps: append([]string(nil), NextSteps...)}

	if cert != nil {
		r.Target = cert.Host
		if r.Target == "" {
			r.Target = "unknown host"
		}
		switch {
		case cert.IsExpired:
			r.CertificateFinding = expiredFinding
			r.CertificateExpired = true
		case !cert.HasDaysLeft():
		case cert.DaysLeft < consts.RenewSoonDays:
			r.CertificateFinding = fmt.Sprintf(renewSoonFinding, cert.DaysLeft)
		default:
			r.CertificateFinding = fmt.Sprintf(validFinding, cert.DaysLeft)
		}
	}

	// Absent header facts count every header as missing.
	for _, h := range headers.Present() {
		r.Present = append(r.Present, h.Label)
	}
	for _, h := range headers.Missing() {
		r.Missing = append(r.Missing, h.MissingLabel)
	}

	return r, nil
}

// Lines returns the report as ordered text lines. Lines may contain embedded
// newlines to separate sections.
func (r *Report) Lines() []string {
	lines := []string{Title + "\n"}

	if r.Target != "" {
		lines = append(lines, "Target: "+r.Target)
	}
	if r.CertificateFinding != "" {
		lines = append(lines, "- "+r.CertificateFinding)
	}
	if len(r.Present) > 0 {
		lines = append(lines, fmt.Sprintf("\n✅ Security headers in place: %s. %s", strings.Join(r.Present, ", "), presentSuffix))
	}
	if len(r.Missing) > 0 {
		lines = append(lines, fmt.Sprintf("\n⚠️ Missing or weak headers: %s. %s", strings.Join(r.Missing, ", "), missingSuffix))
	}

	var steps strings.Builder
	steps.WriteString("\nNext steps:")
	for _, s := range r.NextSteps {
		steps.WriteString("\n- ")
		steps.WriteString(s)
	}
	lines = append(lines, steps.String())

	return lines
}

// String renders the plain-text report.
func (r *Report) String() string {
	return strings.Join(r.Lines(), "\n")
}
