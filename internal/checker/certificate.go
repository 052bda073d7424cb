package checker

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"math"
	"net"
	"time"

	consts "github.com/khanhnv2901/seca-snapshot/internal/shared/constants"
	apperrors "github.com/khanhnv2901/seca-snapshot/internal/shared/errors"
)

// CertificateFacts describes the lifecycle of a target's leaf certificate.
type CertificateFacts struct {
	Host      string    `json:"host"`
	Issuer    *string   `json:"issuer"`
	Subject   *string   `json:"subject"`
	ValidFrom time.Time `json:"validFrom"`
	ValidTo   time.Time `json:"validTo"`
	DaysLeft  int       `json:"daysLeft"`
	IsExpired bool      `json:"isExpired"`

	// daysUnknown is set when a decoded document carried no daysLeft value.
	daysUnknown bool
}

// HasDaysLeft reports whether DaysLeft holds a real day count.
func (c *CertificateFacts) HasDaysLeft() bool {
	return c != nil && !c.daysUnknown
}

// UnmarshalJSON records whether daysLeft was present so that an empty or
// partial document does not read as zero days remaining.
func (c *CertificateFacts) UnmarshalJSON(data []byte) error {
	type plain CertificateFacts
	aux := struct {
		*plain
		DaysLeft *int `json:"daysLeft"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.daysUnknown = aux.DaysLeft == nil
	if aux.DaysLeft != nil {
		c.DaysLeft = *aux.DaysLeft
	}
	return nil
}

// NewCertificateFacts derives facts from a leaf certificate at instant now.
// DaysLeft is rounded and left unclamped; IsExpired is the authoritative
// expiry signal.
func NewCertificateFacts(host string, cert *x509.Certificate, now time.Time) *CertificateFacts {
	validTo := cert.NotAfter.UTC()
	return &CertificateFacts{
		Host:      host,
		Issuer:    issuerName(cert),
		Subject:   optional(cert.Subject.CommonName),
		ValidFrom: cert.NotBefore.UTC(),
		ValidTo:   validTo,
		DaysLeft:  daysUntil(validTo, now),
		IsExpired: now.After(validTo),
	}
}

// daysUntil rounds half-days toward positive infinity.
func daysUntil(t, now time.Time) int {
	days := t.Sub(now).Hours() / 24
	return int(math.Floor(days + 0.5))
}

// issuerName prefers the organization, then common name, then organizational unit.
func issuerName(cert *x509.Certificate) *string {
	if len(cert.Issuer.Organization) > 0 && cert.Issuer.Organization[0] != "" {
		return optional(cert.Issuer.Organization[0])
	}
	if cert.Issuer.CommonName != "" {
		return optional(cert.Issuer.CommonName)
	}
	if len(cert.Issuer.OrganizationalUnit) > 0 {
		return optional(cert.Issuer.OrganizationalUnit[0])
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// CertificateInspector reads the leaf certificate a target presents during the
// TLS handshake.
type CertificateInspector struct {
	Timeout time.Duration

	// SkipChainValidation completes the handshake without verifying the
	// certificate chain so that expired, self-signed or otherwise untrusted
	// leaf certificates can still be read and reported on.
	SkipChainValidation bool

	// Now overrides the clock used for DaysLeft/IsExpired.
	Now func() time.Time
}

// NewCertificateInspector returns an inspector with the default timeout that
// skips chain validation.
func NewCertificateInspector() *CertificateInspector {
	return &CertificateInspector{
		Timeout:             consts.DefaultCertTimeout,
		SkipChainValidation: true,
	}
}

// Inspect dials the target, completes a TLS handshake with SNI set to the
// target host and returns facts about the peer's leaf certificate. The
// connection is closed before Inspect returns.
func (c *CertificateInspector) Inspect(ctx context.Context, target ScanTarget) (*CertificateFacts, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = consts.DefaultCertTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: timeout},
		Config: &tls.Config{
			ServerName:         target.Host,
			InsecureSkipVerify: c.SkipChainValidation, // #nosec G402 -- leaf is read, not trusted
		},
	}

	conn, err := dialer.DialContext(ctx, "tcp", target.TLSAddress())
	if err != nil {
		kind := apperrors.ErrProbeConnectionFailed
		if isTimeout(err) {
			kind = apperrors.ErrProbeTimeout
		}
		return nil, &ProbeError{Probe: "certificate", Target: target.TLSAddress(), Kind: kind, Err: err}
	}
	defer conn.Close()

	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return nil, &ProbeError{Probe: "certificate", Target: target.TLSAddress(), Kind: apperrors.ErrNoCertificate}
	}
	state := tlsConn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return nil, &ProbeError{Probe: "certificate", Target: target.TLSAddress(), Kind: apperrors.ErrNoCertificate}
	}

	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}
	return NewCertificateFacts(target.Host, state.PeerCertificates[0], now), nil
}
