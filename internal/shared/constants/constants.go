package constants

import "time"

const (
	// DefaultCertTimeout bounds the TCP connect plus TLS handshake of a certificate probe.
	DefaultCertTimeout = 8 * time.Second
	// DefaultHeaderTimeout bounds the full HTTP round-trip of a header probe, redirects included.
	DefaultHeaderTimeout = 10 * time.Second
	// DefaultMaxRedirects caps how many redirects the header probe follows.
	DefaultMaxRedirects = 10
	// DefaultTLSPort is used for certificate probes when the target names no explicit port.
	DefaultTLSPort uint16 = 443
	// DefaultHTTPPort is the effective port of plain http targets.
	DefaultHTTPPort uint16 = 80
)

const (
	// RenewSoonDays is the day count under which a valid certificate is flagged for renewal.
	RenewSoonDays = 15
	// MaxRequestBodyBytes caps JSON bodies accepted by the API.
	MaxRequestBodyBytes = 1 << 20
)

const (
	// DefaultFilePerm is used for report and output files.
	DefaultFilePerm = 0o600
)
