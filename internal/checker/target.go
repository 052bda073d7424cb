package checker

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	consts "github.com/khanhnv2901/seca-snapshot/internal/shared/constants"
	apperrors "github.com/khanhnv2901/seca-snapshot/internal/shared/errors"
)

// ScanTarget is a normalized, connectable origin. It is produced once per scan
// and shared read-only by both probes.
type ScanTarget struct {
	RawInput string `json:"rawInput"`
	Scheme   string `json:"scheme"`
	Host     string `json:"host"`
	Port     uint16 `json:"port"`

	explicitPort bool
}

// ResolveTarget parses free-form user input into a ScanTarget.
// This handles various input formats:
//   - example.com
//   - http://example.com
//   - https://example.com:8443/path?q=1
//
// Inputs without an http/https scheme are treated as https. Only the origin is
// kept; path, query, fragment and userinfo are discarded.
func ResolveTarget(raw string) (ScanTarget, error) {
	input := strings.TrimSpace(raw)
	if input == "" {
		return ScanTarget{}, fmt.Errorf("%w: empty input", apperrors.ErrInvalidTarget)
	}

	if !hasHTTPScheme(input) {
		input = "https://" + input
	}

	parsed, err := url.Parse(input)
	if err != nil {
		return ScanTarget{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidTarget, err)
	}

	host := parsed.Hostname()
	if !isValidHost(host) {
		return ScanTarget{}, fmt.Errorf("%w: %q is not a valid host name", apperrors.ErrInvalidTarget, host)
	}

	target := ScanTarget{
		RawInput: raw,
		Scheme:   strings.ToLower(parsed.Scheme),
		Host:     strings.ToLower(host),
	}

	if p := parsed.Port(); p != "" {
		port, err := strconv.ParseUint(p, 10, 16)
		if err != nil || port == 0 {
			return ScanTarget{}, fmt.Errorf("%w: invalid port %q", apperrors.ErrInvalidTarget, p)
		}
		target.Port = uint16(port)
		target.explicitPort = true
	} else if target.Scheme == "http" {
		target.Port = consts.DefaultHTTPPort
	} else {
		target.Port = consts.DefaultTLSPort
	}

	return target, nil
}

// TLSPort is the port used for the certificate probe: the explicit port when
// the input named one, otherwise 443 regardless of scheme.
func (t ScanTarget) TLSPort() uint16 {
	if t.explicitPort {
		return t.Port
	}
	return consts.DefaultTLSPort
}

// Origin renders scheme://host:port, always including the port.
func (t ScanTarget) Origin() string {
	return t.Scheme + "://" + net.JoinHostPort(t.Host, strconv.Itoa(int(t.Port)))
}

// URL is the origin as an HTTP request URL; default ports are omitted so the
// Host header matches what a browser would send.
func (t ScanTarget) URL() string {
	if (t.Scheme == "https" && t.Port == consts.DefaultTLSPort) || (t.Scheme == "http" && t.Port == consts.DefaultHTTPPort) {
		host := t.Host
		if strings.Contains(host, ":") {
			host = "[" + host + "]"
		}
		return t.Scheme + "://" + host
	}
	return t.Origin()
}

// TLSAddress is the host:port dialed by the certificate probe.
func (t ScanTarget) TLSAddress() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(int(t.TLSPort())))
}

func (t ScanTarget) String() string {
	return t.Origin()
}

func hasHTTPScheme(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// isValidHost accepts IP literals and syntactically valid DNS names.
func isValidHost(host string) bool {
	if host == "" {
		return false
	}
	if net.ParseIP(host) != nil {
		return true
	}
	if len(host) > 253 {
		return false
	}
	host = strings.TrimSuffix(host, ".")
	for _, label := range strings.Split(host, ".") {
		if len(label) == 0 || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, r := range label {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			default:
				return false
			}
		}
	}
	return true
}
