package checker

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
)

// SecurityHeader describes one canonical response header.
type SecurityHeader struct {
	Key          string // JSON key used in HeaderFacts
	Header       string // HTTP header name
	Label        string // display name when present
	MissingLabel string // display name when missing
}

// SecurityHeaders is the fixed, ordered allow-list shared by the header
// auditor and the report synthesizer. No other header is inspected.
var SecurityHeaders = []SecurityHeader{
	{Key: "strictTransportSecurity", Header: "Strict-Transport-Security", Label: "Strict-Transport-Security", MissingLabel: "Strict-Transport-Security (HSTS)"},
	{Key: "contentSecurityPolicy", Header: "Content-Security-Policy", Label: "Content-Security-Policy", MissingLabel: "Content-Security-Policy"},
	{Key: "xFrameOptions", Header: "X-Frame-Options", Label: "X-Frame-Options", MissingLabel: "X-Frame-Options"},
	{Key: "xContentTypeOptions", Header: "X-Content-Type-Options", Label: "X-Content-Type-Options", MissingLabel: "X-Content-Type-Options"},
	{Key: "referrerPolicy", Header: "Referrer-Policy", Label: "Referrer-Policy", MissingLabel: "Referrer-Policy"},
	{Key: "permissionsPolicy", Header: "Permissions-Policy", Label: "Permissions-Policy", MissingLabel: "Permissions-Policy"},
}

func isSecurityHeaderKey(key string) bool {
	for _, h := range SecurityHeaders {
		if h.Key == key {
			return true
		}
	}
	return false
}

// HeaderFacts holds the raw values of the canonical security headers seen on
// a single response. Absent headers have no entry.
type HeaderFacts struct {
	values map[string]string
}

// NewHeaderFacts extracts the canonical headers from a response header set.
// Lookup is case-insensitive; empty values count as absent.
func NewHeaderFacts(headers http.Header) *HeaderFacts {
	facts := &HeaderFacts{values: make(map[string]string, len(SecurityHeaders))}
	for _, h := range SecurityHeaders {
		if v := strings.TrimSpace(headers.Get(h.Header)); v != "" {
			facts.values[h.Key] = v
		}
	}
	return facts
}

// Get returns the raw value for a canonical key.
func (f *HeaderFacts) Get(key string) (string, bool) {
	if f == nil {
		return "", false
	}
	v, ok := f.values[key]
	return v, ok
}

// Present lists the canonical headers found, in allow-list order.
func (f *HeaderFacts) Present() []SecurityHeader {
	var out []SecurityHeader
	for _, h := range SecurityHeaders {
		if _, ok := f.Get(h.Key); ok {
			out = append(out, h)
		}
	}
	return out
}

// Missing lists the canonical headers not found, in allow-list order.
func (f *HeaderFacts) Missing() []SecurityHeader {
	var out []SecurityHeader
	for _, h := range SecurityHeaders {
		if _, ok := f.Get(h.Key); !ok {
			out = append(out, h)
		}
	}
	return out
}

// MarshalJSON always emits all six keys in allow-list order, null when absent.
func (f HeaderFacts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, h := range SecurityHeaders {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(h.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if v, ok := f.values[h.Key]; ok {
			val, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			buf.Write(val)
		} else {
			buf.WriteString("null")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts the six canonical keys; unknown keys are ignored and
// null or empty values are treated as absent.
func (f *HeaderFacts) UnmarshalJSON(data []byte) error {
	var raw map[string]*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.values = make(map[string]string, len(SecurityHeaders))
	for key, v := range raw {
		if v == nil || strings.TrimSpace(*v) == "" || !isSecurityHeaderKey(key) {
			continue
		}
		f.values[key] = *v
	}
	return nil
}
