package report

import (
	"encoding/json"
	"strings"

	"github.com/khanhnv2901/seca-snapshot/internal/checker"
)

// Facts is the document a report is synthesized from. HeaderFacts accepts
// either the header probe payload ({"headers": {...}}) or the bare header map.
// SSLInfo and HeaderInfo are older names for the same fields.
type Facts struct {
	CertificateFacts *checker.CertificateFacts `json:"certificateFacts"`
	HeaderFacts      json.RawMessage           `json:"headerFacts"`
	SSLInfo          *checker.CertificateFacts `json:"sslInfo,omitempty"`
	HeaderInfo       json.RawMessage           `json:"headerInfo,omitempty"`
}

// Certificate returns the certificate facts, preferring the current field name.
func (f Facts) Certificate() *checker.CertificateFacts {
	if f.CertificateFacts != nil {
		return f.CertificateFacts
	}
	return f.SSLInfo
}

// Headers decodes the header facts. It returns nil when neither field is set.
func (f Facts) Headers() (*checker.HeaderFacts, error) {
	raw := f.HeaderFacts
	if isNullJSON(raw) {
		raw = f.HeaderInfo
	}
	return decodeHeaderFacts(raw)
}

// Synthesize builds the report from the decoded facts.
func (f Facts) Synthesize() (*Report, error) {
	headers, err := f.Headers()
	if err != nil {
		return nil, err
	}
	return Synthesize(f.Certificate(), headers)
}

func isNullJSON(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}

// decodeHeaderFacts reads an object without a "headers" member as the header
// map itself.
func decodeHeaderFacts(raw json.RawMessage) (*checker.HeaderFacts, error) {
	if isNullJSON(raw) {
		return nil, nil
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, err
	}
	inner, wrapped := wrapper["headers"]
	if !wrapped {
		inner = raw
	}
	facts := &checker.HeaderFacts{}
	if isNullJSON(inner) {
		return facts, nil
	}
	if err := json.Unmarshal(inner, facts); err != nil {
		return nil, err
	}
	return facts, nil
}
