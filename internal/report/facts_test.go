package report

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	apperrors "github.com/khanhnv2901/seca-snapshot/internal/shared/errors"
)

func TestFactsDecoding(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantCert    bool
		wantHeaders bool
		wantPresent int
		wantErr     bool
	}{
		{name: "wrapped headers", input: `{"headerFacts":{"headers":{"xFrameOptions":"DENY"}}}`, wantHeaders: true, wantPresent: 1},
		{name: "bare headers", input: `{"headerFacts":{"xFrameOptions":"DENY","referrerPolicy":"no-referrer"}}`, wantHeaders: true, wantPresent: 2},
		{name: "wrapped null headers", input: `{"headerFacts":{"headers":null}}`, wantHeaders: true},
		{name: "legacy names", input: `{"sslInfo":{"host":"example.com"},"headerInfo":{"headers":{}}}`, wantCert: true, wantHeaders: true},
		{name: "current name wins", input: `{"certificateFacts":{"host":"new"},"sslInfo":{"host":"old"}}`, wantCert: true},
		{name: "empty", input: `{}`},
		{name: "headers not an object", input: `{"headerFacts":[1,2]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var facts Facts
			if err := json.Unmarshal([]byte(tt.input), &facts); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			headers, err := facts.Headers()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Headers returned error: %v", err)
			}
			if (facts.Certificate() != nil) != tt.wantCert {
				t.Errorf("certificate present = %v, want %v", facts.Certificate() != nil, tt.wantCert)
			}
			if (headers != nil) != tt.wantHeaders {
				t.Fatalf("headers present = %v, want %v", headers != nil, tt.wantHeaders)
			}
			if headers != nil && len(headers.Present()) != tt.wantPresent {
				t.Errorf("present headers = %d, want %d", len(headers.Present()), tt.wantPresent)
			}
		})
	}
}

func TestFactsPreferCurrentCertificateField(t *testing.T) {
	var facts Facts
	if err := json.Unmarshal([]byte(`{"certificateFacts":{"host":"new"},"sslInfo":{"host":"old"}}`), &facts); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if facts.Certificate().Host != "new" {
		t.Fatalf("expected certificateFacts to win, got %q", facts.Certificate().Host)
	}
}

func TestFactsSynthesizeEmpty(t *testing.T) {
	if _, err := (Facts{}).Synthesize(); !errors.Is(err, apperrors.ErrInsufficientInput) {
		t.Fatalf("expected ErrInsufficientInput, got %v", err)
	}
}

func TestFactsWithoutDayCount(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantTarget  string
		wantFinding string
	}{
		{name: "empty certificate", input: `{"certificateFacts":{}}`, wantTarget: "Target: unknown host"},
		{name: "host only", input: `{"certificateFacts":{"host":"example.com"}}`, wantTarget: "Target: example.com"},
		{name: "null day count", input: `{"certificateFacts":{"host":"example.com","daysLeft":null}}`, wantTarget: "Target: example.com"},
		{name: "expired without day count", input: `{"certificateFacts":{"isExpired":true}}`, wantTarget: "Target: unknown host", wantFinding: "appears to be expired"},
		{name: "zero day count", input: `{"certificateFacts":{"host":"example.com","daysLeft":0}}`, wantTarget: "Target: example.com", wantFinding: "about 0 more days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var facts Facts
			if err := json.Unmarshal([]byte(tt.input), &facts); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			r, err := facts.Synthesize()
			if err != nil {
				t.Fatalf("Synthesize returned error: %v", err)
			}
			out := r.String()
			if !strings.Contains(out, tt.wantTarget) {
				t.Errorf("expected %q in %q", tt.wantTarget, out)
			}
			if tt.wantFinding == "" {
				if r.CertificateFinding != "" {
					t.Errorf("expected no certificate finding, got %q", r.CertificateFinding)
				}
				if strings.Contains(out, "more days") {
					t.Errorf("unexpected day count in %q", out)
				}
				return
			}
			if !strings.Contains(r.CertificateFinding, tt.wantFinding) {
				t.Errorf("finding = %q, want %q", r.CertificateFinding, tt.wantFinding)
			}
		})
	}
}
