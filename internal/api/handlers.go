package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/khanhnv2901/seca-snapshot/internal/checker"
	"github.com/khanhnv2901/seca-snapshot/internal/report"
	consts "github.com/khanhnv2901/seca-snapshot/internal/shared/constants"
	apperrors "github.com/khanhnv2901/seca-snapshot/internal/shared/errors"
)

// HeadersResponse is the payload of the header probe route.
type HeadersResponse struct {
	Headers *checker.HeaderFacts `json:"headers"`
}

// ReportRequest carries the facts to synthesize.
type ReportRequest = report.Facts

// ReportResponse is the payload of the report route.
type ReportResponse struct {
	Report string `json:"report"`
}

// ScanResponse is the payload of the combined scan route.
type ScanResponse struct {
	ID               string                    `json:"id"`
	Target           string                    `json:"target"`
	CheckedAt        time.Time                 `json:"checkedAt"`
	Certificate      *checker.CertificateFacts `json:"certificate,omitempty"`
	CertificateError string                    `json:"certificateError,omitempty"`
	Headers          *checker.HeaderFacts      `json:"headers,omitempty"`
	HeadersError     string                    `json:"headersError,omitempty"`
	Report           string                    `json:"report,omitempty"`
}

func (s *Server) handleCertificate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	target, ok := s.resolveQueryTarget(w, r)
	if !ok {
		return
	}
	if s.cfg.Certificates == nil {
		s.writeError(w, r, http.StatusInternalServerError, errors.New("certificate probe not configured"))
		return
	}

	facts, err := s.cfg.Certificates.Inspect(r.Context(), target)
	if err != nil {
		s.writeFailure(w, r, certificateStatus(err), certificateMessage(err), err)
		return
	}
	writeJSON(w, http.StatusOK, facts)
}

func (s *Server) handleHeaders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	target, ok := s.resolveQueryTarget(w, r)
	if !ok {
		return
	}
	if s.cfg.Headers == nil {
		s.writeError(w, r, http.StatusInternalServerError, errors.New("header probe not configured"))
		return
	}

	facts, err := s.cfg.Headers.Audit(r.Context(), target)
	if err != nil {
		s.writeFailure(w, r, http.StatusInternalServerError, "Header lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, HeadersResponse{Headers: facts})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		s.methodNotAllowed(w, r)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, consts.MaxRequestBodyBytes)
	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}

	headers, err := req.Headers()
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, errors.New("invalid headerFacts"))
		return
	}

	rep, err := report.Synthesize(req.Certificate(), headers)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, ReportResponse{Report: rep.String()})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	raw := queryTarget(r)
	if raw == "" {
		s.writeError(w, r, http.StatusBadRequest, errors.New("missing target query parameter"))
		return
	}

	result := s.scanner.Scan(r.Context(), raw)
	if result.TargetErr != nil {
		s.writeError(w, r, http.StatusBadRequest, apperrors.ErrInvalidTarget)
		return
	}

	resp := ScanResponse{
		ID:          result.ID,
		Target:      result.Target.Origin(),
		CheckedAt:   result.CheckedAt,
		Certificate: result.Certificate,
		Headers:     result.Headers,
	}
	if result.CertificateErr != nil {
		resp.CertificateError = certificateMessage(result.CertificateErr)
	}
	if result.HeadersErr != nil {
		resp.HeadersError = "Header lookup failed"
	}
	if rep, err := report.Synthesize(result.Certificate, result.Headers); err == nil {
		resp.Report = rep.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

// resolveQueryTarget reads ?target= (or ?url=) and resolves it, writing a 400
// when it is missing or unparsable.
func (s *Server) resolveQueryTarget(w http.ResponseWriter, r *http.Request) (checker.ScanTarget, bool) {
	raw := queryTarget(r)
	if raw == "" {
		s.writeError(w, r, http.StatusBadRequest, errors.New("missing target query parameter"))
		return checker.ScanTarget{}, false
	}
	target, err := checker.ResolveTarget(raw)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, apperrors.ErrInvalidTarget)
		return checker.ScanTarget{}, false
	}
	return target, true
}

func queryTarget(r *http.Request) string {
	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("target")); v != "" {
		return v
	}
	return strings.TrimSpace(q.Get("url"))
}

func certificateStatus(err error) int {
	if errors.Is(err, apperrors.ErrProbeTimeout) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func certificateMessage(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrProbeTimeout):
		return "TLS connection timed out"
	case errors.Is(err, apperrors.ErrNoCertificate):
		return "No certificate returned by server"
	default:
		return "TLS connection failed"
	}
}
