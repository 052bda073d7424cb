package checker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	consts "github.com/khanhnv2901/seca-snapshot/internal/shared/constants"
	apperrors "github.com/khanhnv2901/seca-snapshot/internal/shared/errors"
)

// HeaderAuditor fetches a target's origin and records the canonical security
// headers of the final response.
type HeaderAuditor struct {
	Timeout      time.Duration
	MaxRedirects int
	// Client is used as-is when set; Timeout and MaxRedirects are then ignored.
	Client *http.Client
}

// NewHeaderAuditor returns an auditor with default timeout and redirect cap.
func NewHeaderAuditor() *HeaderAuditor {
	return &HeaderAuditor{
		Timeout:      consts.DefaultHeaderTimeout,
		MaxRedirects: consts.DefaultMaxRedirects,
	}
}

func (a *HeaderAuditor) client() *http.Client {
	if a.Client != nil {
		return a.Client
	}
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = consts.DefaultHeaderTimeout
	}
	maxRedirects := a.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = consts.DefaultMaxRedirects
	}
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
}

// Audit issues a single GET to the target origin, following redirects. GET is
// used instead of HEAD because some servers reject HEAD or omit security
// headers on it.
func (a *HeaderAuditor) Audit(ctx context.Context, target ScanTarget) (*HeaderFacts, error) {
	u := target.URL()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &ProbeError{Probe: "headers", Target: u, Kind: apperrors.ErrProbeFailed, Err: err}
	}
	req.Header.Set("User-Agent", "seca-snapshot")

	resp, err := a.client().Do(req)
	if err != nil {
		probeErr := &ProbeError{Probe: "headers", Target: u, Kind: apperrors.ErrProbeFailed, Err: err}
		if isTimeout(err) {
			probeErr.Err = fmt.Errorf("%w: %w", apperrors.ErrProbeTimeout, err)
		}
		return nil, probeErr
	}
	defer resp.Body.Close()

	facts := NewHeaderFacts(resp.Header)

	// Discard response body - ignore errors as this is just cleanup
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	return facts, nil
}
