package checker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// CertificateProbe reads certificate facts for a target.
type CertificateProbe interface {
	Inspect(ctx context.Context, target ScanTarget) (*CertificateFacts, error)
}

// HeaderProbe reads security header facts for a target.
type HeaderProbe interface {
	Audit(ctx context.Context, target ScanTarget) (*HeaderFacts, error)
}

// ScanResult holds the settled outcome of both probes for one target. Either
// side may carry an error while the other carries facts.
type ScanResult struct {
	ID             string            `json:"id"`
	Input          string            `json:"input"`
	Target         *ScanTarget       `json:"target,omitempty"`
	CheckedAt      time.Time         `json:"checkedAt"`
	Certificate    *CertificateFacts `json:"certificateFacts,omitempty"`
	CertificateErr error             `json:"-"`
	Headers        *HeaderFacts      `json:"headerFacts,omitempty"`
	HeadersErr     error             `json:"-"`
	TargetErr      error             `json:"-"`
	Duration       time.Duration     `json:"-"`
}

// OK reports whether at least one probe produced facts.
func (r ScanResult) OK() bool {
	return r.Certificate != nil || r.Headers != nil
}

// Scanner runs the certificate and header probes against one target.
type Scanner struct {
	Certificates CertificateProbe
	Headers      HeaderProbe
	Logger       *zap.Logger
}

// NewScanner wires a scanner with the given probes.
func NewScanner(certs CertificateProbe, headers HeaderProbe, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{Certificates: certs, Headers: headers, Logger: logger}
}

// Scan resolves raw input and runs both probes concurrently. Each probe is
// bounded by its own timeout and one failing never cancels the other; Scan
// returns only after both have settled.
func (s *Scanner) Scan(ctx context.Context, raw string) ScanResult {
	start := time.Now()
	result := ScanResult{
		ID:        uuid.NewString(),
		Input:     raw,
		CheckedAt: start.UTC(),
	}

	logger := s.logger().With(zap.String("scan_id", result.ID), zap.String("input", raw))

	target, err := ResolveTarget(raw)
	if err != nil {
		result.TargetErr = err
		logger.Warn("target_rejected", zap.Error(err))
		return result
	}
	result.Target = &target

	var wg sync.WaitGroup
	if s.Certificates != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			facts, err := s.Certificates.Inspect(ctx, target)
			if err != nil {
				logger.Warn("certificate_probe_failed", zap.String("target", target.TLSAddress()), zap.Error(err))
			}
			result.Certificate, result.CertificateErr = facts, err
		}()
	}
	if s.Headers != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			facts, err := s.Headers.Audit(ctx, target)
			if err != nil {
				logger.Warn("header_probe_failed", zap.String("target", target.URL()), zap.Error(err))
			}
			result.Headers, result.HeadersErr = facts, err
		}()
	}
	wg.Wait()

	result.Duration = time.Since(start)
	logger.Debug("scan_complete",
		zap.String("origin", target.Origin()),
		zap.Bool("certificate", result.Certificate != nil),
		zap.Bool("headers", result.Headers != nil),
		zap.Duration("duration", result.Duration),
	)
	return result
}

func (s *Scanner) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// ResultFunc is invoked once per settled target. It may be called from
// several goroutines at once.
type ResultFunc func(result ScanResult)

// Runner scans multiple targets with bounded concurrency and a global rate limit.
type Runner struct {
	Concurrency int // Maximum number of concurrent scans
	RateLimit   int // Scans started per second (0 = unlimited)
}

// Run scans every input and returns results in input order.
func (r *Runner) Run(ctx context.Context, scanner *Scanner, inputs []string, onResult ResultFunc) []ScanResult {
	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var limiter *rate.Limiter
	if r.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.RateLimit), r.RateLimit)
	}

	// Worker pool
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	results := make([]ScanResult, len(inputs))

	for i, input := range inputs {
		wg.Add(1)
		go func(i int, input string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					results[i] = ScanResult{Input: input, CheckedAt: time.Now().UTC(), TargetErr: err}
					if onResult != nil {
						onResult(results[i])
					}
					return
				}
			}

			results[i] = scanner.Scan(ctx, input)
			if onResult != nil {
				onResult(results[i])
			}
		}(i, input)
	}

	wg.Wait()
	return results
}
