package checker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "github.com/khanhnv2901/seca-snapshot/internal/shared/errors"
)

func TestHeaderAuditorReadsCanonicalHeaders(t *testing.T) {
	methods := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods <- r.Method
		w.Header().Set("strict-transport-security", "max-age=31536000")
		w.Header().Set("X-FRAME-OPTIONS", "SAMEORIGIN")
		w.Header().Set("X-Powered-By", "ignored")
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	auditor := NewHeaderAuditor()
	facts, err := auditor.Audit(context.Background(), mustResolve(t, srv.URL))
	if err != nil {
		t.Fatalf("Audit returned error: %v", err)
	}

	if method := <-methods; method != http.MethodGet {
		t.Errorf("expected GET request, got %s", method)
	}
	if v, ok := facts.Get("strictTransportSecurity"); !ok || v != "max-age=31536000" {
		t.Errorf("strictTransportSecurity = %q (present=%v)", v, ok)
	}
	if v, ok := facts.Get("xFrameOptions"); !ok || v != "SAMEORIGIN" {
		t.Errorf("xFrameOptions = %q (present=%v)", v, ok)
	}
	if len(facts.Present()) != 2 || len(facts.Missing()) != 4 {
		t.Errorf("expected 2 present / 4 missing, got %d / %d", len(facts.Present()), len(facts.Missing()))
	}
}

func TestHeaderAuditorFollowsRedirects(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'")
	}))
	defer final.Close()

	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL+"/landing", http.StatusMovedPermanently)
	}))
	defer origin.Close()

	facts, err := NewHeaderAuditor().Audit(context.Background(), mustResolve(t, origin.URL+"/ignored/path"))
	if err != nil {
		t.Fatalf("Audit returned error: %v", err)
	}
	if _, ok := facts.Get("contentSecurityPolicy"); !ok {
		t.Fatal("expected headers from the redirect target")
	}
}

func TestHeaderAuditorProbesOriginOnly(t *testing.T) {
	paths := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths <- r.URL.Path
	}))
	defer srv.Close()

	if _, err := NewHeaderAuditor().Audit(context.Background(), mustResolve(t, srv.URL+"/admin?x=1")); err != nil {
		t.Fatalf("Audit returned error: %v", err)
	}
	if path := <-paths; path != "/" {
		t.Fatalf("expected request to origin root, got %q", path)
	}
}

func TestHeaderAuditorRedirectLoop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusFound)
	}))
	defer srv.Close()

	auditor := &HeaderAuditor{Timeout: 2 * time.Second, MaxRedirects: 3}
	_, err := auditor.Audit(context.Background(), mustResolve(t, srv.URL))
	if !errors.Is(err, apperrors.ErrProbeFailed) {
		t.Fatalf("expected ErrProbeFailed, got %v", err)
	}
}

func TestHeaderAuditorTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	auditor := &HeaderAuditor{Timeout: 100 * time.Millisecond}
	_, err := auditor.Audit(context.Background(), mustResolve(t, srv.URL))
	if !errors.Is(err, apperrors.ErrProbeFailed) {
		t.Fatalf("expected ErrProbeFailed, got %v", err)
	}
	if !errors.Is(err, apperrors.ErrProbeTimeout) {
		t.Fatalf("expected timeout cause to be preserved, got %v", err)
	}
}

func TestHeaderAuditorConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := mustResolve(t, srv.URL)
	srv.Close()

	_, err := NewHeaderAuditor().Audit(context.Background(), target)
	if !errors.Is(err, apperrors.ErrProbeFailed) {
		t.Fatalf("expected ErrProbeFailed, got %v", err)
	}
}

func TestHeaderAuditorRejectsUntrustedTLS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	_, err := NewHeaderAuditor().Audit(context.Background(), mustResolve(t, srv.URL))
	if !errors.Is(err, apperrors.ErrProbeFailed) {
		t.Fatalf("expected TLS error to fail the header probe, got %v", err)
	}

	trusted := &HeaderAuditor{Client: srv.Client()}
	if _, err := trusted.Audit(context.Background(), mustResolve(t, srv.URL)); err != nil {
		t.Fatalf("expected success with trusting client, got %v", err)
	}
}
