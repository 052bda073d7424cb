// Package checker implements the probe half of the security snapshot.
//
// Architecture overview:
//
//   - ResolveTarget turns free-form input into a ScanTarget origin. It never
//     performs I/O.
//   - CertificateInspector performs one TLS handshake (SNI set, chain
//     validation optionally skipped) and reports the leaf certificate's
//     validity window as CertificateFacts.
//   - HeaderAuditor performs one GET against the origin and records the
//     SecurityHeaders allow-list as HeaderFacts.
//   - Scanner runs both probes concurrently for a single target; Runner fans
//     many targets out over a bounded, rate-limited worker pool.
//
// Probe failures are returned as *ProbeError values that match the sentinels
// in internal/shared/errors, so the CLI and API can map them to messages and
// status codes without string inspection.
package checker
