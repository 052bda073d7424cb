package errors

import "errors"

// Domain errors
var (
	// Target errors
	ErrInvalidTarget = errors.New("invalid target")

	// Probe errors
	ErrProbeConnectionFailed = errors.New("connection failed")
	ErrProbeTimeout          = errors.New("probe timed out")
	ErrNoCertificate         = errors.New("no certificate returned by server")
	ErrProbeFailed           = errors.New("header lookup failed")

	// Report errors
	ErrInsufficientInput = errors.New("missing certificate and header facts")
)
