package cmd

import (
	"errors"
	"fmt"

	apperrors "github.com/khanhnv2901/seca-snapshot/internal/shared/errors"
)

const (
	exitFailure      = 1
	exitInvalidInput = 2
	exitScanFailed   = 3
)

// ScanFailedError reports targets for which no probe produced any facts.
type ScanFailedError struct {
	Failed int
	Total  int
}

func (e *ScanFailedError) Error() string {
	if e.Total == 1 {
		return "scan produced no facts for the target"
	}
	return fmt.Sprintf("scan produced no facts for %d of %d targets", e.Failed, e.Total)
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	var scanErr *ScanFailedError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &scanErr):
		return exitScanFailed
	case errors.Is(err, apperrors.ErrInvalidTarget), errors.Is(err, apperrors.ErrInsufficientInput):
		return exitInvalidInput
	default:
		return exitFailure
	}
}
