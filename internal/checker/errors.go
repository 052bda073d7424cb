package checker

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ProbeError reports a failed probe. It matches both its Kind sentinel and
// the underlying cause with errors.Is / errors.As.
type ProbeError struct {
	Probe  string // "certificate" or "headers"
	Target string
	Kind   error
	Err    error
}

func (e *ProbeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s probe %s: %v", e.Probe, e.Target, e.Kind)
	}
	return fmt.Sprintf("%s probe %s: %v: %v", e.Probe, e.Target, e.Kind, e.Err)
}

func (e *ProbeError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// isTimeout reports whether err came from an exceeded deadline.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
