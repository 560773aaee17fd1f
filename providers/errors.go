package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// TransientError marks a provider failure worth retrying: timeouts, rate
// limits, 5xx responses.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("%s: %v (transient)", e.Op, e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// FatalError marks a provider failure that retrying cannot fix: auth
// failures, malformed requests, exhausted quotas.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *FatalError) Unwrap() error { return e.Err }

// UnknownProviderError is returned by the registry when a configured name is
// not registered for a capability.
type UnknownProviderError struct {
	Capability Capability
	Name       string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown %s provider %q", e.Capability, e.Name)
}

// UnresolvedAssetError reports a visual marker whose asset could not be
// fetched. It is handled locally by falling back to the default asset and is
// never escalated.
type UnresolvedAssetError struct {
	Marker string
	Err    error
}

func (e *UnresolvedAssetError) Error() string {
	return fmt.Sprintf("unresolved asset %s: %v", e.Marker, e.Err)
}
func (e *UnresolvedAssetError) Unwrap() error { return e.Err }

// SyncDriftError reports narration/visual misalignment beyond the hard abort
// threshold. Drift below that but above the warn threshold only logs.
type SyncDriftError struct {
	Drift     float64
	Threshold float64
}

func (e *SyncDriftError) Error() string {
	return fmt.Sprintf("sync drift %.2fs exceeds abort threshold %.2fs", e.Drift, e.Threshold)
}

// Transient wraps err as retryable.
func Transient(op string, err error) error { return &TransientError{Op: op, Err: err} }

// Fatal wraps err as non-retryable.
func Fatal(op string, err error) error { return &FatalError{Op: op, Err: err} }

// IsTransient reports whether err should be retried. Raw context deadline
// and network timeout errors count as transient even when an adapter forgot
// to classify them.
func IsTransient(err error) bool {
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	var fe *FatalError
	if errors.As(err, &fe) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// ClassifyHTTP maps a non-2xx provider response to the taxonomy: 408, 429
// and 5xx are transient, everything else fatal.
func ClassifyHTTP(op string, status int, body string) error {
	err := fmt.Errorf("status %d: %s", status, body)
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests, status >= 500:
		return Transient(op, err)
	default:
		return Fatal(op, err)
	}
}
