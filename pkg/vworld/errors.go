package vworld

import (
	"errors"
	"fmt"
)

// FailureKind partitions geocoding failures by how the caller must react.
type FailureKind string

const (
	// KindNotFound means the provider had no match. Never retried.
	KindNotFound FailureKind = "NOT_FOUND"
	// KindNetwork means transport-level failure after retries were exhausted.
	KindNetwork FailureKind = "NETWORK"
	// KindProtocol means the provider answered with something the client
	// could not accept: malformed payload or out-of-range coordinates.
	KindProtocol FailureKind = "PROTOCOL_ERROR"
	// KindAuthOrQuota means the key was rejected or the daily quota was
	// refused server-side. Fatal to the whole run, not just the row.
	KindAuthOrQuota FailureKind = "AUTH_OR_QUOTA_REJECTED"
)

// Error is a typed geocoding failure. ProviderStatus carries the raw
// status or error code from the provider for diagnostics.
type Error struct {
	Kind           FailureKind
	ProviderStatus string
	Err            error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("vworld: %s (%s): %v", e.Kind, e.ProviderStatus, e.Err)
	}
	return fmt.Sprintf("vworld: %s (%s)", e.Kind, e.ProviderStatus)
}

func (e *Error) Unwrap() error { return e.Err }

// Kind extracts the failure kind from an error chain. Errors that carry
// no *Error are treated as transport failures.
func Kind(err error) FailureKind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindNetwork
}

// ProviderStatus extracts the raw provider status from an error chain,
// or "" when none was recorded.
func ProviderStatus(err error) string {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.ProviderStatus
	}
	return ""
}

// IsFatal reports whether err must abort the whole batch.
func IsFatal(err error) bool {
	return Kind(err) == KindAuthOrQuota
}

// IsNotFound reports whether err is a clean no-match answer.
func IsNotFound(err error) bool {
	return err != nil && Kind(err) == KindNotFound
}
