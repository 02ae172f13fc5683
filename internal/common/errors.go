// Package common defines the error taxonomy shared by repositories, services
// and the transport layer. Callers should use errors.Is to match these values;
// services wrap them with the resource id and a short reason.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorUnauthenticated = errors.New("unauthenticated")
	ErrorForbidden       = errors.New("forbidden")
	ErrorInvalidArgument = errors.New("invalid argument")
	ErrorConflict        = errors.New("conflict")

	// ErrorTransient marks storage contention or timeouts. The operation may be
	// retried, except for the follow toggle.
	ErrorTransient = errors.New("transient storage error")
	ErrorInternal  = errors.New("internal error")
)

// IsRetryable reports whether err is a transient failure that is safe to
// re-run for idempotent operations.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrorTransient)
}

// Kind returns the taxonomy sentinel err belongs to, or ErrorInternal when it
// does not wrap any of them.
func Kind(err error) error {
	for _, k := range []error{
		ErrorUnauthenticated,
		ErrorForbidden,
		ErrorNotFound,
		ErrorInvalidArgument,
		ErrorConflict,
		ErrorTransient,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrorInternal
}
