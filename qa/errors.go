package qa

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a QA service failure.
type ErrorKind string

const (
	// KindUnreachable means the reasoning service could not be called or
	// rejected the call.
	KindUnreachable ErrorKind = "unreachable"

	// KindMalformed means the service answered but the payload could not be
	// parsed into a verdict.
	KindMalformed ErrorKind = "malformed"

	// KindTimeout means the call exceeded the QA timeout.
	KindTimeout ErrorKind = "timeout"

	// KindCancelled means the caller cancelled the pass.
	KindCancelled ErrorKind = "cancelled"
)

// ServiceError is a fatal failure of one QA pass. It never carries a
// partial verdict.
type ServiceError struct {
	Kind ErrorKind
	// Attempts counts reasoning calls. With ClientRetryConfig each call
	// sends one request per endpoint in the capability chain.
	Attempts int
	Err      error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("qa service %s after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// IsServiceError reports whether err is a QA service failure, optionally
// of one of the given kinds.
func IsServiceError(err error, kinds ...ErrorKind) bool {
	var se *ServiceError
	if !errors.As(err, &se) {
		return false
	}
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if se.Kind == k {
			return true
		}
	}
	return false
}
