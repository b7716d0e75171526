package airquality

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a fetch failure. The poller treats every kind the
// same way (backoff and retry); the kind only drives log wording.
type ErrorKind string

const (
	KindAuthFailed      ErrorKind = "auth_failed"
	KindRateLimited     ErrorKind = "rate_limited"
	KindTransient       ErrorKind = "transient"
	KindInvalidResponse ErrorKind = "invalid_response"
)

// FetchError is the typed failure returned by Client.Fetch. Status is the
// HTTP status code when one was received, 0 otherwise.
type FetchError struct {
	Kind   ErrorKind
	Status int
	Err    error
	Msg    string
}

func (e *FetchError) Error() string {
	switch {
	case e.Err != nil && e.Status != 0:
		return fmt.Sprintf("airvisual: %s (http %d): %v", e.Kind, e.Status, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("airvisual: %s: %v", e.Kind, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("airvisual: %s (http %d): %s", e.Kind, e.Status, e.Msg)
	default:
		return fmt.Sprintf("airvisual: %s: %s", e.Kind, e.Msg)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// KindOf extracts the error kind from err. Errors that are not FetchError
// (context deadline, transport faults) count as transient.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindTransient
}
