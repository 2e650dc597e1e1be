package backend

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned when the backend answers 401.  Callers must
// drop the operator's credentials and never retry silently.
var ErrUnauthorized = errors.New("backend rejected the credentials")

// NetworkError is a transport failure: the backend could not be reached or
// did not answer in time.  It is always retriable.
type NetworkError struct {
	Endpoint string
	Timeout  bool
	Err      error
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: timed out, the backend may be unreachable", e.Endpoint)
	}
	return fmt.Sprintf("%s: backend unreachable: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RejectionError is a non-2xx answer other than 401.  Reason carries the
// backend-provided detail when it sent one.
type RejectionError struct {
	Endpoint string
	Status   int
	Reason   string
}

func (e *RejectionError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

// Business reports a 4xx rejection: the backend understood the request and
// refused it (seat taken, sale already paid...).  Never auto-retried.
func (e *RejectionError) Business() bool { return e.Status >= 400 && e.Status < 500 }

// UnexpectedShapeError is a 2xx answer the console cannot interpret.  It is
// a data-integrity problem and is surfaced with the endpoint named.
type UnexpectedShapeError struct {
	Endpoint string
	Expected string
}

func (e *UnexpectedShapeError) Error() string {
	return fmt.Sprintf("unexpected response from %s: expected %s", e.Endpoint, e.Expected)
}

// IsRetriable reports whether err is a transient failure worth offering a
// retry for: transport errors and 5xx/408/429 answers.
func IsRetriable(err error) bool {
	var ne *NetworkError
	if errors.As(err, &ne) {
		return true
	}
	var re *RejectionError
	if errors.As(err, &re) {
		return re.Status >= 500 || re.Status == 408 || re.Status == 429
	}
	return false
}

// Reason extracts the backend-provided reason from err, or "" when there is
// none.
func Reason(err error) string {
	var re *RejectionError
	if errors.As(err, &re) {
		return re.Reason
	}
	return ""
}
