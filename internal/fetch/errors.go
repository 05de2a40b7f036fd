package fetch

import "fmt"

// StatusError is returned when the upstream answered with a status that
// carries no payload and is not a steady-state empty outcome.
type StatusError struct {
	URL        string
	StatusCode int
	Class      Class
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch: %s (status %d) from %s", e.Class, e.StatusCode, e.URL)
}

// Retryable reports whether the status was in the transient class, i.e.
// the retry budget was spent before giving up.
func (e *StatusError) Retryable() bool {
	return e.Class.Retryable()
}

// TransportError is returned when no HTTP response could be obtained.
type TransportError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch: %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError is returned when a 200 response body is not the format the
// provider promises.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("fetch: decode response from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
