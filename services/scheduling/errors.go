package scheduling

import "fmt"

// StatusError reports a non-2xx reply from the scheduling backend.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("scheduling backend returned %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the status class is worth retrying. Server-side
// failures and throttling are transient; everything else is a real answer.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// TransportError wraps a failure to reach the backend at all (connection
// refused, DNS, timeout). Always retryable.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("scheduling backend unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
