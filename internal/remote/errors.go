package remote

import "fmt"

// TransportError wraps a network-level failure (unreachable host,
// connection reset). These are retried.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("network error: %v", e.Err) }

func (e *TransportError) Unwrap() error { return e.Err }

// TimeoutError wraps an attempt that exceeded its deadline. These are
// retried with a fresh deadline per attempt.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string { return "request timed out" }

func (e *TimeoutError) Unwrap() error { return e.Err }

// StatusError reports a non-success HTTP status from the generation
// service. A bad status is assumed deterministic for the same payload, so
// it is never retried.
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s: %s", e.Code, e.Status, e.Body)
}
