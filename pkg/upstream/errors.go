package upstream

import (
	"errors"
	"fmt"
)

// ErrRetryExhausted is returned (wrapped in *UpstreamError) when all
// attempts against the upstream API have failed.
var ErrRetryExhausted = errors.New("retry attempts exhausted")

// UpstreamError reports a request that failed after all retry attempts.
// It carries the requested URL and the last failure cause.
type UpstreamError struct {
	URL      string
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream GET %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsUpstreamError reports whether err is (or wraps) an *UpstreamError.
func IsUpstreamError(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
