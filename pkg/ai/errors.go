package ai

import (
	"errors"
	"fmt"
)

// ErrServiceUnavailable marks failures to reach the backing model service
// (connection refused, timeout). Callers may retry at their discretion.
var ErrServiceUnavailable = errors.New("model service unavailable")

// ErrMalformedResponse marks responses from the model service that lack the
// expected shape (empty completion, missing embedding vector). Retrying can
// help but is not required; indexing callers skip and continue.
var ErrMalformedResponse = errors.New("malformed model response")

// ServiceUnavailable wraps err as an ErrServiceUnavailable-class error.
func ServiceUnavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
}

// MalformedResponse builds an ErrMalformedResponse-class error.
func MalformedResponse(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}
