package dataflows

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Error taxonomy for collaborator calls. Stages translate every one of
// these into degraded confidence; none of them ever reaches the caller.
var (
	// ErrDataUnavailable: the source answered but has nothing for the
	// symbol. Not retried.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrRateLimited: the source is throttling us. Trips the breaker.
	ErrRateLimited = errors.New("rate limited")

	// ErrParse: the response arrived but could not be decoded. Treated
	// as absent, never fatal.
	ErrParse = errors.New("malformed response")

	// ErrBreakerOpen: the circuit breaker is refusing calls.
	ErrBreakerOpen = errors.New("circuit breaker open")
)

// IsTransient reports whether an error is worth another attempt:
// network trouble, timeouts, and cancellations caused by deadlines.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDataUnavailable) || errors.Is(err, ErrParse) ||
		errors.Is(err, ErrRateLimited) || errors.Is(err, ErrBreakerOpen) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	// Unknown failures default to retryable.
	return true
}

func unavailable(symbol, source string) error {
	return fmt.Errorf("%s: no data from %s: %w", symbol, source, ErrDataUnavailable)
}
