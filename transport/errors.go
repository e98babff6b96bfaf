package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrUpstreamUnreachable indicates that the upstream server could not be
	// connected to, or the exchange with it failed.
	ErrUpstreamUnreachable = errors.New("upstream unreachable")

	// ErrUpstreamTimeout indicates that the upstream server did not respond
	// within the configured bound.
	ErrUpstreamTimeout = errors.New("upstream timed out")

	// ErrClosed is returned by RoundTrip after the pool has been closed.
	ErrClosed = errors.New("transport is closed")
)

// classify wraps a round-trip error in one of the package's sentinel errors.
//
// Errors caused by cancellation of the caller's own context are returned as-is
// so that a client disconnect is not reported as an upstream failure.
func classify(parent context.Context, err error, timedOut bool) error {
	if timedOut {
		return fmt.Errorf("%w: %w", ErrUpstreamTimeout, err)
	}

	if parent.Err() != nil {
		return err
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", ErrUpstreamTimeout, err)
	}

	return fmt.Errorf("%w: %w", ErrUpstreamUnreachable, err)
}
