package proxy

import (
	"errors"

	"github.com/bittermandel/molnett-lb/statuspage"
	"github.com/bittermandel/molnett-lb/strategy"
	"github.com/bittermandel/molnett-lb/transport"
)

// pageError maps an error from resolving or forwarding a request to the kind
// of status page that is sent to the client. Errors that match no known kind
// came from the exchange with the upstream.
func pageError(err error) statuspage.Error {
	if e, ok := statuspage.AsError(err); ok {
		return e
	}

	kind := statuspage.UpstreamUnreachable
	switch {
	case errors.Is(err, strategy.ErrHeaderMissing):
		kind = statuspage.HeaderMissing
	case errors.Is(err, strategy.ErrRouteNotFound):
		kind = statuspage.RouteNotFound
	case errors.Is(err, strategy.ErrPoolEmpty):
		kind = statuspage.PoolEmpty
	case errors.Is(err, transport.ErrUpstreamTimeout):
		kind = statuspage.UpstreamTimeout
	}

	return statuspage.Error{Kind: kind, Inner: err}
}
