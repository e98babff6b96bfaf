package statuspage

import "net/http"

// Kind identifies why a request could not be forwarded.
type Kind int

const (
	// Internal is a failure inside the proxy itself.
	Internal Kind = iota

	// HeaderMissing means the request did not name a valid application.
	HeaderMissing

	// RouteNotFound means there is no route for the client or application.
	RouteNotFound

	// PoolEmpty means the application's worker pool has no members.
	PoolEmpty

	// UpstreamUnreachable means the chosen upstream could not be reached, or
	// the exchange with it failed before a response was received.
	UpstreamUnreachable

	// UpstreamTimeout means the upstream did not send response headers in
	// time.
	UpstreamTimeout
)

func (k Kind) String() string {
	switch k {
	case HeaderMissing:
		return "header-missing"
	case RouteNotFound:
		return "route-not-found"
	case PoolEmpty:
		return "pool-empty"
	case UpstreamUnreachable:
		return "upstream-unreachable"
	case UpstreamTimeout:
		return "upstream-timeout"
	default:
		return "internal"
	}
}

// StatusCode returns the HTTP status code sent for k.
func (k Kind) StatusCode() int {
	switch k {
	case HeaderMissing:
		return http.StatusBadRequest
	case RouteNotFound, PoolEmpty, UpstreamUnreachable:
		return http.StatusBadGateway
	case UpstreamTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Message returns a short, human-readable description of k.
func (k Kind) Message() string {
	switch k {
	case HeaderMissing:
		return "The request did not identify the application it is addressed to."
	case RouteNotFound:
		return "There is no route for this request."
	case PoolEmpty:
		return "The application has no workers available, please try again."
	case UpstreamUnreachable:
		return "The service you've requested could not be contacted, please try again."
	case UpstreamTimeout:
		return "The service you've requested did not respond in a timely manner, please try again."
	default:
		return "The proxy failed while handling your request."
	}
}
