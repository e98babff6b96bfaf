package strategy

import (
	"fmt"
	"net"
	"net/http"

	"github.com/bittermandel/molnett-lb/frontend"
	"github.com/bittermandel/molnett-lb/name"
	"github.com/bittermandel/molnett-lb/transport"
	"go.uber.org/zap"
)

// EdgeStrategy routes by the identity of the connecting client.
type EdgeStrategy struct {
	Routes            Routes
	ApplicationHeader string
	Logger            *zap.Logger
}

// Mode returns Edge.
func (s *EdgeStrategy) Mode() Mode { return Edge }

// Protocol returns transport.HTTP2.
func (s *EdgeStrategy) Protocol() transport.Protocol { return transport.HTTP2 }

// Resolve looks up the application and service endpoint bound to the client
// that sent r.
func (s *EdgeStrategy) Resolve(r *http.Request) (Destination, error) {
	s.checkHost(r)

	client, err := ClientIdentity(r)
	if err != nil {
		return Destination{}, fmt.Errorf("%w: %w", ErrRouteNotFound, err)
	}

	app, err := s.Routes.LookupApplication(client)
	if err != nil {
		return Destination{}, fmt.Errorf("%w: %w", ErrRouteNotFound, err)
	}

	ep, err := s.Routes.LookupEndpoint(client)
	if err != nil {
		return Destination{}, fmt.Errorf("%w: %w", ErrRouteNotFound, err)
	}

	return Destination{
		Endpoint:    ep,
		Application: app,
		Protocol:    transport.HTTP2,
	}, nil
}

// RewriteHeaders sets the application header to the resolved application,
// replacing any value supplied by the client.
func (s *EdgeStrategy) RewriteHeaders(out http.Header, dest Destination) {
	out.Set(s.ApplicationHeader, dest.Application)
}

// checkHost parses the inbound Host header. The result does not affect
// routing.
func (s *EdgeStrategy) checkHost(r *http.Request) {
	if _, err := name.RequestHost(r); err != nil && s.Logger != nil {
		s.Logger.Debug(
			"inbound host is not a valid host name",
			zap.String("host", r.Host),
			zap.Error(err),
		)
	}
}

// ClientIdentity returns the address of the peer that sent r. It is taken from
// the connection, never from request headers.
func ClientIdentity(r *http.Request) (string, error) {
	if ip, ok := frontend.PeerFromContext(r.Context()); ok {
		return ip.String(), nil
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "", fmt.Errorf("unable to determine client address from '%s': %w", r.RemoteAddr, err)
	}

	return host, nil
}
