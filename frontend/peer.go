package frontend

import (
	"context"
	"net"
)

type connKey struct{}

// WithConn returns a context that carries the inbound connection.
//
// The connection's address is not read until PeerFromContext is called, so
// that connections which resolve their remote address lazily (such as PROXY
// protocol connections) do not block the accept loop.
func WithConn(ctx context.Context, c net.Conn) context.Context {
	return context.WithValue(ctx, connKey{}, c)
}

// PeerFromContext returns the IP address of the peer on the connection carried
// by ctx.
func PeerFromContext(ctx context.Context) (net.IP, bool) {
	c, ok := ctx.Value(connKey{}).(net.Conn)
	if !ok {
		return nil, false
	}

	return addrIP(c.RemoteAddr())
}

func addrIP(addr net.Addr) (net.IP, bool) {
	switch a := addr.(type) {
	case *net.TCPAddr:
		return a.IP, a.IP != nil
	case *net.UDPAddr:
		return a.IP, a.IP != nil
	case nil:
		return nil, false
	}

	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		host = addr.String()
	}

	ip := net.ParseIP(host)
	return ip, ip != nil
}
