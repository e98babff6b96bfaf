package proxyprotocol

import "net"

// NewListener wraps l so that every accepted connection is a *Conn.
func NewListener(l net.Listener) net.Listener {
	return &listener{l}
}

type listener struct {
	net.Listener
}

func (l *listener) Accept() (net.Conn, error) {
	c, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	return NewConn(c), nil
}
