package proxyprotocol

import (
	"bufio"
	"net"
	"sync"

	proxyproto "github.com/pires/go-proxyproto"
)

// Conn is a net.Conn that reads an optional PROXY protocol (v1 or v2) header
// from the start of the stream.
//
// The header is read on first use of Read, LocalAddr or RemoteAddr, so that
// wrapping a connection never blocks. When a header is present, LocalAddr and
// RemoteAddr report the addresses it carries; otherwise they report the
// addresses of the underlying connection.
type Conn struct {
	net.Conn

	once sync.Once
	rd   *bufio.Reader
	hdr  *proxyproto.Header
	err  error
	l, r net.Addr
}

// NewConn returns a connection that parses PROXY protocol headers from the
// start of nc.
func NewConn(nc net.Conn) *Conn {
	return &Conn{
		Conn: nc,
		rd:   bufio.NewReader(nc),
	}
}

func (c *Conn) init() {
	c.once.Do(func() {
		hdr, err := proxyproto.Read(c.rd)
		switch err {
		case
			proxyproto.ErrNoProxyProtocol,
			proxyproto.ErrInvalidLength:
			// not a PROXY protocol connection, use it as-is
		case nil:
			c.hdr = hdr
			c.l = newProxyAddr(hdr.TransportProtocol, hdr.DestinationAddress, hdr.DestinationPort)
			c.r = newProxyAddr(hdr.TransportProtocol, hdr.SourceAddress, hdr.SourcePort)
		default:
			c.err = err
		}
	})
}

// Header returns the PROXY header, or nil if the connection did not send one.
func (c *Conn) Header() *proxyproto.Header {
	c.init()
	return c.hdr
}

// Read reads data from the connection, after the PROXY header.
func (c *Conn) Read(b []byte) (int, error) {
	c.init()
	if c.err != nil {
		return 0, c.err
	}
	return c.rd.Read(b)
}

// LocalAddr returns the destination address from the PROXY header, if any.
func (c *Conn) LocalAddr() net.Addr {
	c.init()
	if c.l == nil {
		return c.Conn.LocalAddr()
	}
	return c.l
}

// RemoteAddr returns the source address from the PROXY header, if any.
func (c *Conn) RemoteAddr() net.Addr {
	c.init()
	if c.r == nil {
		return c.Conn.RemoteAddr()
	}
	return c.r
}
