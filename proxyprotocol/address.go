package proxyprotocol

import (
	"net"

	proxyproto "github.com/pires/go-proxyproto"
)

// newProxyAddr creates the address described by one side of a PROXY header.
func newProxyAddr(proto proxyproto.AddressFamilyAndProtocol, ip net.IP, port uint16) net.Addr {
	switch {
	case proto.IsUnix():
		network := "unix"
		if !proto.IsStream() {
			network = "unixgram"
		}
		return &net.UnixAddr{Net: network, Name: ip.String()}
	case !proto.IsStream():
		return &net.UDPAddr{IP: ip, Port: int(port)}
	default:
		return &net.TCPAddr{IP: ip, Port: int(port)}
	}
}
