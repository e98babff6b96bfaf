package backend

import (
	"fmt"
	"net"
	"strconv"
)

// Endpoint holds information about a back-end HTTP server.
type Endpoint struct {
	// Address holds the network address of the back-end server, including the
	// port number.
	Address string
}

// ParseEndpoint produces an Endpoint from a "host:port" string.
func ParseEndpoint(address string) (Endpoint, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid endpoint address '%s': %w", address, err)
	}

	if host == "" {
		return Endpoint{}, fmt.Errorf("invalid endpoint address '%s': missing host", address)
	}

	if n, err := strconv.ParseUint(port, 10, 16); err != nil || n == 0 {
		return Endpoint{}, fmt.Errorf("invalid endpoint address '%s': bad port", address)
	}

	return Endpoint{Address: net.JoinHostPort(host, port)}, nil
}

func (ep Endpoint) String() string {
	return ep.Address
}
