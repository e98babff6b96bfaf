package transport

// Protocol is the HTTP version used for an outbound exchange.
type Protocol int

const (
	// HTTP11 forwards using HTTP/1.1.
	HTTP11 Protocol = iota

	// HTTP2 forwards using HTTP/2 over clear-text (h2c, prior knowledge).
	HTTP2
)

// String returns the protocol as it appears in a request line.
func (p Protocol) String() string {
	if p == HTTP2 {
		return "HTTP/2.0"
	}
	return "HTTP/1.1"
}

// Scheme returns the URL scheme that selects this protocol when a request is
// passed to a Pool. "h2c" is rewritten to "http" before the request is sent.
func (p Protocol) Scheme() string {
	if p == HTTP2 {
		return "h2c"
	}
	return "http"
}

// Version returns the major and minor protocol version numbers.
func (p Protocol) Version() (major, minor int) {
	if p == HTTP2 {
		return 2, 0
	}
	return 1, 1
}

// ProtocolFromScheme returns the protocol selected by a URL scheme.
func ProtocolFromScheme(scheme string) (Protocol, bool) {
	switch scheme {
	case "h2c":
		return HTTP2, true
	case "http", "":
		return HTTP11, true
	default:
		return HTTP11, false
	}
}
