package name

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"golang.org/x/net/idna"
)

// ErrEmptyHost is returned when a host name has no labels.
var ErrEmptyHost = errors.New("host name is empty")

// Host is a normalized host name, or an IP literal.
type Host struct {
	// Unicode is the lower-case display form of the name.
	Unicode string

	// ASCII is the form of the name used on the wire.
	ASCII string

	// IP is set if the host is an IP literal, in which case Unicode and ASCII
	// are its textual form.
	IP net.IP
}

// lookup validates names as RFC 5891 requires for lookups, and additionally
// enforces DNS label and name lengths.
var lookup = idna.New(
	idna.MapForLookup(),
	idna.BidiRule(),
	idna.Transitional(false),
	idna.VerifyDNSLength(true),
)

// ParseHost normalizes a DNS host name. A single trailing dot is ignored.
func ParseHost(s string) (Host, error) {
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return Host{}, ErrEmptyHost
	}

	ascii, err := lookup.ToASCII(s)
	if err != nil {
		return Host{}, fmt.Errorf("invalid host name '%s': %w", s, err)
	}

	// A numeric top-level label would make the name indistinguishable from an
	// IPv4 address.
	if i := strings.LastIndexByte(ascii, '.'); isNumeric(ascii[i+1:]) {
		return Host{}, fmt.Errorf("invalid host name '%s': top-level label is numeric", s)
	}

	unicode, err := lookup.ToUnicode(ascii)
	if err != nil {
		return Host{}, fmt.Errorf("invalid host name '%s': %w", s, err)
	}

	return Host{Unicode: unicode, ASCII: ascii}, nil
}

// RequestHost parses the Host of an HTTP request, ignoring any port. IP
// literals are accepted.
func RequestHost(request *http.Request) (Host, error) {
	host, _, err := net.SplitHostPort(request.Host)
	if err != nil {
		host = request.Host
	}

	literal := strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	if ip := net.ParseIP(literal); ip != nil {
		return Host{Unicode: ip.String(), ASCII: ip.String(), IP: ip}, nil
	}

	return ParseHost(host)
}

func isNumeric(label string) bool {
	for i := 0; i < len(label); i++ {
		if label[i] < '0' || label[i] > '9' {
			return false
		}
	}
	return true
}
