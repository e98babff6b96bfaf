package name

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ErrEmptyApplication is returned when an application header has no value.
var ErrEmptyApplication = errors.New("application name is empty")

// ApplicationFromHeader extracts the application name from the value of an
// application-identifying header.
//
// The value may be a bare name ("app"), a name with a port ("app:8080") or an
// absolute URL ("http://app/path"); in each case the host part is the
// application name. The result is the normalized (lower-case, Unicode) name.
func ApplicationFromHeader(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ErrEmptyApplication
	}

	host := value
	if strings.Contains(value, "://") {
		u, err := url.Parse(value)
		if err != nil {
			return "", fmt.Errorf("invalid application '%s': %w", value, err)
		}
		host = u.Hostname()
	} else if h, _, err := net.SplitHostPort(value); err == nil {
		host = h
	}

	if host == "" {
		return "", fmt.Errorf("invalid application '%s': %w", value, ErrEmptyApplication)
	}

	h, err := ParseHost(host)
	if err != nil {
		return "", fmt.Errorf("invalid application '%s': %w", value, err)
	}

	return h.Unicode, nil
}
