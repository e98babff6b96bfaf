package proxy

import (
	"net"
	"net/http"
	"strings"

	"github.com/golang/gddo/httputil/header"
)

// isUpgrade checks whether the given HTTP headers request a protocol upgrade.
func isUpgrade(headers http.Header) bool {
	for _, value := range header.ParseList(headers, "Connection") {
		if strings.EqualFold(value, "upgrade") {
			return len(header.ParseList(headers, "Upgrade")) != 0
		}
	}

	return false
}

// connectionTokens returns the header names listed in the Connection header,
// in canonical form.
func connectionTokens(headers http.Header) []string {
	var names []string
	for _, value := range header.ParseList(headers, "Connection") {
		names = append(names, http.CanonicalHeaderKey(value))
	}
	return names
}

// removeHopByHop deletes hop-by-hop headers from out, given the inbound
// headers in. Headers required to carry an upgrade are kept when in requests
// one and allowUpgrade is true. HTTP/2 has no Upgrade mechanism, so the h2c
// leg always passes false.
func removeHopByHop(in, out http.Header, allowUpgrade bool) {
	upgrade := allowUpgrade && isUpgrade(in)

	for _, name := range connectionTokens(in) {
		if upgrade && name == "Upgrade" {
			continue
		}
		out.Del(name)
	}

	for name := range out {
		if isHopByHopHeader(name) {
			if upgrade && (name == "Connection" || name == "Upgrade") {
				continue
			}
			out.Del(name)
		}
	}
}

// isHopByHopHeader checks if a given header name is a Hop-by-Hop header, and
// hence should not be forwarded. The name must already be canonicalized with
// http.CanonicalHeaderKey().
//
// "Te: trailers" is forwarded by httputil.ReverseProxy and is left alone here.
func isHopByHopHeader(name string) bool {
	switch name {
	case
		"Connection",
		"Proxy-Connection",
		"Keep-Alive",
		"Proxy-Authenticate",
		"Proxy-Authorization",
		"Trailer",
		"Transfer-Encoding",
		"Upgrade":
		return true
	default:
		return false
	}
}

// setForwardedFor appends the client address of in to the X-Forwarded-For
// chain in out.
func setForwardedFor(in *http.Request, out http.Header) {
	clientIP, _, err := net.SplitHostPort(in.RemoteAddr)
	if err != nil {
		return
	}

	if prior := in.Header.Values("X-Forwarded-For"); len(prior) != 0 {
		clientIP = strings.Join(prior, ", ") + ", " + clientIP
	}

	out.Set("X-Forwarded-For", clientIP)
}
