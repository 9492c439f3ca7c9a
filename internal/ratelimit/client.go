package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// UnknownClient is the shared bucket for requests without any identifier.
const UnknownClient = "unknown"

// ClientID derives the rate limiting key of a request: the left-most
// X-Forwarded-For entry, then X-Real-IP, then the peer address.
func ClientID(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")

		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	if r.RemoteAddr != "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)

		if err != nil {
			return r.RemoteAddr
		}

		if host != "" {
			return host
		}
	}

	return UnknownClient
}
