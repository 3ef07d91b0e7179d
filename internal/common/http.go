package common

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the address the checkout rate limiter keys on. The router
// mounts chi's RealIP in front of every handler, so RemoteAddr already holds
// the forwarded client address; the header fallbacks only matter for handlers
// mounted without it.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if addr := strings.TrimSpace(r.RemoteAddr); addr != "" {
		if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
			return host
		}
		return addr
	}
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	return strings.TrimSpace(r.Header.Get("X-Real-IP"))
}
