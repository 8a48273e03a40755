package handlers

import (
	"net"
	"net/http"
	"strings"
)

// RateLimiter gates how often a caller may hit the guarded auth endpoints.
type RateLimiter interface {
	Allow(key string) bool
}

// allowRequest checks the caller against the limiter under a per-endpoint
// scope, so a burst of signups does not consume the caller's login budget.
// A nil limiter disables the guard.
func allowRequest(limiter RateLimiter, r *http.Request, scope string) bool {
	if limiter == nil {
		return true
	}
	return limiter.Allow(scope + ":" + callerIP(r))
}

// callerIP prefers the first X-Forwarded-For hop so limits follow the client
// through a reverse proxy, falling back to the socket address.
func callerIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr)); err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
