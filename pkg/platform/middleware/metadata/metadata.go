// Package metadata resolves the client source address and user agent once
// per request and stores them in context. The gateway's rate limiter and the
// audit trail both key off these values.
package metadata

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"shopcore/pkg/requestcontext"
)

// MaxXFFHeaderLength caps the X-Forwarded-For header to prevent header
// injection from inflating logs or keys.
const MaxXFFHeaderLength = 500

// Config holds trusted proxy configuration for client IP resolution.
type Config struct {
	// TrustedProxies lists CIDR prefixes allowed to set X-Forwarded-For.
	// When empty, forwarded headers are never trusted.
	TrustedProxies []netip.Prefix
}

// Middleware extracts client metadata with configurable trusted proxies.
type Middleware struct {
	config *Config
}

func New(cfg *Config) *Middleware {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Middleware{config: cfg}
}

// Handler stores the resolved client IP and User-Agent in the request context.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), m.extractClientIP(r), r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) extractClientIP(r *http.Request) string {
	remoteIP := parseRemoteAddr(r.RemoteAddr)
	if remoteIP == "" {
		return "unknown"
	}

	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" || !m.isTrustedProxy(remoteIP) || len(xff) > MaxXFFHeaderLength {
		return remoteIP
	}

	// First entry in the XFF chain is the original client.
	clientIP := xff
	if before, _, ok := strings.Cut(xff, ","); ok {
		clientIP = before
	}
	clientIP = strings.TrimSpace(clientIP)

	if _, err := netip.ParseAddr(clientIP); err != nil {
		return remoteIP
	}
	return clientIP
}

func (m *Middleware) isTrustedProxy(ip string) bool {
	if len(m.config.TrustedProxies) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	for _, prefix := range m.config.TrustedProxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func parseRemoteAddr(remoteAddr string) string {
	if remoteAddr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		// RemoteAddr without a port, e.g. in tests.
		if _, perr := netip.ParseAddr(remoteAddr); perr == nil {
			return remoteAddr
		}
		return ""
	}
	return host
}
