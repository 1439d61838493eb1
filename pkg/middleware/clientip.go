package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP returns the host part of r.RemoteAddr. Forwarding headers are
// only honoured through TrustedProxies, which rewrites RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// TrustedProxies replaces r.RemoteAddr with the client address reported by a
// proxy inside cidrs. X-Forwarded-For is walked right to left and the first
// hop outside cidrs wins; X-Real-IP is used when X-Forwarded-For is absent.
// Requests from any other peer keep their RemoteAddr, so a client cannot
// choose the address it is rate limited and logged under. An empty cidrs
// list trusts nobody.
func TrustedProxies(cidrs []string, logger *slog.Logger) func(http.Handler) http.Handler {
	trusted := parsePrefixes(cidrs, logger)

	return func(next http.Handler) http.Handler {
		if len(trusted) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if peer, ok := peerAddr(r.RemoteAddr); ok && anyContains(trusted, peer) {
				if client, ok := forwardedClient(r.Header, trusted); ok {
					r.RemoteAddr = net.JoinHostPort(client.String(), "0")
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func forwardedClient(h http.Header, trusted []netip.Prefix) (netip.Addr, bool) {
	if xff := h.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		var client netip.Addr
		for i := len(hops) - 1; i >= 0; i-- {
			addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				break
			}
			client = addr.Unmap()
			if !anyContains(trusted, client) {
				break
			}
		}
		return client, client.IsValid()
	}

	addr, err := netip.ParseAddr(strings.TrimSpace(h.Get("X-Real-IP")))
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
