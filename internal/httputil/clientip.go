package httputil

import (
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP returns the address ConnLimiter keys a request by. With
// trustProxy set, the leftmost X-Forwarded-For entry and then X-Real-IP are
// used when they parse as IP addresses; anything else falls back to
// RemoteAddr. Addresses are returned in canonical form with IPv4-mapped IPv6
// unmapped, so one client never holds two limiter slots under two spellings.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip, ok := parseIP(first); ok {
				return ip
			}
		}
		if ip, ok := parseIP(r.Header.Get("X-Real-IP")); ok {
			return ip
		}
	}
	if ap, err := netip.ParseAddrPort(r.RemoteAddr); err == nil {
		return ap.Addr().Unmap().WithZone("").String()
	}
	if ip, ok := parseIP(r.RemoteAddr); ok {
		return ip
	}
	return r.RemoteAddr
}

func parseIP(s string) (string, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	return addr.Unmap().WithZone("").String(), true
}
