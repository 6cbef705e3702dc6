package mw

import (
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"

	"github.com/3xpluto/second-service/internal/httpx"
	"github.com/3xpluto/second-service/internal/netx"
	"github.com/3xpluto/second-service/internal/ratelimit"
)

type IPResolver struct {
	Trusted *netx.PrefixSet
}

// ClientIP honours X-Forwarded-For / X-Real-Ip only when the direct peer is a
// trusted proxy.
func (r IPResolver) ClientIP(req *http.Request) string {
	remote, ok := parseRemoteAddr(req.RemoteAddr)
	if ok && r.Trusted.Contains(remote) {
		if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if a, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
				return a.String()
			}
		}
		if a, err := netip.ParseAddr(strings.TrimSpace(req.Header.Get("X-Real-Ip"))); err == nil {
			return a.String()
		}
	}
	if ok {
		return remote.String()
	}
	return req.RemoteAddr
}

func parseRemoteAddr(remoteAddr string) (netip.Addr, bool) {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	a, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return a.Unmap(), true
}

// RateLimit answers 429 when the client's bucket is empty. Limiter errors
// fail open.
func RateLimit(limiter ratelimit.Limiter, ipr IPResolver, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "rl:" + RouteName(r.Context()) + ":ip:" + ipr.ClientIP(r)

		dec, err := limiter.Allow(r.Context(), key)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		if !dec.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(dec.RetryAfterSeconds))
			httpx.WriteError(w, http.StatusTooManyRequests, "rate_limited")
			return
		}
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))
		next.ServeHTTP(w, r)
	})
}
