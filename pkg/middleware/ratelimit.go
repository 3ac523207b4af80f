package middleware

import (
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/ratelimit"
)

// RateLimit throttles mutating requests per client address. GET and HEAD
// requests pass through untouched. m may be nil. X-Forwarded-For is only
// read when the peer falls inside one of trusted.
func RateLimit(limiter *ratelimit.Limiter, m *metrics.Metrics, trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			key := clientAddr(r, trusted)
			if !limiter.Allow(key) {
				if m != nil {
					m.HTTPRateLimited.WithLabelValues(normalizePath(r.URL.Path)).Inc()
				}
				secs := math.Ceil(limiter.RetryAfter(key).Seconds())
				w.Header().Set("Retry-After", strconv.Itoa(max(int(secs), 1)))
				apperrors.Write(w, apperrors.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientAddr is the TCP peer, or, when the peer is a trusted proxy, the
// rightmost X-Forwarded-For hop that is not itself trusted. Hops to the
// left of that one are client-supplied and ignored.
func clientAddr(r *http.Request, trusted []netip.Prefix) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	fwd := r.Header.Values("X-Forwarded-For")
	if len(fwd) == 0 || !isTrusted(host, trusted) {
		return host
	}
	hops := strings.Split(strings.Join(fwd, ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !isTrusted(hop, trusted) {
			return hop
		}
		host = hop
	}
	return host
}

func isTrusted(host string, trusted []netip.Prefix) bool {
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
