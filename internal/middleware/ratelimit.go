package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"creativegen/internal/ratelimit"
)

// RateLimit allows at most limit requests per client IP in any trailing
// window of length per.
func RateLimit(limit int, per time.Duration) func(http.Handler) http.Handler {
	limiter := ratelimit.NewKeyed(ratelimit.Options{Capacity: limit, Span: per})
	retryAfter := strconv.Itoa(int(per.Round(time.Second) / time.Second))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientIPForRateLimit(r)) {
				w.Header().Set("Retry-After", retryAfter)
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIPForRateLimit(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		for _, part := range strings.Split(xf, ",") {
			ip := strings.TrimSpace(part)
			if ip == "" {
				continue
			}
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		if net.ParseIP(host) != nil {
			return host
		}
	} else if net.ParseIP(r.RemoteAddr) != nil {
		return r.RemoteAddr
	}

	return r.RemoteAddr
}
