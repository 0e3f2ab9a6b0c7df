package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
)

// IdentityFunc names the caller a request is charged to.
type IdentityFunc func(r *http.Request) string

// RemoteAddr charges requests to the client address.
func RemoteAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware returns HTTP middleware that charges each request to class.
// Requests over budget are answered with 429 and a Retry-After header
// without reaching next.
func Middleware(l *Limiter, class Class, identify IdentityFunc) func(http.Handler) http.Handler {
	if identify == nil {
		identify = RemoteAddr
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := l.Check(class, identify(r))
			if d.Limit > 0 {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			}
			if d.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			secs := d.RetryAfterSeconds()
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error":     "rate_limited",
				"message":   "too many " + string(class) + " requests, retry in " + strconv.Itoa(secs) + "s",
				"changed":   false,
				"retryable": true,
			})
		})
	}
}
