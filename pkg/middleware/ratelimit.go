package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/serverdex/serverdex-engine/pkg/ratelimit"
)

// Limiter is the limiter surface the middleware needs. Implemented by
// *ratelimit.Limiter.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) ratelimit.Result
}

// IPRateLimit returns middleware that throttles anonymous requests per
// client IP under the given action label.
func IPRateLimit(limiter Limiter, action string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := limiter.Check(r.Context(),
				ratelimit.Key(action, "ip", clientIP(r)),
				limit, window)

			if !result.Allowed {
				retryAfter := int(result.ResetIn.Round(time.Second).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprintf(w, `{"error":"rate_limited","message":"too many requests, retry in %ds"}`, retryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
