package ratelimit

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/arashthr/shelf/internal/auth/context/loggercontext"
)

// KeyFunc picks the bucket a request counts against.
type KeyFunc func(r *http.Request) string

// Middleware rejects requests over the limit with 429 and a JSON error body.
// A failing limiter lets the request through.
func Middleware(l Limiter, key KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := loggercontext.Logger(r.Context())

			d, err := l.Allow(r.Context(), key(r))
			if err != nil {
				logger.Errorw("rate limiter unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			if !d.Allowed {
				logger.Infow("enrichment rate limited", "retry_after", d.RetryAfter)
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "Too many requests. Please try again later.",
				})
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(d.Remaining, 0)))
			next.ServeHTTP(w, r)
		})
	}
}
