package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/tipatpati/golden-phone-management-sub007/internal/telemetry"
)

// HTTPMetrics records request counts and latency per route pattern. The
// registered pattern is used instead of the raw URL to keep label
// cardinality bounded.
func HTTPMetrics(m *telemetry.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			pattern := r.Pattern
			if pattern == "" {
				pattern = "unmatched"
			}

			m.HTTPRequests.WithLabelValues(r.Method, pattern, strconv.Itoa(wrapped.status)).Inc()
			m.HTTPDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
		})
	}
}
