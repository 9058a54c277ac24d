package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/iho/fundledger/internal/infrastructure/metrics"
)

// Metrics creates a middleware that records request counts and
// durations into the shared metrics set.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &metricsRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			path := normalizePath(r.URL.Path)

			m.HTTPRequests.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
			m.HTTPDuration.WithLabelValues(r.Method, path).Observe(duration)
		})
	}
}

type metricsRecorder struct {
	http.ResponseWriter

	statusCode int
}

func (r *metricsRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// collections whose ID segment gets collapsed to :id so the path label
// stays low-cardinality.
var normalizedPrefixes = []string{
	"/api/v1/capital-calls/",
	"/api/v1/distributions/",
	"/api/v1/funds/",
}

// normalizePath normalizes URL paths to avoid high cardinality.
// /api/v1/capital-calls/01ABC123/approve -> /api/v1/capital-calls/:id/approve
func normalizePath(path string) string {
	for _, prefix := range normalizedPrefixes {
		if !strings.HasPrefix(path, prefix) {
			continue
		}

		rest := path[len(prefix):]
		if rest == "" {
			return path
		}

		if i := strings.IndexByte(rest, '/'); i >= 0 {
			return prefix + ":id" + rest[i:]
		}

		return prefix + ":id"
	}

	return path
}
