// Package middleware wraps the admin HTTP endpoints (metrics and health
// probes) with request instrumentation and a per-request timeout.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Instrument counts requests by method, path and status code and observes
// their latency. Paths outside known are recorded as "other" to keep label
// cardinality bounded.
func Instrument(requests *prometheus.CounterVec, duration *prometheus.HistogramVec, known ...string) func(http.Handler) http.Handler {
	paths := make(map[string]bool, len(known))
	for _, p := range known {
		paths[p] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			path := r.URL.Path
			if !paths[path] {
				path = "other"
			}
			requests.WithLabelValues(r.Method, path, strconv.Itoa(sw.status)).Inc()
			duration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// statusWriter records the status code written by the wrapped handler.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.wroteHeader {
		sw.status = code
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	sw.wroteHeader = true
	return sw.ResponseWriter.Write(b)
}
