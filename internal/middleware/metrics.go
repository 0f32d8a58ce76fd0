package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/sakif/challenge-tracker/internal/metrics"
)

// Metrics records every request in the Prometheus request counter and
// latency histogram, labelled by the matched route pattern rather than the
// raw path so /challenges/1 and /challenges/2 share a series.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := wrap(w)

		next.ServeHTTP(wrapped, r)

		route := routePattern(r)
		metrics.HTTPRequestsTotal.
			WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).
			Inc()
		metrics.HTTPRequestDuration.
			WithLabelValues(r.Method, route).
			Observe(time.Since(start).Seconds())
	})
}
