package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts handled requests by route pattern, method and status.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"route", "method", "status"})

	// RequestDuration records request latency by route pattern and method.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inkwell_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})
)

// Metrics records RequestsTotal and RequestDuration.
//
// The route label is chi's pattern ("/blog/{postID}/"), not the raw path,
// so every post shares one time series. Requests that matched no route are
// labelled "unmatched".
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := wrap(w)

		next.ServeHTTP(wrapped, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		RequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(wrapped.statusCode)).Inc()
		RequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
