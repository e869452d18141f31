package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP holds the transport-level Prometheus metrics.
type HTTP struct {
	RequestDuration *prometheus.HistogramVec
}

// NewHTTP creates and registers the transport metrics.
func NewHTTP() *HTTP {
	return &HTTP{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "escrowd_http_request_duration_seconds",
			Help:    "HTTP request latency by method, path pattern, and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

// Middleware observes request latency. Nil-safe so tests can skip metrics.
func (m *HTTP) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		m.RequestDuration.WithLabelValues(
			r.Method,
			r.URL.Path,
			strconv.Itoa(rec.status),
		).Observe(time.Since(start).Seconds())
	})
}
