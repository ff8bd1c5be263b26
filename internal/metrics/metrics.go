package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "renewalwatch_http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		},
		[]string{"method", "path", "status"},
	)

	alertsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_dispatched_total",
			Help: "Alert deliveries by channel kind and outcome",
		},
		[]string{"kind", "status"},
	)

	alertsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_skipped_total",
			Help: "Alerts not dispatched, by reason",
		},
		[]string{"reason"},
	)

	alertJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_jobs_total",
			Help: "Scheduler jobs by occasion and result",
		},
		[]string{"occasion", "result"},
	)

	dispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "alert_dispatch_duration_seconds",
			Help:    "Webhook round trip time per channel kind",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
		},
		[]string{"kind"},
	)

	tenantFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alert_tenant_failures_total",
			Help: "Tenants whose alert run failed and was skipped",
		},
	)
)

// Skip reasons.
const (
	SkipDuplicate      = "duplicate"
	SkipQuietHours     = "quiet_hours"
	SkipInvalidChannel = "invalid_channel"
	SkipThrottled      = "throttled"
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordDispatch(kind, status string, duration time.Duration) {
	alertsDispatched.WithLabelValues(kind, status).Inc()
	dispatchDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func RecordSkip(reason string) {
	alertsSkipped.WithLabelValues(reason).Inc()
}

func RecordJob(occasion, result string) {
	alertJobs.WithLabelValues(occasion, result).Inc()
}

func RecordTenantFailure() {
	tenantFailures.Inc()
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request metrics labelled by the matched chi route
// pattern, keeping tenant ids out of label values.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
	})
}
