package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordDispatch(t *testing.T) {
	before := testutil.ToFloat64(alertsDispatched.WithLabelValues("slack", "sent"))

	RecordDispatch("slack", "sent", 120*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(alertsDispatched.WithLabelValues("slack", "sent")))
}

func TestRecordSkipAndJob(t *testing.T) {
	skipped := testutil.ToFloat64(alertsSkipped.WithLabelValues(SkipQuietHours))
	jobs := testutil.ToFloat64(alertJobs.WithLabelValues("daily", "success"))
	failures := testutil.ToFloat64(tenantFailures)

	RecordSkip(SkipQuietHours)
	RecordJob("daily", "success")
	RecordTenantFailure()

	assert.Equal(t, skipped+1, testutil.ToFloat64(alertsSkipped.WithLabelValues(SkipQuietHours)))
	assert.Equal(t, jobs+1, testutil.ToFloat64(alertJobs.WithLabelValues("daily", "success")))
	assert.Equal(t, failures+1, testutil.ToFloat64(tenantFailures))
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Post("/api/tenants/{tenantID}/alerts/run", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	label := httpRequestsTotal.WithLabelValues(http.MethodPost, "/api/tenants/{tenantID}/alerts/run", "202")
	before := testutil.ToFloat64(label)

	req := httptest.NewRequest(http.MethodPost, "/api/tenants/8f14e45f-ceea-467f-a0e6-0bd1e3a7a9f2/alerts/run", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, before+1, testutil.ToFloat64(label))
}

func TestMiddleware_Unmatched(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)

	label := httpRequestsTotal.WithLabelValues(http.MethodGet, "unmatched", "404")
	before := testutil.ToFloat64(label)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(label))
}
