package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Diony-dev/Veloce/internal/reporting"
)

var _ reporting.Recorder = (*Metrics)(nil)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsHandlerExposesRuntimeMetrics(t *testing.T) {
	body := scrape(t, NewMetrics())
	assert.Contains(t, body, "go_goroutines")
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/reports/fiscal")

	req := httptest.NewRequest(http.MethodGet, "/reports/fiscal", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	assert.Contains(t, body, `veloce_http_requests_total{code="418",route="/reports/fiscal"} 1`)
	assert.Contains(t, body, `veloce_http_request_duration_seconds_bucket{route="/reports/fiscal"`)
}

func TestReportDegradedCounter(t *testing.T) {
	metrics := NewMetrics()
	metrics.ReportDegraded(reporting.ReportFiscal)
	metrics.ReportDegraded(reporting.ReportFiscal)

	assert.Contains(t, scrape(t, metrics), `veloce_report_degraded_total{report="fiscal"} 2`)

	var nilMetrics *Metrics
	nilMetrics.ReportDegraded(reporting.ReportFiscal)
}
