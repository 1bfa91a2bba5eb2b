package prometheus

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistersCleanly(t *testing.T) {
	assert.NotPanics(t, func() { NewMetrics("ultrathink") })
	// Separate instances use separate registries, so double construction
	// must not collide.
	assert.NotPanics(t, func() { NewMetrics("ultrathink") })
}

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics("ultrathink")
	m.HTTPRequestsTotal.WithLabelValues("GET", "/healthz", "200").Inc()
	m.GenerationsTotal.WithLabelValues("ok").Add(3)
	m.GenerationDuration.Observe(0.25)
	m.MutationOpsTotal.WithLabelValues("add_atom").Inc()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "ultrathink_http_requests_total")
	assert.Contains(t, body, "ultrathink_generations_total")
	assert.Contains(t, body, "ultrathink_mutation_ops_total")
}
