package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAndHandler(t *testing.T) {
	m := New(nil)
	m.Decisions.WithLabelValues("irrigate_now", "HIGH").Inc()
	m.Decisions.WithLabelValues("irrigate_now", "HIGH").Inc()
	m.WeatherFailures.Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Decisions.WithLabelValues("irrigate_now", "HIGH")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WeatherFailures))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "agronomy_irrigation_decisions_total"))
}
