package telemetry

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandlerExposesCounters(t *testing.T) {
	PongsSent.Inc()
	LifecycleEvents.WithLabelValues("open").Inc()

	srv := httptest.NewServer(MetricsHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "pingpong_pongs_sent_total")
	assert.Contains(t, string(body), `pingpong_lifecycle_events_total{event="open"}`)
}

func TestReadTimeoutGauge(t *testing.T) {
	ReadTimeout.Set(5)
	assert.Equal(t, 5.0, testutil.ToFloat64(ReadTimeout))
}
