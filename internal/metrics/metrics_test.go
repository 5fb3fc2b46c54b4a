package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAndHandler(t *testing.T) {
	t.Parallel()

	m := New(func() int { return 3 })
	m.StreamRequests.WithLabelValues(OutcomeCached).Inc()
	m.StreamRequests.WithLabelValues(OutcomeCached).Inc()
	m.HosterResults.WithLabelValues("voe", "ok").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StreamRequests.WithLabelValues(OutcomeCached)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CacheEntries))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `svetserialu_stream_requests_total{outcome="cached"} 2`)
	assert.Contains(t, string(body), `svetserialu_hoster_resolutions_total{kind="voe",result="ok"} 1`)
}

func TestStatusClass(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "error", StatusClass(0))
	assert.Equal(t, "2xx", StatusClass(206))
	assert.Equal(t, "3xx", StatusClass(302))
	assert.Equal(t, "4xx", StatusClass(404))
	assert.Equal(t, "5xx", StatusClass(502))
}
