package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.ObserveRequest("GET", 200, 10*time.Millisecond)
	r.ObserveRequest("GET", 200, 5*time.Millisecond)
	r.ObserveRequest("POST", 0, time.Millisecond)
	r.ObserveCache(CacheHit)
	r.ObserveCache(CacheDedup)
	r.ObserveServed("GET", 404)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.requests.WithLabelValues("GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.requests.WithLabelValues("POST", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cache.WithLabelValues(CacheHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.served.WithLabelValues("GET", "404")))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.ObserveRequest("GET", 200, time.Millisecond)
	r.ObserveCache(CacheMiss)
	r.ObserveServed("GET", 200)
	assert.Nil(t, r.Registry())
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.ObserveCache(CacheMiss)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), MetricQueryCacheTotal)
}
