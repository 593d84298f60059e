package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"libdb.so/strobbie/internal/pattern"
)

func TestEngineHooks(t *testing.T) {
	m := New()
	hooks := m.EngineHooks()

	hooks.Activated(pattern.SolidName)
	hooks.Activated(pattern.SolidName)
	hooks.Flushed(pattern.SolidName, nil)
	hooks.Flushed(pattern.SolidName, errors.New("unplugged"))
	hooks.Faulted(pattern.FlashingName)
	m.Tick()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.activations.WithLabelValues("solidColors")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.flushes.WithLabelValues("solidColors", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.flushes.WithLabelValues("solidColors", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.faults.WithLabelValues("flashingColors")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticks))
}

func TestServerMiddleware(t *testing.T) {
	m := New()
	r := prometheus.NewRegistry()
	r.MustRegister(m)

	h := m.ServerMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.serverCounter.WithLabelValues("418", "get")))

	w := httptest.NewRecorder()
	Handler(r).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "strobbie_http_requests_total"))
}
