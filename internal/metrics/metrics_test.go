package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/rop-api/internal/config"
)

func TestNew(t *testing.T) {
	svr := New(&config.MetricsConfig{Enable: true, Addr: ":0"})
	assert.Equal(t, ":0", svr.Addr)

	PredictionCount.WithLabelValues("Healthy").Inc()
	LowConfidenceCount.Inc()

	w := httptest.NewRecorder()
	svr.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert := assert.New(t)
	assert.Contains(string(body), `rop_classifier_prediction_total{class="Healthy"}`)
	assert.Contains(string(body), "rop_classifier_low_confidence_total")
	assert.Contains(string(body), "rop_classifier_version{")
}
