package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObservabilityCountsRequestsAndStampsRequestID(t *testing.T) {
	obs := NewObservability(ObservabilityConfig{Enabled: true, Registry: prometheus.NewRegistry()}, nil)
	handler := obs.Middleware("cart")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/cart/items", nil))
	require.Equal(t, http.StatusConflict, res.Code)
	require.NotEmpty(t, res.Header().Get(RequestIDHeader))
	require.Equal(t, 1.0, testutil.ToFloat64(obs.Requests().WithLabelValues("cart", http.MethodPost, "409")))
}

func TestObservabilityKeepsCallerRequestID(t *testing.T) {
	obs := NewObservability(ObservabilityConfig{}, nil)
	handler := obs.Middleware("root")(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, "req-123", res.Header().Get(RequestIDHeader))
}

func TestCORSAnswersPreflight(t *testing.T) {
	handler := CORS(CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}})(okHandler())
	req := httptest.NewRequest(http.MethodOptions, "/v1/cart", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusNoContent, res.Code)
	require.Equal(t, "http://localhost:5173", res.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, res.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}
