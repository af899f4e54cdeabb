package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"api": {RequestsPerMinute: 60, Burst: 1},
	}, nil)
	handler := limiter.Middleware("api")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/cart", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusTooManyRequests, res.Code)
	require.Contains(t, res.Body.String(), `"error"`)
}

func TestRateLimiterSeparatesRoutes(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"catalog": {RequestsPerMinute: 60, Burst: 1},
		"cart":    {RequestsPerMinute: 60, Burst: 1},
	}, nil)
	catalogHandler := limiter.Middleware("catalog")(okHandler())
	cartHandler := limiter.Middleware("cart")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/products", nil)
	req.Header.Set("X-API-Key", "till-1")
	res := httptest.NewRecorder()
	catalogHandler.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)

	cartReq := httptest.NewRequest(http.MethodGet, "/v1/cart", nil)
	cartReq.Header.Set("X-API-Key", "till-1")
	cartRes := httptest.NewRecorder()
	cartHandler.ServeHTTP(cartRes, cartReq)
	require.Equal(t, http.StatusOK, cartRes.Code)

	cartRes = httptest.NewRecorder()
	cartHandler.ServeHTTP(cartRes, cartReq)
	require.Equal(t, http.StatusTooManyRequests, cartRes.Code)
}

func TestRateLimiterPrefersAPIKeyOverIP(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"api": {RequestsPerMinute: 60, Burst: 1},
	}, nil)
	handler := limiter.Middleware("api")(okHandler())

	for _, key := range []string{"till-A", "till-B"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/cart", nil)
		req.Header.Set("X-API-Key", key)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		require.Equal(t, http.StatusOK, res.Code, key)
	}
}

func TestRateLimiterUnknownKeyPassesThrough(t *testing.T) {
	limiter := NewRateLimiter(nil, nil)
	handler := limiter.Middleware("missing")(okHandler())
	for i := 0; i < 3; i++ {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, res.Code)
	}
	require.Zero(t, limiter.Visitors())
}

func TestRateLimiterEvictsIdleVisitors(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(map[string]RateLimit{"api": {RequestsPerMinute: 60, Burst: 1}}, nil)
	limiter.clockNow = func() time.Time { return now }
	handler := limiter.Middleware("api")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/cart", nil)
	req.Header.Set("X-Real-IP", "10.0.0.1")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, 1, limiter.Visitors())

	now = now.Add(6 * time.Minute)
	other := httptest.NewRequest(http.MethodGet, "/v1/cart", nil)
	other.Header.Set("X-Real-IP", "10.0.0.2")
	handler.ServeHTTP(httptest.NewRecorder(), other)
	require.Equal(t, 1, limiter.Visitors())
}

func TestClientIDUsesFirstForwardedAddress(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	require.Equal(t, "203.0.113.9", clientID(req))
}
