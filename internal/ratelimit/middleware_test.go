package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		xff        string
		realIP     string
		remoteAddr string
		want       string
	}{
		{"forwarded first valid", "garbage, 203.0.113.7, 10.0.0.1", "", "192.0.2.1:5555", "203.0.113.7"},
		{"forwarded ipv6", "2001:db8::1", "", "192.0.2.1:5555", "2001:db8::1"},
		{"real ip when forwarded invalid", "unknown", "198.51.100.4", "192.0.2.1:5555", "198.51.100.4"},
		{"socket address", "", "", "192.0.2.1:5555", "192.0.2.1"},
		{"socket address without port", "", "", "192.0.2.9", "192.0.2.9"},
		{"unparseable socket address", "", "", "pipe", "pipe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set(echo.HeaderXForwardedFor, tt.xff)
			}
			if tt.realIP != "" {
				req.Header.Set(echo.HeaderXRealIP, tt.realIP)
			}
			assert.Equal(t, tt.want, ClientID(req))
		})
	}
}

func newLimitedEcho(l *Limiter) *echo.Echo {
	e := echo.New()
	e.Use(Middleware(l, DefaultRules()))
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	e.POST("/api/contact", ok)
	e.GET("/api/contact", ok)
	e.GET("/api/verify/check", ok)
	e.POST("/api/events/register", ok)
	return e
}

func do(e *echo.Echo, method, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, http.NoBody)
	req.RemoteAddr = ip + ":1234"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareRejectsOverBudget(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	e := newLimitedEcho(New(DefaultPolicies(), WithClock(clk.Now)))

	for i := 0; i < 3; i++ {
		rec := do(e, http.MethodPost, "/api/contact", "192.0.2.1")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
	}

	clk.Advance(15*time.Second + 500*time.Millisecond)
	rec := do(e, http.MethodPost, "/api/contact", "192.0.2.1")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "45", rec.Header().Get("Retry-After"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 45, body.RetryAfter)
	assert.NotEmpty(t, body.Error)
	assert.Contains(t, body.Message, "45 seconds")

	// another client is unaffected
	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/api/contact", "192.0.2.2").Code)
}

func TestMiddlewareIgnoresUngatedRequests(t *testing.T) {
	t.Parallel()

	e := newLimitedEcho(New(DefaultPolicies()))
	for i := 0; i < 10; i++ {
		rec := do(e, http.MethodGet, "/api/contact", "192.0.2.1")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	}
}

func TestMiddlewareVerifyCountsGetAndPost(t *testing.T) {
	t.Parallel()

	l := New(map[Class]Policy{ClassVerify: {Window: time.Minute, MaxRequests: 2}})
	e := echo.New()
	e.Use(Middleware(l, DefaultRules()))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	e.GET("/api/verify/check", ok)
	e.POST("/api/verify/check", ok)

	assert.Equal(t, http.StatusNoContent, do(e, http.MethodGet, "/api/verify/check", "192.0.2.1").Code)
	assert.Equal(t, http.StatusNoContent, do(e, http.MethodPost, "/api/verify/check", "192.0.2.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(e, http.MethodGet, "/api/verify/check", "192.0.2.1").Code)
}
