package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnforge/trainingportal/internal/observability/metrics"
)

func TestRequestIDIsGeneratedAndPreserved(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.Use(NewRequestID())
	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, RequestID(c))
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", http.NoBody))
	generated := rec.Header().Get(echo.HeaderXRequestID)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/ping", http.NoBody)
	req.Header.Set(echo.HeaderXRequestID, "proxy-assigned")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "proxy-assigned", rec.Header().Get(echo.HeaderXRequestID))
}

func TestMetricsRecordsRouteTemplates(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := metrics.NewHTTPMetrics(reg)
	require.NoError(t, err)

	e := echo.New()
	e.Use(NewMetrics(m))
	e.GET("/api/courses/:id", func(c echo.Context) error {
		if c.Param("id") == "404" {
			return echo.NewHTTPError(http.StatusNotFound)
		}
		return c.NoContent(http.StatusOK)
	})

	for _, path := range []string{"/api/courses/1", "/api/courses/2", "/api/courses/404"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, http.NoBody))
	}

	expected := `
# HELP http_requests_in_flight HTTP requests currently being served
# TYPE http_requests_in_flight gauge
http_requests_in_flight 0
# HELP http_requests_total HTTP requests by method, route and status code
# TYPE http_requests_total counter
http_requests_total{code="200",method="GET",route="/api/courses/:id"} 2
http_requests_total{code="404",method="GET",route="/api/courses/:id"} 1
`
	require.NoError(t, testutil.CollectAndCompare(m, strings.NewReader(expected),
		"http_requests_total", "http_requests_in_flight"))
}

func TestMetricsToleratesNilCollector(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.Use(NewMetrics(nil))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func newCSRFServer() *echo.Echo {
	e := echo.New()
	e.Use(NewCSRF(nil))
	e.GET("/token", func(c echo.Context) error {
		token, err := EnsureCSRFToken(c)
		if err != nil {
			return err
		}
		return c.String(http.StatusOK, token)
	})
	e.POST("/mutate", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	return e
}

func TestCSRFRejectsMutationWithoutToken(t *testing.T) {
	t.Parallel()

	e := newCSRFServer()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mutate", http.NoBody))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCSRFAcceptsTokenFromCookie(t *testing.T) {
	t.Parallel()

	e := newCSRFServer()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/token", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	token := rec.Body.String()
	require.NotEmpty(t, token)

	var csrfCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == csrfCookieName {
			csrfCookie = c
		}
	}
	require.NotNil(t, csrfCookie)
	assert.Equal(t, token, csrfCookie.Value)

	req := httptest.NewRequest(http.MethodPost, "/mutate", http.NoBody)
	req.AddCookie(csrfCookie)
	req.Header.Set(csrfHeaderName, token)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSecurityConfigFromOrigins(t *testing.T) {
	t.Parallel()

	open := SecurityConfigFromOrigins(nil)
	assert.Equal(t, []string{"*"}, open.AllowedOrigins)
	assert.False(t, open.AllowCredentials)

	restricted := SecurityConfigFromOrigins([]string{"https://portal.example.com"})
	assert.Equal(t, []string{"https://portal.example.com"}, restricted.AllowedOrigins)
	assert.True(t, restricted.AllowCredentials)
}

func TestIsSecureRequest(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	assert.False(t, IsSecureRequest(req))
	req.Header.Set("X-Forwarded-Proto", "https")
	assert.True(t, IsSecureRequest(req))
}
