package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/learnforge/trainingportal/internal/buildinfo"
	"github.com/learnforge/trainingportal/internal/conf"
	"github.com/learnforge/trainingportal/internal/errors"
	"github.com/learnforge/trainingportal/internal/observability"
	"github.com/learnforge/trainingportal/internal/ratelimit"
	"github.com/learnforge/trainingportal/internal/repository"
	"github.com/learnforge/trainingportal/internal/store/jsonstore"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type brokenStore struct{}

func (brokenStore) Load(string) ([]byte, error) { return nil, errors.NewStd("disk on fire") }
func (brokenStore) Save(string, []byte) error   { return errors.NewStd("disk on fire") }
func (brokenStore) Name() string                { return "broken" }

func testSettings() *conf.Settings {
	s := &conf.Settings{}
	s.Main.Name = "Test Academy"
	s.WebServer.Host = "127.0.0.1"
	s.WebServer.Port = "0"
	return s
}

func newTestServer(t *testing.T, settings *conf.Settings, opts ...ServerOption) (*Server, *jsonstore.Store) {
	t.Helper()
	st, err := jsonstore.New("/data", jsonstore.WithFs(afero.NewMemMapFs()))
	require.NoError(t, err)

	opts = append([]ServerOption{WithRepositories(repository.NewRepositories(st)), WithStore(st)}, opts...)
	s, err := New(settings, opts...)
	require.NoError(t, err)
	return s, st
}

func serve(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestConfigFromSettings(t *testing.T) {
	t.Parallel()

	settings := testSettings()
	settings.WebServer.Port = ""
	settings.Metrics.Enabled = true
	cfg := ConfigFromSettings(settings)

	assert.Equal(t, "127.0.0.1:8080", cfg.Address())
	assert.Equal(t, DefaultBodyLimit, cfg.BodyLimit)
	assert.Equal(t, DefaultMetricsPath, cfg.MetricsPath)
	require.NoError(t, cfg.Validate())

	cfg.BodyLimit = "plenty"
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	settings.Metrics.Enabled = false
	assert.Empty(t, ConfigFromSettings(settings).MetricsPath)
}

func TestNewRequiresRepositories(t *testing.T) {
	t.Parallel()

	_, err := New(testSettings())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	_, err = New(nil)
	require.Error(t, err)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, testSettings(), WithBuildInfo(buildinfo.New("1.2.3", "2025-06-01")))
	rec := serve(s, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Equal(t, "json", resp.Storage.Backend)
	assert.True(t, resp.Storage.OK)
}

func TestHealthReportsBrokenStore(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, testSettings(), WithStore(brokenStore{}))
	rec := serve(s, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "broken", resp.Storage.Backend)
	assert.NotContains(t, rec.Body.String(), "disk on fire")
}

func TestUnknownAPIRouteIsJSON404(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, testSettings())
	rec := serve(s, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Endpoint not found")
}

func TestAdminRoutesAbsentWithoutAuthenticator(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, testSettings())
	rec := serve(s, http.MethodPost, "/api/admin/login", `{"username":"admin","password":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimitedContact(t *testing.T) {
	t.Parallel()

	limiter := ratelimit.New(map[ratelimit.Class]ratelimit.Policy{
		ratelimit.ClassContact: {Window: time.Minute, MaxRequests: 1},
	})
	s, _ := newTestServer(t, testSettings(), WithRateLimiter(limiter))

	body := `{"name":"Ada","email":"ada@example.com","message":"Hello"}`
	first := serve(s, http.MethodPost, "/api/contact", body)
	assert.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second := serve(s, http.MethodPost, "/api/contact", body)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	// other classes are untouched
	assert.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/api/courses", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	settings := testSettings()
	settings.Metrics.Enabled = true
	m, err := observability.NewMetrics()
	require.NoError(t, err)
	s, _ := newTestServer(t, settings, WithMetrics(m))

	require.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/api/courses", "").Code)

	rec := serve(s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{code="200",method="GET",route="/api/courses"} 1`)
}

func TestRunStopsOnCancel(t *testing.T) {
	s, _ := newTestServer(t, testSettings())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.Echo().ListenerAddr() != nil }, 5*time.Second, 10*time.Millisecond)

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + s.Echo().ListenerAddr().String() + "/api/health")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
