package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandlerExposesCollectors(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	m.Store.RecordOperation("json", "save", "courses", "success", time.Millisecond)
	m.RateLimit.RecordDecision("contact", false)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, `store_operations_total{backend="json",collection="courses",operation="save",status="success"} 1`)
	assert.Contains(t, text, `ratelimit_decisions_total{class="contact",result="rejected"} 1`)
	assert.Contains(t, text, "go_goroutines")
}
