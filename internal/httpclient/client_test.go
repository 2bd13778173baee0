package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, cfg *Config) *Client {
	t.Helper()
	client := New(cfg)
	t.Cleanup(client.Close)
	return client
}

func TestNewAppliesDefaults(t *testing.T) {
	t.Parallel()

	c := New(&Config{})
	assert.Equal(t, DefaultTimeout, c.Timeout())
	assert.Equal(t, defaultUserAgent, c.userAgent)

	c = New(&Config{Timeout: 5 * time.Second, UserAgent: "Test/1.0"})
	assert.Equal(t, 5*time.Second, c.Timeout())
	assert.Equal(t, "Test/1.0", c.userAgent)

	assert.NotNil(t, New(nil).StandardClient())
}

func TestGetSetsUserAgent(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(r.Header.Get("User-Agent")))
	})
	client := newTestClient(t, &Config{UserAgent: "Portal/2.0"})

	resp, err := client.Get(t.Context(), server.URL)
	require.NoError(t, err)
	body, err := ReadBody(resp, 0)
	require.NoError(t, err)
	assert.Equal(t, "Portal/2.0", string(body))
}

func TestPostJSON(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))

		var got map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": got["text"]})
	})
	client := newTestClient(t, nil)

	resp, err := client.PostJSON(t.Context(), server.URL, map[string]string{"text": "hello"},
		map[string]string{"X-Api-Key": "secret"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := ReadBody(resp, 0)
	require.NoError(t, err)
	assert.JSONEq(t, `{"echo":"hello"}`, string(body))
}

func TestPostJSONRejectsUnmarshalableBody(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, nil)
	_, err := client.PostJSON(t.Context(), "http://127.0.0.1:1", map[string]any{"ch": make(chan int)}, nil)
	require.Error(t, err)
}

func TestDefaultTimeoutApplies(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	client := newTestClient(t, &Config{Timeout: 50 * time.Millisecond})
	_, err := client.Get(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
}

func TestCallerDeadlineWins(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(30 * time.Millisecond)
		_, _ = w.Write([]byte("slow but fine"))
	})

	// the default timeout is shorter than the handler, but the caller set its own deadline
	client := newTestClient(t, &Config{Timeout: 5 * time.Millisecond})
	ctx, cancel := context.WithTimeout(t.Context(), time.Second)
	defer cancel()

	resp, err := client.Get(ctx, server.URL)
	require.NoError(t, err)
	body, err := ReadBody(resp, 0)
	require.NoError(t, err)
	assert.Equal(t, "slow but fine", string(body))
}

func TestBodyReadableAfterDo(t *testing.T) {
	t.Parallel()

	payload := strings.Repeat("x", 64*1024)
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, payload)
	})
	client := newTestClient(t, nil)

	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	body, err := ReadBody(resp, 0)
	require.NoError(t, err)
	assert.Len(t, body, len(payload))
}

func TestReadBodyLimit(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "0123456789")
	})
	client := newTestClient(t, nil)

	resp, err := client.Get(t.Context(), server.URL)
	require.NoError(t, err)
	_, err = ReadBody(resp, 5)
	require.Error(t, err)
}

func TestObserversSeeEveryRequest(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	client := newTestClient(t, nil)

	var calls, teapots atomic.Int32
	client.Observe(func(req *http.Request, resp *http.Response, err error, elapsed time.Duration) {
		calls.Add(1)
		if err == nil && resp.StatusCode == http.StatusTeapot {
			teapots.Add(1)
		}
		assert.GreaterOrEqual(t, elapsed, time.Duration(0))
	})

	for i := 0; i < 3; i++ {
		resp, err := client.Get(t.Context(), server.URL)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
	}
	_, err := client.Get(t.Context(), "http://127.0.0.1:1")
	require.Error(t, err)

	assert.Equal(t, int32(4), calls.Load())
	assert.Equal(t, int32(3), teapots.Load())
}

func TestDoNilRequest(t *testing.T) {
	t.Parallel()

	_, err := New(nil).Do(t.Context(), nil)
	require.Error(t, err)
}

func TestIsTimeout(t *testing.T) {
	t.Parallel()

	assert.False(t, IsTimeout(nil))
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.False(t, IsTimeout(io.EOF))
}
