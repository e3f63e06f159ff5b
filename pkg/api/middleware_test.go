package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(RequestIDFrom(r.Context())))
	})
}

func TestRateLimiter_Middleware(t *testing.T) {
	// 1 req/sec, burst 2
	ts := httptest.NewServer(NewRateLimiter(1, 2).Middleware(okHandler()))
	defer ts.Close()

	for i := 0; i < 2; i++ {
		resp, err := ts.Client().Get(ts.URL)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, "within burst")
		assert.NoError(t, resp.Body.Close())
	}

	resp, err := ts.Client().Get(ts.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "5", resp.Header.Get("Retry-After"))
	assert.NoError(t, resp.Body.Close())
}

func TestRateLimiter_Sweep(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.getVisitor("10.0.0.1")
	rl.getVisitor("10.0.0.2")

	rl.Sweep(time.Now())
	assert.Len(t, rl.visitors, 2)

	rl.Sweep(time.Now().Add(4 * time.Minute))
	assert.Empty(t, rl.visitors)
}

func TestRequestID(t *testing.T) {
	h := RequestID(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := rec.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, rec.Body.String())

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	h.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "req-123", rec.Body.String())
}
