package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(opts ...Option) *Client {
	base := []Option{
		WithRequestDelay(0, 0),
		WithTimeout(2 * time.Second),
	}
	return New(append(base, opts...)...)
}

func TestGet_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer server.Close()

	client := newTestClient()
	body, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, string(body), "hello")
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer server.Close()

	client := newTestClient()
	body, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "recovered", string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGet_PermanentErrorsFailFast(t *testing.T) {
	for _, status := range []int{http.StatusForbidden, http.StatusNotFound} {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(status)
		}))

		client := newTestClient()
		_, err := client.Get(context.Background(), server.URL)
		server.Close()

		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, status, statusErr.StatusCode)
		assert.True(t, statusErr.Permanent())
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "status %d must not be retried", status)
	}
}

func TestGet_HonorsRetryAfter(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	// Zero retry budget: the 429 wait must not consume it.
	client := newTestClient(WithMaxRetries(0))
	body, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGet_GivesUpAfterRepeatedRateLimits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient()
	_, err := client.Get(context.Background(), server.URL)

	var rateLimitErr *RateLimitError
	assert.ErrorAs(t, err, &rateLimitErr)
}

func TestGet_ExhaustsRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(WithMaxRetries(2))
	_, err := client.Get(context.Background(), server.URL)

	require.Error(t, err)
	var statusErr *StatusError
	assert.ErrorAs(t, err, &statusErr)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls)) // initial + 2 retries
}

func TestGet_ConnError(t *testing.T) {
	client := newTestClient(WithMaxRetries(0))
	_, err := client.Get(context.Background(), "http://127.0.0.1:1")

	var connErr *ConnError
	assert.ErrorAs(t, err, &connErr)
}

func TestGet_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient()
	_, err := client.Get(ctx, "http://example.invalid")
	assert.Error(t, err)
}

func TestGet_PolitenessDelay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := New(WithRequestDelay(100*time.Millisecond, 0))

	start := time.Now()
	_, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	_, err = client.Get(context.Background(), server.URL)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestGetDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><h1 class="headline">Market rallies</h1></body></html>`))
	}))
	defer server.Close()

	client := newTestClient()
	doc, err := client.GetDocument(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Market rallies", doc.Find("h1.headline").Text())
}

func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"test","count":3}`))
	}))
	defer server.Close()

	var result struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	client := newTestClient()
	require.NoError(t, client.GetJSON(context.Background(), server.URL, &result))
	assert.Equal(t, "test", result.Name)
	assert.Equal(t, 3, result.Count)
}

func TestGetJSON_Malformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	var result map[string]interface{}
	client := newTestClient()
	err := client.GetJSON(context.Background(), server.URL, &result)
	assert.Error(t, err)
	var statusErr *StatusError
	assert.False(t, errors.As(err, &statusErr))
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 5*time.Second, parseRetryAfter(""))
	assert.Equal(t, 10*time.Second, parseRetryAfter("10"))
	assert.Equal(t, 5*time.Second, parseRetryAfter("garbage"))
}
