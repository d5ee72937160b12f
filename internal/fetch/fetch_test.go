package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(collected *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		if collected != nil {
			*collected = append(*collected, d)
		}
		return nil
	}
}

func TestNew(t *testing.T) {
	t.Run("fills in defaults for zero values", func(t *testing.T) {
		f := New(Config{})
		assert.Equal(t, 3, f.MaxRetries())
		assert.Equal(t, 1*time.Second, f.baseDelay)
	})

	t.Run("keeps explicit values", func(t *testing.T) {
		f := New(Config{MaxRetries: 5, BaseDelay: 250 * time.Millisecond})
		assert.Equal(t, 5, f.MaxRetries())
		assert.Equal(t, 250*time.Millisecond, f.baseDelay)
	})
}

func TestFetcher_GetJSON(t *testing.T) {
	t.Run("decodes a successful response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "GET", r.Method)
			assert.Equal(t, "bar", r.URL.Query().Get("foo"))
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"name":"ok"}`))
		}))
		defer server.Close()

		f := New(Config{})
		f.SetSleep(noSleep(nil))

		var out struct {
			Name string `json:"name"`
		}
		err := f.GetJSON(context.Background(), server.URL, map[string]string{"foo": "bar"}, &out)

		require.NoError(t, err)
		assert.Equal(t, "ok", out.Name)
	})

	t.Run("succeeds on the third attempt after two failures", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"name":"third"}`))
		}))
		defer server.Close()

		var delays []time.Duration
		f := New(Config{MaxRetries: 3, BaseDelay: 1 * time.Second})
		f.SetSleep(noSleep(&delays))

		var out struct {
			Name string `json:"name"`
		}
		err := f.GetJSON(context.Background(), server.URL, nil, &out)

		require.NoError(t, err)
		assert.Equal(t, "third", out.Name)
		assert.Equal(t, int32(3), hits.Load())
		// Linear backoff: base*1 then base*2
		assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, delays)
	})

	t.Run("gives up after max retries and surfaces the last failure", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		f := New(Config{MaxRetries: 3})
		f.SetSleep(noSleep(nil))

		err := f.GetJSON(context.Background(), server.URL, nil, nil)

		require.Error(t, err)
		assert.Equal(t, int32(3), hits.Load())
		assert.True(t, IsStatus(err, http.StatusBadGateway))
	})

	t.Run("does not retry a 404 into success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer server.Close()

		f := New(Config{MaxRetries: 2})
		f.SetSleep(noSleep(nil))

		err := f.GetJSON(context.Background(), server.URL, nil, nil)

		require.Error(t, err)
		assert.True(t, IsStatus(err, http.StatusNotFound))
		assert.False(t, IsStatus(err, http.StatusBadGateway))
	})

	t.Run("stops between attempts when the context is cancelled", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		f := New(Config{MaxRetries: 3})
		f.SetSleep(func(_ context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		})

		err := f.GetJSON(ctx, server.URL, nil, nil)

		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("per-attempt timeout counts as a failed attempt", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		f := New(Config{MaxRetries: 2, Timeout: 20 * time.Millisecond})
		f.SetSleep(noSleep(nil))

		start := time.Now()
		err := f.GetJSON(context.Background(), server.URL, nil, nil)
		elapsed := time.Since(start)

		require.Error(t, err)
		assert.Equal(t, int32(2), hits.Load())
		// Every attempt has to run into its own timeout
		assert.GreaterOrEqual(t, elapsed, 2*20*time.Millisecond)
	})
}

func TestFetcher_Do(t *testing.T) {
	t.Run("sends JSON bodies and custom headers", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "POST", r.Method)
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			assert.Contains(t, r.Header.Get("Content-Type"), "application/json")
			w.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		f := New(Config{MaxRetries: 1})
		f.SetSleep(noSleep(nil))

		resp, err := f.Do(context.Background(), Request{
			Method: http.MethodPost,
			URL:    server.URL,
			Header: map[string]string{"Authorization": "Bearer tok"},
			Body:   map[string]string{"id": "42"},
		})

		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode())
	})
}
