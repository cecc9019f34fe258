package federation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastBackoff(t *testing.T) {
	t.Helper()
	old := resolverInitialBackoff
	resolverInitialBackoff = time.Millisecond
	t.Cleanup(func() { resolverInitialBackoff = old })
}

func TestResolve_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "user-1", req["userId"])
		_ = json.NewEncoder(w).Encode(map[string]string{"handle": "wallet_cousin"})
	}))
	defer srv.Close()

	handle, err := NewHandleResolver(srv.URL).Resolve(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "wallet_cousin", handle)
}

func TestResolve_RetriesRateLimit(t *testing.T) {
	fastBackoff(t)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"handle": "late_cousin"})
	}))
	defer srv.Close()

	handle, err := NewHandleResolver(srv.URL).Resolve(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "late_cousin", handle)
	assert.Equal(t, int32(3), calls.Load())
}

func TestResolve_ExhaustsRateLimitAttempts(t *testing.T) {
	fastBackoff(t)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewHandleResolver(srv.URL).Resolve(context.Background(), "user-1")
	require.ErrorIs(t, err, ErrHandleUnresolved)
	assert.Equal(t, int32(resolverAttempts), calls.Load())
}

func TestResolve_HonorsRetryAfter(t *testing.T) {
	fastBackoff(t)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"handle": "patient_cousin"})
	}))
	defer srv.Close()

	start := time.Now()
	handle, err := NewHandleResolver(srv.URL).Resolve(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "patient_cousin", handle)
	// The server asked for a 1s delay; the retry must not fire earlier.
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
}

func TestResolve_NonRateLimitFailureIsTerminal(t *testing.T) {
	fastBackoff(t)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewHandleResolver(srv.URL).Resolve(context.Background(), "user-1")
	require.ErrorIs(t, err, ErrHandleUnresolved)
	assert.Equal(t, int32(1), calls.Load(), "server errors must not be retried")
}

func TestResolve_EmptyHandleRejected(t *testing.T) {
	fastBackoff(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"handle": ""})
	}))
	defer srv.Close()

	_, err := NewHandleResolver(srv.URL).Resolve(context.Background(), "user-1")
	require.ErrorIs(t, err, ErrHandleUnresolved)
}
