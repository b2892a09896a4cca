// Copyright © 2026 PokeSearch Authors.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

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

	"github.com/pokesearch/pokectl/internal/rategate"
)

func newTestFetcher() *Fetcher {
	f := New(rategate.New(1000, time.Second))
	f.sleep = func(context.Context, time.Duration) error { return nil }
	return f
}

func TestFetchOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"name":"pikachu"}`))
	}))
	defer srv.Close()

	f := newTestFetcher()
	body, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"pikachu"}`, string(body))
	assert.Equal(t, int64(1), f.Requests())
}

func TestFetchRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	f := newTestFetcher()
	body, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchStatusExhausted(t *testing.T) {
	tests := []struct {
		name string
		code int
	}{
		{name: "too many requests", code: http.StatusTooManyRequests},
		{name: "internal error", code: http.StatusInternalServerError},
		{name: "bad gateway", code: http.StatusBadGateway},
		{name: "gateway timeout", code: http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.code)
			}))
			defer srv.Close()

			f := newTestFetcher()
			_, err := f.Fetch(context.Background(), srv.URL)

			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.code, statusErr.Code)
			assert.Equal(t, int32(DefaultRetries), calls.Load(), "should exhaust all attempts")
		})
	}
}

func TestFetchNonRetryableStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := newTestFetcher()
	_, err := f.Fetch(context.Background(), srv.URL)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.Equal(t, int32(1), calls.Load(), "404 should not be retried")
}

func TestFetchConnectionRefused(t *testing.T) {
	// Grab a port nothing is listening on.
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	f := newTestFetcher()
	_, err := f.Fetch(context.Background(), url)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, url, netErr.URL)
}

func TestFetchContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	f := New(rategate.New(1000, time.Second))
	f.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := f.Fetch(ctx, srv.URL)
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.ErrorIs(t, netErr.Err, context.Canceled)
}

func TestRetryableStatus(t *testing.T) {
	assert.True(t, retryableStatus(429))
	assert.True(t, retryableStatus(500))
	assert.True(t, retryableStatus(502))
	assert.True(t, retryableStatus(503))
	assert.True(t, retryableStatus(504))
	assert.False(t, retryableStatus(200))
	assert.False(t, retryableStatus(404))
	assert.False(t, retryableStatus(403))
}
