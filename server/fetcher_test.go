package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcherGetAll(t *testing.T) {
	// Testing server that responds with request URI.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.RequestURI))
	}))
	defer srv.Close()

	f := NewFetcher(10)

	// Fetch hundred different responses.
	urls := make([]string, 100)
	for i := range urls {
		urls[i] = fmt.Sprintf("%s/%d", srv.URL, i)
	}

	resps, err := f.GetAll(context.Background(), urls)
	require.NoError(t, err)
	require.Len(t, resps, len(urls))

	for i, resp := range resps {
		require.NoError(t, resp.Err)
		assert.Equal(t, 200, resp.Status)
		assert.Equal(t, fmt.Sprintf("/%d", i), string(resp.Data))
	}
}

func TestFetcherErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	f := NewFetcher(2)
	f.MaxBytes = 32
	ctx := context.Background()

	_, err := f.Get(ctx, "ftp://example.com/a.png")
	assert.ErrorIs(t, err, ErrInvalidURL)

	resp, err := f.Get(ctx, srv.URL+"/missing")
	assert.Error(t, err)
	assert.Equal(t, 404, resp.Status)

	_, err = f.Get(ctx, srv.URL+"/big")
	assert.ErrorIs(t, err, ErrFetchTooLarge)
}

func TestFetcherCustomParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.URL.Query().Get("token")))
	}))
	defer srv.Close()

	f := NewFetcher(1)
	host := strings.TrimPrefix(srv.URL, "http://")
	f.CustomParams = map[string]map[string][]string{host: {"token": {"abc"}}}

	resp, err := f.Get(context.Background(), srv.URL+"/img.png")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(resp.Data))
}

func TestFetcherCancelled(t *testing.T) {
	f := NewFetcher(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Hold the only slot so the fetch has to wait on the context.
	f.setup()
	f.sem <- struct{}{}
	defer func() { <-f.sem }()

	_, err := f.Get(ctx, "http://127.0.0.1:1/a.png")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetcherZeroValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	f := &Fetcher{}
	resps, err := f.GetAll(ctx, []string{srv.URL + "/a", srv.URL + "/b"})
	require.NoError(t, err)
	for _, resp := range resps {
		require.NoError(t, resp.Err)
		assert.Equal(t, "ok", string(resp.Data))
	}
	assert.Equal(t, 1, f.Throughput)
	assert.Equal(t, DefaultFetcherMaxBytes, f.MaxBytes)
}
