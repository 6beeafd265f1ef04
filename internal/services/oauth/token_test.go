package oauth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenSource(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		if r.Method != "POST" {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client-id" || pass != "client-secret" {
			t.Errorf("Expected basic auth with client credentials, got %q/%q", user, pass)
		}
		if r.Header.Get("RqUID") == "" {
			t.Error("Expected RqUID header to be set")
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("Failed to parse form: %v", err)
		}
		if r.FormValue("scope") != "SPEECH_SCOPE" {
			t.Errorf("Expected scope SPEECH_SCOPE, got %q", r.FormValue("scope"))
		}

		expires := time.Now().Add(30 * time.Minute).UnixMilli()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token": "test-token", "expires_at": %d}`, expires)
	}))
	defer server.Close()

	ts := NewTokenSource(server.URL, "SPEECH_SCOPE", "client-id", "client-secret")

	token, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test-token", token)

	// Second call must be served from cache
	token, err = ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test-token", token)
	assert.Equal(t, int32(1), calls.Load(), "cached token should not trigger a second fetch")

	// Invalidate forces a refresh
	ts.Invalidate()
	_, err = ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTokenSource_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("bad credentials"))
	}))
	defer server.Close()

	ts := NewTokenSource(server.URL, "SCOPE", "id", "wrong")
	_, err := ts.Token(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestTokenSource_EmptyToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	ts := NewTokenSource(server.URL, "SCOPE", "id", "secret")
	_, err := ts.Token(context.Background())
	require.Error(t, err)
}
