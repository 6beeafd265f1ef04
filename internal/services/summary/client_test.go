package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	apperrors "github.com/openminutes/scribe/internal/errors"
	"github.com/openminutes/scribe/internal/metrics"
	"github.com/openminutes/scribe/internal/services/oauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if err := metrics.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expires := time.Now().Add(30 * time.Minute).UnixMilli()
		fmt.Fprintf(w, `{"access_token": "summary-token", "expires_at": %d}`, expires)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSummarize(t *testing.T) {
	tokenServer := newTokenServer(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("Expected path ending with /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer summary-token" {
			t.Errorf("Expected bearer token, got %q", r.Header.Get("Authorization"))
		}

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if req.Model != "GigaChat" {
			t.Errorf("Expected model GigaChat, got %q", req.Model)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("Expected a single user message, got %+v", req.Messages)
		}
		if !strings.Contains(req.Messages[0].Content, "the transcript body") {
			t.Error("Expected the transcript to be embedded in the prompt")
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "structured report"}}],
			"usage": {"prompt_tokens": 120, "completion_tokens": 80, "total_tokens": 200}
		}`))
	}))
	defer server.Close()

	tokens := oauth.NewTokenSource(tokenServer.URL, "SCOPE", "id", "secret")
	client := NewClient(server.URL, "GigaChat", tokens)

	report, usage, err := client.Summarize(context.Background(), "Analyze this.", "the transcript body")
	require.NoError(t, err)
	assert.Equal(t, "structured report", report)
	assert.Equal(t, 200, usage.TotalTokens)
	assert.Equal(t, 120, usage.PromptTokens)
}

func TestSummarize_DefaultPrompt(t *testing.T) {
	tokenServer := newTokenServer(t)

	var gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) > 0 {
			gotPrompt = req.Messages[0].Content
		}
		w.Write([]byte(`{"choices": [{"message": {"content": "ok"}}], "usage": {"total_tokens": 1}}`))
	}))
	defer server.Close()

	tokens := oauth.NewTokenSource(tokenServer.URL, "SCOPE", "id", "secret")
	client := NewClient(server.URL, "GigaChat", tokens)

	_, _, err := client.Summarize(context.Background(), "", "transcript")
	require.NoError(t, err)
	assert.Contains(t, gotPrompt, "Meeting topic", "empty prompt should fall back to the default")
}

func TestSummarize_APIError(t *testing.T) {
	tokenServer := newTokenServer(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error": {"message": "model overloaded", "type": "server_error"}}`))
	}))
	defer server.Close()

	tokens := oauth.NewTokenSource(tokenServer.URL, "SCOPE", "id", "secret")
	client := NewClient(server.URL, "GigaChat", tokens)

	_, _, err := client.Summarize(context.Background(), "", "transcript")
	require.Error(t, err)

	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok, "expected *AppError, got %T", err)
	assert.Equal(t, apperrors.ErrorTypeDownstream, appErr.Type)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.StatusCode)
}

func TestSummarize_TokenFailure(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer tokenServer.Close()

	tokens := oauth.NewTokenSource(tokenServer.URL, "SCOPE", "id", "secret")
	client := NewClient("http://unused", "GigaChat", tokens)

	_, _, err := client.Summarize(context.Background(), "", "transcript")
	require.Error(t, err)
}
