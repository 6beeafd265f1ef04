package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog(t *testing.T) {
	var mu sync.Mutex
	var got recordsPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer audit-token" {
			t.Errorf("Expected audit token, got %q", r.Header.Get("Authorization"))
		}
		mu.Lock()
		defer mu.Unlock()
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "audit-token")
	client.Log(context.Background(), "user-42", "transcription started")
	client.Flush()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got.Records, 1)
	assert.Equal(t, "user-42", got.Records[0].Fields["UserID"])
	assert.Equal(t, "transcription started", got.Records[0].Fields["Action"])
}

func TestLog_Disabled(t *testing.T) {
	client := NewClient("", "")
	// Must be a no-op, not a panic or a hang
	client.Log(context.Background(), "user-42", "anything")
	client.Flush()
}

func TestLog_ServerFailureIsSwallowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "t")
	client.Log(context.Background(), "user-42", "action")
	client.Flush() // no way to observe an error: that is the contract
}

func TestDeliver(t *testing.T) {
	var got recordsPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "t")
	err := client.Deliver(context.Background(), "user-42", "transcript", "chunk one")
	require.NoError(t, err)

	require.Len(t, got.Records, 1)
	assert.Equal(t, "user-42", got.Records[0].Fields["UserID"])
	assert.Equal(t, "transcript", got.Records[0].Fields["Kind"])
	assert.Equal(t, "chunk one", got.Records[0].Fields["Text"])
}

func TestDeliver_ServerFailureSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, "t")
	err := client.Deliver(context.Background(), "user-42", "transcript", "chunk")
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	var l Logger = Nop{}
	l.Log(context.Background(), "u", "a")

	var d Deliverer = Nop{}
	assert.NoError(t, d.Deliver(context.Background(), "u", "k", "t"))
}
