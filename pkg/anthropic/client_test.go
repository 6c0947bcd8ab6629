package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "github.com/goldhabermd/clinic-api/pkg/errors"
	"github.com/goldhabermd/clinic-api/pkg/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(Config{APIKey: "test-key", BaseURL: server.URL}, httpclient.NewClientWithTimeout(2*time.Second))
}

func TestComplete_SendsExpectedRequest(t *testing.T) {
	var captured messagesRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, APIVersion, r.Header.Get("anthropic-version"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Hello from the clinic"}],"stop_reason":"end_turn"}`))
	})

	text, err := client.Complete(context.Background(), "You are a helpful assistant", []Message{
		{Role: "user", Content: "Hi"},
		{Role: "assistant", Content: "Hello"},
		{Role: "user", Content: "Opening hours?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello from the clinic", text)

	assert.Equal(t, DefaultModel, captured.Model)
	assert.Equal(t, DefaultMaxTokens, captured.MaxTokens)
	assert.Equal(t, "You are a helpful assistant", captured.System)
	require.Len(t, captured.Messages, 3)
	assert.Equal(t, "Opening hours?", captured.Messages[2].Content)
}

func TestComplete_ReturnsFirstTextBlock(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[{"type":"thinking"},{"type":"text","text":"first"},{"type":"text","text":"second"}]}`))
	})

	text, err := client.Complete(context.Background(), "", []Message{{Role: "user", Content: "x"}})
	require.NoError(t, err)
	assert.Equal(t, "first", text)
}

func TestComplete_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"boom"}`, wantErr: apperrors.ErrUpstream},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{}`, wantErr: apperrors.ErrUpstream},
		{name: "malformed json", status: http.StatusOK, body: `not json`, wantErr: apperrors.ErrUpstream},
		{name: "no text content", status: http.StatusOK, body: `{"content":[]}`, wantErr: apperrors.ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Complete(context.Background(), "", []Message{{Role: "user", Content: "x"}})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestComplete_NotConfigured(t *testing.T) {
	client := NewClient(Config{}, httpclient.NewStandardClient())

	_, err := client.Complete(context.Background(), "", []Message{{Role: "user", Content: "x"}})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestComplete_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL}, httpclient.NewClientWithTimeout(50*time.Millisecond))

	_, err := client.Complete(context.Background(), "", []Message{{Role: "user", Content: "x"}})
	assert.Error(t, err)
}

func TestComplete_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	})

	for i := 0; i < 5; i++ {
		_, err := client.Complete(context.Background(), "", []Message{{Role: "user", Content: "x"}})
		assert.Error(t, err)
	}
	assert.Equal(t, 3, calls, "breaker should stop forwarding after it trips")
}
