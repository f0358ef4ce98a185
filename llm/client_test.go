package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, url string, timeout time.Duration) *Client {
	t.Helper()
	client, err := NewClient(Config{
		APIKey:  "test-key",
		BaseURL: url,
		Model:   "test-model",
		Timeout: timeout,
	})
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
}

func TestCompleteSuccess(t *testing.T) {
	var got completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content": [{"text": "the answer"}]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 0)
	reply, err := client.Complete(context.Background(),
		[]Message{UserMessage("what is IS621 about?")}, "be concise")
	require.NoError(t, err)
	assert.Equal(t, "the answer", reply)

	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, "be concise", got.System)
	assert.Equal(t, defaultMaxTokens, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, RoleUser, got.Messages[0].Role)
}

func TestCompleteNon200IsRequestError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 0)
	_, err := client.Complete(context.Background(), []Message{UserMessage("hi")}, "")
	assert.ErrorIs(t, err, ErrRequest)
}

func TestCompleteEmptyContentIsRequestError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"content": []}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 0)
	_, err := client.Complete(context.Background(), []Message{UserMessage("hi")}, "")
	assert.ErrorIs(t, err, ErrRequest)
}

func TestCompleteMalformedBodyIsRequestError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"content": `))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 0)
	_, err := client.Complete(context.Background(), []Message{UserMessage("hi")}, "")
	assert.ErrorIs(t, err, ErrRequest)
}

func TestCompleteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 20*time.Millisecond)
	_, err := client.Complete(context.Background(), []Message{UserMessage("hi")}, "")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestTruncateHistory(t *testing.T) {
	history := []Message{
		UserMessage("1"), AssistantMessage("2"),
		UserMessage("3"), AssistantMessage("4"),
		UserMessage("5"), AssistantMessage("6"),
	}

	truncated := TruncateHistory(history, 4)
	require.Len(t, truncated, 4)
	assert.Equal(t, "3", truncated[0].Content)
	assert.Equal(t, "6", truncated[3].Content)

	// Under the limit the slice is returned as-is.
	assert.Len(t, TruncateHistory(history, 10), 6)
	assert.Empty(t, TruncateHistory(nil, 4))
}
