package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PrismPipeline/internal/config"
	"PrismPipeline/internal/retry"
)

func TestChatGPTCompleteSendsJSONModeRequest(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body["model"])
		assert.InDelta(t, 0.2, body["temperature"], 1e-9)
		assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])

		messages := body["messages"].([]any)
		require.Len(t, messages, 2)
		assert.Equal(t, "system", messages[0].(map[string]any)["role"])
		assert.Equal(t, "card please", messages[1].(map[string]any)["content"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": `{"signal":"x"}`}},
			},
		})
	}))
	defer server.Close()

	client := NewChatGPTClient(config.ChatGPTConfig{
		Endpoint:    server.URL,
		Model:       "gpt-4o-mini",
		APIKey:      "test-key",
		Temperature: 0.2,
	})

	out, err := client.Complete(context.Background(), "system", "card please")
	require.NoError(t, err)
	assert.Equal(t, `{"signal":"x"}`, out)
}

func TestChatGPTCompleteClassifiesErrors(t *testing.T) {
	t.Parallel()

	var status atomic.Int32
	status.Store(http.StatusUnauthorized)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", int(status.Load()))
	}))
	defer server.Close()

	client := NewChatGPTClient(config.ChatGPTConfig{Endpoint: server.URL, Model: "m", APIKey: "k"})

	_, err := client.Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.True(t, retry.IsFatal(err))

	status.Store(http.StatusTooManyRequests)
	_, err = client.Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.False(t, retry.IsFatal(err))
}

func TestChatGPTCompleteMisconfigured(t *testing.T) {
	t.Parallel()

	_, err := NewChatGPTClient(config.ChatGPTConfig{}).Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.True(t, retry.IsFatal(err))
}
