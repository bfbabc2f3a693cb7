package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAnthropicTestAdapter(serverURL, apiKey string) *AnthropicAdapter {
	a := NewAnthropicAdapterWithKey(apiKey)
	a.baseURL = serverURL
	return a
}

func anthropicJSONResponse(text, model, stopReason string, inTok, outTok int) map[string]interface{} {
	return map[string]interface{}{
		"model":       model,
		"stop_reason": stopReason,
		"content":     []map[string]string{{"type": "text", "text": text}},
		"usage":       map[string]int{"input_tokens": inTok, "output_tokens": outTok},
	}
}

func TestAnthropicAdapter_Complete(t *testing.T) {
	var gotReq anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-api-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicAPIVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(anthropicJSONResponse("Hello there.", "claude-3-sonnet-20240229", "end_turn", 15, 25))
	}))
	defer server.Close()

	a := newAnthropicTestAdapter(server.URL, "test-api-key")
	c, err := a.Complete(context.Background(), CompletionRequest{Prompt: "Say hello", System: "be brief"})

	require.NoError(t, err)
	assert.Equal(t, "Hello there.", c.Text)
	assert.Equal(t, "end_turn", c.StopReason)
	assert.Equal(t, 15, c.InputTokens)
	assert.Equal(t, 25, c.OutputTokens)

	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
	assert.Equal(t, "Say hello", gotReq.Messages[0].Content)
	assert.Equal(t, "be brief", gotReq.System)
	assert.Equal(t, anthropicDefaultModel, gotReq.Model)
	assert.Equal(t, anthropicDefaultMaxTokens, gotReq.MaxTokens)
}

func TestAnthropicAdapter_Complete_JoinsMultipleTextBlocks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"model":       "claude-3-sonnet-20240229",
			"stop_reason": "end_turn",
			"content": []map[string]string{
				{"type": "text", "text": "part one "},
				{"type": "tool_use", "text": "ignored"},
				{"type": "text", "text": "part two"},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	a := newAnthropicTestAdapter(server.URL, "k")
	c, err := a.Complete(context.Background(), CompletionRequest{Prompt: "p"})

	require.NoError(t, err)
	assert.Equal(t, "part one part two", c.Text)
}

func TestAnthropicAdapter_Complete_RequestOverridesDefaults(t *testing.T) {
	var gotReq anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(anthropicJSONResponse("ok", "claude-3-haiku-20240307", "end_turn", 1, 1))
	}))
	defer server.Close()

	temp := 0.0
	a := newAnthropicTestAdapter(server.URL, "k")
	_, err := a.Complete(context.Background(), CompletionRequest{
		Prompt:      "p",
		Model:       "claude-3-haiku-20240307",
		MaxTokens:   64,
		Temperature: &temp,
		Stop:        []string{"END"},
	})

	require.NoError(t, err)
	assert.Equal(t, "claude-3-haiku-20240307", gotReq.Model)
	assert.Equal(t, 64, gotReq.MaxTokens)
	require.NotNil(t, gotReq.Temperature)
	assert.Equal(t, 0.0, *gotReq.Temperature)
	assert.Equal(t, []string{"END"}, gotReq.StopSeq)
}

func TestAnthropicAdapter_Complete_NoAPIKey(t *testing.T) {
	a := NewAnthropicAdapterWithKey("")

	_, err := a.Complete(context.Background(), CompletionRequest{Prompt: "p"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key not configured")
}

func TestAnthropicAdapter_Complete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"type": "invalid_request_error", "message": "max_tokens required"},
		})
	}))
	defer server.Close()

	a := newAnthropicTestAdapter(server.URL, "k")
	_, err := a.Complete(context.Background(), CompletionRequest{Prompt: "p"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_request_error")
	assert.Contains(t, err.Error(), "max_tokens required")
}

func TestAnthropicAdapter_Complete_ResolvesCredential(t *testing.T) {
	var seenKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenKey = r.Header.Get("x-api-key")
		json.NewEncoder(w).Encode(anthropicJSONResponse("ok", "m", "end_turn", 1, 1))
	}))
	defer server.Close()

	resolver := func(_ context.Context, name string) (string, error) {
		assert.Equal(t, "anthropic", name)
		return "resolved-key", nil
	}
	a := NewAnthropicAdapterWithCredential(resolver, "anthropic")
	a.baseURL = server.URL

	_, err := a.Complete(context.Background(), CompletionRequest{Prompt: "p"})

	require.NoError(t, err)
	assert.Equal(t, "resolved-key", seenKey)
}

func TestAnthropicAdapter_Complete_CredentialResolverError(t *testing.T) {
	resolver := func(_ context.Context, _ string) (string, error) {
		return "", errors.New("no such credential")
	}
	a := NewAnthropicAdapterWithCredential(resolver, "anthropic")

	_, err := a.Complete(context.Background(), CompletionRequest{Prompt: "p"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such credential")
}

func TestAnthropicAdapter_ID(t *testing.T) {
	assert.Equal(t, "anthropic", NewAnthropicAdapter().ID())
}
