// Integration tests for the completion and HTTP adapters. These require
// real API keys and make real network calls.
//
// To run:
//
//	INTEGRATION_TEST=1 go test ./internal/adapter/... -v -run Integration
//
// Required environment variables (in .env.test.local):
//   - OPENAI_API_KEY: OpenAI API key
//   - ANTHROPIC_API_KEY: Anthropic API key
package adapter

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/engine/internal/testutil"
)

func integrationContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestOpenAIAdapter_Integration_BasicChat(t *testing.T) {
	testutil.SkipIfNotIntegration(t)
	testutil.LoadTestEnv(t)
	apiKey := testutil.RequireEnvVar(t, "OPENAI_API_KEY")

	a := NewOpenAIAdapterWithKey(apiKey)
	c, err := a.Complete(integrationContext(t), CompletionRequest{
		Model:     "gpt-4o-mini",
		Prompt:    "Say 'Hello, Integration Test!' and nothing else.",
		MaxTokens: 50,
	})

	require.NoError(t, err, "OpenAI API call should succeed")
	assert.NotEmpty(t, c.Text)
	assert.Contains(t, strings.ToLower(c.Text), "hello")
	assert.Positive(t, c.OutputTokens)

	t.Logf("OpenAI response: %s (model %s, %d+%d tokens)", c.Text, c.Model, c.InputTokens, c.OutputTokens)
}

func TestOpenAIAdapter_Integration_SystemPrompt(t *testing.T) {
	testutil.SkipIfNotIntegration(t)
	testutil.LoadTestEnv(t)
	apiKey := testutil.RequireEnvVar(t, "OPENAI_API_KEY")

	a := NewOpenAIAdapterWithKey(apiKey)
	c, err := a.Complete(integrationContext(t), CompletionRequest{
		Model:     "gpt-4o-mini",
		System:    "You answer with exactly one word.",
		Prompt:    "What color is the sky on a clear day?",
		MaxTokens: 10,
	})

	require.NoError(t, err)
	assert.Contains(t, strings.ToLower(c.Text), "blue")
}

func TestAnthropicAdapter_Integration_BasicChat(t *testing.T) {
	testutil.SkipIfNotIntegration(t)
	testutil.LoadTestEnv(t)
	apiKey := testutil.RequireEnvVar(t, "ANTHROPIC_API_KEY")

	a := NewAnthropicAdapterWithKey(apiKey)
	c, err := a.Complete(integrationContext(t), CompletionRequest{
		Model:     "claude-3-haiku-20240307",
		Prompt:    "Say 'Hello, Integration Test!' and nothing else.",
		MaxTokens: 50,
	})

	require.NoError(t, err, "Anthropic API call should succeed")
	assert.NotEmpty(t, c.Text)
	assert.Contains(t, strings.ToLower(c.Text), "hello")
	assert.Positive(t, c.OutputTokens)

	t.Logf("Anthropic response: %s (model %s, %d+%d tokens)", c.Text, c.Model, c.InputTokens, c.OutputTokens)
}

func TestAnthropicAdapter_Integration_SystemPrompt(t *testing.T) {
	testutil.SkipIfNotIntegration(t)
	testutil.LoadTestEnv(t)
	apiKey := testutil.RequireEnvVar(t, "ANTHROPIC_API_KEY")

	a := NewAnthropicAdapterWithKey(apiKey)
	c, err := a.Complete(integrationContext(t), CompletionRequest{
		Model:     "claude-3-haiku-20240307",
		System:    "You answer with exactly one word.",
		Prompt:    "What color is the sky on a clear day?",
		MaxTokens: 10,
	})

	require.NoError(t, err)
	assert.Contains(t, strings.ToLower(c.Text), "blue")
}

func TestHTTPAdapter_Integration_PublicAPI(t *testing.T) {
	testutil.SkipIfNotIntegration(t)

	a := NewHTTPAdapter()
	resp, err := a.Do(integrationContext(t), HTTPRequest{
		URL: "https://httpbin.org/get",
		Query: map[string]string{
			"probe": "integration",
		},
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, ok := resp.JSON.(map[string]interface{})
	require.True(t, ok)
	args, _ := body["args"].(map[string]interface{})
	assert.Equal(t, "integration", args["probe"])
}

func TestHTTPAdapter_Integration_POST(t *testing.T) {
	testutil.SkipIfNotIntegration(t)

	a := NewHTTPAdapter()
	resp, err := a.Do(integrationContext(t), HTTPRequest{
		URL:    "https://httpbin.org/post",
		Method: http.MethodPost,
		Body:   []byte(`{"ping":"pong"}`),
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, ok := resp.JSON.(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, body["data"], "pong")
}
