package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/flowforge/engine/internal/telemetry"
)

const (
	anthropicDefaultModel     = "claude-3-sonnet-20240229"
	anthropicDefaultMaxTokens = 4096
	anthropicAPIVersion       = "2023-06-01"
)

// AnthropicAdapter completes prompts against the Anthropic Messages API.
type AnthropicAdapter struct {
	httpClient         *http.Client
	apiKey             string
	baseURL            string
	credentialResolver CredentialResolver
	credentialName     string
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	Temperature *float64           `json:"temperature,omitempty"`
	StopSeq     []string           `json:"stop_sequences,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewAnthropicAdapter builds an adapter keyed from the ANTHROPIC_API_KEY
// environment variable. ANTHROPIC_BASE_URL overrides the API endpoint,
// which tests use to point at an httptest server.
func NewAnthropicAdapter() *AnthropicAdapter {
	return &AnthropicAdapter{
		httpClient: telemetry.WrapHTTPClient(&http.Client{Timeout: 120 * time.Second}),
		apiKey:     os.Getenv("ANTHROPIC_API_KEY"),
		baseURL:    getEnvOrDefault("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
	}
}

// NewAnthropicAdapterWithKey builds an adapter holding a static API key.
func NewAnthropicAdapterWithKey(apiKey string) *AnthropicAdapter {
	a := NewAnthropicAdapter()
	a.apiKey = apiKey
	return a
}

// NewAnthropicAdapterWithCredential builds an adapter that resolves its
// API key through resolver under credentialName on every Complete call,
// instead of holding a static key.
func NewAnthropicAdapterWithCredential(resolver CredentialResolver, credentialName string) *AnthropicAdapter {
	a := NewAnthropicAdapter()
	a.apiKey = ""
	a.credentialResolver = resolver
	a.credentialName = credentialName
	return a
}

func (a *AnthropicAdapter) ID() string { return "anthropic" }

// Complete sends req as a single user message and returns the
// concatenated text blocks of the answer.
func (a *AnthropicAdapter) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	apiKey, err := resolveKey(ctx, a.apiKey, a.credentialResolver, a.credentialName)
	if err != nil {
		return Completion{}, fmt.Errorf("anthropic: %w", err)
	}

	model := req.Model
	if model == "" {
		model = anthropicDefaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	apiReq := anthropicRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Messages:    []anthropicMessage{{Role: "user", Content: req.Prompt}},
		System:      req.System,
		Temperature: req.Temperature,
		StopSeq:     req.Stop,
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return Completion{}, fmt.Errorf("anthropic: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return Completion{}, fmt.Errorf("anthropic: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return Completion{}, fmt.Errorf("anthropic: call API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Completion{}, fmt.Errorf("anthropic: read response: %w", err)
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return Completion{}, fmt.Errorf("anthropic: parse response: %w", err)
	}
	if apiResp.Error != nil {
		return Completion{}, fmt.Errorf("anthropic: API error (%s): %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return Completion{}, fmt.Errorf("anthropic: API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var text string
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return Completion{
		Text:         text,
		Model:        apiResp.Model,
		StopReason:   apiResp.StopReason,
		InputTokens:  apiResp.Usage.InputTokens,
		OutputTokens: apiResp.Usage.OutputTokens,
	}, nil
}

// resolveKey prefers a credential resolver over a static key and fails
// when neither yields one.
func resolveKey(ctx context.Context, staticKey string, resolver CredentialResolver, credentialName string) (string, error) {
	if resolver != nil {
		key, err := resolver(ctx, credentialName)
		if err != nil {
			return "", fmt.Errorf("resolving credential %q: %w", credentialName, err)
		}
		return key, nil
	}
	if staticKey == "" {
		return "", fmt.Errorf("API key not configured")
	}
	return staticKey, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
