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
	openAIDefaultModel     = "gpt-4"
	openAIDefaultMaxTokens = 2048
)

// OpenAIAdapter completes prompts against the OpenAI chat completions
// API.
type OpenAIAdapter struct {
	httpClient         *http.Client
	apiKey             string
	baseURL            string
	credentialResolver CredentialResolver
	credentialName     string
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature *float64        `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Stop        []string        `json:"stop,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// NewOpenAIAdapter builds an adapter keyed from the OPENAI_API_KEY
// environment variable. OPENAI_BASE_URL overrides the API endpoint,
// which tests use to point at an httptest server.
func NewOpenAIAdapter() *OpenAIAdapter {
	return &OpenAIAdapter{
		httpClient: telemetry.WrapHTTPClient(&http.Client{Timeout: 120 * time.Second}),
		apiKey:     os.Getenv("OPENAI_API_KEY"),
		baseURL:    getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
	}
}

// NewOpenAIAdapterWithKey builds an adapter holding a static API key.
func NewOpenAIAdapterWithKey(apiKey string) *OpenAIAdapter {
	a := NewOpenAIAdapter()
	a.apiKey = apiKey
	return a
}

// NewOpenAIAdapterWithCredential builds an adapter that resolves its API
// key through resolver under credentialName on every Complete call,
// instead of holding a static key.
func NewOpenAIAdapterWithCredential(resolver CredentialResolver, credentialName string) *OpenAIAdapter {
	a := NewOpenAIAdapter()
	a.apiKey = ""
	a.credentialResolver = resolver
	a.credentialName = credentialName
	return a
}

func (a *OpenAIAdapter) ID() string { return "openai" }

// Complete sends req as a chat completion (optional system message plus
// one user message) and returns the first choice.
func (a *OpenAIAdapter) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	apiKey, err := resolveKey(ctx, a.apiKey, a.credentialResolver, a.credentialName)
	if err != nil {
		return Completion{}, fmt.Errorf("openai: %w", err)
	}

	model := req.Model
	if model == "" {
		model = openAIDefaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = openAIDefaultMaxTokens
	}

	var messages []openAIMessage
	if req.System != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: req.Prompt})

	apiReq := openAIRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   maxTokens,
		Stop:        req.Stop,
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return Completion{}, fmt.Errorf("openai: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Completion{}, fmt.Errorf("openai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return Completion{}, fmt.Errorf("openai: call API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Completion{}, fmt.Errorf("openai: read response: %w", err)
	}

	var apiResp openAIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return Completion{}, fmt.Errorf("openai: parse response: %w", err)
	}
	if apiResp.Error != nil {
		return Completion{}, fmt.Errorf("openai: API error (%s/%s): %s", apiResp.Error.Type, apiResp.Error.Code, apiResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return Completion{}, fmt.Errorf("openai: API returned status %d: %s", resp.StatusCode, string(respBody))
	}
	if len(apiResp.Choices) == 0 {
		return Completion{}, fmt.Errorf("openai: API returned no choices")
	}

	choice := apiResp.Choices[0]
	return Completion{
		Text:         choice.Message.Content,
		Model:        apiResp.Model,
		StopReason:   choice.FinishReason,
		InputTokens:  apiResp.Usage.PromptTokens,
		OutputTokens: apiResp.Usage.CompletionTokens,
	}, nil
}
