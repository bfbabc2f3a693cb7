// Package adapter holds the outbound integrations the built-in tools
// dispatch through: LLM completion backends (Anthropic, OpenAI), a
// generic JSON-over-HTTP client, and a mock backend for tests. Adapters
// sit below the tool registry — a tool.Executor wraps an adapter and
// translates between the engine's variable store and the adapter's
// request shape, so nothing here knows about steps or jobs.
package adapter

import "context"

// CredentialResolver decrypts and returns a named credential's plaintext
// value just before use. Adapters that accept one never retain the
// plaintext beyond a single call.
type CredentialResolver func(ctx context.Context, name string) (string, error)

// CompletionRequest is one prompt the engine wants completed. Only
// Prompt is required; zero-valued fields fall back to the backend's
// defaults.
type CompletionRequest struct {
	Prompt      string
	System      string
	Model       string
	MaxTokens   int
	Temperature *float64 // nil means backend default, 0 is a real value
	Stop        []string
}

// Completion is a backend's answer plus usage accounting.
type Completion struct {
	Text         string
	Model        string
	StopReason   string
	InputTokens  int
	OutputTokens int
}

// Adapter is the completion backend seam the llm built-in dispatches
// through. Complete blocks until the backend answers or ctx is done.
type Adapter interface {
	ID() string
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}
