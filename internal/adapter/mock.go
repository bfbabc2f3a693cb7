package adapter

import "context"

// MockAdapter is an in-memory completion backend for tests: it returns a
// canned Completion (or error) and records every request it receives.
type MockAdapter struct {
	Response Completion
	Err      error
	Requests []CompletionRequest
}

// NewMockAdapter builds a MockAdapter that echoes the prompt back as the
// completion text until Response or Err is set.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{}
}

func (m *MockAdapter) ID() string { return "mock" }

// Complete records req and returns the canned response, honoring ctx
// cancellation the way a real backend's HTTP client would.
func (m *MockAdapter) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	if err := ctx.Err(); err != nil {
		return Completion{}, err
	}

	m.Requests = append(m.Requests, req)

	if m.Err != nil {
		return Completion{}, m.Err
	}
	if m.Response != (Completion{}) {
		return m.Response, nil
	}
	return Completion{Text: req.Prompt, Model: "mock", StopReason: "end_turn"}, nil
}
