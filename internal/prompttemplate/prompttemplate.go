// Package prompttemplate resolves a prompt_template_id plus a workflow's
// regular variables into rendered prompt text for the llm built-in tool.
// The engine has no opinion on where templates are authored or stored;
// this is a minimal in-memory Store a host process can seed at startup,
// with the same {{field}}/{{nested.field}} substitution syntax the
// project's config-templating used historically.
package prompttemplate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/flowforge/engine/internal/schema"
)

// ErrNotFound is returned when a template ID isn't registered.
var ErrNotFound = errors.New("prompttemplate: not found")

// Store holds rendered-text templates keyed by ID.
type Store struct {
	mu        sync.RWMutex
	templates map[string]string
}

// NewStore builds an empty Store.
func NewStore() *Store {
	return &Store{templates: make(map[string]string)}
}

// Put registers (or replaces) the template text for id.
func (s *Store) Put(id, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[id] = text
}

// Resolve renders the template registered under templateID against
// variables, satisfying builtin.PromptTemplateResolver.
func (s *Store) Resolve(_ context.Context, templateID string, variables map[string]schema.Value) (string, error) {
	s.mu.RLock()
	text, ok := s.templates[templateID]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("prompttemplate: %q: %w", templateID, ErrNotFound)
	}

	data := make(map[string]interface{}, len(variables))
	for name, v := range variables {
		data[name] = v.ToInterface()
	}

	return expandString(text, data), nil
}

// expandString substitutes every {{path}} occurrence in s with the value
// found at path in data, stringifying non-string values.
func expandString(s string, data map[string]interface{}) string {
	result := s
	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2

		path := strings.TrimSpace(result[start+2 : end-2])
		replacement := stringify(extractPath(data, path))
		result = result[:start] + replacement + result[end:]
	}
	return result
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// extractPath walks a dotted path ("a.b.c") through nested maps.
func extractPath(data interface{}, path string) interface{} {
	path = strings.TrimPrefix(path, "$.")
	path = strings.TrimPrefix(path, "$")
	if path == "" {
		return data
	}

	current := data
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			continue
		}
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current, ok = m[part]
		if !ok {
			return nil
		}
	}
	return current
}
