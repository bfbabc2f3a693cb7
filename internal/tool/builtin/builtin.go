// Package builtin provides small, dependency-light tool executors that
// exercise the dispatcher's parameter partitioning and output coercion
// paths without requiring network access: echo, concatenate, search,
// pubmed (a stub search variant), and an llm executor over the existing
// adapter package.
package builtin

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/flowforge/engine/internal/adapter"
	"github.com/flowforge/engine/internal/schema"
	"github.com/flowforge/engine/internal/tool"
	"github.com/flowforge/engine/internal/tool/script"
)

// Echo returns its single "value" parameter unchanged under "value". Used
// in tests and as the simplest possible tool for exercising the dispatch
// path end to end.
func Echo() tool.Executor {
	return tool.ExecutorFunc(func(_ context.Context, params tool.Parameters) (map[string]schema.Value, error) {
		v, ok := params.Regular["value"]
		if !ok {
			v = schema.Null
		}
		return map[string]schema.Value{"value": v}, nil
	})
}

// Concatenate joins every string-typed regular parameter, in parameter-name
// sorted order, using the "separator" parameter (default ", ") and returns
// it under "result".
func Concatenate() tool.Executor {
	return tool.ExecutorFunc(func(_ context.Context, params tool.Parameters) (map[string]schema.Value, error) {
		sep := ", "
		if s, ok := params.Regular["separator"]; ok && s.Kind == schema.KindString {
			sep = s.Str
		}

		names := make([]string, 0, len(params.Regular))
		for name := range params.Regular {
			if name == "separator" {
				continue
			}
			names = append(names, name)
		}
		sort.Strings(names)

		parts := make([]string, 0, len(names))
		for _, name := range names {
			v := params.Regular[name]
			if v.Kind == schema.KindString {
				parts = append(parts, v.Str)
			}
		}

		return map[string]schema.Value{"result": schema.String(strings.Join(parts, sep))}, nil
	})
}

// SearchResult is what the search/pubmed stubs return per hit.
type SearchResult struct {
	Title   string
	Snippet string
}

// Searcher abstracts the actual network call behind Search/Pubmed so
// production code can inject a real client and tests can inject a fake
// one, matching the adapter package's Adapter-behind-interface shape.
type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// HTTPSearcher implements Searcher over adapter.HTTPAdapter against a
// configured search endpoint, resolving its API key through the same
// CredentialResolver shape the LLM adapters use.
type HTTPSearcher struct {
	http               *adapter.HTTPAdapter
	endpoint           string
	credentialResolver adapter.CredentialResolver
	credentialName     string
}

// NewHTTPSearcher builds an HTTPSearcher that issues a GET against
// endpoint with the query string in a "q" query parameter and an
// Authorization header resolved from credentialName just before each
// call.
func NewHTTPSearcher(endpoint string, resolver adapter.CredentialResolver, credentialName string) *HTTPSearcher {
	return &HTTPSearcher{
		http:               adapter.NewHTTPAdapter(),
		endpoint:           endpoint,
		credentialResolver: resolver,
		credentialName:     credentialName,
	}
}

func (s *HTTPSearcher) Search(ctx context.Context, query string) ([]SearchResult, error) {
	headers := map[string]string{}
	if s.credentialResolver != nil {
		key, err := s.credentialResolver(ctx, s.credentialName)
		if err != nil {
			return nil, fmt.Errorf("httpsearcher: resolving credential %q: %w", s.credentialName, err)
		}
		headers["Authorization"] = "Bearer " + key
	}

	resp, err := s.http.Do(ctx, adapter.HTTPRequest{
		URL:     s.endpoint,
		Headers: headers,
		Query:   map[string]string{"q": query},
	})
	if err != nil {
		return nil, fmt.Errorf("httpsearcher: %w", err)
	}

	items, _ := resp.JSON.([]interface{})
	results := make([]SearchResult, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		title, _ := m["title"].(string)
		snippet, _ := m["snippet"].(string)
		results = append(results, SearchResult{Title: title, Snippet: snippet})
	}
	return results, nil
}

// Search builds a tool.Executor around a Searcher for the general-purpose
// "search" built-in: reads the "query" parameter, returns a "results"
// array of {title, snippet} objects.
func Search(searcher Searcher) tool.Executor {
	return tool.ExecutorFunc(func(ctx context.Context, params tool.Parameters) (map[string]schema.Value, error) {
		return runSearch(ctx, searcher, params)
	})
}

// Pubmed wraps the same Searcher contract under the "pubmed" tool id,
// kept distinct from Search since a real deployment points them at
// different backends.
func Pubmed(searcher Searcher) tool.Executor {
	return tool.ExecutorFunc(func(ctx context.Context, params tool.Parameters) (map[string]schema.Value, error) {
		return runSearch(ctx, searcher, params)
	})
}

func runSearch(ctx context.Context, searcher Searcher, params tool.Parameters) (map[string]schema.Value, error) {
	q, ok := params.Regular["query"]
	if !ok || q.Kind != schema.KindString {
		return nil, fmt.Errorf("search: missing string parameter %q", "query")
	}

	results, err := searcher.Search(ctx, q.Str)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	items := make([]schema.Value, len(results))
	for i, r := range results {
		items[i] = schema.ObjectValue(map[string]schema.Value{
			"title":   schema.String(r.Title),
			"snippet": schema.String(r.Snippet),
		})
	}

	return map[string]schema.Value{"results": schema.Array(items)}, nil
}

// PromptTemplateResolver turns a prompt_template_id plus the regular
// variables into the rendered prompt text the adapter should send. Kept
// as a function type so host applications can back it with whatever
// template store they use; the engine itself has no opinion on where
// prompt templates live.
type PromptTemplateResolver func(ctx context.Context, templateID string, variables map[string]schema.Value) (string, error)

// LLM builds a tool.Executor for the llm-typed built-in tool: it resolves
// the prompt via resolver, then dispatches to backend (an
// adapter.Adapter, e.g. OpenAI or Anthropic).
func LLM(backend adapter.Adapter, resolver PromptTemplateResolver) tool.Executor {
	return tool.ExecutorFunc(func(ctx context.Context, params tool.Parameters) (map[string]schema.Value, error) {
		prompt, err := resolver(ctx, params.PromptTemplateID, params.Regular)
		if err != nil {
			return nil, fmt.Errorf("llm: resolving prompt template %q: %w", params.PromptTemplateID, err)
		}

		completion, err := backend.Complete(ctx, adapter.CompletionRequest{Prompt: prompt})
		if err != nil {
			return nil, fmt.Errorf("llm: %s: %w", backend.ID(), err)
		}

		return map[string]schema.Value{
			"output":      schema.String(completion.Text),
			"model":       schema.String(completion.Model),
			"stop_reason": schema.String(completion.StopReason),
		}, nil
	})
}

// Function builds a tool.Executor for the function-typed built-in tool:
// the "code" regular parameter is a JavaScript function body, run through
// the script sandbox with every other regular parameter exposed to it as
// `input`.
func Function() tool.Executor {
	return tool.ExecutorFunc(func(ctx context.Context, params tool.Parameters) (map[string]schema.Value, error) {
		code, ok := params.Regular["code"]
		if !ok || code.Kind != schema.KindString {
			return nil, fmt.Errorf("function: missing string parameter %q", "code")
		}

		input := make(map[string]schema.Value, len(params.Regular))
		for name, v := range params.Regular {
			if name == "code" {
				continue
			}
			input[name] = v
		}

		return script.New(code.Str).Execute(ctx, tool.Parameters{Regular: input})
	})
}
