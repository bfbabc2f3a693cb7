package builtin

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/engine/internal/adapter"
	"github.com/flowforge/engine/internal/schema"
	"github.com/flowforge/engine/internal/tool"
)

func TestEcho(t *testing.T) {
	out, err := Echo().Execute(context.Background(), tool.Parameters{
		Regular: map[string]schema.Value{"value": schema.String("hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, schema.String("hi"), out["value"])
}

func TestEcho_MissingValueIsNull(t *testing.T) {
	out, err := Echo().Execute(context.Background(), tool.Parameters{})
	require.NoError(t, err)
	assert.True(t, out["value"].IsNull())
}

func TestConcatenate_DefaultSeparator(t *testing.T) {
	out, err := Concatenate().Execute(context.Background(), tool.Parameters{
		Regular: map[string]schema.Value{
			"b": schema.String("world"),
			"a": schema.String("hello"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello, world", out["result"].Str)
}

func TestConcatenate_CustomSeparator(t *testing.T) {
	out, err := Concatenate().Execute(context.Background(), tool.Parameters{
		Regular: map[string]schema.Value{
			"a":         schema.String("x"),
			"b":         schema.String("y"),
			"separator": schema.String("|"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "x|y", out["result"].Str)
}

type fakeSearcher struct {
	results []SearchResult
	err     error
}

func (f fakeSearcher) Search(_ context.Context, _ string) ([]SearchResult, error) {
	return f.results, f.err
}

func TestSearch(t *testing.T) {
	searcher := fakeSearcher{results: []SearchResult{{Title: "t1", Snippet: "s1"}}}
	out, err := Search(searcher).Execute(context.Background(), tool.Parameters{
		Regular: map[string]schema.Value{"query": schema.String("go routines")},
	})
	require.NoError(t, err)
	require.Equal(t, schema.KindArray, out["results"].Kind)
	assert.Equal(t, "t1", out["results"].Arr[0].Obj["title"].Str)
}

func TestSearch_MissingQuery(t *testing.T) {
	_, err := Search(fakeSearcher{}).Execute(context.Background(), tool.Parameters{})
	assert.Error(t, err)
}

func TestPubmed_PropagatesSearchError(t *testing.T) {
	_, err := Pubmed(fakeSearcher{err: fmt.Errorf("upstream down")}).Execute(context.Background(), tool.Parameters{
		Regular: map[string]schema.Value{"query": schema.String("aspirin")},
	})
	assert.Error(t, err)
}

func TestLLM_ResolvesPromptAndDispatches(t *testing.T) {
	mock := adapter.NewMockAdapter()

	resolver := func(_ context.Context, templateID string, vars map[string]schema.Value) (string, error) {
		assert.Equal(t, "tmpl-1", templateID)
		return "rendered prompt for " + vars["topic"].Str, nil
	}

	out, err := LLM(mock, resolver).Execute(context.Background(), tool.Parameters{
		PromptTemplateID: "tmpl-1",
		Regular:          map[string]schema.Value{"topic": schema.String("go")},
	})

	require.NoError(t, err)
	assert.NotEmpty(t, out["output"].Str)
}

func TestLLM_ResolverError(t *testing.T) {
	mock := adapter.NewMockAdapter()
	resolver := func(_ context.Context, _ string, _ map[string]schema.Value) (string, error) {
		return "", fmt.Errorf("template not found")
	}

	_, err := LLM(mock, resolver).Execute(context.Background(), tool.Parameters{PromptTemplateID: "missing"})
	assert.Error(t, err)
}

func TestFunction_ExecutesCode(t *testing.T) {
	out, err := Function().Execute(context.Background(), tool.Parameters{
		Regular: map[string]schema.Value{
			"code": schema.String("return {doubled: input.n * 2}"),
			"n":    schema.Number(21),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, float64(42), out["doubled"].Num)
}

func TestFunction_MissingCode(t *testing.T) {
	_, err := Function().Execute(context.Background(), tool.Parameters{})
	assert.Error(t, err)
}

func TestHTTPSearcher_ResolvesCredentialAndParsesResults(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "go routines", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"title":"t1","snippet":"s1"}]`))
	}))
	defer server.Close()

	resolver := func(_ context.Context, name string) (string, error) {
		assert.Equal(t, "search-api", name)
		return "resolved-key", nil
	}

	searcher := NewHTTPSearcher(server.URL, resolver, "search-api")
	results, err := searcher.Search(context.Background(), "go routines")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "t1", results[0].Title)
	assert.Equal(t, "Bearer resolved-key", gotAuth)
}
