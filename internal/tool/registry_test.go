package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/engine/internal/engineerr"
	"github.com/flowforge/engine/internal/schema"
)

func echoExecutor() Executor {
	return ExecutorFunc(func(_ context.Context, params Parameters) (map[string]schema.Value, error) {
		return map[string]schema.Value{
			"out": params.Regular["in"],
		}, nil
	})
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry(nil)
	_, ok := r.Get("echo")
	assert.False(t, ok)

	r.Register("echo", echoExecutor())
	got, ok := r.Get("echo")
	assert.True(t, ok)
	assert.NotNil(t, got)
}

func TestRegistry_Register_ReplaceReportsObserver(t *testing.T) {
	var replaced []string
	r := NewRegistry(func(toolID string) { replaced = append(replaced, toolID) })

	first := echoExecutor()
	second := ExecutorFunc(func(_ context.Context, _ Parameters) (map[string]schema.Value, error) {
		return nil, nil
	})

	r.Register("echo", first)
	assert.Empty(t, replaced)

	r.Register("echo", first)
	assert.Empty(t, replaced, "re-registering the identical executor must not notify")

	r.Register("echo", second)
	assert.Equal(t, []string{"echo"}, replaced)
}

func TestRegistry_Execute_NoExecutor(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Execute(context.Background(), "missing", Signature{}, nil)
	require.Error(t, err)
	kind, ok := engineerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, engineerr.ToolExecutionError, kind)
}

func TestRegistry_Execute_NonLLMPassesThrough(t *testing.T) {
	r := NewRegistry(nil)
	r.Register("echo", echoExecutor())

	out, err := r.Execute(context.Background(), "echo", Signature{
		ToolType: "simple",
		Outputs:  map[string]schema.Schema{"out": schema.Scalar(schema.TypeString)},
	}, map[string]schema.Value{"in": schema.String("hi")})

	require.NoError(t, err)
	assert.Equal(t, schema.String("hi"), out["out"])
}

func TestRegistry_Execute_LLMPartitionsParameters(t *testing.T) {
	var captured Parameters
	r := NewRegistry(nil)
	r.Register("summarize", ExecutorFunc(func(_ context.Context, params Parameters) (map[string]schema.Value, error) {
		captured = params
		return map[string]schema.Value{"output": schema.String("done")}, nil
	}))

	params := map[string]schema.Value{
		"prompt_template_id": schema.String("tmpl-1"),
		"topic":               schema.String("go"),
		"attachment":          schema.File(schema.FileHandle{FileID: "file-1"}),
	}

	out, err := r.Execute(context.Background(), "summarize", Signature{
		ToolType: "llm",
		Outputs:  map[string]schema.Schema{"output": schema.Scalar(schema.TypeString)},
	}, params)

	require.NoError(t, err)
	assert.Equal(t, schema.String("done"), out["output"])

	assert.Equal(t, "tmpl-1", captured.PromptTemplateID)
	assert.Equal(t, schema.String("go"), captured.Regular["topic"])
	assert.Equal(t, "file-1", captured.File["attachment"])
	_, stillRegular := captured.Regular["attachment"]
	assert.False(t, stillRegular)
}

func TestRegistry_Execute_LLMMissingPromptTemplate(t *testing.T) {
	r := NewRegistry(nil)
	r.Register("summarize", echoExecutor())

	_, err := r.Execute(context.Background(), "summarize", Signature{ToolType: "llm"}, map[string]schema.Value{
		"topic": schema.String("go"),
	})

	require.Error(t, err)
	kind, ok := engineerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, engineerr.ConfigurationError, kind)
}

func TestRegistry_Execute_OutputCoercion(t *testing.T) {
	r := NewRegistry(nil)
	r.Register("count", ExecutorFunc(func(_ context.Context, _ Parameters) (map[string]schema.Value, error) {
		return map[string]schema.Value{
			"total":   schema.String("3"),
			"ok":      schema.Number(1),
			"ignored": schema.String("dropped"),
			"tags":    schema.String("single"),
		}, nil
	}))

	out, err := r.Execute(context.Background(), "count", Signature{
		Outputs: map[string]schema.Schema{
			"total": schema.Scalar(schema.TypeNumber),
			"ok":    schema.Scalar(schema.TypeBoolean),
			"tags":  schema.ArrayOf(schema.TypeString),
		},
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, schema.Number(3), out["total"])
	assert.Equal(t, schema.Bool(true), out["ok"])
	assert.Equal(t, schema.Array([]schema.Value{schema.String("single")}), out["tags"])
	_, hasIgnored := out["ignored"]
	assert.False(t, hasIgnored)
}

func TestRegistry_Execute_OutputTypeMismatch(t *testing.T) {
	r := NewRegistry(nil)
	r.Register("count", ExecutorFunc(func(_ context.Context, _ Parameters) (map[string]schema.Value, error) {
		return map[string]schema.Value{"total": schema.String("not-a-number")}, nil
	}))

	_, err := r.Execute(context.Background(), "count", Signature{
		Outputs: map[string]schema.Schema{"total": schema.Scalar(schema.TypeNumber)},
	}, nil)

	require.Error(t, err)
	kind, ok := engineerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, engineerr.ToolExecutionError, kind)
}
