// Package tool is the registry and dispatcher that sits between the
// workflow engine and concrete integrations: it holds a mapping from tool
// id to an Executor, repartitions parameters for LLM-shaped tools, and
// coerces executor output to the declared output schema.
package tool

import (
	"context"
	"fmt"

	"github.com/flowforge/engine/internal/engineerr"
	"github.com/flowforge/engine/internal/schema"
)

// Executor runs one tool invocation. Implementations wrap an
// adapter.Adapter, an HTTP call, a local function, or anything else that
// can turn resolved parameters into outputs.
type Executor interface {
	Execute(ctx context.Context, params Parameters) (map[string]schema.Value, error)
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(ctx context.Context, params Parameters) (map[string]schema.Value, error)

func (f ExecutorFunc) Execute(ctx context.Context, params Parameters) (map[string]schema.Value, error) {
	return f(ctx, params)
}

// Parameters is what a dispatched tool call receives. For most tool types
// only Regular is populated; llm-type tools additionally get
// PromptTemplateID and File.
type Parameters struct {
	Regular          map[string]schema.Value
	PromptTemplateID string
	File             map[string]string
}

// Signature describes a tool's declared type and output schema, used to
// decide parameter repartitioning and output coercion.
type Signature struct {
	ToolType string
	Outputs  map[string]schema.Schema
}

const toolTypeLLM = "llm"

// RegistrationObserver is notified when Register replaces an existing
// executor for a tool id that was already registered with a different
// value.
type RegistrationObserver func(toolID string)

// Registry holds named tool executors, mirroring the adapter registry's
// register/lookup shape but adding the dispatch semantics the engine needs:
// parameter repartitioning and output coercion.
type Registry struct {
	executors map[string]Executor
	onReplace RegistrationObserver
}

// NewRegistry creates an empty Registry. observer may be nil.
func NewRegistry(observer RegistrationObserver) *Registry {
	return &Registry{
		executors: make(map[string]Executor),
		onReplace: observer,
	}
}

// Register adds or replaces the executor for toolID. Re-registering the
// same executor value is a no-op; replacing with a different executor is
// allowed (last write wins) and reported to the observer if one was given.
// Executors are compared by their %p formatting, so two func executors
// built from the same function literal count as identical: replacing one
// with the other is stored but not reported.
func (r *Registry) Register(toolID string, executor Executor) {
	existing, had := r.executors[toolID]
	r.executors[toolID] = executor
	if had && r.onReplace != nil && fmt.Sprintf("%p", existing) != fmt.Sprintf("%p", executor) {
		r.onReplace(toolID)
	}
}

// Get returns the executor registered for toolID, if any.
func (r *Registry) Get(toolID string) (Executor, bool) {
	e, ok := r.executors[toolID]
	return e, ok
}

// Execute dispatches a tool call: it repartitions resolvedParameters
// according to sig.ToolType, runs the registered executor, then coerces
// the raw outputs against sig.Outputs.
func (r *Registry) Execute(ctx context.Context, toolID string, sig Signature, resolvedParameters map[string]schema.Value) (map[string]schema.Value, error) {
	executor, ok := r.executors[toolID]
	if !ok {
		return nil, engineerr.New(engineerr.ToolExecutionError, fmt.Sprintf("no executor registered for tool %q", toolID))
	}

	params, err := partitionParameters(sig.ToolType, resolvedParameters)
	if err != nil {
		return nil, err
	}

	raw, err := executor.Execute(ctx, params)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.ToolExecutionError, fmt.Sprintf("tool %q execution failed", toolID), err)
	}

	return coerceOutputs(sig.Outputs, raw)
}

// partitionParameters splits resolvedParameters per the tool type. For
// llm tools, any parameter whose value is a file handle moves to
// params.File, keyed by parameter name with the file id as its value, a
// prompt_template_id parameter is lifted
// out into its own field (failing if absent), and everything else remains
// in Regular. Other tool types pass parameters through unchanged.
func partitionParameters(toolType string, resolvedParameters map[string]schema.Value) (Parameters, error) {
	if toolType != toolTypeLLM {
		return Parameters{Regular: resolvedParameters}, nil
	}

	regular := make(map[string]schema.Value)
	files := make(map[string]string)
	var promptTemplateID string
	var havePromptTemplateID bool

	for name, value := range resolvedParameters {
		if name == "prompt_template_id" {
			if value.Kind == schema.KindString {
				promptTemplateID = value.Str
				havePromptTemplateID = true
			}
			continue
		}
		if value.Kind == schema.KindFile && value.File.FileID != "" {
			files[name] = value.File.FileID
			continue
		}
		regular[name] = value
	}

	if !havePromptTemplateID {
		return Parameters{}, engineerr.New(engineerr.ConfigurationError, "missing_prompt_template: llm tool call requires prompt_template_id")
	}

	return Parameters{
		Regular:          regular,
		PromptTemplateID: promptTemplateID,
		File:             files,
	}, nil
}

// coerceOutputs keeps only the outputs named in outputSchemas, coercing
// each raw value to its declared schema type. An output present in
// outputSchemas but absent from raw is simply omitted from the result —
// callers decide whether a missing output is an error.
func coerceOutputs(outputSchemas map[string]schema.Schema, raw map[string]schema.Value) (map[string]schema.Value, error) {
	result := make(map[string]schema.Value, len(outputSchemas))
	for name, sig := range outputSchemas {
		value, ok := raw[name]
		if !ok {
			continue
		}
		coerced, err := coerceValue(sig, value)
		if err != nil {
			return nil, engineerr.Wrap(engineerr.ToolExecutionError, fmt.Sprintf("output %q type mismatch", name), err)
		}
		result[name] = coerced
	}
	return result, nil
}

func coerceValue(sig schema.Schema, value schema.Value) (schema.Value, error) {
	if sig.IsArray {
		if value.Kind == schema.KindArray {
			elemSchema := sig
			elemSchema.IsArray = false
			coerced := make([]schema.Value, len(value.Arr))
			for i, item := range value.Arr {
				c, err := coerceValue(elemSchema, item)
				if err != nil {
					return schema.Value{}, err
				}
				coerced[i] = c
			}
			return schema.Array(coerced), nil
		}
		elemSchema := sig
		elemSchema.IsArray = false
		single, err := coerceValue(elemSchema, value)
		if err != nil {
			return schema.Value{}, err
		}
		return schema.Array([]schema.Value{single}), nil
	}

	switch sig.Type {
	case schema.TypeString:
		return schema.String(stringify(value)), nil
	case schema.TypeNumber:
		return coerceNumber(value)
	case schema.TypeBoolean:
		return schema.Bool(truthy(value)), nil
	case schema.TypeFile:
		if value.Kind != schema.KindFile {
			return schema.Value{}, fmt.Errorf("expected file value, got %s", value.Kind)
		}
		return value, nil
	case schema.TypeObject:
		if value.Kind != schema.KindObject {
			return schema.Value{}, fmt.Errorf("expected object value, got %s", value.Kind)
		}
		return value, nil
	default:
		return schema.Value{}, fmt.Errorf("unknown output schema type %q", sig.Type)
	}
}

func stringify(v schema.Value) string {
	switch v.Kind {
	case schema.KindString:
		return v.Str
	case schema.KindNumber:
		return fmt.Sprintf("%g", v.Num)
	case schema.KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case schema.KindNull:
		return ""
	default:
		return fmt.Sprintf("%v", v.ToInterface())
	}
}

func coerceNumber(v schema.Value) (schema.Value, error) {
	switch v.Kind {
	case schema.KindNumber:
		return v, nil
	case schema.KindString:
		var n float64
		if _, err := fmt.Sscanf(v.Str, "%g", &n); err != nil {
			return schema.Value{}, fmt.Errorf("cannot parse %q as number", v.Str)
		}
		return schema.Number(n), nil
	case schema.KindBool:
		if v.Bool {
			return schema.Number(1), nil
		}
		return schema.Number(0), nil
	default:
		return schema.Value{}, fmt.Errorf("cannot coerce %s to number", v.Kind)
	}
}

func truthy(v schema.Value) bool {
	switch v.Kind {
	case schema.KindBool:
		return v.Bool
	case schema.KindString:
		return v.Str != ""
	case schema.KindNumber:
		return v.Num != 0
	case schema.KindNull:
		return false
	case schema.KindArray:
		return len(v.Arr) > 0
	case schema.KindObject:
		return len(v.Obj) > 0
	default:
		return false
	}
}
