package workflow

import (
	"github.com/flowforge/engine/internal/schema"
	"github.com/flowforge/engine/internal/varpath"
)

func toVarpathVariables(state []Variable) []varpath.Variable {
	out := make([]varpath.Variable, len(state))
	for i, v := range state {
		val := v.Value
		if !v.HasValue {
			val = schema.Null
		}
		out[i] = varpath.Variable{Name: v.Name, Value: val}
	}
	return out
}

// GetResolvedParameters resolves step.ParameterMappings against
// workflow.State. An invalid or undefined path resolves to the engine's
// null marker rather than aborting — validation is the gatekeeper, not
// parameter resolution.
func GetResolvedParameters(step Step, wf Workflow) map[string]schema.Value {
	vars := toVarpathVariables(wf.State)
	resolved := make(map[string]schema.Value, len(step.ParameterMappings))

	for paramName, pathStr := range step.ParameterMappings {
		path, err := varpath.Parse(pathStr)
		if err != nil {
			resolved[paramName] = schema.Null
			continue
		}
		r := varpath.Resolve(vars, path)
		if !r.ValidPath {
			resolved[paramName] = schema.Null
			continue
		}
		resolved[paramName] = r.Value
	}

	return resolved
}

// findVariable returns the index of the state variable named name, or -1.
func findVariable(state []Variable, name string) int {
	for i := range state {
		if state[i].Name == name {
			return i
		}
	}
	return -1
}

// cloneState deep-copies a state slice so callers can mutate the copy
// freely without aliasing the original.
func cloneState(state []Variable) []Variable {
	out := make([]Variable, len(state))
	for i, v := range state {
		cp := v
		cp.Value = v.Value.Clone()
		out[i] = cp
	}
	return out
}

// ClearStepOutputs returns a copy of workflow.State with every variable
// named in step.OutputMappings (and, for EVALUATION steps, eval_<shortID>)
// marked as having no value. Inputs and jump counters are untouched.
func ClearStepOutputs(step Step, state []Variable) []Variable {
	out := cloneState(state)

	for _, varName := range step.OutputMappings {
		path, err := varpath.Parse(varName)
		if err != nil {
			continue
		}
		if idx := findVariable(out, path.RootName); idx >= 0 {
			out[idx].HasValue = false
			out[idx].Value = schema.Value{}
		}
	}

	if step.StepType == StepEvaluation {
		evalName := "eval_" + step.ShortID()
		if idx := findVariable(out, evalName); idx >= 0 {
			out[idx].HasValue = false
			out[idx].Value = schema.Value{}
		}
	}

	return out
}

// GetUpdatedWorkflowStateFromResults writes a tool's raw outputs back into
// state according to step.OutputMappings (for ACTION steps) or as a single
// eval_<shortID> snapshot (for EVALUATION steps).
func GetUpdatedWorkflowStateFromResults(step Step, outputs map[string]schema.Value, state []Variable) []Variable {
	out := cloneState(state)

	switch step.StepType {
	case StepEvaluation:
		evalName := "eval_" + step.ShortID()
		snapshot := schema.ObjectValue(cloneValueMap(outputs))
		if idx := findVariable(out, evalName); idx >= 0 {
			out[idx].Value = snapshot
			out[idx].HasValue = true
		} else {
			out = append(out, Variable{
				Name:     evalName,
				Schema:   schema.Infer(snapshot),
				Value:    snapshot,
				HasValue: true,
				IOType:   IOEvaluation,
			})
		}

	default: // StepAction
		for outputPath, varName := range step.OutputMappings {
			rootOutputName, subPath := splitOutputPath(outputPath)
			rawOutput, ok := outputs[rootOutputName]
			if !ok {
				continue
			}

			value := rawOutput
			if len(subPath) > 0 {
				vars := toVarpathVariables([]Variable{{Name: "root", Value: rawOutput, HasValue: true}})
				r := varpath.Resolve(vars, varpath.Path{RootName: "root", PropPath: subPath})
				if !r.ValidPath {
					continue
				}
				value = r.Value
			}

			if idx := findVariable(out, varName); idx >= 0 {
				out[idx].Value = value
				out[idx].HasValue = true
			}
		}
	}

	return out
}

func cloneValueMap(m map[string]schema.Value) map[string]schema.Value {
	out := make(map[string]schema.Value, len(m))
	for k, v := range m {
		out[k] = v.Clone()
	}
	return out
}

// splitOutputPath splits an output_mappings key of the form
// "rootOutputName(.sub)*" into its root and remaining segments. A key that
// varpath cannot parse is treated as a root name with no sub-path.
func splitOutputPath(outputPath string) (string, []string) {
	path, err := varpath.Parse(outputPath)
	if err != nil {
		return outputPath, nil
	}
	return path.RootName, path.PropPath
}

// InjectPromptTemplateID folds a step's configured PromptTemplateID into
// resolvedParameters under the prompt_template_id key, as required before
// dispatching a llm-typed tool call.
func InjectPromptTemplateID(step Step, resolvedParameters map[string]schema.Value) map[string]schema.Value {
	if step.PromptTemplateID == "" {
		return resolvedParameters
	}
	out := make(map[string]schema.Value, len(resolvedParameters)+1)
	for k, v := range resolvedParameters {
		out[k] = v
	}
	out["prompt_template_id"] = schema.String(step.PromptTemplateID)
	return out
}
