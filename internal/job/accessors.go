package job

import (
	"strings"

	"github.com/flowforge/engine/internal/schema"
	"github.com/flowforge/engine/internal/varpath"
	"github.com/flowforge/engine/internal/workflow"
)

func isEngineManaged(name string) bool {
	return strings.HasPrefix(name, "eval_") || strings.HasPrefix(name, "jump_count_")
}

// GetInputVariables returns every state variable with IOType = input.
func GetInputVariables(j Job) []workflow.Variable {
	var out []workflow.Variable
	for _, v := range j.State {
		if v.IOType == workflow.IOInput {
			out = append(out, v)
		}
	}
	return out
}

// GetFinalOutputVariables returns the values of the workflow variables
// referenced as targets in the last step's OutputMappings, excluding
// engine-managed bookkeeping variables.
func GetFinalOutputVariables(j Job) []workflow.Variable {
	if len(j.Steps) == 0 {
		return nil
	}
	last := j.Steps[len(j.Steps)-1]

	byName := make(map[string]workflow.Variable, len(j.State))
	for _, v := range j.State {
		byName[v.Name] = v
	}

	var out []workflow.Variable
	for _, varName := range last.OutputMappings {
		path, err := varpath.Parse(varName)
		if err != nil {
			continue
		}
		if isEngineManaged(path.RootName) {
			continue
		}
		if v, ok := byName[path.RootName]; ok {
			out = append(out, v)
		}
	}
	return out
}

// GetAllStateVariables returns every state variable except engine
// bookkeeping ones (eval_* and jump_count_* prefixes).
func GetAllStateVariables(j Job) []workflow.Variable {
	var out []workflow.Variable
	for _, v := range j.State {
		if isEngineManaged(v.Name) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// MappingEntry is one resolved parameter/output for UI display.
type MappingEntry struct {
	Name          string // parameter name or output name
	VariablePath  string
	ResolvedValue interface{}
}

// GetStepInputMappings returns the resolved parameter bindings for stepID.
// If exec is non-nil, it reads from that specific StepExecutionResult's
// captured Inputs (historical display); otherwise it resolves live
// against j.State.
func GetStepInputMappings(j Job, stepID string, exec *StepExecutionResult) []MappingEntry {
	step, ok := findStep(j, stepID)
	if !ok {
		return nil
	}

	var entries []MappingEntry
	for paramName, pathStr := range step.ParameterMappings {
		var resolved interface{}
		if exec != nil {
			if v, found := exec.Inputs[paramName]; found {
				resolved = v.ToInterface()
			}
		} else {
			vars := toVarpathVariables(j.State)
			path, err := varpath.Parse(pathStr)
			if err == nil {
				if r := varpath.Resolve(vars, path); r.ValidPath {
					resolved = r.Value.ToInterface()
				}
			}
		}
		entries = append(entries, MappingEntry{Name: paramName, VariablePath: pathStr, ResolvedValue: resolved})
	}
	return entries
}

// GetStepOutputMappings returns the resolved output bindings for stepID,
// reading from exec.Outputs when given, else from the current state
// values of the mapped variables.
func GetStepOutputMappings(j Job, stepID string, exec *StepExecutionResult) []MappingEntry {
	step, ok := findStep(j, stepID)
	if !ok {
		return nil
	}

	byName := make(map[string]workflow.Variable, len(j.State))
	for _, v := range j.State {
		byName[v.Name] = v
	}

	var entries []MappingEntry
	for outputName, varName := range step.OutputMappings {
		var resolved interface{}
		if exec != nil {
			if v, found := exec.Outputs[outputName]; found {
				resolved = v.ToInterface()
			}
		} else if v, found := byName[varName]; found && v.HasValue {
			resolved = v.Value.ToInterface()
		}
		entries = append(entries, MappingEntry{Name: outputName, VariablePath: varName, ResolvedValue: resolved})
	}
	return entries
}

func findStep(j Job, stepID string) (JobStep, bool) {
	for _, s := range j.Steps {
		if s.StepID == stepID {
			return s, true
		}
	}
	return JobStep{}, false
}

func toVarpathVariables(state []workflow.Variable) []varpath.Variable {
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
