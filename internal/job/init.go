package job

import (
	"fmt"

	"github.com/flowforge/engine/internal/engineerr"
	"github.com/flowforge/engine/internal/schema"
	"github.com/flowforge/engine/internal/workflow"
)

// InitializeJobWithInputs validates caller-supplied inputs against job's
// declared InputVariableSpecs and returns a new state: every non-input
// variable preserved, every provided input inserted (or replacing the
// prior input of the same name) with IOType = input.
func InitializeJobWithInputs(specs []InputVariableSpec, state []workflow.Variable, inputs map[string]schema.Value) ([]workflow.Variable, error) {
	for _, spec := range specs {
		value, present := inputs[spec.Name]
		if !present {
			if spec.Required {
				return nil, engineerr.New(engineerr.InputValidationError,
					fmt.Sprintf("missing_required_input: %q is required", spec.Name))
			}
			continue
		}

		inferred := schema.Infer(value)
		if !schema.IsCompatible(spec.Schema, inferred) {
			return nil, engineerr.New(engineerr.InputValidationError,
				fmt.Sprintf("input_type_mismatch: %q expected %s, got %s", spec.Name, spec.Schema, inferred))
		}
	}

	out := make([]workflow.Variable, 0, len(state)+len(inputs))
	seen := make(map[string]bool, len(inputs))

	for _, v := range state {
		if value, present := inputs[v.Name]; present {
			out = append(out, workflow.Variable{
				Name:     v.Name,
				Schema:   v.Schema,
				Value:    value,
				HasValue: true,
				IOType:   workflow.IOInput,
			})
			seen[v.Name] = true
			continue
		}
		out = append(out, v)
	}

	for _, spec := range specs {
		if seen[spec.Name] {
			continue
		}
		value, present := inputs[spec.Name]
		if !present {
			continue
		}
		out = append(out, workflow.Variable{
			Name:     spec.Name,
			Schema:   spec.Schema,
			Value:    value,
			HasValue: true,
			IOType:   workflow.IOInput,
		})
		seen[spec.Name] = true
	}

	return out, nil
}
