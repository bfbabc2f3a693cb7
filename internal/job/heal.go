package job

import (
	"github.com/flowforge/engine/internal/schema"
	"github.com/flowforge/engine/internal/varpath"
	"github.com/flowforge/engine/internal/workflow"
)

// OutputSpecLookup resolves a (toolID, outputName) pair to its declared
// schema, when known, so CheckAndFixMissingVariables can synthesize a
// correctly-typed placeholder instead of defaulting to string.
type OutputSpecLookup func(toolID, outputName string) (schema.Schema, bool)

// CheckAndFixMissingVariables scans every step's OutputMappings and
// inserts a placeholder variable for any target name not already present
// in state, so output writing always has a destination to write to. This
// runs before execution; it never removes or overwrites an existing
// variable.
func CheckAndFixMissingVariables(steps []workflow.Step, state []workflow.Variable, lookup OutputSpecLookup) []workflow.Variable {
	out := make([]workflow.Variable, len(state))
	copy(out, state)

	present := make(map[string]bool, len(out))
	for _, v := range out {
		present[v.Name] = true
	}

	for _, step := range steps {
		for outputKey, varName := range step.OutputMappings {
			path, err := varpath.Parse(varName)
			if err != nil {
				continue
			}
			if present[path.RootName] {
				continue
			}

			s := schema.Scalar(schema.TypeString)
			if lookup != nil {
				rootOutputName, _, _ := splitOutputKey(outputKey)
				if found, foundOK := lookup(step.ToolID, rootOutputName); foundOK {
					s = found
				}
			}

			out = append(out, workflow.Variable{
				Name:     path.RootName,
				Schema:   s,
				Value:    schema.Default(s),
				HasValue: true,
				IOType:   workflow.IOOutput,
			})
			present[path.RootName] = true
		}
	}

	return out
}

func splitOutputKey(outputKey string) (root string, rest []string, ok bool) {
	path, err := varpath.Parse(outputKey)
	if err != nil {
		return outputKey, nil, false
	}
	return path.RootName, path.PropPath, true
}
