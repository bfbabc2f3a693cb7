package job

import (
	"fmt"
	"sort"

	"github.com/flowforge/engine/internal/engineerr"
	"github.com/flowforge/engine/internal/schema"
	"github.com/flowforge/engine/internal/varpath"
	"github.com/flowforge/engine/internal/workflow"
)

// ParameterSpec describes one declared tool parameter, used to validate a
// step's parameter mappings before dispatch.
type ParameterSpec struct {
	Name     string
	Schema   schema.Schema
	Required bool
}

// ValidateVariableMappings checks a step's parameter mappings against the
// job's current state: every required parameter must have a mapping, and
// every mapping's path must resolve to a schema compatible with the
// parameter's declared schema. All failures are collected rather than
// stopping at the first.
func ValidateVariableMappings(params []ParameterSpec, step workflow.Step, state []workflow.Variable) []error {
	var errs []error

	required := make(map[string]bool, len(params))
	schemas := make(map[string]schema.Schema, len(params))
	for _, p := range params {
		schemas[p.Name] = p.Schema
		if p.Required {
			required[p.Name] = true
		}
	}

	for name := range required {
		if _, mapped := step.ParameterMappings[name]; !mapped {
			errs = append(errs, engineerr.New(engineerr.MappingValidationError,
				fmt.Sprintf("required parameter %q has no mapping", name)))
		}
	}

	for paramName, pathStr := range step.ParameterMappings {
		declared, known := schemas[paramName]
		if !known {
			continue
		}

		path, err := varpath.Parse(pathStr)
		if err != nil {
			errs = append(errs, engineerr.New(engineerr.MappingValidationError,
				fmt.Sprintf("parameter %q: %v", paramName, err)))
			continue
		}

		rootIdx := -1
		for i, v := range state {
			if v.Name == path.RootName {
				rootIdx = i
				break
			}
		}
		if rootIdx < 0 {
			errs = append(errs, engineerr.New(engineerr.MappingValidationError,
				fmt.Sprintf("parameter %q: root variable %q does not exist", paramName, path.RootName)))
			continue
		}

		schemaResult := varpath.ValidateAgainstSchema(state[rootIdx].Schema, path.PropPath)
		if !schemaResult.Valid {
			errs = append(errs, engineerr.New(engineerr.MappingValidationError,
				fmt.Sprintf("parameter %q: %s", paramName, schemaResult.Error)))
			continue
		}

		if !schema.IsCompatible(declared, schemaResult.Schema) {
			errs = append(errs, engineerr.New(engineerr.MappingValidationError,
				fmt.Sprintf("parameter %q: mapped value %s is not compatible with declared %s", paramName, schemaResult.Schema, declared)))
		}
	}

	errs = append(errs, validateOutputTargets(step)...)

	return errs
}

// validateOutputTargets rejects a step whose output mappings write the
// same target variable more than once: which write would win depends on
// map iteration order, so the configuration is refused up front instead.
func validateOutputTargets(step workflow.Step) []error {
	keys := make([]string, 0, len(step.OutputMappings))
	for k := range step.OutputMappings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	firstWriter := make(map[string]string, len(keys))
	for _, outputKey := range keys {
		path, err := varpath.Parse(step.OutputMappings[outputKey])
		if err != nil {
			continue
		}
		if prev, dup := firstWriter[path.RootName]; dup {
			errs = append(errs, engineerr.New(engineerr.MappingValidationError,
				fmt.Sprintf("outputs %q and %q both write variable %q", prev, outputKey, path.RootName)))
			continue
		}
		firstWriter[path.RootName] = outputKey
	}
	return errs
}
