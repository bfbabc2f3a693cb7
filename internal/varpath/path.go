// Package varpath parses and resolves dotted variable paths
// (root.prop1.prop2) against the workflow/job variable store. It is the
// only place in the engine that splits a dotted string — every other
// component that needs to walk into nested state goes through here.
package varpath

import (
	"fmt"
	"strings"

	"github.com/flowforge/engine/internal/schema"
)

// Path is a parsed VariablePath: a root variable name plus an ordered
// property path into its value. An empty PropPath means whole-variable
// binding.
type Path struct {
	RootName string
	PropPath []string
}

// String renders the path back to its dotted form.
func (p Path) String() string {
	if len(p.PropPath) == 0 {
		return p.RootName
	}
	return p.RootName + "." + strings.Join(p.PropPath, ".")
}

// Parse splits "root(.prop)*" into a Path. Empty input fails.
func Parse(s string) (Path, error) {
	if s == "" {
		return Path{}, fmt.Errorf("varpath: empty path")
	}
	segments := strings.Split(s, ".")
	for _, seg := range segments {
		if seg == "" {
			return Path{}, fmt.Errorf("varpath: empty segment in path %q", s)
		}
	}
	var propPath []string
	if len(segments) > 1 {
		propPath = segments[1:]
	}
	return Path{RootName: segments[0], PropPath: propPath}, nil
}

// Variable is the minimal shape varpath needs from a workflow/job
// variable: a name and a value. Callers pass their own variable slice; this
// package never imports the job/workflow packages (kept leaf-level per the
// component design).
type Variable struct {
	Name  string
	Value schema.Value
}

// Resolved is the outcome of resolving a Path against a variable set.
type Resolved struct {
	Value     schema.Value
	ValidPath bool
	Error     string
}

// Resolve locates the variable named path.RootName and walks path.PropPath
// through its value. A missing field yields ValidPath=false with a
// descriptive error; it is not a Go error since resolution failure is an
// expected outcome the caller must branch on, not an exceptional one.
func Resolve(variables []Variable, path Path) Resolved {
	var root *schema.Value
	for i := range variables {
		if variables[i].Name == path.RootName {
			root = &variables[i].Value
			break
		}
	}
	if root == nil {
		return Resolved{Error: fmt.Sprintf("no variable named %q", path.RootName)}
	}

	current := *root
	walked := path.RootName
	for _, seg := range path.PropPath {
		if current.Kind != schema.KindObject {
			return Resolved{Error: fmt.Sprintf("no field %s at %s (not an object)", seg, walked)}
		}
		next, ok := current.Obj[seg]
		if !ok {
			return Resolved{Error: fmt.Sprintf("no field %s at %s", seg, walked)}
		}
		current = next
		walked = walked + "." + seg
	}

	return Resolved{Value: current, ValidPath: true}
}

// SchemaResult is the outcome of validating a Path against a Schema tree.
type SchemaResult struct {
	Valid  bool
	Schema schema.Schema
	Error  string
}

// ValidateAgainstSchema walks the schema tree in parallel with propPath,
// returning the sub-schema for the final segment or the first failure
// reason.
func ValidateAgainstSchema(s schema.Schema, propPath []string) SchemaResult {
	current := s
	walked := ""
	for _, seg := range propPath {
		if current.Type != schema.TypeObject {
			return SchemaResult{Error: fmt.Sprintf("no field %s at %s (not an object schema)", seg, walked)}
		}
		next, ok := current.Fields[seg]
		if !ok {
			return SchemaResult{Error: fmt.Sprintf("no field %s at %s", seg, walked)}
		}
		current = next
		walked = walked + "." + seg
	}
	return SchemaResult{Valid: true, Schema: current}
}

// SetAtPath returns a new Value with propPath written to newValue, creating
// intermediate empty objects as needed when walking through object-typed
// nodes. It fails if the path traverses a non-object. The input value is
// never mutated — this is a pure function, matching the no-aliasing
// requirement in the component design.
func SetAtPath(v schema.Value, propPath []string, newValue schema.Value) (schema.Value, error) {
	if len(propPath) == 0 {
		return newValue, nil
	}

	base := v
	if base.Kind != schema.KindObject {
		if base.Kind == schema.KindNull {
			base = schema.Value{Kind: schema.KindObject, Obj: map[string]schema.Value{}}
		} else {
			return schema.Value{}, fmt.Errorf("varpath: cannot set %q: not an object", propPath[0])
		}
	}

	fields := make(map[string]schema.Value, len(base.Obj))
	for k, vv := range base.Obj {
		fields[k] = vv
	}

	head, rest := propPath[0], propPath[1:]
	child, ok := fields[head]
	if !ok {
		child = schema.Value{Kind: schema.KindObject, Obj: map[string]schema.Value{}}
	}

	updatedChild, err := SetAtPath(child, rest, newValue)
	if err != nil {
		return schema.Value{}, err
	}
	fields[head] = updatedChild

	return schema.Value{Kind: schema.KindObject, Obj: fields}, nil
}
