// Package schema describes the shape of data flowing through the workflow
// engine: scalar, object, file, and array-of variants, with structural
// validation, default-value synthesis, and minimal-schema inference.
package schema

import "fmt"

// Type is the base type of a Schema, independent of array-ness.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
	TypeObject  Type = "object"
	TypeFile    Type = "file"
)

// Schema is a structural descriptor for a Value.
type Schema struct {
	Type         Type              `json:"type"`
	IsArray      bool              `json:"is_array,omitempty"`
	Fields       map[string]Schema `json:"fields,omitempty"`
	Format       string            `json:"format,omitempty"`
	ContentTypes []string          `json:"content_types,omitempty"`
}

// String returns a human-readable form, e.g. "string[]" or "object".
func (s Schema) String() string {
	base := string(s.Type)
	if s.IsArray {
		return base + "[]"
	}
	return base
}

// Scalar constructs a non-array Schema of the given base type.
func Scalar(t Type) Schema { return Schema{Type: t} }

// ArrayOf constructs an array Schema over the given base type.
func ArrayOf(t Type) Schema { return Schema{Type: t, IsArray: true} }

// Object constructs an object Schema from its fields. Panics if fields is
// empty — the invariant is that Fields is non-empty iff Type == object.
func Object(fields map[string]Schema) Schema {
	if len(fields) == 0 {
		panic("schema: Object requires at least one field")
	}
	return Schema{Type: TypeObject, Fields: fields}
}

// Invalid reports a structural problem with the Schema itself (the
// fields-non-empty-iff-object invariant from the data model).
func (s Schema) Invalid() error {
	if s.Type == TypeObject && len(s.Fields) == 0 {
		return fmt.Errorf("schema: type object requires non-empty fields")
	}
	if s.Type != TypeObject && len(s.Fields) > 0 {
		return fmt.Errorf("schema: fields set on non-object type %q", s.Type)
	}
	return nil
}
