package schema

// Validate reports whether value's structure conforms to schema: scalars
// match base type, arrays require IsArray and all elements conform to the
// non-array schema, objects must have every declared field present and
// conformant (extra fields are rejected when Fields is provided).
func Validate(s Schema, v Value) bool {
	if s.IsArray {
		if v.Kind != KindArray {
			return false
		}
		elem := s
		elem.IsArray = false
		for _, item := range v.Arr {
			if !Validate(elem, item) {
				return false
			}
		}
		return true
	}

	switch s.Type {
	case TypeString:
		return v.Kind == KindString
	case TypeNumber:
		return v.Kind == KindNumber
	case TypeBoolean:
		return v.Kind == KindBool
	case TypeFile:
		return v.Kind == KindFile
	case TypeObject:
		if v.Kind != KindObject {
			return false
		}
		if len(v.Obj) != len(s.Fields) {
			return false
		}
		for name, fieldSchema := range s.Fields {
			fieldVal, ok := v.Obj[name]
			if !ok {
				return false
			}
			if !Validate(fieldSchema, fieldVal) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Default synthesizes the zero Value for a Schema: "" for string, 0 for
// number, false for boolean, [] for any array schema, a recursively
// defaulted object for object schemas, an empty file handle for file
// schemas.
func Default(s Schema) Value {
	if s.IsArray {
		return Array(nil)
	}
	switch s.Type {
	case TypeString:
		return String("")
	case TypeNumber:
		return Number(0)
	case TypeBoolean:
		return Bool(false)
	case TypeFile:
		return File(FileHandle{})
	case TypeObject:
		fields := make(map[string]Value, len(s.Fields))
		for name, fieldSchema := range s.Fields {
			fields[name] = Default(fieldSchema)
		}
		return Value{Kind: KindObject, Obj: fields}
	default:
		return Null
	}
}

// Infer inspects a Value's runtime shape and returns a minimal Schema for
// it: a non-array object containing a file_id is recognized as a file
// handle; otherwise the matching scalar/object schema, with IsArray set
// from the value's array-ness. Used when recording ad-hoc tool outputs
// that have no declared signature.
func Infer(v Value) Schema {
	if v.Kind == KindArray {
		if len(v.Arr) == 0 {
			return Schema{Type: TypeString, IsArray: true}
		}
		elem := Infer(v.Arr[0])
		elem.IsArray = true
		return elem
	}

	switch v.Kind {
	case KindString:
		return Scalar(TypeString)
	case KindNumber:
		return Scalar(TypeNumber)
	case KindBool:
		return Scalar(TypeBoolean)
	case KindFile:
		return Scalar(TypeFile)
	case KindObject:
		if fid, ok := v.Obj["file_id"]; ok && fid.Kind == KindString {
			return Scalar(TypeFile)
		}
		fields := make(map[string]Schema, len(v.Obj))
		for k, vv := range v.Obj {
			fields[k] = Infer(vv)
		}
		if len(fields) == 0 {
			return Schema{Type: TypeObject, Fields: map[string]Schema{"_": Scalar(TypeString)}}
		}
		return Schema{Type: TypeObject, Fields: fields}
	default:
		return Scalar(TypeString)
	}
}

// IsCompatible reports whether a src-typed value may bind to a dst-typed
// destination: types and array-ness must match, with one special
// allowance — a scalar string destination accepts a string-array source
// (the consumer is expected to join elements with newlines when binding).
// For object destinations, every declared field in dst.Fields must have a
// compatible corresponding field in src.Fields.
func IsCompatible(dst, src Schema) bool {
	if dst.Type == TypeString && !dst.IsArray && src.Type == TypeString && src.IsArray {
		return true
	}

	if dst.IsArray != src.IsArray {
		return false
	}
	if dst.Type != src.Type {
		return false
	}
	if dst.Type != TypeObject {
		return true
	}

	for name, dstField := range dst.Fields {
		srcField, ok := src.Fields[name]
		if !ok {
			return false
		}
		if !IsCompatible(dstField, srcField) {
			return false
		}
	}
	return true
}
