package schema

// Kind discriminates the variant held by a Value.
type Kind string

const (
	KindString Kind = "string"
	KindNumber Kind = "number"
	KindBool   Kind = "bool"
	KindObject Kind = "object"
	KindFile   Kind = "file"
	KindArray  Kind = "array"
	KindNull   Kind = "null" // the engine's null marker, distinct from an absent Value
)

// FileHandle is a reference to a file flowing through the engine.
type FileHandle struct {
	FileID      string `json:"file_id"`
	Name        string `json:"name,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// Value is a tagged sum replacing a duck-typed `any`: exactly one of the
// Kind-named fields is meaningful for a given Kind. Arrays are a first-class
// variant at the value level (Schema.IsArray remains the schema-level flag).
type Value struct {
	Kind Kind
	Str  string
	Num  float64
	Bool bool
	Obj  map[string]Value
	File FileHandle
	Arr  []Value
}

// Null is the engine's null marker — distinct from a Go nil/absent Value,
// per the data model's note that bound-but-unresolved parameters use it.
var Null = Value{Kind: KindNull}

func String(s string) Value                      { return Value{Kind: KindString, Str: s} }
func Number(n float64) Value                     { return Value{Kind: KindNumber, Num: n} }
func Bool(b bool) Value                          { return Value{Kind: KindBool, Bool: b} }
func ObjectValue(fields map[string]Value) Value  { return Value{Kind: KindObject, Obj: fields} }
func File(f FileHandle) Value                    { return Value{Kind: KindFile, File: f} }
func Array(items []Value) Value                  { return Value{Kind: KindArray, Arr: items} }

// IsNull reports whether v is the engine's null marker.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Clone returns a deep copy so callers can treat Values as immutable.
func (v Value) Clone() Value {
	switch v.Kind {
	case KindObject:
		cp := make(map[string]Value, len(v.Obj))
		for k, vv := range v.Obj {
			cp[k] = vv.Clone()
		}
		return Value{Kind: KindObject, Obj: cp}
	case KindArray:
		cp := make([]Value, len(v.Arr))
		for i, vv := range v.Arr {
			cp[i] = vv.Clone()
		}
		return Value{Kind: KindArray, Arr: cp}
	default:
		return v
	}
}

// ToInterface converts a Value to a plain Go value, useful for JSON
// marshaling or handing to template/condition evaluators that expect
// map[string]interface{}-shaped data.
func (v Value) ToInterface() interface{} {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return v.Num
	case KindBool:
		return v.Bool
	case KindFile:
		m := map[string]interface{}{"file_id": v.File.FileID}
		if v.File.Name != "" {
			m["name"] = v.File.Name
		}
		if v.File.ContentType != "" {
			m["content_type"] = v.File.ContentType
		}
		return m
	case KindObject:
		m := make(map[string]interface{}, len(v.Obj))
		for k, vv := range v.Obj {
			m[k] = vv.ToInterface()
		}
		return m
	case KindArray:
		a := make([]interface{}, len(v.Arr))
		for i, vv := range v.Arr {
			a[i] = vv.ToInterface()
		}
		return a
	default:
		return nil
	}
}

// FromInterface builds a Value from a decoded JSON value
// (map[string]interface{}, []interface{}, string, float64, bool, nil), as
// produced by encoding/json.Unmarshal into interface{}. A non-array object
// containing a "file_id" key is recognized as a file handle, matching the
// rule Infer uses to recognize file-shaped values.
func FromInterface(v interface{}) Value {
	switch val := v.(type) {
	case nil:
		return Null
	case string:
		return String(val)
	case float64:
		return Number(val)
	case int:
		return Number(float64(val))
	case int64:
		return Number(float64(val))
	case bool:
		return Bool(val)
	case []interface{}:
		items := make([]Value, len(val))
		for i, item := range val {
			items[i] = FromInterface(item)
		}
		return Array(items)
	case map[string]interface{}:
		if fid, ok := val["file_id"]; ok {
			if fidStr, ok := fid.(string); ok {
				fh := FileHandle{FileID: fidStr}
				if name, ok := val["name"].(string); ok {
					fh.Name = name
				}
				if ct, ok := val["content_type"].(string); ok {
					fh.ContentType = ct
				}
				return File(fh)
			}
		}
		fields := make(map[string]Value, len(val))
		for k, vv := range val {
			fields[k] = FromInterface(vv)
		}
		return Value{Kind: KindObject, Obj: fields}
	default:
		return Null
	}
}
