package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindInvalid Kind = iota
	KindInt
	KindString
	KindBool
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "invalid"
	}
}

// Value is a closed variant: integer, string, boolean, list of Value or
// string-keyed map of Value. The zero Value is invalid.
//
// Values are immutable. List and map accessors hand out copies.
type Value struct {
	kind Kind
	i    int64
	s    string
	b    bool
	list []Value
	m    map[string]Value
}

func Int(v int64) Value     { return Value{kind: KindInt, i: v} }
func String(v string) Value { return Value{kind: KindString, s: v} }
func Bool(v bool) Value     { return Value{kind: KindBool, b: v} }

func List(items ...Value) Value {
	return Value{kind: KindList, list: append([]Value{}, items...)}
}

func Map(fields map[string]Value) Value {
	m := make(map[string]Value, len(fields))
	for key, value := range fields {
		m[key] = value
	}
	return Value{kind: KindMap, m: m}
}

func (v Value) Kind() Kind    { return v.kind }
func (v Value) IsValid() bool { return v.kind != KindInvalid }

func (v Value) AsInt() (int64, bool)     { return v.i, v.kind == KindInt }
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }
func (v Value) AsBool() (bool, bool)     { return v.b, v.kind == KindBool }

func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return append([]Value{}, v.list...), true
}

func (v Value) AsMap() (map[string]Value, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	out := make(map[string]Value, len(v.m))
	for key, value := range v.m {
		out[key] = value
	}
	return out, true
}

// Field returns a map member. It reports false for missing keys and for
// non-map values.
func (v Value) Field(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	field, ok := v.m[key]
	return field, ok
}

// Len is the number of list items or map members, zero otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.m)
	default:
		return 0
	}
}

// Keys returns the map member names sorted.
func (v Value) Keys() []string {
	if v.kind != KindMap {
		return nil
	}
	keys := make([]string, 0, len(v.m))
	for key := range v.m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Equal compares kind and content recursively.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i == other.i
	case KindString:
		return v.s == other.s
	case KindBool:
		return v.b == other.b
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.m) != len(other.m) {
			return false
		}
		for key, value := range v.m {
			otherValue, ok := other.m[key]
			if !ok || !value.Equal(otherValue) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Interface converts to plain Go values: int64, string, bool, []any and
// map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindString:
		return v.s
	case KindBool:
		return v.b
	case KindList:
		out := make([]any, 0, len(v.list))
		for _, item := range v.list {
			out = append(out, item.Interface())
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for key, value := range v.m {
			out[key] = value.Interface()
		}
		return out
	default:
		return nil
	}
}

func (v Value) String() string {
	data, err := v.MarshalJSON()
	if err != nil {
		return "<invalid>"
	}
	return string(data)
}

// MarshalJSON writes map members in sorted key order.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInt:
		return []byte(strconv.FormatInt(v.i, 10)), nil
	case KindString:
		return json.Marshal(v.s)
	case KindBool:
		return json.Marshal(v.b)
	case KindList:
		items := v.list
		if items == nil {
			items = []Value{}
		}
		return json.Marshal(items)
	case KindMap:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, key := range v.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			name, err := json.Marshal(key)
			if err != nil {
				return nil, err
			}
			value, err := v.m[key].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(name)
			buf.WriteByte(':')
			buf.Write(value)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("cannot encode invalid metadata value")
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

// PathError reports the location of a value that does not fit the variant.
type PathError struct {
	Path string
	Msg  string
}

func (e *PathError) Error() string {
	if e.Path == "" {
		return e.Msg
	}
	return e.Path + ": " + e.Msg
}

// Decode parses raw JSON into a Value. Fractional numbers and nulls are
// rejected with a *PathError.
func Decode(data []byte) (Value, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var raw any
	if err := decoder.Decode(&raw); err != nil {
		return Value{}, &PathError{Msg: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return FromAny(raw)
}

// FromAny converts a value produced by encoding/json (with or without
// UseNumber) into a Value.
func FromAny(raw any) (Value, error) {
	return fromAny(raw, "")
}

func fromAny(raw any, path string) (Value, error) {
	switch typed := raw.(type) {
	case nil:
		return Value{}, &PathError{Path: path, Msg: "null is not a metadata value"}
	case bool:
		return Bool(typed), nil
	case string:
		return String(typed), nil
	case json.Number:
		n, err := strconv.ParseInt(typed.String(), 10, 64)
		if err != nil {
			return Value{}, &PathError{Path: path, Msg: fmt.Sprintf("number %s is not an integer", typed)}
		}
		return Int(n), nil
	case float64:
		if typed != float64(int64(typed)) {
			return Value{}, &PathError{Path: path, Msg: fmt.Sprintf("number %v is not an integer", typed)}
		}
		return Int(int64(typed)), nil
	case int:
		return Int(int64(typed)), nil
	case int64:
		return Int(typed), nil
	case []any:
		items := make([]Value, 0, len(typed))
		for i, item := range typed {
			value, err := fromAny(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return Value{}, err
			}
			items = append(items, value)
		}
		return Value{kind: KindList, list: items}, nil
	case map[string]any:
		fields := make(map[string]Value, len(typed))
		for key, item := range typed {
			value, err := fromAny(item, joinPath(path, key))
			if err != nil {
				return Value{}, err
			}
			fields[key] = value
		}
		return Value{kind: KindMap, m: fields}, nil
	default:
		return Value{}, &PathError{Path: path, Msg: fmt.Sprintf("unsupported value type %T", raw)}
	}
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	if strings.ContainsAny(key, `."[]`) {
		return fmt.Sprintf("%s[%q]", path, key)
	}
	return path + "." + key
}
