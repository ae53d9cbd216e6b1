package mcg

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/mcgtools/mcg/internal/metadata"
)

// Member is one key/value pair of a JSON object, in document order.
type Member struct {
	Key   string
	Value json.RawMessage
}

// Object is a JSON object that keeps its member order when encoded.
type Object []Member

func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, member := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(member.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if len(member.Value) == 0 {
			buf.WriteString("null")
			continue
		}
		buf.Write(member.Value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Add appends a member, marshalling value.
func (o *Object) Add(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	*o = append(*o, Member{Key: key, Value: raw})
	return nil
}

// DecodeObject splits a JSON object into its members without reordering
// or collapsing repeated keys. field names the location for errors.
func DecodeObject(data []byte, field string) (Object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, &FormatError{Field: field, Msg: "invalid JSON", Err: err}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, formatErrorf(field, "expected an object, got %s", describe(data))
	}

	var members Object
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, &FormatError{Field: field, Msg: "invalid JSON", Err: err}
		}
		key, ok := tok.(string)
		if !ok {
			return nil, formatErrorf(field, "expected an object key")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, &FormatError{Field: Path(field, key), Msg: "invalid JSON", Err: err}
		}
		members = append(members, Member{Key: key, Value: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, &FormatError{Field: field, Msg: "invalid JSON", Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &FormatError{Field: field, Msg: "unexpected data after document", Err: err}
	}
	return members, nil
}

// DecodeArray splits a JSON array into its raw elements.
func DecodeArray(data []byte, field string) ([]json.RawMessage, error) {
	if IsNull(data) {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, formatErrorf(field, "expected an array, got %s", describe(data))
	}
	return items, nil
}

// Get returns the value of the last member named key. Later members win,
// matching how a JSON object with repeated keys is usually read.
func (o Object) Get(key string) (json.RawMessage, bool) {
	for i := len(o) - 1; i >= 0; i-- {
		if o[i].Key == key {
			return o[i].Value, true
		}
	}
	return nil, false
}

// Has reports whether key is present, even with a null value.
func (o Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// IsNull reports an absent or literal null value.
func IsNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Path joins an object member onto a field location.
func Path(field, key string) string {
	if field == "" {
		return key
	}
	return field + "." + key
}

// KeyPath addresses a member whose key is data, such as a function name.
func KeyPath(field, key string) string {
	return fmt.Sprintf("%s[%s]", field, strconv.Quote(key))
}

// IndexPath addresses an array element.
func IndexPath(field string, i int) string {
	return fmt.Sprintf("%s[%d]", field, i)
}

func (o Object) Bool(key, field string, def bool) (bool, error) {
	raw, ok := o.Get(key)
	if !ok || IsNull(raw) {
		return def, nil
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, formatErrorf(Path(field, key), "expected a boolean, got %s", describe(raw))
	}
	return v, nil
}

func (o Object) Int(key, field string, def int) (int, error) {
	raw, ok := o.Get(key)
	if !ok || IsNull(raw) {
		return def, nil
	}
	var v int
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, formatErrorf(Path(field, key), "expected an integer, got %s", describe(raw))
	}
	return v, nil
}

func (o Object) String(key, field string) (string, error) {
	raw, ok := o.Get(key)
	if !ok || IsNull(raw) {
		return "", nil
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", formatErrorf(Path(field, key), "expected a string, got %s", describe(raw))
	}
	return v, nil
}

// Strings reads a list of strings. Absent and null both mean empty.
func (o Object) Strings(key, field string) ([]string, error) {
	raw, ok := o.Get(key)
	if !ok || IsNull(raw) {
		return nil, nil
	}
	return decodeStrings(raw, Path(field, key))
}

func decodeStrings(raw json.RawMessage, field string) ([]string, error) {
	var v []string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, formatErrorf(field, "expected a list of strings, got %s", describe(raw))
	}
	return v, nil
}

// Meta reads a metadata object into entries in document order. A null or
// absent object yields no entries.
func (o Object) Meta(key, field string) ([]metadata.Entry, error) {
	raw, ok := o.Get(key)
	if !ok || IsNull(raw) {
		return nil, nil
	}
	return DecodeMeta(raw, Path(field, key))
}

// DecodeMeta converts a JSON object into metadata entries. Repeated keys
// keep their first position and take the last value.
func DecodeMeta(raw json.RawMessage, field string) ([]metadata.Entry, error) {
	members, err := DecodeObject(raw, field)
	if err != nil {
		return nil, err
	}
	var entries []metadata.Entry
	index := make(map[string]int, len(members))
	for _, member := range members {
		value, err := metadata.Decode(member.Value)
		if err != nil {
			return nil, metaError(KeyPath(field, member.Key), err)
		}
		if i, seen := index[member.Key]; seen {
			entries[i].Data = value
			continue
		}
		index[member.Key] = len(entries)
		entries = append(entries, metadata.NewEntry(member.Key, value))
	}
	return entries, nil
}

// EncodeMeta writes entries as a JSON object in entry order.
func EncodeMeta(entries []metadata.Entry) (Object, error) {
	meta := make(Object, 0, len(entries))
	for _, entry := range entries {
		if err := meta.Add(entry.Key, entry.Data); err != nil {
			return nil, err
		}
	}
	return meta, nil
}

func metaError(field string, err error) error {
	var pathErr *metadata.PathError
	if errors.As(err, &pathErr) {
		if pathErr.Path != "" {
			field = joinMetaPath(field, pathErr.Path)
		}
		return &FormatError{Field: field, Msg: pathErr.Msg}
	}
	return &FormatError{Field: field, Msg: "invalid metadata", Err: err}
}

func joinMetaPath(field, sub string) string {
	if sub[0] == '[' {
		return field + sub
	}
	return field + "." + sub
}

func describe(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "nothing"
	}
	switch trimmed[0] {
	case '{':
		return "an object"
	case '[':
		return "an array"
	case '"':
		return "a string"
	case 't', 'f':
		return "a boolean"
	case 'n':
		return "null"
	default:
		return "a number"
	}
}
