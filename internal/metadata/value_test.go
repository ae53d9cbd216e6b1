package metadata

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeNestedValueKeepsTypes(t *testing.T) {
	v, err := Decode([]byte(`{"key1": "some string", "key2": 42, "flags": [true, 3, "x"]}`))
	require.NoError(t, err)
	require.Equal(t, KindMap, v.Kind())

	key1, ok := v.Field("key1")
	require.True(t, ok)
	s, ok := key1.AsString()
	require.True(t, ok)
	assert.Equal(t, "some string", s)

	key2, ok := v.Field("key2")
	require.True(t, ok)
	n, ok := key2.AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(42), n)

	flags, ok := v.Field("flags")
	require.True(t, ok)
	items, ok := flags.AsList()
	require.True(t, ok)
	require.Len(t, items, 3)
	assert.Equal(t, KindBool, items[0].Kind())
	assert.Equal(t, KindInt, items[1].Kind())
	assert.Equal(t, KindString, items[2].Kind())

	want := Map(map[string]Value{
		"key1":  String("some string"),
		"key2":  Int(42),
		"flags": List(Bool(true), Int(3), String("x")),
	})
	assert.True(t, v.Equal(want))
}

func TestDecodeRejectsFractionsAndNulls(t *testing.T) {
	_, err := Decode([]byte(`{"ratio": 0.5}`))
	var pathErr *PathError
	require.ErrorAs(t, err, &pathErr)
	assert.Equal(t, "ratio", pathErr.Path)

	_, err = Decode([]byte(`[1, null]`))
	require.ErrorAs(t, err, &pathErr)
	assert.Equal(t, "[1]", pathErr.Path)
}

func TestEqualIsTypeExact(t *testing.T) {
	assert.False(t, Int(1).Equal(Bool(true)))
	assert.False(t, String("1").Equal(Int(1)))
	assert.True(t, List(Int(1), Int(2)).Equal(List(Int(1), Int(2))))
	assert.False(t, List(Int(1), Int(2)).Equal(List(Int(2), Int(1))))
}

func TestMarshalJSONSortsMapKeys(t *testing.T) {
	v := Map(map[string]Value{"b": Int(2), "a": List(), "c": Map(nil)})
	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"a":[],"b":2,"c":{}}`, string(data))

	var back Value
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Equal(v))
}

func TestAccessorsReturnCopies(t *testing.T) {
	v := Map(map[string]Value{"a": Int(1)})
	m, ok := v.AsMap()
	require.True(t, ok)
	m["b"] = Int(2)
	assert.Equal(t, 1, v.Len())

	l := List(Int(1))
	items, _ := l.AsList()
	items[0] = Int(9)
	first, _ := l.AsList()
	n, _ := first[0].AsInt()
	assert.Equal(t, int64(1), n)
}

func TestInterface(t *testing.T) {
	v := Map(map[string]Value{"n": Int(3), "l": List(String("x"))})
	assert.Equal(t, map[string]any{"n": int64(3), "l": []any{"x"}}, v.Interface())
}
