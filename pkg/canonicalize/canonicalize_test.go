package canonicalize

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize_Sorting(t *testing.T) {
	input := map[string]interface{}{
		"c": 3,
		"a": 1,
		"b": 2,
	}

	b, err := Canonicalize(input)
	if err != nil {
		t.Fatalf("Canonicalize failed: %v", err)
	}

	expected := `{"a":1,"b":2,"c":3}`
	if string(b) != expected {
		t.Errorf("Expected %s, got %s", expected, string(b))
	}
}

func TestCanonicalize_RecursiveSorting(t *testing.T) {
	input := map[string]interface{}{
		"z": map[string]interface{}{
			"y": "foo",
			"x": "bar",
		},
		"a": []interface{}{map[string]interface{}{"k2": true, "k1": nil}},
	}

	s, err := String(input)
	require.NoError(t, err)
	assert.Equal(t, `{"a":[{"k1":null,"k2":true}],"z":{"x":"bar","y":"foo"}}`, s)
}

func TestCanonicalize_KeysSortedByRawBytes(t *testing.T) {
	// 'B' (0x42) < 'a' (0x61) < 'z' (0x7a) < 'é' (0xc3 0xa9)
	input := map[string]any{"é": 4, "z": 3, "a": 2, "B": 1}

	s, err := String(input)
	require.NoError(t, err)
	assert.Equal(t, `{"B":1,"a":2,"z":3,"é":4}`, s)
}

func TestCanonicalize_Scalars(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"nil", nil, `null`},
		{"undefined top level", Undefined, `null`},
		{"true", true, `true`},
		{"false", false, `false`},
		{"int", 42, `42`},
		{"negative int", int64(-7), `-7`},
		{"uint8", uint8(200), `200`},
		{"integral float", 1.0, `1`},
		{"fraction", 123.456, `123.456`},
		{"negative zero", math.Copysign(0, -1), `0`},
		{"small", 0.000001, `0.000001`},
		{"smaller", 1e-7, `1e-7`},
		{"large", 1e21, `1e+21`},
		{"below exponent threshold", 1e20, `100000000000000000000`},
		{"json number trailing zero", json.Number("1.50"), `1.5`},
		{"json number exponent", json.Number("2E3"), `2000`},
		{"beyond 2^53", int64(9007199254740993), `9007199254740992`},
		{"float32", float32(0.5), `0.5`},
		{"string", "hello", `"hello"`},
		{"named string", Role("admin"), `"admin"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := String(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s)
		})
	}
}

// Role is a named string used to exercise the reflection path.
type Role string

func TestCanonicalize_StringEscaping(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"quote and backslash", `a"b\c`, `"a\"b\\c"`},
		{"short escapes", "\b\f\n\r\t", `"\b\f\n\r\t"`},
		{"other control", "\x01\x1f", `"\u0001\u001f"`},
		{"del is literal", "\x7f", "\"\x7f\""},
		{"no html escaping", "<script>alert('xss')</script> &", `"<script>alert('xss')</script> &"`},
		{"line separator literal", "a\u2028b", "\"a\u2028b\""},
		{"unicode", "こんにちは🚀", `"こんにちは🚀"`},
		{"invalid utf8", "a\xffb", "\"a\ufffdb\""},
		{"empty", "", `""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := String(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s)
		})
	}
}

func TestCanonicalize_UndefinedDroppedNullKept(t *testing.T) {
	input := map[string]any{
		"present": 1,
		"absent":  Undefined,
		"null":    nil,
		"list":    []any{Undefined, 2},
	}

	s, err := String(input)
	require.NoError(t, err)
	assert.Equal(t, `{"list":[null,2],"null":null,"present":1}`, s)
}

func TestCanonicalize_StructUsesJSONTags(t *testing.T) {
	type reading struct {
		Sensor string  `json:"sensor"`
		Value  float64 `json:"value"`
		Note   string  `json:"note,omitempty"`
		Zone   string  `json:"zone"`
	}

	s, err := String(reading{Sensor: "PT-101", Value: 2.5, Zone: "A"})
	require.NoError(t, err)
	assert.Equal(t, `{"sensor":"PT-101","value":2.5,"zone":"A"}`, s)
}

func TestCanonicalize_TypedMapsMatchGenericMaps(t *testing.T) {
	typed := map[string]string{"b": "2", "a": "1"}
	generic := map[string]any{"a": "1", "b": "2"}

	h1, err := HashHex(typed)
	require.NoError(t, err)
	h2, err := HashHex(generic)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	slice, err := String([]string{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, `["x","y"]`, slice)
}

func TestCanonicalize_MarshalerTypes(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	s, err := String(map[string]any{"at": ts})
	require.NoError(t, err)
	assert.Equal(t, `{"at":"2026-01-02T03:04:05Z"}`, s)

	raw, err := String(json.RawMessage(`{"b": 1, "a": [true, null]}`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":[true,null],"b":1}`, raw)
}

func TestCanonicalize_Pointers(t *testing.T) {
	v := 3
	var nilPtr *int

	s, err := String(map[string]any{"p": &v, "n": nilPtr})
	require.NoError(t, err)
	assert.Equal(t, `{"n":null,"p":3}`, s)
}

func TestCanonicalize_Errors(t *testing.T) {
	_, err := Canonicalize(math.NaN())
	assert.True(t, errors.Is(err, ErrInvalidNumber))

	_, err = Canonicalize(map[string]any{"x": math.Inf(1)})
	assert.True(t, errors.Is(err, ErrInvalidNumber))

	_, err = Canonicalize(make(chan int))
	assert.True(t, errors.Is(err, ErrUnsupportedType))

	_, err = Canonicalize(map[int]string{1: "a"})
	assert.True(t, errors.Is(err, ErrUnsupportedType))
}

func TestHash_Stability(t *testing.T) {
	v1 := map[string]interface{}{"a": 1, "b": 2}

	type S struct {
		B int `json:"b"`
		A int `json:"a"`
	}
	v2 := S{A: 1, B: 2}

	h1, err := HashHex(v1)
	require.NoError(t, err)
	h2, err := HashHex(v2)
	require.NoError(t, err)

	if h1 != h2 {
		t.Errorf("Hash mismatch for semantically identical inputs: %s != %s", h1, h2)
	}
	// sha256(`{"a":1,"b":2}`)
	assert.Equal(t, "43258cff783fe7036d8a43033f830adfc60ec037382473548ac742b888292777", h1)
}

func TestCanonicalize_JSONDocumentKeyOrder(t *testing.T) {
	var a, b any
	dec := func(s string, out *any) {
		d := json.NewDecoder(strings.NewReader(s))
		d.UseNumber()
		require.NoError(t, d.Decode(out))
	}
	dec(`{"sensor":"PT-101","readings":[1,2.50,3],"meta":{"unit":"bar","source":"scada"}}`, &a)
	dec(`{"meta":{"source":"scada","unit":"bar"},"readings":[1,2.5,3],"sensor":"PT-101"}`, &b)

	sa, err := String(a)
	require.NoError(t, err)
	sb, err := String(b)
	require.NoError(t, err)
	assert.Equal(t, sa, sb)
	assert.Equal(t, `{"meta":{"source":"scada","unit":"bar"},"readings":[1,2.5,3],"sensor":"PT-101"}`, sa)
}
