// Package canonicalize provides the deterministic serialization that every
// SATOR anchor hash is computed over.
//
// The output is JSON text with:
//  1. Map keys sorted by their raw UTF-8 bytes.
//  2. No insignificant whitespace.
//  3. Numbers in ECMAScript Number.prototype.toString form (RFC 8785 §3.2.2.3).
//  4. Strings escaped the way JSON.stringify escapes them (no HTML escaping).
//  5. Map entries whose value is Undefined omitted.
//
// Changing any of these rules invalidates every anchor written before the
// change, so they are fixed for the life of the protocol.
package canonicalize

import (
	"bytes"
	"crypto/sha256"
	"encoding"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"

	"github.com/gowebpki/jcs"
)

var (
	// ErrInvalidNumber is returned for NaN and ±Inf, which have no JSON form.
	ErrInvalidNumber = errors.New("canonicalize: invalid number")
	// ErrUnsupportedType is returned for values with no structured-data meaning
	// (channels, functions, complex numbers, maps with non-string keys).
	ErrUnsupportedType = errors.New("canonicalize: unsupported type")
)

type undefined struct{}

// Undefined marks a map value as absent. Map entries holding it are dropped;
// anywhere else it serializes as null.
var Undefined any = undefined{}

var (
	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// Canonicalize returns the canonical serialization of v.
func Canonicalize(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := appendValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// String returns the canonical serialization of v as a string.
func String(v any) (string, error) {
	b, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Hash returns the SHA-256 digest of the canonical serialization of v.
func Hash(v any) ([32]byte, error) {
	b, err := Canonicalize(v)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(b), nil
}

// HashHex returns the lowercase hex SHA-256 digest of the canonical serialization of v.
func HashHex(v any) (string, error) {
	h, err := Hash(v)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h[:]), nil
}

func appendValue(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case nil, undefined:
		buf.WriteString("null")
		return nil
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case string:
		appendQuoted(buf, t)
		return nil
	case json.Number:
		f, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidNumber, t.String())
		}
		return appendFloat(buf, f)
	case float64:
		return appendFloat(buf, t)
	case float32:
		return appendFloat(buf, float64(t))
	case int:
		return appendFloat(buf, float64(t))
	case int64:
		return appendFloat(buf, float64(t))
	case int32:
		return appendFloat(buf, float64(t))
	case uint64:
		return appendFloat(buf, float64(t))
	case uint32:
		return appendFloat(buf, float64(t))
	case []any:
		buf.WriteByte('[')
		for i, elem := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := appendValue(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k, val := range t {
			if _, skip := val.(undefined); skip {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			appendQuoted(buf, k)
			buf.WriteByte(':')
			if err := appendValue(buf, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case json.RawMessage:
		return appendViaJSON(buf, t)
	}
	return appendReflect(buf, reflect.ValueOf(v))
}

func appendReflect(buf *bytes.Buffer, rv reflect.Value) error {
	if !rv.IsValid() {
		buf.WriteString("null")
		return nil
	}
	// Types with their own JSON or text form are serialized through it, the
	// same way encoding/json would see them.
	if rv.Type().Implements(jsonMarshalerType) || rv.Type().Implements(textMarshalerType) {
		return appendViaJSON(buf, rv.Interface())
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			buf.WriteString("null")
			return nil
		}
		return appendValue(buf, rv.Elem().Interface())
	case reflect.Bool:
		return appendValue(buf, rv.Bool())
	case reflect.String:
		appendQuoted(buf, rv.String())
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return appendFloat(buf, float64(rv.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return appendFloat(buf, float64(rv.Uint()))
	case reflect.Float32, reflect.Float64:
		return appendFloat(buf, rv.Float())
	case reflect.Slice:
		if rv.IsNil() {
			buf.WriteString("null")
			return nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			// []byte keeps its encoding/json form (base64 string).
			return appendViaJSON(buf, rv.Interface())
		}
		fallthrough
	case reflect.Array:
		buf.WriteByte('[')
		for i := 0; i < rv.Len(); i++ {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := appendValue(buf, rv.Index(i).Interface()); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("%w: map key %s", ErrUnsupportedType, rv.Type().Key())
		}
		if rv.IsNil() {
			buf.WriteString("null")
			return nil
		}
		entries := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			entries[iter.Key().String()] = iter.Value().Interface()
		}
		return appendValue(buf, entries)
	case reflect.Struct:
		return appendViaJSON(buf, rv.Interface())
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, rv.Type())
	}
}

// appendViaJSON marshals v with encoding/json to honor struct tags and custom
// marshalers, then re-walks the generic result so ordering and formatting
// follow the canonical rules rather than encoding/json's.
func appendViaJSON(buf *bytes.Buffer, v any) error {
	var raw []byte
	if msg, ok := v.(json.RawMessage); ok {
		raw = msg
	} else {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("canonicalize: pre-marshal failed: %w", err)
		}
		raw = b
	}

	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return fmt.Errorf("canonicalize: intermediate decode failed: %w", err)
	}
	return appendValue(buf, generic)
}

func appendFloat(buf *bytes.Buffer, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidNumber, f)
	}
	s, err := jcs.NumberToJSON(f)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidNumber, err)
	}
	buf.WriteString(s)
	return nil
}
