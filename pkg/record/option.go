package record

import "encoding/json"

// Option is a value that may be absent. On the wire it occupies a tag byte
// plus a fixed value slot whether or not the value is present.
type Option[T any] struct {
	value T
	valid bool
}

func Some[T any](v T) Option[T] {
	return Option[T]{value: v, valid: true}
}

func None[T any]() Option[T] {
	return Option[T]{}
}

// Get returns the value and whether it is present.
func (o Option[T]) Get() (T, bool) {
	return o.value, o.valid
}

func (o Option[T]) IsSome() bool {
	return o.valid
}

// OrZero returns the value, or the zero value when absent.
func (o Option[T]) OrZero() T {
	return o.value
}

// MarshalJSON encodes an absent option as null.
func (o Option[T]) MarshalJSON() ([]byte, error) {
	if !o.valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

func (o *Option[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Option[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}
