package entities

import (
	"bytes"
	"encoding/json"
)

// Optional distinguishes an omitted value from an explicit null and from a set value.
// The zero value is omitted.
type Optional[T any] struct {
	present bool
	null    bool
	value   T
}

func Some[T any](v T) Optional[T] { return Optional[T]{present: true, value: v} }

func Null[T any]() Optional[T] { return Optional[T]{present: true, null: true} }

func (o Optional[T]) Present() bool { return o.present }

func (o Optional[T]) IsNull() bool { return o.present && o.null }

// Get returns the value when it is set and not null.
func (o Optional[T]) Get() (T, bool) {
	if o.present && !o.null {
		return o.value, true
	}
	var zero T
	return zero, false
}

// UnmarshalJSON is only called for keys present in the document.
func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.present = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.null = true
		return nil
	}
	o.null = false
	return json.Unmarshal(b, &o.value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.present || o.null {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}
