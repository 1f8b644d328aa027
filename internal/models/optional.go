package models

import (
	"bytes"
	"encoding/json"
)

// Optional is a three-state field for partial updates: a key that is absent
// from the request body leaves Set false, an explicit JSON null sets Set with
// Valid false, and a value sets both. This makes "clear the assignee" and
// "leave the assignee alone" distinguishable.
type Optional[T any] struct {
	Set   bool
	Valid bool
	Value T
}

// UnmarshalJSON implements json.Unmarshaler. It is only invoked for keys
// present in the payload, which is what carries the presence information.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Valid = false
		var zero T
		o.Value = zero
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

// MarshalJSON implements json.Marshaler
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// Ptr returns the value as a pointer, nil when unset or null
func (o Optional[T]) Ptr() *T {
	if !o.Set || !o.Valid {
		return nil
	}
	v := o.Value
	return &v
}
