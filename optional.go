package tapemachine

import (
	"bytes"
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Optional is a tagged present/absent value.
// The zero Optional is absent.
type Optional[T comparable] struct {
	value T
	ok    bool
}

// Some returns a present Optional holding v.
func Some[T comparable](v T) Optional[T] {
	return Optional[T]{value: v, ok: true}
}

// None returns an absent Optional.
func None[T comparable]() Optional[T] {
	return Optional[T]{}
}

// Get returns the held value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.ok
}

// Present reports whether a value is held.
func (o Optional[T]) Present() bool {
	return o.ok
}

// Equal reports whether both are absent or both hold the same value.
func (o Optional[T]) Equal(other Optional[T]) bool {
	return o.ok == other.ok && (!o.ok || o.value == other.value)
}

// MarshalJSON encodes an absent value as null.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Optional[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// MarshalYAML encodes an absent value as null.
func (o Optional[T]) MarshalYAML() (any, error) {
	if !o.ok {
		return nil, nil
	}
	return o.value, nil
}

func (o *Optional[T]) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!null" {
		*o = Optional[T]{}
		return nil
	}
	var v T
	if err := node.Decode(&v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}
