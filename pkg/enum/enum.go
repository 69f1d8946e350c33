// Package enum registers the string values of an enum-like type so they can
// be parsed back from untrusted input, for example a status filter in a query
// string.
package enum

import (
	"fmt"
	"reflect"
)

// registry maps an enum type name to its known values. Registration happens
// in package variable initializers, before anything concurrent runs.
var registry = map[string]any{}

type valueSet[T comparable] struct {
	byName map[string]T
}

// New registers value under its type and returns it, so enum constants can be
// declared as `var StatusActive = enum.New(Status("active"))`.
func New[T comparable](value T) T {
	v := reflect.ValueOf(value)
	name := v.Type().Name()
	if _, ok := registry[name]; !ok {
		registry[name] = valueSet[T]{byName: make(map[string]T)}
	}

	registry[name].(valueSet[T]).byName[v.String()] = value
	return value
}

// ToEnum parses s into a registered value of T. Unknown strings and
// unregistered types are errors, never a zero value silently accepted.
func ToEnum[T comparable](s string) (T, error) {
	var zero T
	e, ok := registry[reflect.TypeOf(zero).Name()]
	if !ok {
		return zero, fmt.Errorf("not found enum type %T", zero)
	}

	value, ok := e.(valueSet[T]).byName[s]
	if !ok {
		return zero, fmt.Errorf("not found value %s in enum %T", s, zero)
	}

	return value, nil
}
