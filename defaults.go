/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitymapper

import (
	"reflect"

	"github.com/google/uuid"
)

// Default is the initial value of an attribute on a freshly built entity:
// either a constant, deep-copied for every entity, or a producer called
// once per entity.
type Default struct {
	value    any
	producer func() any
}

// Constant returns a Default holding v.
func Constant(v any) Default {
	return Default{value: v}
}

// Producer returns a Default computed by f.
func Producer(f func() any) Default {
	return Default{producer: f}
}

// DefaultUUID produces a new random UUID string per entity.
func DefaultUUID() Default {
	return Producer(func() any { return uuid.NewString() })
}

func (d Default) resolve() any {
	if d.producer != nil {
		return d.producer()
	}
	return deepCopy(d.value)
}

// deepCopy copies maps and slices recursively so a constant default is
// never shared between entities.
func deepCopy(v any) any {
	if v == nil {
		return nil
	}
	return copyValue(reflect.ValueOf(v)).Interface()
}

func copyValue(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), copyValue(iter.Value()))
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(copyValue(v.Index(i)))
		}
		return out
	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		inner := copyValue(v.Elem())
		out := reflect.New(v.Type()).Elem()
		out.Set(inner)
		return out
	}
	return v
}
