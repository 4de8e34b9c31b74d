/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package attr

import (
	"fmt"
	"strings"

	"github.com/suparena/entitymapper/errors"
)

// Type is a primitive attribute type tag.
type Type int

const (
	Invalid Type = iota
	Integer
	Float
	Text
	Boolean
	ByteSet
	TextSet
	NumberSet
	List
	Map
	Timestamp
	// AutoIncrement is an Integer hash key allocated from an atomic counter.
	AutoIncrement
)

var typeNames = map[Type]string{
	Integer:       "integer",
	Float:         "float",
	Text:          "text",
	Boolean:       "boolean",
	ByteSet:       "byteset",
	TextSet:       "textset",
	NumberSet:     "numberset",
	List:          "list",
	Map:           "map",
	Timestamp:     "timestamp",
	AutoIncrement: "autoincrement",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Shape is the wire representation a descriptor resolves to. It mirrors the
// primitive types, with AutoIncrement folded into ShapeInteger.
func (t Type) Shape() Shape {
	switch t {
	case AutoIncrement:
		return ShapeInteger
	case Integer, Float, Text, Boolean, ByteSet, TextSet, NumberSet, List, Map, Timestamp:
		return Shape(t)
	}
	return ShapeInvalid
}

// ParseType resolves a type name as written in schema declaration files.
func ParseType(name string) (Type, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for t, tn := range typeNames {
		if tn == n {
			return t, nil
		}
	}
	switch n {
	case "int", "number":
		return Integer, nil
	case "string", "str":
		return Text, nil
	case "bool":
		return Boolean, nil
	case "datetime", "time":
		return Timestamp, nil
	case "stringset":
		return TextSet, nil
	case "binaryset":
		return ByteSet, nil
	case "autoinc":
		return AutoIncrement, nil
	}
	return Invalid, errors.NewSchemaError("", "unknown attribute type %q", name)
}

// Shape identifies how a value is laid out on the wire.
type Shape int

const (
	ShapeInvalid Shape = iota
	ShapeInteger
	ShapeFloat
	ShapeText
	ShapeBoolean
	ShapeByteSet
	ShapeTextSet
	ShapeNumberSet
	ShapeList
	ShapeMap
	ShapeTimestamp
)

func (s Shape) String() string {
	if s == ShapeInvalid {
		return "invalid"
	}
	return Type(s).String()
}

// Numeric reports whether the shape is stored as a DynamoDB number.
func (s Shape) Numeric() bool {
	return s == ShapeInteger || s == ShapeFloat || s == ShapeBoolean
}

// KeyType returns the DynamoDB scalar type letter used when the shape is a
// table key. Structured and timestamp shapes are stored as text.
func (s Shape) KeyType() string {
	if s.Numeric() {
		return "N"
	}
	return "S"
}

// Descriptor declares an attribute: either a primitive Type or a Validator
// that coerces and checks the value. The zero Descriptor is invalid.
type Descriptor struct {
	typ       Type
	validator Validator
}

// Of returns a descriptor for a primitive type.
func Of(t Type) Descriptor {
	return Descriptor{typ: t}
}

// Validated returns a descriptor backed by a validator.
func Validated(v Validator) Descriptor {
	return Descriptor{validator: v}
}

// Type returns the primitive type, or Invalid for validator descriptors.
func (d Descriptor) Type() Type { return d.typ }

// Validator returns the validator, or nil for primitive descriptors.
func (d Descriptor) Validator() Validator { return d.validator }

// IsAutoIncrement reports whether the descriptor is the surrogate counter key type.
func (d Descriptor) IsAutoIncrement() bool { return d.validator == nil && d.typ == AutoIncrement }

// Shape resolves the wire shape of the descriptor.
func (d Descriptor) Shape() (Shape, error) {
	if d.validator != nil {
		if s := d.validator.Shape(); s != ShapeInvalid {
			return s, nil
		}
		return ShapeInvalid, errors.NewSchemaError("", "validator %s has no wire shape", d.validator)
	}
	if s := d.typ.Shape(); s != ShapeInvalid {
		return s, nil
	}
	return ShapeInvalid, errors.NewSchemaError("", "invalid attribute descriptor %s", d.typ)
}

func (d Descriptor) String() string {
	if d.validator != nil {
		return fmt.Sprintf("%v", d.validator)
	}
	return d.typ.String()
}
