/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package attr

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-openapi/strfmt"
	"github.com/suparena/entitymapper/errors"
)

// Validator coerces and checks a native value. Shape reports the wire shape
// values are stored as; constraint validators that only check a value report
// ShapeInvalid and must be combined with a shaped one through All.
//
// Attribute validators never see values that are stored as absent (nil,
// empty text, empty sets), so constraints such as Length or Format do not
// enforce presence. Inside ListOf and MapOf every element is checked.
type Validator interface {
	Shape() Shape
	Validate(v any) (any, error)
}

type validatorFunc struct {
	name  string
	shape Shape
	fn    func(v any) (any, error)
}

func (f *validatorFunc) Shape() Shape                { return f.shape }
func (f *validatorFunc) Validate(v any) (any, error) { return f.fn(v) }
func (f *validatorFunc) String() string              { return f.name }

// Func wraps a plain function as a validator with the given shape.
func Func(shape Shape, fn func(v any) (any, error)) Validator {
	return &validatorFunc{name: "func", shape: shape, fn: fn}
}

// Coerce converts values to the canonical representation of t.
func Coerce(t Type) Validator {
	d := Of(t)
	return &validatorFunc{
		name:  fmt.Sprintf("coerce(%s)", t),
		shape: t.Shape(),
		fn: func(v any) (any, error) {
			return Normalize(d, v)
		},
	}
}

// All chains validators, feeding each output to the next. The shape is the
// first non-invalid shape in the chain.
func All(vs ...Validator) Validator {
	shape := ShapeInvalid
	names := make([]string, 0, len(vs))
	for _, v := range vs {
		if shape == ShapeInvalid {
			shape = v.Shape()
		}
		names = append(names, fmt.Sprintf("%v", v))
	}
	return &validatorFunc{
		name:  "all(" + strings.Join(names, ", ") + ")",
		shape: shape,
		fn: func(v any) (any, error) {
			var err error
			for _, step := range vs {
				if v, err = step.Validate(v); err != nil {
					return nil, err
				}
			}
			return v, nil
		},
	}
}

func constraint(name string, check func(v any) error) Validator {
	return &validatorFunc{
		name:  name,
		shape: ShapeInvalid,
		fn: func(v any) (any, error) {
			if v == nil {
				return nil, nil
			}
			if err := check(v); err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

// Length bounds the length of text (in runes), sets, lists and maps.
// A negative max means unbounded.
func Length(min, max int) Validator {
	return constraint(fmt.Sprintf("length(%d, %d)", min, max), func(v any) error {
		var n int
		if s, ok := v.(string); ok {
			n = utf8.RuneCountInString(s)
		} else {
			rv := reflect.ValueOf(v)
			switch rv.Kind() {
			case reflect.Slice, reflect.Map, reflect.Array:
				n = rv.Len()
			default:
				return errors.NewValidationError("", fmt.Sprintf("%T has no length", v))
			}
		}
		if n < min {
			return errors.NewValidationError("", fmt.Sprintf("length must be at least %d", min))
		}
		if max >= 0 && n > max {
			return errors.NewValidationError("", fmt.Sprintf("length must be at most %d", max))
		}
		return nil
	})
}

// Min checks a number is at least min.
func Min(min float64) Validator {
	return bound(fmt.Sprintf("min(%v)", min), func(f float64) bool { return f >= min }, fmt.Sprintf("value must be at least %v", min))
}

// Max checks a number is at most max.
func Max(max float64) Validator {
	return bound(fmt.Sprintf("max(%v)", max), func(f float64) bool { return f <= max }, fmt.Sprintf("value must be at most %v", max))
}

// InRange checks min <= number <= max.
func InRange(min, max float64) Validator {
	return bound(fmt.Sprintf("range(%v, %v)", min, max), func(f float64) bool { return f >= min && f <= max },
		fmt.Sprintf("value must be between %v and %v", min, max))
}

func bound(name string, ok func(float64) bool, msg string) Validator {
	return constraint(name, func(v any) error {
		f, err := toFloat(v)
		if err != nil {
			return err
		}
		if !ok(f) {
			return errors.NewValidationError("", msg)
		}
		return nil
	})
}

// OneOf checks the value equals one of the allowed values.
func OneOf(allowed ...any) Validator {
	return constraint(fmt.Sprintf("oneof%v", allowed), func(v any) error {
		for _, a := range allowed {
			if Equal(a, v) {
				return nil
			}
		}
		return errors.NewValidationError("", fmt.Sprintf("%v is not one of %v", v, allowed))
	})
}

// Match checks text against a regular expression.
func Match(pattern string) Validator {
	re := regexp.MustCompile(pattern)
	return constraint(fmt.Sprintf("match(%s)", pattern), func(v any) error {
		s, ok := v.(string)
		if !ok {
			return errors.NewValidationError("", fmt.Sprintf("%T is not text", v))
		}
		if !re.MatchString(s) {
			return errors.NewValidationError("", fmt.Sprintf("%q does not match %s", s, pattern))
		}
		return nil
	})
}

// Format checks text against a named string format from the strfmt
// registry, such as "email", "uuid", "hostname" or "date-time".
func Format(name string) Validator {
	return &validatorFunc{
		name:  fmt.Sprintf("format(%s)", name),
		shape: ShapeText,
		fn: func(v any) (any, error) {
			if v == nil {
				return nil, nil
			}
			s, err := toText(v)
			if err != nil {
				return nil, err
			}
			if !strfmt.Default.ContainsName(name) {
				return nil, errors.NewSchemaError("", "unknown string format %q", name)
			}
			if !strfmt.Default.Validates(name, s) {
				return nil, errors.NewValidationError("", fmt.Sprintf("%q is not a valid %s", s, name))
			}
			return s, nil
		},
	}
}

// ListOf validates every element of a list.
func ListOf(elem Validator) Validator {
	return &validatorFunc{
		name:  fmt.Sprintf("list(%v)", elem),
		shape: ShapeList,
		fn: func(v any) (any, error) {
			if v == nil {
				return nil, nil
			}
			n, err := normalizeShape(ShapeList, v)
			if err != nil {
				return nil, err
			}
			in := n.([]any)
			out := make([]any, len(in))
			for i, e := range in {
				if out[i], err = elem.Validate(e); err != nil {
					return nil, errors.NewValidationError(fmt.Sprintf("[%d]", i), err.Error())
				}
			}
			return out, nil
		},
	}
}

// MapOf validates every value of a map.
func MapOf(elem Validator) Validator {
	return &validatorFunc{
		name:  fmt.Sprintf("map(%v)", elem),
		shape: ShapeMap,
		fn: func(v any) (any, error) {
			if v == nil {
				return nil, nil
			}
			n, err := normalizeShape(ShapeMap, v)
			if err != nil {
				return nil, err
			}
			in := n.(map[string]any)
			out := make(map[string]any, len(in))
			for k, e := range in {
				if out[k], err = elem.Validate(e); err != nil {
					return nil, errors.NewValidationError(k, err.Error())
				}
			}
			return out, nil
		},
	}
}
