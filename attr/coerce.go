/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package attr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/suparena/entitymapper/errors"
)

// Normalize converts a native value to the canonical Go representation of
// the descriptor's shape:
//
//	Integer    int64
//	Float      float64
//	Text       string
//	Boolean    bool
//	*Set       Set[string] / Set[float64]
//	List, Map  []any / map[string]any holding JSON-native values
//	Timestamp  time.Time in UTC, microsecond precision
//
// nil stays nil. Validator descriptors run their validator, except on
// values stored as absent, which are only converted.
func Normalize(d Descriptor, v any) (any, error) {
	shape, err := d.Shape()
	if err != nil {
		return nil, err
	}
	if d.validator != nil && !elided(shape, v) {
		return d.validator.Validate(v)
	}
	return normalizeShape(shape, v)
}

// elided reports whether v is written as an absent attribute of the shape:
// nil, empty text and empty sets.
func elided(shape Shape, v any) bool {
	if v == nil {
		return true
	}
	switch shape {
	case ShapeText:
		s, ok := v.(string)
		return ok && s == ""
	case ShapeTextSet, ShapeByteSet, ShapeNumberSet:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Map, reflect.Slice:
			return rv.Len() == 0
		}
	}
	return false
}

func normalizeShape(shape Shape, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch shape {
	case ShapeInteger:
		return toInt(v)
	case ShapeFloat:
		return toFloat(v)
	case ShapeText:
		return toText(v)
	case ShapeBoolean:
		return toBool(v)
	case ShapeTextSet, ShapeByteSet:
		return toStringSet(v)
	case ShapeNumberSet:
		return toNumberSet(v)
	case ShapeList:
		out, err := toJSONNative(v)
		if err != nil {
			return nil, err
		}
		if l, ok := out.([]any); ok {
			return l, nil
		}
		return nil, mismatch(v, "list")
	case ShapeMap:
		out, err := toJSONNative(v)
		if err != nil {
			return nil, err
		}
		if m, ok := out.(map[string]any); ok {
			return m, nil
		}
		return nil, mismatch(v, "map")
	case ShapeTimestamp:
		return toTime(v)
	}
	return nil, errors.NewSchemaError("", "invalid shape %s", shape)
}

func mismatch(v any, want string) error {
	return errors.NewValidationError("", fmt.Sprintf("cannot use %T as %s", v, want))
}

func toInt(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, errors.NewValidationError("", "integer overflows int64")
		}
		return int64(n), nil
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		return parseInt(string(n))
	case string:
		return parseInt(n)
	}
	return 0, mismatch(v, "integer")
}

func floatToInt(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, errors.NewValidationError("", fmt.Sprintf("%v is not an integer", f))
	}
	return int64(f), nil
}

func parseInt(s string) (int64, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.NewValidationError("", fmt.Sprintf("%q is not an integer", s))
	}
	return floatToInt(f)
}

func toFloat(v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case string:
		p, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, errors.NewValidationError("", fmt.Sprintf("%q is not a number", n))
		}
		f = p
	case json.Number:
		p, err := n.Float64()
		if err != nil {
			return 0, errors.NewValidationError("", fmt.Sprintf("%q is not a number", n))
		}
		f = p
	default:
		i, err := toInt(v)
		if err != nil {
			return 0, mismatch(v, "float")
		}
		f = float64(i)
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, errors.NewValidationError("", "non-finite numbers cannot be stored")
	}
	return f, nil
}

func toText(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	case fmt.Stringer:
		return s.String(), nil
	}
	return "", mismatch(v, "text")
}

func toBool(v any) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	if s, ok := v.(string); ok {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return false, mismatch(v, "boolean")
		}
		return b, nil
	}
	i, err := toInt(v)
	if err != nil {
		return false, mismatch(v, "boolean")
	}
	return i != 0, nil
}

func toStringSet(v any) (Set[string], error) {
	switch s := v.(type) {
	case Set[string]:
		return s, nil
	case map[string]struct{}:
		return Set[string](s), nil
	case []string:
		return NewSet(s...), nil
	case [][]byte:
		return NewByteSet(s...), nil
	}
	return nil, mismatch(v, "string set")
}

func toNumberSet(v any) (Set[float64], error) {
	switch s := v.(type) {
	case Set[float64]:
		return s, nil
	case map[float64]struct{}:
		return Set[float64](s), nil
	case []float64:
		return NewSet(s...), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, mismatch(v, "number set")
	}
	out := make(Set[float64], rv.Len())
	for i := 0; i < rv.Len(); i++ {
		f, err := toFloat(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		out[f] = struct{}{}
	}
	return out, nil
}

// toJSONNative round-trips a value through encoding/json so lists and maps
// hold the same representation the decoder produces. Integers stay int64 and
// floats stay float64, whole ones included.
func toJSONNative(v any) (any, error) {
	raw, err := json.Marshal(markFloats(v))
	if err != nil {
		return nil, errors.NewValidationError("", fmt.Sprintf("value is not JSON serializable: %v", err))
	}
	return unmarshalJSON(raw)
}

// unmarshalJSON decodes JSON text keeping number precision.
func unmarshalJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, errors.NewValidationError("", err.Error())
	}
	return fromNumbers(out), nil
}

// markFloats rewrites floats as JSON numbers that carry a fraction or an
// exponent, so they are read back as float64 and not int64.
func markFloats(v any) any {
	switch x := v.(type) {
	case nil, json.Number, string, bool:
		return v
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = markFloats(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = markFloats(e)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return floatNumber(rv.Float())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() || rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = markFloats(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.IsNil() || rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = markFloats(iter.Value().Interface())
		}
		return out
	}
	return v
}

// floatNumber formats f the way encoding/json does, plus ".0" on whole
// values. NaN and infinities are left for the encoder to reject.
func floatNumber(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	format := byte('f')
	if abs := math.Abs(f); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	s := strconv.FormatFloat(f, format, -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return json.Number(s)
}

// fromNumbers replaces decoded number text with int64 when it is an integer
// that fits, float64 otherwise.
func fromNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		return parseNumber(string(x))
	case attributevalue.Number:
		return parseNumber(string(x))
	case []any:
		for i, e := range x {
			x[i] = fromNumbers(e)
		}
	case map[string]any:
		for k, e := range x {
			x[k] = fromNumbers(e)
		}
	}
	return v
}

func parseNumber(s string) any {
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return f
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Truncate(time.Microsecond), nil
	case *time.Time:
		if t != nil {
			return t.UTC().Truncate(time.Microsecond), nil
		}
	case string:
		return parseTimestamp(t)
	}
	return time.Time{}, mismatch(v, "timestamp")
}
