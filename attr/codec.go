/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package attr

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/entitymapper/errors"
)

const (
	// timestampLayout is the stored form; the "+00:00" suffix is appended.
	timestampLayout = "2006-01-02T15:04:05.000000"
	timestampParse  = "2006-01-02T15:04:05.999999"
	utcSuffix       = "+00:00"
)

// now is swapped in tests.
var now = func() time.Time { return time.Now().UTC() }

// Encode converts a native value to its stored attribute value. A nil
// result means the attribute must be absent: nil values, empty text and
// empty sets are never written. Numeric zero and false are kept.
//
// Validator descriptors are encoded by shape only; Validate is not re-run.
func Encode(d Descriptor, v any) (types.AttributeValue, error) {
	shape, err := d.Shape()
	if err != nil {
		return nil, err
	}
	n, err := normalizeShape(shape, v)
	if err != nil || n == nil {
		return nil, err
	}

	switch shape {
	case ShapeInteger:
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(n.(int64), 10)}, nil
	case ShapeFloat:
		return &types.AttributeValueMemberN{Value: formatFloat(n.(float64))}, nil
	case ShapeBoolean:
		if n.(bool) {
			return &types.AttributeValueMemberN{Value: "1"}, nil
		}
		return &types.AttributeValueMemberN{Value: "0"}, nil
	case ShapeText:
		if s := n.(string); s != "" {
			return &types.AttributeValueMemberS{Value: s}, nil
		}
		return nil, nil
	case ShapeTextSet:
		s := n.(Set[string])
		if len(s) == 0 {
			return nil, nil
		}
		return &types.AttributeValueMemberSS{Value: s.Sorted()}, nil
	case ShapeByteSet:
		s := n.(Set[string])
		if len(s) == 0 {
			return nil, nil
		}
		members := make([][]byte, 0, len(s))
		for _, m := range s.Sorted() {
			members = append(members, []byte(m))
		}
		return &types.AttributeValueMemberBS{Value: members}, nil
	case ShapeNumberSet:
		s := n.(Set[float64])
		if len(s) == 0 {
			return nil, nil
		}
		members := make([]string, 0, len(s))
		for _, f := range s.Sorted() {
			members = append(members, formatFloat(f))
		}
		return &types.AttributeValueMemberNS{Value: members}, nil
	case ShapeList, ShapeMap:
		raw, err := json.Marshal(markFloats(n))
		if err != nil {
			return nil, errors.NewValidationError("", err.Error())
		}
		return &types.AttributeValueMemberS{Value: string(raw)}, nil
	case ShapeTimestamp:
		s, err := FormatTimestamp(n.(time.Time))
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberS{Value: s}, nil
	}
	return nil, errors.NewSchemaError("", "invalid shape %s", shape)
}

// EncodeKey encodes a key value. Keys can never be absent.
func EncodeKey(d Descriptor, v any) (types.AttributeValue, error) {
	av, err := Encode(d, v)
	if err != nil {
		return nil, err
	}
	if av == nil {
		return nil, errors.NewValidationError("", "key value must not be empty")
	}
	return av, nil
}

// Decode converts a stored attribute value (nil when absent) to its native
// value, then runs the validator if the descriptor has one.
//
// Absent values decode to the empty value of the shape: an empty list or
// map, the current time for timestamps, the zero value otherwise. Under a
// validator absent numbers and booleans stay nil, and values stored as
// absent are returned without running the validator.
func Decode(d Descriptor, av types.AttributeValue) (any, error) {
	shape, err := d.Shape()
	if err != nil {
		return nil, err
	}
	if _, null := av.(*types.AttributeValueMemberNULL); null {
		av = nil
	}

	var v any
	if av == nil {
		v = absent(shape, d.validator == nil)
	} else if v, err = decodeShape(shape, av); err != nil {
		return nil, err
	}

	if d.validator == nil || elided(shape, v) {
		return v, nil
	}
	out, err := d.validator.Validate(v)
	if err != nil {
		return nil, asValidation(err)
	}
	return out, nil
}

func absent(shape Shape, primitive bool) any {
	switch shape {
	case ShapeList:
		return []any{}
	case ShapeMap:
		return map[string]any{}
	case ShapeTimestamp:
		return now().Truncate(time.Microsecond)
	case ShapeText:
		return ""
	case ShapeTextSet, ShapeByteSet:
		return Set[string]{}
	case ShapeNumberSet:
		return Set[float64]{}
	}
	if !primitive {
		return nil
	}
	switch shape {
	case ShapeInteger:
		return int64(0)
	case ShapeFloat:
		return float64(0)
	case ShapeBoolean:
		return false
	}
	return nil
}

func decodeShape(shape Shape, av types.AttributeValue) (any, error) {
	switch shape {
	case ShapeInteger, ShapeFloat, ShapeBoolean, ShapeText:
		switch tv := av.(type) {
		case *types.AttributeValueMemberN:
			return normalizeShape(shape, tv.Value)
		case *types.AttributeValueMemberS:
			return normalizeShape(shape, tv.Value)
		case *types.AttributeValueMemberBOOL:
			if shape == ShapeText {
				return strconv.FormatBool(tv.Value), nil
			}
			return normalizeShape(shape, tv.Value)
		case *types.AttributeValueMemberB:
			if shape == ShapeText {
				return string(tv.Value), nil
			}
		}
	case ShapeTextSet:
		if tv, ok := av.(*types.AttributeValueMemberSS); ok {
			return NewSet(tv.Value...), nil
		}
	case ShapeByteSet:
		if tv, ok := av.(*types.AttributeValueMemberBS); ok {
			return NewByteSet(tv.Value...), nil
		}
	case ShapeNumberSet:
		if tv, ok := av.(*types.AttributeValueMemberNS); ok {
			out := make(Set[float64], len(tv.Value))
			for _, s := range tv.Value {
				f, err := toFloat(s)
				if err != nil {
					return nil, err
				}
				out[f] = struct{}{}
			}
			return out, nil
		}
	case ShapeList, ShapeMap:
		return decodeStructured(shape, av)
	case ShapeTimestamp:
		if tv, ok := av.(*types.AttributeValueMemberS); ok {
			return parseTimestamp(tv.Value)
		}
	default:
		return nil, errors.NewSchemaError("", "invalid shape %s", shape)
	}
	return nil, errors.NewValidationError("", fmt.Sprintf("stored %s cannot be read as %s", memberName(av), shape))
}

// decodeStructured reads the JSON text form, and also accepts native L and M
// attributes written by other clients.
func decodeStructured(shape Shape, av types.AttributeValue) (any, error) {
	var v any
	switch tv := av.(type) {
	case *types.AttributeValueMemberS:
		var err error
		if v, err = unmarshalJSON([]byte(tv.Value)); err != nil {
			return nil, errors.NewValidationError("", fmt.Sprintf("stored %s is not valid JSON: %v", shape, err))
		}
	case *types.AttributeValueMemberL, *types.AttributeValueMemberM:
		err := attributevalue.UnmarshalWithOptions(av, &v, func(o *attributevalue.DecoderOptions) {
			o.UseNumber = true
		})
		if err != nil {
			return nil, errors.NewValidationError("", err.Error())
		}
		v = fromNumbers(v)
	default:
		return nil, errors.NewValidationError("", fmt.Sprintf("stored %s cannot be read as %s", memberName(av), shape))
	}
	return normalizeShape(shape, v)
}

// FormatTimestamp renders an instant in the stored UTC form,
// e.g. 2012-05-31T12:00:00.000001+00:00.
func FormatTimestamp(t time.Time) (string, error) {
	if t.IsZero() {
		return "", errors.NewValidationError("", "timestamp has no instant; naive or zero times cannot be stored")
	}
	return t.UTC().Format(timestampLayout) + utcSuffix, nil
}

// parseTimestamp accepts the stored UTC form. A trailing "Z" is read as
// "+00:00"; any other offset is rejected.
func parseTimestamp(s string) (time.Time, error) {
	if strings.HasSuffix(s, "Z") {
		s = strings.TrimSuffix(s, "Z") + utcSuffix
	}
	body, ok := strings.CutSuffix(s, utcSuffix)
	if !ok {
		return time.Time{}, errors.NewValidationError("", fmt.Sprintf("timestamp %q must be in UTC (+00:00)", s))
	}
	t, err := time.ParseInLocation(timestampParse, body, time.UTC)
	if err != nil {
		return time.Time{}, errors.NewValidationError("", fmt.Sprintf("malformed timestamp %q", s))
	}
	return t.UTC(), nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func memberName(av types.AttributeValue) string {
	switch av.(type) {
	case *types.AttributeValueMemberS:
		return "S"
	case *types.AttributeValueMemberN:
		return "N"
	case *types.AttributeValueMemberB:
		return "B"
	case *types.AttributeValueMemberSS:
		return "SS"
	case *types.AttributeValueMemberNS:
		return "NS"
	case *types.AttributeValueMemberBS:
		return "BS"
	case *types.AttributeValueMemberBOOL:
		return "BOOL"
	case *types.AttributeValueMemberL:
		return "L"
	case *types.AttributeValueMemberM:
		return "M"
	}
	return fmt.Sprintf("%T", av)
}

// asValidation makes sure validator failures surface as validation errors.
func asValidation(err error) error {
	if errors.IsValidationError(err) || errors.IsSchemaError(err) {
		return err
	}
	return errors.NewValidationError("", err.Error())
}
