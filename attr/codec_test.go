/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package attr

import (
	"math"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/entitymapper/errors"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ts := time.Date(2012, 5, 31, 12, 0, 0, 1000, time.UTC)

	tests := []struct {
		name  string
		desc  Descriptor
		value any
	}{
		{"integer", Of(Integer), int64(42)},
		{"negative integer", Of(Integer), int64(-7)},
		{"integer zero", Of(Integer), int64(0)},
		{"autoincrement", Of(AutoIncrement), int64(3)},
		{"float", Of(Float), 3.14},
		{"float zero", Of(Float), float64(0)},
		{"text", Of(Text), "hello"},
		{"unicode text", Of(Text), "Clé d'été"},
		{"boolean true", Of(Boolean), true},
		{"boolean false", Of(Boolean), false},
		{"text set", Of(TextSet), NewSet("a", "b", "c")},
		{"number set", Of(NumberSet), NewSet(1.0, 2.5, 3.0)},
		{"byte set", Of(ByteSet), NewByteSet([]byte{0x01, 0x02}, []byte("x"))},
		{"list", Of(List), []any{1.0, "two", map[string]any{"three": 3.0}}},
		{"list of integers", Of(List), []any{int64(1), int64(-2), int64(0)}},
		{"list of large integers", Of(List), []any{int64(9007199254740993), int64(math.MaxInt64)}},
		{"list of whole floats", Of(List), []any{1.0, 2.5, 1e21}},
		{"nested integers", Of(Map), map[string]any{"n": int64(7), "l": []any{int64(8), map[string]any{"x": 0.5}}}},
		{"empty list", Of(List), []any{}},
		{"map", Of(Map), map[string]any{"b": []any{true}, "a": "x"}},
		{"empty map", Of(Map), map[string]any{}},
		{"timestamp", Of(Timestamp), ts},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			av, err := Encode(tt.desc, tt.value)
			require.NoError(t, err)
			require.NotNil(t, av)

			got, err := Decode(tt.desc, av)
			require.NoError(t, err)
			assert.True(t, Equal(tt.value, got), "round trip changed %#v into %#v", tt.value, got)
		})
	}
}

func TestEncodeElidesEmptyValues(t *testing.T) {
	tests := []struct {
		name  string
		desc  Descriptor
		value any
		empty any
	}{
		{"empty text", Of(Text), "", ""},
		{"empty text set", Of(TextSet), NewSet[string](), Set[string]{}},
		{"empty number set", Of(NumberSet), NewSet[float64](), Set[float64]{}},
		{"empty byte set", Of(ByteSet), NewByteSet(), Set[string]{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			av, err := Encode(tt.desc, tt.value)
			require.NoError(t, err)
			assert.Nil(t, av)

			got, err := Decode(tt.desc, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.empty, got)
		})
	}

	t.Run("nil is absent", func(t *testing.T) {
		av, err := Encode(Of(Integer), nil)
		require.NoError(t, err)
		assert.Nil(t, av)
	})
}

func TestEncodeKeepsZeroAndFalse(t *testing.T) {
	av, err := Encode(Of(Integer), 0)
	require.NoError(t, err)
	assert.Equal(t, &types.AttributeValueMemberN{Value: "0"}, av)

	av, err = Encode(Of(Boolean), false)
	require.NoError(t, err)
	assert.Equal(t, &types.AttributeValueMemberN{Value: "0"}, av)

	av, err = Encode(Of(Boolean), true)
	require.NoError(t, err)
	assert.Equal(t, &types.AttributeValueMemberN{Value: "1"}, av)
}

func TestEncodeStructuredIsCanonicalJSON(t *testing.T) {
	av, err := Encode(Of(Map), map[string]any{"z": 1, "a": []int{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, &types.AttributeValueMemberS{Value: `{"a":[1,2],"z":1}`}, av)

	av, err = Encode(Of(List), []any{int64(9007199254740993), 2.0, []float64{0.5, 3}})
	require.NoError(t, err)
	assert.Equal(t, &types.AttributeValueMemberS{Value: `[9007199254740993,2.0,[0.5,3.0]]`}, av)

	got, err := Normalize(Of(List), []int64{9007199254740993})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(9007199254740993)}, got)
}

func TestTimestampEncoding(t *testing.T) {
	paris := time.FixedZone("CEST", 2*60*60)
	local := time.Date(2012, 5, 31, 14, 0, 0, 0, paris)

	av, err := Encode(Of(Timestamp), local)
	require.NoError(t, err)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "2012-05-31T12:00:00.000000+00:00"}, av)

	t.Run("zero time is rejected", func(t *testing.T) {
		_, err := Encode(Of(Timestamp), time.Time{})
		require.Error(t, err)
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("trailing Z is accepted", func(t *testing.T) {
		got, err := Decode(Of(Timestamp), &types.AttributeValueMemberS{Value: "2012-05-31T12:00:00.000001Z"})
		require.NoError(t, err)
		assert.True(t, time.Date(2012, 5, 31, 12, 0, 0, 1000, time.UTC).Equal(got.(time.Time)))
	})

	t.Run("other offsets are rejected", func(t *testing.T) {
		_, err := Decode(Of(Timestamp), &types.AttributeValueMemberS{Value: "2012-05-31T12:00:00.000000+02:00"})
		require.Error(t, err)
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("absent decodes to now", func(t *testing.T) {
		fixed := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
		restore := now
		now = func() time.Time { return fixed }
		defer func() { now = restore }()

		got, err := Decode(Of(Timestamp), nil)
		require.NoError(t, err)
		assert.True(t, fixed.Equal(got.(time.Time)))
	})
}

func TestDecodeAbsentPrimitives(t *testing.T) {
	tests := []struct {
		desc Descriptor
		want any
	}{
		{Of(Integer), int64(0)},
		{Of(Float), float64(0)},
		{Of(Text), ""},
		{Of(Boolean), false},
		{Of(List), []any{}},
		{Of(Map), map[string]any{}},
	}
	for _, tt := range tests {
		t.Run(tt.desc.String(), func(t *testing.T) {
			got, err := Decode(tt.desc, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeAcceptsNativeStructures(t *testing.T) {
	av := &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
		"n": &types.AttributeValueMemberN{Value: "2"},
		"s": &types.AttributeValueMemberS{Value: "x"},
	}}
	got, err := Decode(Of(Map), av)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": int64(2), "s": "x"}, got)

	got, err = Decode(Of(List), &types.AttributeValueMemberL{Value: []types.AttributeValue{
		&types.AttributeValueMemberN{Value: "9007199254740993"},
		&types.AttributeValueMemberN{Value: "0.25"},
	}})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(9007199254740993), 0.25}, got)
}

func TestDecodeMismatchedMember(t *testing.T) {
	_, err := Decode(Of(TextSet), &types.AttributeValueMemberS{Value: "x"})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))

	_, err = Decode(Of(Integer), &types.AttributeValueMemberS{Value: "abc"})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestInvalidDescriptor(t *testing.T) {
	_, err := Decode(Descriptor{}, &types.AttributeValueMemberS{Value: "x"})
	require.Error(t, err)
	assert.True(t, errors.IsSchemaError(err))

	_, err = Encode(Validated(Length(1, 2)), "x")
	require.Error(t, err)
	assert.True(t, errors.IsSchemaError(err))
}

func TestEncodeKey(t *testing.T) {
	_, err := EncodeKey(Of(Text), "")
	require.Error(t, err)

	av, err := EncodeKey(Of(AutoIncrement), 7)
	require.NoError(t, err)
	assert.Equal(t, &types.AttributeValueMemberN{Value: "7"}, av)
}

func TestShapeKeyType(t *testing.T) {
	assert.Equal(t, "N", Of(AutoIncrement).Type().Shape().KeyType())
	assert.Equal(t, "N", ShapeFloat.KeyType())
	assert.Equal(t, "S", ShapeText.KeyType())
	assert.Equal(t, "S", ShapeTimestamp.KeyType())
	assert.Equal(t, "S", ShapeMap.KeyType())
}

func TestParseType(t *testing.T) {
	for name, want := range map[string]Type{
		"integer":       Integer,
		"int":           Integer,
		"Text":          Text,
		"datetime":      Timestamp,
		"autoincrement": AutoIncrement,
		"numberset":     NumberSet,
	} {
		got, err := ParseType(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseType("decimal128")
	assert.True(t, errors.IsSchemaError(err))
}
