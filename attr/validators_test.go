/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package attr

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/entitymapper/errors"
)

func TestValidatedText(t *testing.T) {
	name := Validated(All(Coerce(Text), Length(3, 15)))

	shape, err := name.Shape()
	require.NoError(t, err)
	assert.Equal(t, ShapeText, shape)

	got, err := Decode(name, &types.AttributeValueMemberS{Value: "Jean"})
	require.NoError(t, err)
	assert.Equal(t, "Jean", got)

	_, err = Decode(name, &types.AttributeValueMemberS{Value: "Jo"})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))

	_, err = Normalize(name, "a name far too long to fit")
	assert.True(t, errors.IsValidationError(err))
}

func TestValidatedNumbers(t *testing.T) {
	age := Validated(All(Coerce(Integer), Min(0)))

	got, err := Decode(age, &types.AttributeValueMemberN{Value: "12"})
	require.NoError(t, err)
	assert.Equal(t, int64(12), got)

	_, err = Decode(age, &types.AttributeValueMemberN{Value: "-1"})
	assert.True(t, errors.IsValidationError(err))

	t.Run("absent number stays unset", func(t *testing.T) {
		got, err := Decode(age, nil)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestValidatedRoundTrip(t *testing.T) {
	name := Validated(All(Coerce(Text), Length(3, 15)))
	mail := Validated(Format("email"))
	tags := Validated(All(Coerce(TextSet), Length(0, 3)))
	scores := Validated(All(Coerce(NumberSet), Length(0, 3)))
	blobs := Validated(Coerce(ByteSet))
	age := Validated(All(Coerce(Integer), Min(0)))
	admin := Validated(Coerce(Boolean))
	history := Validated(ListOf(Coerce(Integer)))

	tests := []struct {
		name  string
		desc  Descriptor
		value any
	}{
		{"text", name, "Jean"},
		{"empty text", name, ""},
		{"format", mail, "jean@example.com"},
		{"empty format", mail, ""},
		{"text set", tags, NewSet("a", "b")},
		{"empty text set", tags, Set[string]{}},
		{"number set", scores, NewSet(1.5, 2.0)},
		{"empty number set", scores, Set[float64]{}},
		{"empty byte set", blobs, Set[string]{}},
		{"integer", age, int64(12)},
		{"integer zero", age, int64(0)},
		{"false", admin, false},
		{"list", history, []any{int64(1), int64(9007199254740993)}},
		{"empty list", history, []any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			av, err := Encode(tt.desc, tt.value)
			require.NoError(t, err)

			got, err := Decode(tt.desc, av)
			require.NoError(t, err)
			assert.Equal(t, tt.value, got)
		})
	}
}

func TestConstraintsDoNotEnforcePresence(t *testing.T) {
	nick := Validated(All(Coerce(Text), Length(3, 15), Match(`^[a-z]+$`)))
	role := Validated(All(Coerce(Text), OneOf("admin", "member")))
	mail := Validated(Format("email"))

	for _, d := range []Descriptor{nick, role, mail} {
		got, err := Normalize(d, nil)
		require.NoError(t, err)
		assert.Nil(t, got)

		got, err = Normalize(d, "")
		require.NoError(t, err)
		assert.Equal(t, "", got)
	}

	_, err := Normalize(nick, "jo")
	assert.True(t, errors.IsValidationError(err), "set values are still checked")
}

func TestListOf(t *testing.T) {
	scores := Validated(ListOf(InRange(0, 100)))

	av, err := Encode(scores, []int{10, 99})
	require.NoError(t, err)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "[10,99]"}, av)

	got, err := Decode(scores, av)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(10), int64(99)}, got)

	_, err = Decode(scores, &types.AttributeValueMemberS{Value: "[10,101]"})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))

	t.Run("absent list validates empty", func(t *testing.T) {
		got, err := Decode(scores, nil)
		require.NoError(t, err)
		assert.Equal(t, []any{}, got)
	})
}

func TestMapOf(t *testing.T) {
	labels := Validated(MapOf(All(Coerce(Text), Length(1, -1))))

	got, err := Normalize(labels, map[string]string{"env": "prod"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"env": "prod"}, got)

	_, err = Normalize(labels, map[string]string{"env": ""})
	assert.True(t, errors.IsValidationError(err))
}

func TestFormat(t *testing.T) {
	mail := Validated(Format("email"))

	got, err := Normalize(mail, "jean@example.com")
	require.NoError(t, err)
	assert.Equal(t, "jean@example.com", got)

	_, err = Normalize(mail, "not a mail")
	assert.True(t, errors.IsValidationError(err))

	_, err = Normalize(Validated(Format("no-such-format")), "x")
	assert.True(t, errors.IsSchemaError(err))
}

func TestOneOfAndMatch(t *testing.T) {
	status := Validated(All(Coerce(Text), OneOf("draft", "published")))
	_, err := Normalize(status, "draft")
	require.NoError(t, err)
	_, err = Normalize(status, "deleted")
	assert.True(t, errors.IsValidationError(err))

	code := Validated(All(Coerce(Text), Match(`^[A-Z]{3}$`)))
	_, err = Normalize(code, "EUR")
	require.NoError(t, err)
	_, err = Normalize(code, "eur")
	assert.True(t, errors.IsValidationError(err))
}

func TestFuncValidatorTimestamp(t *testing.T) {
	notFuture := Validated(Func(ShapeTimestamp, func(v any) (any, error) {
		ts := v.(time.Time)
		if ts.After(time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)) {
			return nil, errors.NewValidationError("", "too far in the future")
		}
		return ts, nil
	}))

	got, err := Decode(notFuture, &types.AttributeValueMemberS{Value: "2012-05-31T12:00:00.000000+00:00"})
	require.NoError(t, err)
	assert.True(t, time.Date(2012, 5, 31, 12, 0, 0, 0, time.UTC).Equal(got.(time.Time)))

	_, err = Decode(notFuture, &types.AttributeValueMemberS{Value: "2200-01-01T00:00:00.000000+00:00"})
	assert.True(t, errors.IsValidationError(err))
}

func TestPortable(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Portable(NewSet("b", "a")))
	assert.Equal(t, []float64{1, 2}, Portable(NewSet(2.0, 1.0)))
	assert.Equal(t, "2012-05-31T12:00:00.000001+00:00", Portable(time.Date(2012, 5, 31, 12, 0, 0, 1000, time.UTC)))
	assert.Equal(t, "2012-05-31T12:00:00+00:00", Portable(time.Date(2012, 5, 31, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, int64(3), Portable(int64(3)))
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(NewSet("a", "b"), NewSet("b", "a")))
	assert.True(t, Equal(1, int64(1)))
	assert.False(t, Equal("1", 1))
	assert.False(t, Equal(time.Time{}, "x"))
}
