/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cond

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/entitymapper/storagemodels"
)

func s(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }
func n(v string) types.AttributeValue { return &types.AttributeValueMemberN{Value: v} }

func TestEqual(t *testing.T) {
	assert.True(t, Equal(n("1"), n("1.0")))
	assert.False(t, Equal(n("1"), s("1")))
	assert.True(t, Equal(
		&types.AttributeValueMemberSS{Value: []string{"a", "b"}},
		&types.AttributeValueMemberSS{Value: []string{"b", "a"}},
	))
	assert.False(t, Equal(
		&types.AttributeValueMemberNS{Value: []string{"1"}},
		&types.AttributeValueMemberNS{Value: []string{"1", "2"}},
	))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(s("x"), nil))
}

func TestMatch(t *testing.T) {
	item := storagemodels.Payload{
		"name": s("Jackson"),
		"age":  n("42"),
		"tags": &types.AttributeValueMemberSS{Value: []string{"admin", "ops"}},
	}

	tests := []struct {
		name string
		cond storagemodels.Condition
		want bool
	}{
		{"eq", storagemodels.Condition{Attribute: "age", Operator: storagemodels.OpEQ, Values: []types.AttributeValue{n("42")}}, true},
		{"ne on missing", storagemodels.Condition{Attribute: "mail", Operator: storagemodels.OpNE, Values: []types.AttributeValue{s("x")}}, true},
		{"lt", storagemodels.Condition{Attribute: "age", Operator: storagemodels.OpLT, Values: []types.AttributeValue{n("100")}}, true},
		{"lt numeric not lexical", storagemodels.Condition{Attribute: "age", Operator: storagemodels.OpLT, Values: []types.AttributeValue{n("9")}}, false},
		{"ge", storagemodels.Condition{Attribute: "age", Operator: storagemodels.OpGE, Values: []types.AttributeValue{n("42")}}, true},
		{"gt missing", storagemodels.Condition{Attribute: "mail", Operator: storagemodels.OpGT, Values: []types.AttributeValue{s("a")}}, false},
		{"between", storagemodels.Condition{Attribute: "age", Operator: storagemodels.OpBetween, Values: []types.AttributeValue{n("40"), n("50")}}, true},
		{"begins with", storagemodels.Condition{Attribute: "name", Operator: storagemodels.OpBeginsWith, Values: []types.AttributeValue{s("Jack")}}, true},
		{"null", storagemodels.Condition{Attribute: "mail", Operator: storagemodels.OpNull}, true},
		{"not null", storagemodels.Condition{Attribute: "name", Operator: storagemodels.OpNotNull}, true},
		{"contains set member", storagemodels.Condition{Attribute: "tags", Operator: storagemodels.OpContains, Values: []types.AttributeValue{s("ops")}}, true},
		{"contains substring", storagemodels.Condition{Attribute: "name", Operator: storagemodels.OpContains, Values: []types.AttributeValue{s("ckso")}}, true},
		{"not contains", storagemodels.Condition{Attribute: "tags", Operator: storagemodels.OpNotContains, Values: []types.AttributeValue{s("dev")}}, true},
		{"in", storagemodels.Condition{Attribute: "age", Operator: storagemodels.OpIn, Values: []types.AttributeValue{n("1"), n("42")}}, true},
		{"in miss", storagemodels.Condition{Attribute: "age", Operator: storagemodels.OpIn, Values: []types.AttributeValue{n("1")}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(item, tt.cond))
		})
	}
}

func TestCheckExpected(t *testing.T) {
	current := storagemodels.Payload{"id": n("1"), "name": s("a")}

	assert.True(t, CheckExpected(current, nil))
	assert.True(t, CheckExpected(current, storagemodels.Expected{
		"id":   storagemodels.MustExist(n("1")),
		"name": storagemodels.MustExist(s("a")),
		"mail": storagemodels.MustBeAbsent(),
	}))
	assert.False(t, CheckExpected(current, storagemodels.Expected{"name": storagemodels.MustExist(s("b"))}))
	assert.False(t, CheckExpected(current, storagemodels.Expected{"id": storagemodels.MustBeAbsent()}))
	assert.True(t, CheckExpected(nil, storagemodels.Expected{"id": storagemodels.MustBeAbsent()}))
	assert.False(t, CheckExpected(nil, storagemodels.Expected{"id": storagemodels.MustExist(n("1"))}))
}

func TestKeyStringAndSort(t *testing.T) {
	k, err := KeyString(storagemodels.Payload{"h": s("a"), "r": n("2.0")}, "h", "r")
	require.NoError(t, err)
	assert.Equal(t, "S:a\x00N:2", k)

	_, err = KeyString(storagemodels.Payload{"h": s("a")}, "h", "r")
	assert.Error(t, err)

	items := []storagemodels.Payload{
		{"h": s("a"), "r": n("10")},
		{"h": s("a"), "r": n("9")},
		{"h": s("a"), "r": n("11")},
	}
	SortByKey(items, "h", "r", false)
	assert.Equal(t, n("9"), items[0]["r"])
	assert.Equal(t, n("11"), items[2]["r"])

	SortByKey(items, "h", "r", true)
	assert.Equal(t, n("11"), items[0]["r"])
}
