/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package cond evaluates conditions and expectations against stored items
// for the stores that do not delegate that work to DynamoDB.
package cond

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/entitymapper/storagemodels"
)

// Equal compares two attribute values. Sets are compared without regard
// to order and numbers by value.
func Equal(a, b types.AttributeValue) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		return ok && numEqual(av.Value, bv.Value)
	case *types.AttributeValueMemberB:
		bv, ok := b.(*types.AttributeValueMemberB)
		return ok && bytes.Equal(av.Value, bv.Value)
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberNULL:
		_, ok := b.(*types.AttributeValueMemberNULL)
		return ok
	case *types.AttributeValueMemberSS:
		bv, ok := b.(*types.AttributeValueMemberSS)
		return ok && sameMembers(av.Value, bv.Value, func(s string) string { return s })
	case *types.AttributeValueMemberNS:
		bv, ok := b.(*types.AttributeValueMemberNS)
		return ok && sameMembers(av.Value, bv.Value, canonicalNumber)
	case *types.AttributeValueMemberBS:
		bv, ok := b.(*types.AttributeValueMemberBS)
		return ok && sameMembers(av.Value, bv.Value, func(b []byte) string { return string(b) })
	case *types.AttributeValueMemberL:
		bv, ok := b.(*types.AttributeValueMemberL)
		if !ok || len(av.Value) != len(bv.Value) {
			return false
		}
		for i := range av.Value {
			if !Equal(av.Value[i], bv.Value[i]) {
				return false
			}
		}
		return true
	case *types.AttributeValueMemberM:
		bv, ok := b.(*types.AttributeValueMemberM)
		if !ok || len(av.Value) != len(bv.Value) {
			return false
		}
		for k, v := range av.Value {
			if !Equal(v, bv.Value[k]) {
				return false
			}
		}
		return true
	}
	return false
}

func sameMembers[T any](a, b []T, key func(T) string) bool {
	if len(a) != len(b) {
		return false
	}
	ka := make([]string, len(a))
	kb := make([]string, len(b))
	for i := range a {
		ka[i] = key(a[i])
		kb[i] = key(b[i])
	}
	sort.Strings(ka)
	sort.Strings(kb)
	return slices.Equal(ka, kb)
}

func canonicalNumber(s string) string {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func numEqual(a, b string) bool {
	return canonicalNumber(a) == canonicalNumber(b)
}

// Compare orders two scalar values of the same type. ok is false when the
// values cannot be ordered.
func Compare(a, b types.AttributeValue) (int, bool) {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		if bv, ok := b.(*types.AttributeValueMemberS); ok {
			return strings.Compare(av.Value, bv.Value), true
		}
	case *types.AttributeValueMemberN:
		if bv, ok := b.(*types.AttributeValueMemberN); ok {
			fa, errA := strconv.ParseFloat(av.Value, 64)
			fb, errB := strconv.ParseFloat(bv.Value, 64)
			if errA != nil || errB != nil {
				return 0, false
			}
			switch {
			case fa < fb:
				return -1, true
			case fa > fb:
				return 1, true
			}
			return 0, true
		}
	case *types.AttributeValueMemberB:
		if bv, ok := b.(*types.AttributeValueMemberB); ok {
			return bytes.Compare(av.Value, bv.Value), true
		}
	}
	return 0, false
}

// Match evaluates one condition against an item.
func Match(item storagemodels.Payload, c storagemodels.Condition) bool {
	v, present := item[c.Attribute]
	if _, null := v.(*types.AttributeValueMemberNULL); null {
		present = false
	}
	arg := func(i int) types.AttributeValue {
		if i < len(c.Values) {
			return c.Values[i]
		}
		return nil
	}
	ordered := func(test func(int) bool) bool {
		if !present {
			return false
		}
		n, ok := Compare(v, arg(0))
		return ok && test(n)
	}

	switch c.Operator {
	case storagemodels.OpNull:
		return !present
	case storagemodels.OpNotNull:
		return present
	case storagemodels.OpEQ:
		return present && Equal(v, arg(0))
	case storagemodels.OpNE:
		return !present || !Equal(v, arg(0))
	case storagemodels.OpLT:
		return ordered(func(n int) bool { return n < 0 })
	case storagemodels.OpLE:
		return ordered(func(n int) bool { return n <= 0 })
	case storagemodels.OpGT:
		return ordered(func(n int) bool { return n > 0 })
	case storagemodels.OpGE:
		return ordered(func(n int) bool { return n >= 0 })
	case storagemodels.OpBetween:
		if !present {
			return false
		}
		lo, okLo := Compare(v, arg(0))
		hi, okHi := Compare(v, arg(1))
		return okLo && okHi && lo >= 0 && hi <= 0
	case storagemodels.OpBeginsWith:
		if !present {
			return false
		}
		switch tv := v.(type) {
		case *types.AttributeValueMemberS:
			p, ok := arg(0).(*types.AttributeValueMemberS)
			return ok && strings.HasPrefix(tv.Value, p.Value)
		case *types.AttributeValueMemberB:
			p, ok := arg(0).(*types.AttributeValueMemberB)
			return ok && bytes.HasPrefix(tv.Value, p.Value)
		}
		return false
	case storagemodels.OpContains:
		return present && contains(v, arg(0))
	case storagemodels.OpNotContains:
		return present && !contains(v, arg(0))
	case storagemodels.OpIn:
		if !present {
			return false
		}
		for _, candidate := range c.Values {
			if Equal(v, candidate) {
				return true
			}
		}
		return false
	}
	return false
}

func contains(v, needle types.AttributeValue) bool {
	switch tv := v.(type) {
	case *types.AttributeValueMemberS:
		n, ok := needle.(*types.AttributeValueMemberS)
		return ok && strings.Contains(tv.Value, n.Value)
	case *types.AttributeValueMemberB:
		n, ok := needle.(*types.AttributeValueMemberB)
		return ok && bytes.Contains(tv.Value, n.Value)
	case *types.AttributeValueMemberSS:
		n, ok := needle.(*types.AttributeValueMemberS)
		return ok && slices.Contains(tv.Value, n.Value)
	case *types.AttributeValueMemberNS:
		n, ok := needle.(*types.AttributeValueMemberN)
		return ok && slices.ContainsFunc(tv.Value, func(m string) bool { return numEqual(m, n.Value) })
	case *types.AttributeValueMemberBS:
		n, ok := needle.(*types.AttributeValueMemberB)
		return ok && slices.ContainsFunc(tv.Value, func(m []byte) bool { return bytes.Equal(m, n.Value) })
	case *types.AttributeValueMemberL:
		return slices.ContainsFunc(tv.Value, func(m types.AttributeValue) bool { return Equal(m, needle) })
	}
	return false
}

// MatchAll reports whether every condition holds.
func MatchAll(item storagemodels.Payload, conds []storagemodels.Condition) bool {
	for _, c := range conds {
		if !Match(item, c) {
			return false
		}
	}
	return true
}

// CheckExpected evaluates the expectations of a conditional write against
// the currently stored item, nil when there is none.
func CheckExpected(current storagemodels.Payload, expected storagemodels.Expected) bool {
	for name, exp := range expected {
		v, present := current[name]
		if !exp.Exists {
			if present {
				return false
			}
			continue
		}
		if !present || !Equal(v, exp.Value) {
			return false
		}
	}
	return true
}

// KeyString renders the named key attributes of an item as a map key.
func KeyString(item storagemodels.Payload, names ...string) (string, error) {
	parts := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		v, ok := item[n]
		if !ok {
			return "", fmt.Errorf("missing key attribute %q", n)
		}
		s, err := scalarString(v)
		if err != nil {
			return "", fmt.Errorf("key attribute %q: %w", n, err)
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, "\x00"), nil
}

func scalarString(v types.AttributeValue) (string, error) {
	switch tv := v.(type) {
	case *types.AttributeValueMemberS:
		return "S:" + tv.Value, nil
	case *types.AttributeValueMemberN:
		return "N:" + canonicalNumber(tv.Value), nil
	case *types.AttributeValueMemberB:
		return "B:" + hex.EncodeToString(tv.Value), nil
	}
	return "", fmt.Errorf("key values must be S, N or B, got %T", v)
}

// SortByKey orders items by hash key then range key.
func SortByKey(items []storagemodels.Payload, hashKey, rangeKey string, descending bool) {
	sort.SliceStable(items, func(i, j int) bool {
		n := compareKey(items[i], items[j], hashKey)
		if n == 0 && rangeKey != "" {
			n = compareKey(items[i], items[j], rangeKey)
		}
		if descending {
			return n > 0
		}
		return n < 0
	})
}

func compareKey(a, b storagemodels.Payload, name string) int {
	if n, ok := Compare(a[name], b[name]); ok {
		return n
	}
	sa, _ := scalarString(a[name])
	sb, _ := scalarString(b[name])
	return strings.Compare(sa, sb)
}

// ExtractKey copies the key attributes out of an item.
func ExtractKey(item storagemodels.Payload, hashKey, rangeKey string) storagemodels.Key {
	key := storagemodels.Key{hashKey: item[hashKey]}
	if rangeKey != "" {
		key[rangeKey] = item[rangeKey]
	}
	return key
}
