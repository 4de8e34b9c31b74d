/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/entitymapper/storagemodels"
)

// exprBuilder collects the attribute name and value placeholders of one
// request. Every attribute goes through a "#" placeholder so reserved words
// never clash.
type exprBuilder struct {
	prefix string
	names  map[string]string
	values map[string]types.AttributeValue
	byName map[string]string
}

func newExprBuilder(prefix string) *exprBuilder {
	return &exprBuilder{
		prefix: prefix,
		names:  make(map[string]string),
		values: make(map[string]types.AttributeValue),
		byName: make(map[string]string),
	}
}

func (b *exprBuilder) name(attr string) string {
	if p, ok := b.byName[attr]; ok {
		return p
	}
	p := fmt.Sprintf("#%s%d", b.prefix, len(b.byName))
	b.byName[attr] = p
	b.names[p] = attr
	return p
}

func (b *exprBuilder) value(v types.AttributeValue) string {
	p := fmt.Sprintf(":%s%d", b.prefix, len(b.values))
	b.values[p] = v
	return p
}

func (b *exprBuilder) attributeNames() map[string]string {
	if len(b.names) == 0 {
		return nil
	}
	return b.names
}

func (b *exprBuilder) attributeValues() map[string]types.AttributeValue {
	if len(b.values) == 0 {
		return nil
	}
	return b.values
}

var comparators = map[storagemodels.Operator]string{
	storagemodels.OpEQ: "=",
	storagemodels.OpNE: "<>",
	storagemodels.OpLE: "<=",
	storagemodels.OpLT: "<",
	storagemodels.OpGE: ">=",
	storagemodels.OpGT: ">",
}

func (b *exprBuilder) condition(c storagemodels.Condition) (string, error) {
	want := func(n int) error {
		if len(c.Values) != n {
			return fmt.Errorf("%s on %q takes %d values, got %d", c.Operator, c.Attribute, n, len(c.Values))
		}
		return nil
	}
	attr := b.name(c.Attribute)

	if cmp, ok := comparators[c.Operator]; ok {
		if err := want(1); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", attr, cmp, b.value(c.Values[0])), nil
	}

	switch c.Operator {
	case storagemodels.OpBeginsWith:
		if err := want(1); err != nil {
			return "", err
		}
		return fmt.Sprintf("begins_with(%s, %s)", attr, b.value(c.Values[0])), nil
	case storagemodels.OpBetween:
		if err := want(2); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s BETWEEN %s AND %s", attr, b.value(c.Values[0]), b.value(c.Values[1])), nil
	case storagemodels.OpNotNull:
		return fmt.Sprintf("attribute_exists(%s)", attr), nil
	case storagemodels.OpNull:
		return fmt.Sprintf("attribute_not_exists(%s)", attr), nil
	case storagemodels.OpContains:
		if err := want(1); err != nil {
			return "", err
		}
		return fmt.Sprintf("contains(%s, %s)", attr, b.value(c.Values[0])), nil
	case storagemodels.OpNotContains:
		if err := want(1); err != nil {
			return "", err
		}
		return fmt.Sprintf("NOT contains(%s, %s)", attr, b.value(c.Values[0])), nil
	case storagemodels.OpIn:
		if len(c.Values) == 0 {
			return "", fmt.Errorf("IN on %q needs at least one value", c.Attribute)
		}
		placeholders := make([]string, len(c.Values))
		for i, v := range c.Values {
			placeholders[i] = b.value(v)
		}
		return fmt.Sprintf("%s IN (%s)", attr, strings.Join(placeholders, ", ")), nil
	}
	return "", fmt.Errorf("unsupported operator %q", c.Operator)
}

// conditions ANDs a list of conditions; "" when the list is empty.
func (b *exprBuilder) conditions(conds []storagemodels.Condition) (string, error) {
	clauses := make([]string, 0, len(conds))
	for _, c := range conds {
		clause, err := b.condition(c)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, clause)
	}
	return strings.Join(clauses, " AND "), nil
}

// expected renders write expectations as a condition expression, in name
// order so requests are reproducible. "" when there is nothing to check.
func (b *exprBuilder) expected(exp storagemodels.Expected) string {
	names := sortedNames(exp)
	clauses := make([]string, 0, len(names))
	for _, n := range names {
		e := exp[n]
		if !e.Exists {
			clauses = append(clauses, fmt.Sprintf("attribute_not_exists(%s)", b.name(n)))
			continue
		}
		clauses = append(clauses, fmt.Sprintf("%s = %s", b.name(n), b.value(e.Value)))
	}
	return strings.Join(clauses, " AND ")
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func sortedNames[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
