/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitymapper

import (
	"time"

	"github.com/suparena/entitymapper/storagemodels"
)

// ReadOption configures Get, Query and Scan. Options that do not apply to
// an operation are ignored by it.
type ReadOption func(*readConfig)

type filter struct {
	attribute string
	op        storagemodels.Operator
	values    []any
}

type readConfig struct {
	consistentRead bool
	descending     bool
	limit          int32
	rangeOp        storagemodels.Operator
	rangeValues    []any
	filters        []filter
	streamOptions  []storagemodels.StreamOption
}

func applyReadOptions(opts []ReadOption) readConfig {
	var cfg readConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// ConsistentRead requests a strongly consistent read (Get, Query).
func ConsistentRead() ReadOption {
	return func(c *readConfig) { c.consistentRead = true }
}

// Descending returns query results in reverse range key order.
func Descending() ReadOption {
	return func(c *readConfig) { c.descending = true }
}

// Limit caps the number of items read (Query, Scan).
func Limit(n int32) ReadOption {
	return func(c *readConfig) { c.limit = n }
}

// WithStreamOptions passes paging and retry options to the store.
func WithStreamOptions(opts ...storagemodels.StreamOption) ReadOption {
	return func(c *readConfig) { c.streamOptions = append(c.streamOptions, opts...) }
}

// WhereRange restricts a query's range key. Allowed operators are EQ, LE,
// LT, GE, GT, BEGINS_WITH and BETWEEN (two values).
func WhereRange(op storagemodels.Operator, values ...any) ReadOption {
	return func(c *readConfig) {
		c.rangeOp = op
		c.rangeValues = values
	}
}

// RangeEquals matches one range key value.
func RangeEquals(v any) ReadOption { return WhereRange(storagemodels.OpEQ, v) }

// RangeBeginsWith matches range keys with a text prefix.
func RangeBeginsWith(prefix string) ReadOption {
	return WhereRange(storagemodels.OpBeginsWith, prefix)
}

// RangeBetween matches range keys in [low, high].
func RangeBetween(low, high any) ReadOption {
	return WhereRange(storagemodels.OpBetween, low, high)
}

// RangeGreaterThan matches range keys above v.
func RangeGreaterThan(v any) ReadOption { return WhereRange(storagemodels.OpGT, v) }

// RangeLessThan matches range keys below v.
func RangeLessThan(v any) ReadOption { return WhereRange(storagemodels.OpLT, v) }

// Time range helpers for kinds whose range key is a timestamp.

// Since matches range keys at or after t.
func Since(t time.Time) ReadOption { return WhereRange(storagemodels.OpGE, t) }

// Before matches range keys strictly before t.
func Before(t time.Time) ReadOption { return WhereRange(storagemodels.OpLT, t) }

// BetweenTimes matches range keys in [start, end].
func BetweenTimes(start, end time.Time) ReadOption {
	return WhereRange(storagemodels.OpBetween, start, end)
}

// InLast matches range keys within the last d.
func InLast(d time.Duration) ReadOption {
	return Since(time.Now().UTC().Add(-d))
}

// Where adds a scan filter. Filters are ANDed.
func Where(attribute string, op storagemodels.Operator, values ...any) ReadOption {
	return func(c *readConfig) {
		c.filters = append(c.filters, filter{attribute: attribute, op: op, values: values})
	}
}

// WriteOption configures Save and Delete.
type WriteOption func(*writeConfig)

type writeConfig struct {
	raiseOnConflict bool
}

func applyWriteOptions(opts []WriteOption) writeConfig {
	var cfg writeConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// RaiseOnConflict makes the write conditional on the stored item still
// matching the entity's snapshot, or on no item existing yet for a fresh
// entity.
func RaiseOnConflict() WriteOption {
	return func(c *writeConfig) { c.raiseOnConflict = true }
}
