/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides an in-memory implementation of datastore.Store for testing
package mock

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/entitymapper/datastore/internal/cond"
	"github.com/suparena/entitymapper/datastore/internal/streamutil"
	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/storagemodels"
)

type table struct {
	hashKey  string
	rangeKey string
	items    map[string]storagemodels.Payload
}

// Calls counts the store round trips by operation.
type Calls struct {
	Get, BatchGet, Query, Scan, Put, Delete, Increment int
}

// Store is an in-memory datastore.Store with conditional write semantics
// and error injection. Tables must be declared with WithTable or
// CreateTable before use.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*table
	calls  Calls

	getError       error
	putError       error
	deleteError    error
	incrementError error
	queryError     error
	beforePut      func(table string, item storagemodels.Payload)
}

// New creates a new mock Store
func New() *Store {
	return &Store{tables: make(map[string]*table)}
}

// WithTable declares a table and its key attributes. rangeKey may be empty.
func (m *Store) WithTable(name, hashKey, rangeKey string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[name]; !ok {
		m.tables[name] = &table{hashKey: hashKey, rangeKey: rangeKey, items: make(map[string]storagemodels.Payload)}
	}
	return m
}

// WithGetError makes GetItem and BatchGetItems return an error
func (m *Store) WithGetError(err error) *Store {
	m.getError = err
	return m
}

// WithPutError makes ConditionalPut return an error
func (m *Store) WithPutError(err error) *Store {
	m.putError = err
	return m
}

// WithDeleteError makes ConditionalDelete return an error
func (m *Store) WithDeleteError(err error) *Store {
	m.deleteError = err
	return m
}

// WithIncrementError makes AtomicIncrement return an error
func (m *Store) WithIncrementError(err error) *Store {
	m.incrementError = err
	return m
}

// WithQueryError makes Query and Scan deliver a terminal error
func (m *Store) WithQueryError(err error) *Store {
	m.queryError = err
	return m
}

// WithBeforePut installs a hook run before each put is evaluated, outside
// the store lock. Tests use it to interleave concurrent writers.
func (m *Store) WithBeforePut(f func(table string, item storagemodels.Payload)) *Store {
	m.beforePut = f
	return m
}

// CreateTable implements datastore.TableCreator
func (m *Store) CreateTable(ctx context.Context, def storagemodels.TableDefinition) error {
	rangeKey := ""
	if def.RangeKey != nil {
		rangeKey = def.RangeKey.Name
	}
	m.WithTable(def.TableName, def.HashKey.Name, rangeKey)
	return nil
}

func (m *Store) table(name string) (*table, error) {
	t, ok := m.tables[name]
	if !ok {
		return nil, fmt.Errorf("table %q does not exist", name)
	}
	return t, nil
}

func (t *table) keyOf(item storagemodels.Payload) (string, error) {
	k, err := cond.KeyString(item, t.hashKey, t.rangeKey)
	if err != nil {
		return "", errors.NewValidationError("key", err.Error())
	}
	return k, nil
}

// GetItem retrieves an item by key
func (m *Store) GetItem(ctx context.Context, tableName string, key storagemodels.Key, consistentRead bool) (storagemodels.Payload, error) {
	m.mu.Lock()
	m.calls.Get++
	m.mu.Unlock()
	if m.getError != nil {
		return nil, m.getError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	t, err := m.table(tableName)
	if err != nil {
		return nil, err
	}
	k, err := t.keyOf(key)
	if err != nil {
		return nil, err
	}
	item, ok := t.items[k]
	if !ok {
		return nil, errors.NewNotFoundError(tableName, k)
	}
	return maps.Clone(item), nil
}

// BatchGetItems retrieves the items that exist among keys
func (m *Store) BatchGetItems(ctx context.Context, tableName string, keys []storagemodels.Key) ([]storagemodels.Payload, error) {
	m.mu.Lock()
	m.calls.BatchGet++
	m.mu.Unlock()
	if m.getError != nil {
		return nil, m.getError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	t, err := m.table(tableName)
	if err != nil {
		return nil, err
	}
	out := make([]storagemodels.Payload, 0, len(keys))
	for _, key := range keys {
		k, err := t.keyOf(key)
		if err != nil {
			return nil, err
		}
		if item, ok := t.items[k]; ok {
			out = append(out, maps.Clone(item))
		}
	}
	return out, nil
}

// ConditionalPut stores a full item when the expectations hold
func (m *Store) ConditionalPut(ctx context.Context, tableName string, item storagemodels.Payload, expected storagemodels.Expected) error {
	if m.beforePut != nil {
		m.beforePut(tableName, item)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Put++
	if m.putError != nil {
		return m.putError
	}

	t, err := m.table(tableName)
	if err != nil {
		return err
	}
	k, err := t.keyOf(item)
	if err != nil {
		return err
	}
	if !cond.CheckExpected(t.items[k], expected) {
		return errors.NewConditionFailedError("put", fmt.Sprintf("%d expectations on %s", len(expected), tableName))
	}
	t.items[k] = maps.Clone(item)
	return nil
}

// ConditionalDelete removes an item when the expectations hold
func (m *Store) ConditionalDelete(ctx context.Context, tableName string, key storagemodels.Key, expected storagemodels.Expected) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Delete++
	if m.deleteError != nil {
		return m.deleteError
	}

	t, err := m.table(tableName)
	if err != nil {
		return err
	}
	k, err := t.keyOf(key)
	if err != nil {
		return err
	}
	if !cond.CheckExpected(t.items[k], expected) {
		return errors.NewConditionFailedError("delete", fmt.Sprintf("%d expectations on %s", len(expected), tableName))
	}
	delete(t.items, k)
	return nil
}

// AtomicIncrement adds one to a counter attribute
func (m *Store) AtomicIncrement(ctx context.Context, tableName string, key storagemodels.Key, counterAttribute string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Increment++
	if m.incrementError != nil {
		return 0, m.incrementError
	}

	t, err := m.table(tableName)
	if err != nil {
		return 0, err
	}
	k, err := t.keyOf(key)
	if err != nil {
		return 0, err
	}
	item, ok := t.items[k]
	if !ok {
		item = maps.Clone(key)
	} else {
		item = maps.Clone(item)
	}
	var current int64
	if n, ok := item[counterAttribute].(*types.AttributeValueMemberN); ok {
		if current, err = strconv.ParseInt(n.Value, 10, 64); err != nil {
			return 0, errors.NewValidationError(counterAttribute, "counter is not an integer")
		}
	}
	current++
	item[counterAttribute] = &types.AttributeValueMemberN{Value: strconv.FormatInt(current, 10)}
	t.items[k] = item
	return current, nil
}

// Query streams the items of one hash key
func (m *Store) Query(ctx context.Context, params *storagemodels.QueryParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[storagemodels.Payload] {
	m.mu.Lock()
	m.calls.Query++
	m.mu.Unlock()

	return m.stream(ctx, params.TableName, opts, func(t *table) []storagemodels.Payload {
		var out []storagemodels.Payload
		for _, item := range t.items {
			if !cond.Equal(item[params.HashKeyName], params.HashKey) {
				continue
			}
			if params.RangeCondition != nil && !cond.Match(item, *params.RangeCondition) {
				continue
			}
			out = append(out, maps.Clone(item))
		}
		cond.SortByKey(out, t.hashKey, t.rangeKey, params.Descending)
		return streamutil.Limit(out, params.Limit)
	})
}

// Scan streams every matching item of a table
func (m *Store) Scan(ctx context.Context, params *storagemodels.ScanParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[storagemodels.Payload] {
	m.mu.Lock()
	m.calls.Scan++
	m.mu.Unlock()

	return m.stream(ctx, params.TableName, opts, func(t *table) []storagemodels.Payload {
		var out []storagemodels.Payload
		for _, item := range t.items {
			if cond.MatchAll(item, params.Filters) {
				out = append(out, maps.Clone(item))
			}
		}
		cond.SortByKey(out, t.hashKey, t.rangeKey, false)
		return streamutil.Limit(out, params.Limit)
	})
}

// stream snapshots the selected items under the lock, then hands them to
// the result channel.
func (m *Store) stream(ctx context.Context, tableName string, opts []storagemodels.StreamOption, sel func(*table) []storagemodels.Payload) <-chan storagemodels.StreamResult[storagemodels.Payload] {
	var items []storagemodels.Payload
	err := m.queryError
	if err == nil {
		m.mu.RLock()
		t, terr := m.table(tableName)
		if terr != nil {
			err = terr
		} else {
			items = sel(t)
		}
		m.mu.RUnlock()
	}
	return streamutil.Emit(ctx, items, err, opts...)
}

// Helper methods for testing

// SetItem stores an item directly, bypassing conditions and counters.
func (m *Store) SetItem(tableName string, item storagemodels.Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.table(tableName)
	if err != nil {
		return err
	}
	k, err := t.keyOf(item)
	if err != nil {
		return err
	}
	t.items[k] = maps.Clone(item)
	return nil
}

// Items returns a copy of every item of a table, ordered by key.
func (m *Store) Items(tableName string) []storagemodels.Payload {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[tableName]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(t.items))
	for k := range t.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]storagemodels.Payload, 0, len(keys))
	for _, k := range keys {
		out = append(out, maps.Clone(t.items[k]))
	}
	return out
}

// Count returns the number of stored items in a table
func (m *Store) Count(tableName string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.tables[tableName]; ok {
		return len(t.items)
	}
	return 0
}

// Calls returns the round trip counters
func (m *Store) Calls() Calls {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// Clear removes all items and resets the counters
func (m *Store) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tables {
		t.items = make(map[string]storagemodels.Payload)
	}
	m.calls = Calls{}
}
