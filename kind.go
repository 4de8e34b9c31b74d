/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitymapper

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/entitymapper/attr"
	"github.com/suparena/entitymapper/datastore"
	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/storagemodels"
)

// Kind is a registered record kind: a schema bound to a store.
type Kind struct {
	schema         Schema
	attributeNames []string
	store          datastore.Store
	logger         *slog.Logger
	dbLogger       *slog.Logger
}

// Key selects one item. Range is ignored on hash-only tables.
type Key struct {
	Hash  any
	Range any
}

func newKind(m *Mapper, schema Schema) *Kind {
	schema = schema.clone()
	if schema.Name == "" {
		schema.Name = schema.Table
	}
	return &Kind{
		schema:         schema,
		attributeNames: slices.Sorted(maps.Keys(schema.Attributes)),
		store:          m.store,
		logger:         m.logger.With("kind", schema.Name),
		dbLogger:       m.dbLogger.With("table", schema.Table),
	}
}

// Name returns the kind name.
func (k *Kind) Name() string { return k.schema.Name }

// Schema returns a copy of the kind's schema.
func (k *Kind) Schema() Schema { return k.schema.clone() }

// New builds a fresh, never persisted entity. Each declared attribute takes
// its value from values, else from its default, else stays unset.
func (k *Kind) New(values map[string]any) (*Entity, error) {
	for name := range values {
		if _, ok := k.schema.Attributes[name]; !ok {
			return nil, errors.NewValidationError(name, fmt.Sprintf("not an attribute of %s", k.Name()))
		}
	}

	e := &Entity{kind: k, values: make(map[string]any, len(k.schema.Attributes))}
	for _, name := range k.attributeNames {
		v, ok := values[name]
		if !ok {
			d, hasDefault := k.schema.Defaults[name]
			if !hasDefault {
				e.values[name] = nil
				continue
			}
			v = d.resolve()
		}
		if err := e.Set(name, v); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// MustNew is like New but panics on error.
func (k *Kind) MustNew(values map[string]any) *Entity {
	e, err := k.New(values)
	if err != nil {
		panic(err)
	}
	return e
}

// Decode builds the entity a stored payload describes, as if it had just
// been loaded: migrated, coerced and with the payload as snapshot.
func (k *Kind) Decode(payload storagemodels.Payload) (*Entity, error) {
	return k.fromPayload(payload)
}

// Table returns the name of the kind's table.
func (k *Kind) Table() string { return k.schema.Table }

// fromPayload migrates and decodes a stored payload. The payload itself
// becomes the snapshot.
func (k *Kind) fromPayload(raw storagemodels.Payload) (*Entity, error) {
	payload := raw
	if k.schema.Migrator != nil {
		var err error
		if payload, err = k.schema.Migrator.Migrate(raw); err != nil {
			return nil, err
		}
	}

	e := &Entity{
		kind:     k,
		values:   make(map[string]any, len(k.schema.Attributes)),
		snapshot: maps.Clone(raw),
	}
	for _, name := range k.attributeNames {
		v, err := attr.Decode(k.schema.Attributes[name], payload[name])
		if err != nil {
			return nil, fieldError(name, err)
		}
		e.values[name] = v
	}
	return e, nil
}

// encodeKey renders a Key for the store.
func (k *Kind) encodeKey(key Key) (storagemodels.Key, error) {
	hash, err := attr.EncodeKey(k.schema.Attributes[k.schema.HashKey], key.Hash)
	if err != nil {
		return nil, fieldError(k.schema.HashKey, err)
	}
	out := storagemodels.Key{k.schema.HashKey: hash}
	if k.schema.RangeKey != "" {
		rng, err := attr.EncodeKey(k.schema.Attributes[k.schema.RangeKey], key.Range)
		if err != nil {
			return nil, fieldError(k.schema.RangeKey, err)
		}
		out[k.schema.RangeKey] = rng
	}
	return out, nil
}

// Get loads one entity by primary key.
func (k *Kind) Get(ctx context.Context, key Key, opts ...ReadOption) (*Entity, error) {
	cfg := applyReadOptions(opts)
	storeKey, err := k.encodeKey(key)
	if err != nil {
		return nil, err
	}

	raw, err := k.store.GetItem(ctx, k.schema.Table, storeKey, cfg.consistentRead)
	if err != nil {
		return nil, err
	}
	k.dbLogger.Debug("got item", "hash", key.Hash, "range", key.Range, "consistent", cfg.consistentRead)
	return k.fromPayload(raw)
}

// GetBatch loads the entities that exist among keys. Reads are eventually
// consistent and the result order is unspecified.
func (k *Kind) GetBatch(ctx context.Context, keys []Key) ([]*Entity, error) {
	storeKeys := make([]storagemodels.Key, 0, len(keys))
	for _, key := range keys {
		sk, err := k.encodeKey(key)
		if err != nil {
			return nil, err
		}
		storeKeys = append(storeKeys, sk)
	}

	raws, err := k.store.BatchGetItems(ctx, k.schema.Table, storeKeys)
	if err != nil {
		return nil, err
	}
	k.dbLogger.Debug("batch got items", "requested", len(keys), "found", len(raws))

	out := make([]*Entity, 0, len(raws))
	for _, raw := range raws {
		e, err := k.fromPayload(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Query streams the entities sharing a hash key, in range key order.
func (k *Kind) Query(ctx context.Context, hashKey any, opts ...ReadOption) <-chan storagemodels.StreamResult[*Entity] {
	cfg := applyReadOptions(opts)
	params := &storagemodels.QueryParams{
		TableName:      k.schema.Table,
		HashKeyName:    k.schema.HashKey,
		ConsistentRead: cfg.consistentRead,
		Descending:     cfg.descending,
		Limit:          cfg.limit,
	}

	hash, err := attr.EncodeKey(k.schema.Attributes[k.schema.HashKey], hashKey)
	if err != nil {
		return k.failed(fieldError(k.schema.HashKey, err))
	}
	params.HashKey = hash

	if cfg.rangeOp != "" {
		if k.schema.RangeKey == "" {
			return k.failed(errors.NewValidationError("", fmt.Sprintf("%s has no range key", k.Name())))
		}
		c, err := k.condition(k.schema.RangeKey, cfg.rangeOp, cfg.rangeValues, storagemodels.QueryOperators)
		if err != nil {
			return k.failed(err)
		}
		params.RangeCondition = &c
	}

	k.dbLogger.Debug("queried", "hash", hashKey, "rangeOp", cfg.rangeOp, "descending", cfg.descending, "limit", cfg.limit)
	return k.decodeStream(ctx, k.store.Query(ctx, params, cfg.streamOptions...), false)
}

// Scan streams every entity of the table that passes the filters. The
// autoincrement counter row is never returned.
func (k *Kind) Scan(ctx context.Context, opts ...ReadOption) <-chan storagemodels.StreamResult[*Entity] {
	cfg := applyReadOptions(opts)
	params := &storagemodels.ScanParams{TableName: k.schema.Table, Limit: cfg.limit}

	for _, f := range cfg.filters {
		c, err := k.condition(f.attribute, f.op, f.values, storagemodels.FilterOperators)
		if err != nil {
			return k.failed(err)
		}
		params.Filters = append(params.Filters, c)
	}

	k.dbLogger.Debug("scanned", "filters", len(params.Filters), "limit", cfg.limit)
	return k.decodeStream(ctx, k.store.Scan(ctx, params, cfg.streamOptions...), true)
}

// condition encodes the operands of a range condition or filter through
// the attribute's descriptor.
func (k *Kind) condition(name string, op storagemodels.Operator, values []any, allowed map[storagemodels.Operator]bool) (storagemodels.Condition, error) {
	c := storagemodels.Condition{Attribute: name, Operator: op}
	if !allowed[op] {
		return c, errors.NewValidationError(name, fmt.Sprintf("operator %s is not allowed here", op))
	}
	d, ok := k.schema.Attributes[name]
	if !ok {
		return c, errors.NewValidationError(name, fmt.Sprintf("not an attribute of %s", k.Name()))
	}

	operand := d
	if op == storagemodels.OpContains || op == storagemodels.OpNotContains {
		operand = memberDescriptor(d)
	}
	for _, v := range values {
		if op == storagemodels.OpBeginsWith {
			if s, ok := v.(string); ok {
				// prefixes are text whatever the key shape
				c.Values = append(c.Values, &types.AttributeValueMemberS{Value: s})
				continue
			}
		}
		av, err := attr.EncodeKey(operand, v)
		if err != nil {
			return c, fieldError(name, err)
		}
		c.Values = append(c.Values, av)
	}
	return c, nil
}

// memberDescriptor is the descriptor of one member of a set attribute, used
// for CONTAINS operands. Other shapes compare whole values.
func memberDescriptor(d attr.Descriptor) attr.Descriptor {
	shape, _ := d.Shape()
	switch shape {
	case attr.ShapeTextSet, attr.ShapeByteSet:
		return attr.Of(attr.Text)
	case attr.ShapeNumberSet:
		return attr.Of(attr.Float)
	}
	return d
}

func (k *Kind) isCounterRow(raw storagemodels.Payload) bool {
	if !k.schema.Attributes[k.schema.HashKey].IsAutoIncrement() {
		return false
	}
	n, ok := raw[k.schema.HashKey].(*types.AttributeValueMemberN)
	return ok && n.Value == magicKeyString
}

// decodeStream turns a stream of payloads into a stream of entities.
func (k *Kind) decodeStream(ctx context.Context, in <-chan storagemodels.StreamResult[storagemodels.Payload], skipCounter bool) <-chan storagemodels.StreamResult[*Entity] {
	out := make(chan storagemodels.StreamResult[*Entity], cap(in))
	go func() {
		defer close(out)
		for r := range in {
			result := storagemodels.StreamResult[*Entity]{Raw: r.Raw, Meta: r.Meta, Error: r.Error}
			if r.Error == nil {
				if skipCounter && k.isCounterRow(r.Item) {
					continue
				}
				result.Item, result.Error = k.fromPayload(r.Item)
			}
			select {
			case <-ctx.Done():
				// drain so the producer can exit
				for range in {
				}
				return
			case out <- result:
			}
		}
	}()
	return out
}

func (k *Kind) failed(err error) <-chan storagemodels.StreamResult[*Entity] {
	out := make(chan storagemodels.StreamResult[*Entity], 1)
	out <- storagemodels.StreamResult[*Entity]{Error: err}
	close(out)
	return out
}

// Collect drains a result stream, stopping at the first error.
func Collect(results <-chan storagemodels.StreamResult[*Entity]) ([]*Entity, error) {
	var out []*Entity
	for r := range results {
		if r.Error != nil {
			for range results {
			}
			return out, r.Error
		}
		out = append(out, r.Item)
	}
	return out, nil
}

// CreateTable provisions the kind's table when the store supports it. Key
// types follow the attribute shapes. Tables with an autoincrement key are
// always waited for, since the first save increments the counter row.
func (k *Kind) CreateTable(ctx context.Context, readUnits, writeUnits int64, waitForActive bool) error {
	if err := k.schema.Validate(); err != nil {
		return err
	}
	creator, ok := k.store.(datastore.TableCreator)
	if !ok {
		return fmt.Errorf("store %T cannot create tables", k.store)
	}

	def := storagemodels.TableDefinition{
		TableName:     k.schema.Table,
		ReadCapacity:  readUnits,
		WriteCapacity: writeUnits,
		WaitForActive: waitForActive,
	}
	hash := k.schema.Attributes[k.schema.HashKey]
	shape, _ := hash.Shape()
	def.HashKey = storagemodels.KeyAttribute{Name: k.schema.HashKey, Type: shape.KeyType()}
	if hash.IsAutoIncrement() {
		def.WaitForActive = true
	}
	if k.schema.RangeKey != "" {
		shape, _ := k.schema.Attributes[k.schema.RangeKey].Shape()
		def.RangeKey = &storagemodels.KeyAttribute{Name: k.schema.RangeKey, Type: shape.KeyType()}
	}

	if err := creator.CreateTable(ctx, def); err != nil {
		return err
	}
	k.logger.Info("table provisioned", "table", def.TableName, "read", readUnits, "write", writeUnits)
	return nil
}
