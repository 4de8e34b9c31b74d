/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitymapper

import (
	"context"

	"github.com/suparena/entitymapper/attr"
	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/storagemodels"
)

// Save writes the entity. Without RaiseOnConflict the write is
// unconditional. With it, a persisted entity must still match the stored
// item (ConflictError otherwise) and a fresh one must not exist yet
// (OverwriteError otherwise).
//
// An unset autoincrement hash key is allocated first; see MaxRetries.
func (e *Entity) Save(ctx context.Context, opts ...WriteOption) error {
	cfg := applyWriteOptions(opts)
	s := e.kind.schema

	if s.Attributes[s.HashKey].IsAutoIncrement() {
		hash := e.values[s.HashKey]
		if hash == nil {
			return e.kind.allocate(ctx, e)
		}
		if attr.Equal(hash, MagicKey) {
			return errors.NewSchemaError(e.kind.Name(), "key %d is reserved in tables with an autoincrement key", MagicKey)
		}
	}
	return e.put(ctx, cfg.raiseOnConflict)
}

func (e *Entity) put(ctx context.Context, raiseOnConflict bool) error {
	k := e.kind
	if _, err := e.Key(); err != nil {
		return err
	}
	payload, err := e.encode()
	if err != nil {
		return err
	}

	var expected storagemodels.Expected
	fromSnapshot := e.IsPersisted()
	if raiseOnConflict {
		if fromSnapshot {
			expected = e.expectedFromSnapshot()
		} else {
			expected = storagemodels.Expected{}
			for _, name := range k.schema.keyNames() {
				expected[name] = storagemodels.MustBeAbsent()
			}
		}
	}

	err = k.store.ConditionalPut(ctx, k.schema.Table, payload, expected)
	if err != nil {
		if raiseOnConflict && errors.IsConditionFailed(err) {
			if fromSnapshot {
				return errors.NewConflictError(k.schema.Table, "save", err)
			}
			return errors.NewOverwriteError(k.schema.Table, err)
		}
		return err
	}

	e.snapshot = payload
	k.dbLogger.Debug("saved",
		"hash", e.values[k.schema.HashKey],
		"range", e.rangeValue(),
		"raiseOnConflict", raiseOnConflict)
	return nil
}

// Delete removes the entity. With RaiseOnConflict the stored item must
// still match the snapshot, and deleting a never persisted entity is a
// ConflictError without any store call.
func (e *Entity) Delete(ctx context.Context, opts ...WriteOption) error {
	cfg := applyWriteOptions(opts)
	k := e.kind

	var expected storagemodels.Expected
	if cfg.raiseOnConflict {
		if !e.IsPersisted() {
			return errors.NewConflictError(k.schema.Table, "delete", nil)
		}
		expected = e.expectedFromSnapshot()
	}

	key, err := e.Key()
	if err != nil {
		return err
	}
	err = k.store.ConditionalDelete(ctx, k.schema.Table, key, expected)
	if err != nil {
		if errors.IsConditionFailed(err) {
			return errors.NewConflictError(k.schema.Table, "delete", err)
		}
		return err
	}

	e.snapshot = nil
	k.dbLogger.Debug("deleted", "hash", e.values[k.schema.HashKey], "range", e.rangeValue())
	return nil
}

// expectedFromSnapshot asserts every declared attribute is stored exactly
// as in the snapshot, absent ones included.
func (e *Entity) expectedFromSnapshot() storagemodels.Expected {
	expected := make(storagemodels.Expected, len(e.kind.attributeNames))
	for _, name := range e.kind.attributeNames {
		if v, ok := e.snapshot[name]; ok {
			expected[name] = storagemodels.MustExist(v)
		} else {
			expected[name] = storagemodels.MustBeAbsent()
		}
	}
	return expected
}

func (e *Entity) rangeValue() any {
	if e.kind.schema.RangeKey == "" {
		return nil
	}
	return e.values[e.kind.schema.RangeKey]
}
