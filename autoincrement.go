/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitymapper

import (
	"context"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/storagemodels"
)

const (
	// MaxRetries bounds the allocations tried for one autoincrement save.
	MaxRetries = 100

	// MagicKey is the hash key of the counter row. No entity may use it.
	MagicKey int64 = -1

	// CounterAttribute holds the last allocated key in the counter row.
	CounterAttribute = "__max_hash_key__"
)

var magicKeyString = strconv.FormatInt(MagicKey, 10)

// allocate reserves a fresh key from the counter row and saves e under it,
// retrying while the key turns out to be taken. On failure the hash key is
// left unset.
func (k *Kind) allocate(ctx context.Context, e *Entity) error {
	hashKey := k.schema.HashKey
	counterKey := storagemodels.Key{hashKey: &types.AttributeValueMemberN{Value: magicKeyString}}

	for attempt := 1; attempt <= MaxRetries; attempt++ {
		id, err := k.store.AtomicIncrement(ctx, k.schema.Table, counterKey, CounterAttribute)
		if err != nil {
			e.values[hashKey] = nil
			return err
		}
		e.values[hashKey] = id

		err = e.put(ctx, true)
		if err == nil {
			k.dbLogger.Debug("saved autoincrement key", "key", id, "attempts", attempt)
			return nil
		}
		if !errors.IsConflict(err) {
			e.values[hashKey] = nil
			return err
		}
		k.logger.Debug("autoincrement key already taken, retrying",
			"table", k.schema.Table, "key", id, "attempt", attempt)
	}

	e.values[hashKey] = nil
	return errors.NewMaxRetriesExceededError(k.schema.Table, MaxRetries)
}
