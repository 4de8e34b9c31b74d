/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/suparena/entitymapper/storagemodels"
)

// Store is the item store the mapper runs on. Implementations must be safe
// for concurrent use.
type Store interface {
	// GetItem returns errors.ErrNotFound when no item has this key.
	GetItem(ctx context.Context, table string, key storagemodels.Key, consistentRead bool) (storagemodels.Payload, error)

	// BatchGetItems is eventually consistent. Missing keys are skipped and
	// the order of the result is unspecified.
	BatchGetItems(ctx context.Context, table string, keys []storagemodels.Key) ([]storagemodels.Payload, error)

	// Query streams the items of one hash key. The channel is closed when
	// the sequence is exhausted or ctx is done; a failure is delivered as a
	// final result with Error set.
	Query(ctx context.Context, params *storagemodels.QueryParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[storagemodels.Payload]

	// Scan streams every item of a table matching the filters.
	Scan(ctx context.Context, params *storagemodels.ScanParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[storagemodels.Payload]

	// ConditionalPut writes the full item if every expectation holds, and
	// returns errors.ErrConditionFailed otherwise. nil expected is
	// unconditional.
	ConditionalPut(ctx context.Context, table string, item storagemodels.Payload, expected storagemodels.Expected) error

	// ConditionalDelete removes the item under the same rules. Deleting a
	// missing item with no expectations succeeds.
	ConditionalDelete(ctx context.Context, table string, key storagemodels.Key, expected storagemodels.Expected) error

	// AtomicIncrement adds one to a numeric attribute, creating the item
	// and attribute as needed, and returns the new value.
	AtomicIncrement(ctx context.Context, table string, key storagemodels.Key, counterAttribute string) (int64, error)
}

// TableCreator is implemented by stores that can provision tables.
type TableCreator interface {
	CreateTable(ctx context.Context, def storagemodels.TableDefinition) error
}
