/*
Package datastore defines the item store interface the entity mapper is
built on.

	type Store interface {
	    GetItem(ctx, table, key, consistentRead) (Payload, error)
	    BatchGetItems(ctx, table, keys) ([]Payload, error)
	    Query(ctx, params, opts...) <-chan StreamResult[Payload]
	    Scan(ctx, params, opts...) <-chan StreamResult[Payload]
	    ConditionalPut(ctx, table, item, expected) error
	    ConditionalDelete(ctx, table, key, expected) error
	    AtomicIncrement(ctx, table, key, counterAttribute) (int64, error)
	}

Implementations:
  - ddb: Amazon DynamoDB (or DynamoDB Local)
  - bolt: embedded single-file store on bbolt, for tools and local runs
  - mock: in-memory store with error injection, for tests

Conditional write failures are reported as errors.ErrConditionFailed by
every implementation; the mapper turns them into conflict errors.
*/
package datastore
