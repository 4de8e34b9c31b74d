/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package bolt

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/entitymapper/datastore/internal/cond"
	"github.com/suparena/entitymapper/datastore/internal/streamutil"
	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/storagemodels"
	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"
)

// metaBucket holds the key definition of every table.
var metaBucket = []byte("__tables__")

// Store is a datastore.Store on a local bbolt file. Each table is a bucket
// whose keys are the rendered hash and range key, so the items of one hash
// key are contiguous and ordered.
type Store struct {
	bdb    *bbolt.DB
	logger *slog.Logger
}

// Options configures Open.
type Options struct {
	Logger *slog.Logger
	// IsTesting trades durability for speed.
	IsTesting bool
	// Timeout bounds the wait for the file lock.
	Timeout time.Duration
}

// Open opens or creates the database file at path.
func Open(path string, opt Options) (*Store, error) {
	bopt := &bbolt.Options{}
	*bopt = *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	if opt.Timeout > 0 {
		bopt.Timeout = opt.Timeout
	}
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
	} else {
		bopt.FreelistType = bbolt.FreelistMapType
	}

	bdb, err := bbolt.Open(path, 0600, bopt)
	if err != nil {
		return nil, fmt.Errorf("bolt: %w", err)
	}
	err = bdb.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(metaBucket)
		return err
	})
	if err != nil {
		bdb.Close()
		return nil, fmt.Errorf("bolt: %w", err)
	}

	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("bolt store opened", "path", path)
	return &Store{bdb: bdb, logger: logger}, nil
}

// Close releases the database file.
func (s *Store) Close() error {
	return s.bdb.Close()
}

// CreateTable records the table's keys. Creating an existing table with the
// same keys is a no-op.
func (s *Store) CreateTable(ctx context.Context, def storagemodels.TableDefinition) error {
	meta := tableMeta{HashKey: def.HashKey.Name}
	if def.RangeKey != nil {
		meta.RangeKey = def.RangeKey.Name
	}
	raw, err := marshal(meta)
	if err != nil {
		return err
	}

	return s.bdb.Update(func(tx *bbolt.Tx) error {
		mb := tx.Bucket(metaBucket)
		if existing := mb.Get([]byte(def.TableName)); existing != nil {
			if !bytes.Equal(existing, raw) {
				return fmt.Errorf("table %q already exists with different keys", def.TableName)
			}
			return nil
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(def.TableName)); err != nil {
			return err
		}
		s.logger.Info("table created", "table", def.TableName, "hashKey", meta.HashKey, "rangeKey", meta.RangeKey)
		return mb.Put([]byte(def.TableName), raw)
	})
}

// table resolves a table bucket and its key definition within tx.
func table(tx *bbolt.Tx, name string) (*bbolt.Bucket, tableMeta, error) {
	var meta tableMeta
	raw := tx.Bucket(metaBucket).Get([]byte(name))
	if raw == nil {
		return nil, meta, fmt.Errorf("table %q does not exist", name)
	}
	if err := msgpack.Unmarshal(raw, &meta); err != nil {
		return nil, meta, fmt.Errorf("table %q: corrupt definition: %w", name, err)
	}
	return tx.Bucket([]byte(name)), meta, nil
}

func (m tableMeta) key(item storagemodels.Payload) ([]byte, error) {
	k, err := cond.KeyString(item, m.HashKey, m.RangeKey)
	if err != nil {
		return nil, errors.NewValidationError("key", err.Error())
	}
	return []byte(k), nil
}

func getItem(b *bbolt.Bucket, k []byte) (storagemodels.Payload, error) {
	raw := b.Get(k)
	if raw == nil {
		return nil, nil
	}
	return decodeItem(raw)
}

// GetItem retrieves an item by key. Reads are always consistent.
func (s *Store) GetItem(ctx context.Context, tableName string, key storagemodels.Key, consistentRead bool) (storagemodels.Payload, error) {
	var item storagemodels.Payload
	err := s.bdb.View(func(tx *bbolt.Tx) error {
		b, meta, err := table(tx, tableName)
		if err != nil {
			return err
		}
		k, err := meta.key(key)
		if err != nil {
			return err
		}
		if item, err = getItem(b, k); err != nil {
			return err
		}
		if item == nil {
			return errors.NewNotFoundError(tableName, string(k))
		}
		return nil
	})
	return item, err
}

// BatchGetItems reads every key in one transaction, skipping missing ones.
func (s *Store) BatchGetItems(ctx context.Context, tableName string, keys []storagemodels.Key) ([]storagemodels.Payload, error) {
	items := make([]storagemodels.Payload, 0, len(keys))
	err := s.bdb.View(func(tx *bbolt.Tx) error {
		b, meta, err := table(tx, tableName)
		if err != nil {
			return err
		}
		for _, key := range keys {
			k, err := meta.key(key)
			if err != nil {
				return err
			}
			item, err := getItem(b, k)
			if err != nil {
				return err
			}
			if item != nil {
				items = append(items, item)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ConditionalPut stores the item if the expectations hold against the
// current item, both evaluated in one write transaction.
func (s *Store) ConditionalPut(ctx context.Context, tableName string, item storagemodels.Payload, expected storagemodels.Expected) error {
	raw, err := encodeItem(item)
	if err != nil {
		return err
	}
	return s.bdb.Update(func(tx *bbolt.Tx) error {
		b, meta, err := table(tx, tableName)
		if err != nil {
			return err
		}
		k, err := meta.key(item)
		if err != nil {
			return err
		}
		current, err := getItem(b, k)
		if err != nil {
			return err
		}
		if !cond.CheckExpected(current, expected) {
			return errors.NewConditionFailedError("put", fmt.Sprintf("%d expectations on %s", len(expected), tableName))
		}
		return b.Put(k, raw)
	})
}

// ConditionalDelete removes the item under the same rules as ConditionalPut.
func (s *Store) ConditionalDelete(ctx context.Context, tableName string, key storagemodels.Key, expected storagemodels.Expected) error {
	return s.bdb.Update(func(tx *bbolt.Tx) error {
		b, meta, err := table(tx, tableName)
		if err != nil {
			return err
		}
		k, err := meta.key(key)
		if err != nil {
			return err
		}
		current, err := getItem(b, k)
		if err != nil {
			return err
		}
		if !cond.CheckExpected(current, expected) {
			return errors.NewConditionFailedError("delete", fmt.Sprintf("%d expectations on %s", len(expected), tableName))
		}
		return b.Delete(k)
	})
}

// AtomicIncrement adds one to a counter attribute. bbolt serializes write
// transactions, so the read-modify-write is atomic.
func (s *Store) AtomicIncrement(ctx context.Context, tableName string, key storagemodels.Key, counterAttribute string) (int64, error) {
	var value int64
	err := s.bdb.Update(func(tx *bbolt.Tx) error {
		b, meta, err := table(tx, tableName)
		if err != nil {
			return err
		}
		k, err := meta.key(key)
		if err != nil {
			return err
		}
		item, err := getItem(b, k)
		if err != nil {
			return err
		}
		if item == nil {
			item = make(storagemodels.Payload, len(key)+1)
			for name, v := range key {
				item[name] = v
			}
		}
		if n, ok := item[counterAttribute].(*types.AttributeValueMemberN); ok {
			if value, err = strconv.ParseInt(n.Value, 10, 64); err != nil {
				return errors.NewValidationError(counterAttribute, "counter is not an integer")
			}
		}
		value++
		item[counterAttribute] = &types.AttributeValueMemberN{Value: strconv.FormatInt(value, 10)}

		raw, err := encodeItem(item)
		if err != nil {
			return err
		}
		return b.Put(k, raw)
	})
	return value, err
}

// Query reads the items of one hash key with a cursor seek on its prefix.
func (s *Store) Query(ctx context.Context, params *storagemodels.QueryParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[storagemodels.Payload] {
	var items []storagemodels.Payload
	err := s.bdb.View(func(tx *bbolt.Tx) error {
		b, meta, err := table(tx, params.TableName)
		if err != nil {
			return err
		}
		if params.HashKeyName != meta.HashKey {
			return errors.NewValidationError(params.HashKeyName, fmt.Sprintf("not the hash key of %s", params.TableName))
		}
		prefix, err := cond.KeyString(storagemodels.Payload{meta.HashKey: params.HashKey}, meta.HashKey)
		if err != nil {
			return errors.NewValidationError(meta.HashKey, err.Error())
		}

		if meta.RangeKey == "" {
			item, err := getItem(b, []byte(prefix))
			if err != nil || item == nil {
				return err
			}
			items = append(items, item)
			return nil
		}

		seek := []byte(prefix + "\x00")
		c := b.Cursor()
		for k, v := c.Seek(seek); k != nil && bytes.HasPrefix(k, seek); k, v = c.Next() {
			item, err := decodeItem(v)
			if err != nil {
				return err
			}
			if params.RangeCondition != nil && !cond.Match(item, *params.RangeCondition) {
				continue
			}
			items = append(items, item)
		}
		// byte order is not numeric order for N range keys
		cond.SortByKey(items, meta.HashKey, meta.RangeKey, params.Descending)
		return nil
	})
	s.logger.Debug("query", "table", params.TableName, "items", len(items), "error", err)
	return streamutil.Emit(ctx, streamutil.Limit(items, params.Limit), err, opts...)
}

// Scan walks a whole table bucket applying the filters.
func (s *Store) Scan(ctx context.Context, params *storagemodels.ScanParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[storagemodels.Payload] {
	var items []storagemodels.Payload
	err := s.bdb.View(func(tx *bbolt.Tx) error {
		b, meta, err := table(tx, params.TableName)
		if err != nil {
			return err
		}
		err = b.ForEach(func(_, v []byte) error {
			item, err := decodeItem(v)
			if err != nil {
				return err
			}
			if cond.MatchAll(item, params.Filters) {
				items = append(items, item)
			}
			return nil
		})
		if err != nil {
			return err
		}
		cond.SortByKey(items, meta.HashKey, meta.RangeKey, false)
		return nil
	})
	s.logger.Debug("scan", "table", params.TableName, "items", len(items), "error", err)
	return streamutil.Emit(ctx, streamutil.Limit(items, params.Limit), err, opts...)
}
