/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/storagemodels"
)

const (
	// batchGetLimit is the DynamoDB cap on keys per BatchGetItem request.
	batchGetLimit = 100
	// maxBatchRounds bounds the retries of unprocessed batch keys.
	maxBatchRounds = 8
	// tableActiveTimeout bounds CreateTable's wait for an ACTIVE table.
	tableActiveTimeout = 5 * time.Minute
)

// Store implements datastore.Store on Amazon DynamoDB.
type Store struct {
	client       API
	logger       *slog.Logger
	batchBackoff time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithBatchBackoff sets the pause before retrying unprocessed batch keys.
func WithBatchBackoff(d time.Duration) Option {
	return func(s *Store) {
		s.batchBackoff = d
	}
}

// New wraps a DynamoDB client.
func New(client API, opts ...Option) *Store {
	s := &Store{
		client:       client,
		logger:       slog.Default(),
		batchBackoff: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromConfig builds the client and the store in one step.
func NewFromConfig(ctx context.Context, cfg ClientConfig, opts ...Option) (*Store, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create DynamoDB client: %w", err)
	}
	s := New(client, opts...)
	s.logger.Debug("dynamodb client initialized", "region", cfg.Region, "endpoint", cfg.Endpoint)
	return s, nil
}

// GetItem retrieves a single item by key.
func (d *Store) GetItem(ctx context.Context, table string, key storagemodels.Key, consistentRead bool) (storagemodels.Payload, error) {
	out, err := d.client.GetItem(ctx, &sdk.GetItemInput{
		TableName:      aws.String(table),
		Key:            key,
		ConsistentRead: aws.Bool(consistentRead),
	})
	if err != nil {
		return nil, fmt.Errorf("GetItem error: %w", err)
	}
	if out.Item == nil {
		return nil, errors.NewNotFoundError(table, describeKey(key))
	}
	return out.Item, nil
}

// BatchGetItems fetches keys in chunks of 100, retrying unprocessed keys.
func (d *Store) BatchGetItems(ctx context.Context, table string, keys []storagemodels.Key) ([]storagemodels.Payload, error) {
	items := make([]storagemodels.Payload, 0, len(keys))

	for start := 0; start < len(keys); start += batchGetLimit {
		end := min(start+batchGetLimit, len(keys))
		pending := map[string]types.KeysAndAttributes{
			table: {Keys: keys[start:end]},
		}

		for round := 0; len(pending) > 0; round++ {
			if round >= maxBatchRounds {
				return nil, fmt.Errorf("BatchGetItem: keys still unprocessed after %d rounds", maxBatchRounds)
			}
			if round > 0 {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(time.Duration(round) * d.batchBackoff):
				}
			}

			out, err := d.client.BatchGetItem(ctx, &sdk.BatchGetItemInput{RequestItems: pending})
			if err != nil {
				return nil, fmt.Errorf("BatchGetItem error: %w", err)
			}
			items = append(items, out.Responses[table]...)
			pending = out.UnprocessedKeys
		}
	}
	return items, nil
}

// ConditionalPut writes a full item when the expectations hold.
func (d *Store) ConditionalPut(ctx context.Context, table string, item storagemodels.Payload, expected storagemodels.Expected) error {
	b := newExprBuilder("e")
	input := &sdk.PutItemInput{
		TableName:           aws.String(table),
		Item:                item,
		ConditionExpression: optional(b.expected(expected)),
	}
	input.ExpressionAttributeNames = b.attributeNames()
	input.ExpressionAttributeValues = b.attributeValues()

	if _, err := d.client.PutItem(ctx, input); err != nil {
		return mapWriteError("put", input.ConditionExpression, err)
	}
	return nil
}

// ConditionalDelete removes an item when the expectations hold.
func (d *Store) ConditionalDelete(ctx context.Context, table string, key storagemodels.Key, expected storagemodels.Expected) error {
	b := newExprBuilder("e")
	input := &sdk.DeleteItemInput{
		TableName:           aws.String(table),
		Key:                 key,
		ConditionExpression: optional(b.expected(expected)),
	}
	input.ExpressionAttributeNames = b.attributeNames()
	input.ExpressionAttributeValues = b.attributeValues()

	if _, err := d.client.DeleteItem(ctx, input); err != nil {
		return mapWriteError("delete", input.ConditionExpression, err)
	}
	return nil
}

// AtomicIncrement adds one to a counter attribute with an ADD update.
func (d *Store) AtomicIncrement(ctx context.Context, table string, key storagemodels.Key, counterAttribute string) (int64, error) {
	out, err := d.client.UpdateItem(ctx, &sdk.UpdateItemInput{
		TableName:                 aws.String(table),
		Key:                       key,
		UpdateExpression:          aws.String("ADD #c :one"),
		ExpressionAttributeNames:  map[string]string{"#c": counterAttribute},
		ExpressionAttributeValues: map[string]types.AttributeValue{":one": &types.AttributeValueMemberN{Value: "1"}},
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("UpdateItem (increment %s) failed: %w", counterAttribute, err)
	}

	var value int64
	if err := attributevalue.Unmarshal(out.Attributes[counterAttribute], &value); err != nil {
		return 0, fmt.Errorf("failed to unmarshal counter %s: %w", counterAttribute, err)
	}
	return value, nil
}

// CreateTable provisions a table, on demand billing when no capacity is given.
func (d *Store) CreateTable(ctx context.Context, def storagemodels.TableDefinition) error {
	attrs := []types.AttributeDefinition{{
		AttributeName: aws.String(def.HashKey.Name),
		AttributeType: types.ScalarAttributeType(def.HashKey.Type),
	}}
	schema := []types.KeySchemaElement{{
		AttributeName: aws.String(def.HashKey.Name),
		KeyType:       types.KeyTypeHash,
	}}
	if def.RangeKey != nil {
		attrs = append(attrs, types.AttributeDefinition{
			AttributeName: aws.String(def.RangeKey.Name),
			AttributeType: types.ScalarAttributeType(def.RangeKey.Type),
		})
		schema = append(schema, types.KeySchemaElement{
			AttributeName: aws.String(def.RangeKey.Name),
			KeyType:       types.KeyTypeRange,
		})
	}

	input := &sdk.CreateTableInput{
		TableName:            aws.String(def.TableName),
		AttributeDefinitions: attrs,
		KeySchema:            schema,
	}
	if def.ReadCapacity > 0 && def.WriteCapacity > 0 {
		input.BillingMode = types.BillingModeProvisioned
		input.ProvisionedThroughput = &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(def.ReadCapacity),
			WriteCapacityUnits: aws.Int64(def.WriteCapacity),
		}
	} else {
		input.BillingMode = types.BillingModePayPerRequest
	}

	if _, err := d.client.CreateTable(ctx, input); err != nil {
		return fmt.Errorf("CreateTable %s failed: %w", def.TableName, err)
	}
	d.logger.Info("table created", "table", def.TableName, "waitForActive", def.WaitForActive)

	if !def.WaitForActive {
		return nil
	}
	waiter := sdk.NewTableExistsWaiter(d.client)
	if err := waiter.Wait(ctx, &sdk.DescribeTableInput{TableName: aws.String(def.TableName)}, tableActiveTimeout); err != nil {
		return fmt.Errorf("waiting for table %s: %w", def.TableName, err)
	}
	return nil
}

// mapWriteError turns a failed conditional check into the store-level
// ErrConditionFailed signal and wraps everything else.
func mapWriteError(op string, condition *string, err error) error {
	if isConditionalCheckFailed(err) {
		return errors.NewConditionFailedError(op, aws.ToString(condition))
	}
	return fmt.Errorf("%s failed: %w", op, err)
}

func isConditionalCheckFailed(err error) bool {
	var cfe *types.ConditionalCheckFailedException
	if stderrors.As(err, &cfe) {
		return true
	}
	// DynamoDB Local and some proxies only surface the error code
	var apiErr smithy.APIError
	return stderrors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException"
}

func describeKey(key storagemodels.Key) string {
	var out []byte
	out = append(out, '{')
	first := true
	for _, k := range sortedNames(key) {
		if !first {
			out = append(out, ", "...)
		}
		first = false
		out = fmt.Appendf(out, "%s=%s", k, scalar(key[k]))
	}
	return string(append(out, '}'))
}

func scalar(v types.AttributeValue) string {
	switch tv := v.(type) {
	case *types.AttributeValueMemberS:
		return tv.Value
	case *types.AttributeValueMemberN:
		return tv.Value
	case *types.AttributeValueMemberB:
		return fmt.Sprintf("%x", tv.Value)
	}
	return fmt.Sprintf("%T", v)
}
