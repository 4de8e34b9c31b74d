/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/entitymapper/datastore"
	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/storagemodels"
)

var _ datastore.Store = (*Store)(nil)
var _ datastore.TableCreator = (*Store)(nil)

// fakeAPI records requests and answers them from per-method hooks.
type fakeAPI struct {
	mu sync.Mutex

	get      func(*sdk.GetItemInput) (*sdk.GetItemOutput, error)
	batchGet func(*sdk.BatchGetItemInput) (*sdk.BatchGetItemOutput, error)
	put      func(*sdk.PutItemInput) (*sdk.PutItemOutput, error)
	del      func(*sdk.DeleteItemInput) (*sdk.DeleteItemOutput, error)
	update   func(*sdk.UpdateItemInput) (*sdk.UpdateItemOutput, error)
	query    func(*sdk.QueryInput) (*sdk.QueryOutput, error)
	scan     func(*sdk.ScanInput) (*sdk.ScanOutput, error)
	create   func(*sdk.CreateTableInput) (*sdk.CreateTableOutput, error)

	queries []*sdk.QueryInput
	scans   []*sdk.ScanInput
	batches []*sdk.BatchGetItemInput
}

func (f *fakeAPI) GetItem(_ context.Context, in *sdk.GetItemInput, _ ...func(*sdk.Options)) (*sdk.GetItemOutput, error) {
	return f.get(in)
}

func (f *fakeAPI) BatchGetItem(_ context.Context, in *sdk.BatchGetItemInput, _ ...func(*sdk.Options)) (*sdk.BatchGetItemOutput, error) {
	f.mu.Lock()
	f.batches = append(f.batches, in)
	f.mu.Unlock()
	return f.batchGet(in)
}

func (f *fakeAPI) PutItem(_ context.Context, in *sdk.PutItemInput, _ ...func(*sdk.Options)) (*sdk.PutItemOutput, error) {
	return f.put(in)
}

func (f *fakeAPI) DeleteItem(_ context.Context, in *sdk.DeleteItemInput, _ ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error) {
	return f.del(in)
}

func (f *fakeAPI) UpdateItem(_ context.Context, in *sdk.UpdateItemInput, _ ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error) {
	return f.update(in)
}

func (f *fakeAPI) Query(_ context.Context, in *sdk.QueryInput, _ ...func(*sdk.Options)) (*sdk.QueryOutput, error) {
	f.mu.Lock()
	f.queries = append(f.queries, in)
	f.mu.Unlock()
	return f.query(in)
}

func (f *fakeAPI) Scan(_ context.Context, in *sdk.ScanInput, _ ...func(*sdk.Options)) (*sdk.ScanOutput, error) {
	f.mu.Lock()
	f.scans = append(f.scans, in)
	f.mu.Unlock()
	return f.scan(in)
}

func (f *fakeAPI) CreateTable(_ context.Context, in *sdk.CreateTableInput, _ ...func(*sdk.Options)) (*sdk.CreateTableOutput, error) {
	return f.create(in)
}

func (f *fakeAPI) DescribeTable(context.Context, *sdk.DescribeTableInput, ...func(*sdk.Options)) (*sdk.DescribeTableOutput, error) {
	return nil, fmt.Errorf("not implemented")
}

func s(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }
func n(v string) types.AttributeValue { return &types.AttributeValueMemberN{Value: v} }

func drain(t *testing.T, ch <-chan storagemodels.StreamResult[storagemodels.Payload]) ([]storagemodels.Payload, error) {
	t.Helper()
	var items []storagemodels.Payload
	for r := range ch {
		if r.Error != nil {
			return items, r.Error
		}
		items = append(items, r.Item)
	}
	return items, nil
}

func TestGetItem(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{get: func(in *sdk.GetItemInput) (*sdk.GetItemOutput, error) {
		assert.True(t, aws.ToBool(in.ConsistentRead))
		if in.Key["id"].(*types.AttributeValueMemberN).Value == "1" {
			return &sdk.GetItemOutput{Item: map[string]types.AttributeValue{"id": n("1"), "name": s("jean")}}, nil
		}
		return &sdk.GetItemOutput{}, nil
	}}
	store := New(api)

	item, err := store.GetItem(ctx, "users", storagemodels.Key{"id": n("1")}, true)
	require.NoError(t, err)
	assert.Equal(t, s("jean"), item["name"])

	_, err = store.GetItem(ctx, "users", storagemodels.Key{"id": n("2")}, true)
	assert.True(t, errors.IsNotFound(err))
	assert.Contains(t, err.Error(), "id=2")
}

func TestConditionalPut(t *testing.T) {
	ctx := context.Background()

	t.Run("RendersExpectations", func(t *testing.T) {
		var got *sdk.PutItemInput
		api := &fakeAPI{put: func(in *sdk.PutItemInput) (*sdk.PutItemOutput, error) {
			got = in
			return &sdk.PutItemOutput{}, nil
		}}
		expected := storagemodels.Expected{
			"name": storagemodels.MustExist(s("jean")),
			"id":   storagemodels.MustBeAbsent(),
		}
		require.NoError(t, New(api).ConditionalPut(ctx, "users", storagemodels.Payload{"id": n("1")}, expected))

		assert.Equal(t, "attribute_not_exists(#e0) AND #e1 = :e0", aws.ToString(got.ConditionExpression))
		assert.Equal(t, map[string]string{"#e0": "id", "#e1": "name"}, got.ExpressionAttributeNames)
		assert.Equal(t, s("jean"), got.ExpressionAttributeValues[":e0"])
	})

	t.Run("Unconditional", func(t *testing.T) {
		var got *sdk.PutItemInput
		api := &fakeAPI{put: func(in *sdk.PutItemInput) (*sdk.PutItemOutput, error) {
			got = in
			return &sdk.PutItemOutput{}, nil
		}}
		require.NoError(t, New(api).ConditionalPut(ctx, "users", storagemodels.Payload{"id": n("1")}, nil))
		assert.Nil(t, got.ConditionExpression)
		assert.Nil(t, got.ExpressionAttributeNames)
		assert.Nil(t, got.ExpressionAttributeValues)
	})

	t.Run("ConditionalCheckFailed", func(t *testing.T) {
		api := &fakeAPI{put: func(*sdk.PutItemInput) (*sdk.PutItemOutput, error) {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("failed")}
		}}
		err := New(api).ConditionalPut(ctx, "users", storagemodels.Payload{"id": n("1")},
			storagemodels.Expected{"id": storagemodels.MustBeAbsent()})
		assert.True(t, errors.IsConditionFailed(err))
	})

	t.Run("ErrorCodeOnly", func(t *testing.T) {
		api := &fakeAPI{put: func(*sdk.PutItemInput) (*sdk.PutItemOutput, error) {
			return nil, &smithy.GenericAPIError{Code: "ConditionalCheckFailedException", Message: "failed"}
		}}
		err := New(api).ConditionalPut(ctx, "users", storagemodels.Payload{"id": n("1")}, nil)
		assert.True(t, errors.IsConditionFailed(err))
	})

	t.Run("OtherErrorsPassThrough", func(t *testing.T) {
		boom := fmt.Errorf("network down")
		api := &fakeAPI{put: func(*sdk.PutItemInput) (*sdk.PutItemOutput, error) { return nil, boom }}
		err := New(api).ConditionalPut(ctx, "users", storagemodels.Payload{"id": n("1")}, nil)
		assert.ErrorIs(t, err, boom)
		assert.False(t, errors.IsConditionFailed(err))
	})
}

func TestConditionalDelete(t *testing.T) {
	var got *sdk.DeleteItemInput
	api := &fakeAPI{del: func(in *sdk.DeleteItemInput) (*sdk.DeleteItemOutput, error) {
		got = in
		return nil, &types.ConditionalCheckFailedException{}
	}}
	err := New(api).ConditionalDelete(context.Background(), "users", storagemodels.Key{"id": n("1")},
		storagemodels.Expected{"id": storagemodels.MustExist(n("1"))})

	assert.True(t, errors.IsConditionFailed(err))
	assert.Equal(t, "#e0 = :e0", aws.ToString(got.ConditionExpression))
}

func TestAtomicIncrement(t *testing.T) {
	api := &fakeAPI{update: func(in *sdk.UpdateItemInput) (*sdk.UpdateItemOutput, error) {
		assert.Equal(t, "ADD #c :one", aws.ToString(in.UpdateExpression))
		assert.Equal(t, "__max_hash_key__", in.ExpressionAttributeNames["#c"])
		assert.Equal(t, types.ReturnValueUpdatedNew, in.ReturnValues)
		return &sdk.UpdateItemOutput{Attributes: map[string]types.AttributeValue{"__max_hash_key__": n("42")}}, nil
	}}

	v, err := New(api).AtomicIncrement(context.Background(), "users", storagemodels.Key{"id": n("-1")}, "__max_hash_key__")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}

func TestBatchGetItems(t *testing.T) {
	ctx := context.Background()

	t.Run("Chunks", func(t *testing.T) {
		api := &fakeAPI{batchGet: func(in *sdk.BatchGetItemInput) (*sdk.BatchGetItemOutput, error) {
			keys := in.RequestItems["users"].Keys
			assert.LessOrEqual(t, len(keys), 100)
			return &sdk.BatchGetItemOutput{Responses: map[string][]map[string]types.AttributeValue{"users": keys}}, nil
		}}
		keys := make([]storagemodels.Key, 250)
		for i := range keys {
			keys[i] = storagemodels.Key{"id": n(fmt.Sprint(i))}
		}

		items, err := New(api).BatchGetItems(ctx, "users", keys)
		require.NoError(t, err)
		assert.Len(t, items, 250)
		assert.Len(t, api.batches, 3)
	})

	t.Run("RetriesUnprocessedKeys", func(t *testing.T) {
		calls := 0
		api := &fakeAPI{batchGet: func(in *sdk.BatchGetItemInput) (*sdk.BatchGetItemOutput, error) {
			calls++
			keys := in.RequestItems["users"].Keys
			if calls == 1 {
				return &sdk.BatchGetItemOutput{
					Responses:       map[string][]map[string]types.AttributeValue{"users": keys[:1]},
					UnprocessedKeys: map[string]types.KeysAndAttributes{"users": {Keys: keys[1:]}},
				}, nil
			}
			return &sdk.BatchGetItemOutput{Responses: map[string][]map[string]types.AttributeValue{"users": keys}}, nil
		}}

		items, err := New(api, WithBatchBackoff(time.Millisecond)).BatchGetItems(ctx, "users",
			[]storagemodels.Key{{"id": n("1")}, {"id": n("2")}, {"id": n("3")}})
		require.NoError(t, err)
		assert.Len(t, items, 3)
		assert.Equal(t, 2, calls)
	})
}

func TestQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("PagesAndRangeCondition", func(t *testing.T) {
		api := &fakeAPI{query: func(in *sdk.QueryInput) (*sdk.QueryOutput, error) {
			if in.ExclusiveStartKey == nil {
				return &sdk.QueryOutput{
					Items:            []map[string]types.AttributeValue{{"at": n("1")}, {"at": n("2")}},
					LastEvaluatedKey: map[string]types.AttributeValue{"at": n("2")},
				}, nil
			}
			return &sdk.QueryOutput{Items: []map[string]types.AttributeValue{{"at": n("3")}}}, nil
		}}

		ch := New(api).Query(ctx, &storagemodels.QueryParams{
			TableName:   "logs",
			HashKeyName: "user",
			HashKey:     s("jean"),
			RangeCondition: &storagemodels.Condition{
				Attribute: "at", Operator: storagemodels.OpBetween, Values: []types.AttributeValue{n("1"), n("9")},
			},
			Descending: true,
		}, storagemodels.WithPageSize(2))

		items, err := drain(t, ch)
		require.NoError(t, err)
		assert.Len(t, items, 3)

		require.Len(t, api.queries, 2)
		first := api.queries[0]
		assert.Equal(t, "#q0 = :q0 AND #q1 BETWEEN :q1 AND :q2", aws.ToString(first.KeyConditionExpression))
		assert.Equal(t, map[string]string{"#q0": "user", "#q1": "at"}, first.ExpressionAttributeNames)
		assert.False(t, aws.ToBool(first.ScanIndexForward))
		assert.Equal(t, int32(2), aws.ToInt32(first.Limit))
		assert.Equal(t, n("2"), api.queries[1].ExclusiveStartKey["at"])
	})

	t.Run("LimitStopsEarly", func(t *testing.T) {
		api := &fakeAPI{query: func(in *sdk.QueryInput) (*sdk.QueryOutput, error) {
			return &sdk.QueryOutput{
				Items:            []map[string]types.AttributeValue{{"at": n("1")}, {"at": n("2")}},
				LastEvaluatedKey: map[string]types.AttributeValue{"at": n("2")},
			}, nil
		}}
		items, err := drain(t, New(api).Query(ctx, &storagemodels.QueryParams{
			TableName: "logs", HashKeyName: "user", HashKey: s("jean"), Limit: 2,
		}))
		require.NoError(t, err)
		assert.Len(t, items, 2)
		assert.Len(t, api.queries, 1)
	})

	t.Run("RetriesThrottling", func(t *testing.T) {
		attempts := 0
		api := &fakeAPI{query: func(*sdk.QueryInput) (*sdk.QueryOutput, error) {
			attempts++
			if attempts < 3 {
				return nil, &types.ProvisionedThroughputExceededException{}
			}
			return &sdk.QueryOutput{Items: []map[string]types.AttributeValue{{"at": n("1")}}}, nil
		}}
		items, err := drain(t, New(api).Query(ctx,
			&storagemodels.QueryParams{TableName: "logs", HashKeyName: "user", HashKey: s("jean")},
			storagemodels.WithRetryBackoff(time.Millisecond)))
		require.NoError(t, err)
		assert.Len(t, items, 1)
		assert.Equal(t, 3, attempts)
	})

	t.Run("ErrorHandlerRetriesPage", func(t *testing.T) {
		const failures = 15
		attempts := 0
		api := &fakeAPI{query: func(in *sdk.QueryInput) (*sdk.QueryOutput, error) {
			attempts++
			if attempts <= failures {
				return nil, &types.ResourceNotFoundException{}
			}
			return &sdk.QueryOutput{Items: []map[string]types.AttributeValue{{"at": n("1")}}}, nil
		}}

		var last storagemodels.StreamProgress
		start := time.Now()
		items, err := drain(t, New(api).Query(ctx,
			&storagemodels.QueryParams{TableName: "logs", HashKeyName: "user", HashKey: s("jean")},
			storagemodels.WithRetryBackoff(2*time.Millisecond),
			storagemodels.WithErrorHandler(func(error) bool { return true }),
			storagemodels.WithProgressHandler(func(p storagemodels.StreamProgress) { last = p })))
		require.NoError(t, err)
		assert.Len(t, items, 1)
		assert.Equal(t, failures+1, attempts)
		assert.GreaterOrEqual(t, time.Since(start), failures*2*time.Millisecond, "pauses between attempts")
		assert.Len(t, last.Errors, maxProgressErrors)
		for _, q := range api.queries {
			assert.Nil(t, q.ExclusiveStartKey)
		}
	})

	t.Run("ErrorHandlerStopsOnCancel", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		api := &fakeAPI{query: func(*sdk.QueryInput) (*sdk.QueryOutput, error) {
			cancel()
			return nil, &types.ResourceNotFoundException{}
		}}
		_, err := drain(t, New(api).Query(cctx,
			&storagemodels.QueryParams{TableName: "logs", HashKeyName: "user", HashKey: s("jean")},
			storagemodels.WithRetryBackoff(time.Hour),
			storagemodels.WithErrorHandler(func(error) bool { return true })))
		require.NoError(t, err)
		assert.Len(t, api.queries, 1)
	})

	t.Run("NonRetryableFailure", func(t *testing.T) {
		api := &fakeAPI{query: func(*sdk.QueryInput) (*sdk.QueryOutput, error) {
			return nil, &types.ResourceNotFoundException{}
		}}
		_, err := drain(t, New(api).Query(ctx,
			&storagemodels.QueryParams{TableName: "logs", HashKeyName: "user", HashKey: s("jean")}))
		assert.Error(t, err)
		assert.Len(t, api.queries, 1)
	})

	t.Run("InvalidRangeCondition", func(t *testing.T) {
		api := &fakeAPI{}
		_, err := drain(t, New(api).Query(ctx, &storagemodels.QueryParams{
			TableName: "logs", HashKeyName: "user", HashKey: s("jean"),
			RangeCondition: &storagemodels.Condition{Attribute: "at", Operator: storagemodels.OpBetween},
		}))
		assert.Error(t, err)
		assert.Empty(t, api.queries)
	})
}

func TestScan(t *testing.T) {
	var progress []storagemodels.StreamProgress
	api := &fakeAPI{scan: func(*sdk.ScanInput) (*sdk.ScanOutput, error) {
		return &sdk.ScanOutput{Items: []map[string]types.AttributeValue{{"id": n("1")}}}, nil
	}}

	items, err := drain(t, New(api).Scan(context.Background(), &storagemodels.ScanParams{
		TableName: "users",
		Filters: []storagemodels.Condition{
			{Attribute: "age", Operator: storagemodels.OpGE, Values: []types.AttributeValue{n("18")}},
			{Attribute: "name", Operator: storagemodels.OpNotNull},
		},
	}, storagemodels.WithProgressHandler(func(p storagemodels.StreamProgress) {
		progress = append(progress, p)
	})))
	require.NoError(t, err)
	assert.Len(t, items, 1)

	require.Len(t, api.scans, 1)
	assert.Equal(t, "#f0 >= :f0 AND attribute_exists(#f1)", aws.ToString(api.scans[0].FilterExpression))
	require.NotEmpty(t, progress)
	assert.Equal(t, int64(1), progress[len(progress)-1].ItemsProcessed)
}

func TestCreateTable(t *testing.T) {
	var got *sdk.CreateTableInput
	api := &fakeAPI{create: func(in *sdk.CreateTableInput) (*sdk.CreateTableOutput, error) {
		got = in
		return &sdk.CreateTableOutput{}, nil
	}}

	err := New(api).CreateTable(context.Background(), storagemodels.TableDefinition{
		TableName: "logs",
		HashKey:   storagemodels.KeyAttribute{Name: "user", Type: "S"},
		RangeKey:  &storagemodels.KeyAttribute{Name: "at", Type: "N"},
	})
	require.NoError(t, err)

	assert.Equal(t, types.BillingModePayPerRequest, got.BillingMode)
	require.Len(t, got.KeySchema, 2)
	assert.Equal(t, types.KeyTypeRange, got.KeySchema[1].KeyType)
	assert.Equal(t, types.ScalarAttributeTypeN, got.AttributeDefinitions[1].AttributeType)
}
