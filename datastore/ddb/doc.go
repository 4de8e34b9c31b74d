/*
Package ddb provides the Amazon DynamoDB implementation of datastore.Store.

Writes go through PutItem and DeleteItem with a ConditionExpression rendered
from storagemodels.Expected; a failed check comes back as
errors.ErrConditionFailed. Counters use an ADD update so concurrent callers
each see a distinct value.

Query and Scan share one paging worker that retries throttling errors:

	results := store.Query(ctx, &storagemodels.QueryParams{
	    TableName:   "events",
	    HashKeyName: "user",
	    HashKey:     &types.AttributeValueMemberS{Value: "jean"},
	    Descending:  true,
	}, storagemodels.WithPageSize(25), storagemodels.WithMaxRetries(3))

	for r := range results {
	    if r.Error != nil {
	        return r.Error
	    }
	    // r.Item is the raw stored item
	}

Set ClientConfig.Endpoint to target DynamoDB Local.
*/
package ddb
