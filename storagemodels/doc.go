/*
Package storagemodels defines the data structures shared by the mapper and
its stores.

Payload is a stored item, Key the key attributes of one:

	key := storagemodels.Key{
	    "id": &types.AttributeValueMemberN{Value: "42"},
	}

Expected describes a conditional write. nil means unconditional:

	expected := storagemodels.Expected{
	    "id":   storagemodels.MustBeAbsent(),
	    "name": storagemodels.MustExist(&types.AttributeValueMemberS{Value: "old"}),
	}

QueryParams and ScanParams carry already encoded key and filter values:

	params := &storagemodels.QueryParams{
	    TableName:   "logs",
	    HashKeyName: "user",
	    HashKey:     &types.AttributeValueMemberS{Value: "jean"},
	    RangeCondition: &storagemodels.Condition{
	        Attribute: "at",
	        Operator:  storagemodels.OpGE,
	        Values:    []types.AttributeValue{&types.AttributeValueMemberS{Value: "2012-01-01"}},
	    },
	}

Query and Scan results are delivered as StreamResult values on a channel,
configured through StreamOption values:

	opts := []storagemodels.StreamOption{
	    storagemodels.WithBufferSize(100),
	    storagemodels.WithPageSize(25),
	    storagemodels.WithMaxRetries(3),
	}
*/
package storagemodels
