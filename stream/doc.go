// Package stream decodes DynamoDB Streams records into entities.
//
// A Lambda function subscribed to a table's stream can watch entities
// change with the same schema, migrations and coercion the mapper uses:
//
//	h := stream.NewHandler(func(ctx context.Context, kind *entitymapper.Kind, event string, old, cur *entitymapper.Entity) error {
//	    ...
//	}, logger, users)
//	lambda.Start(h.Handle)
package stream
